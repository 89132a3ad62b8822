// Package parser parses annotations that appear in Go comments.
//
// An annotation starts with an "@" followed by an optionally qualified
// identifier. The identifier may be followed by a parenthesized list of
// arguments, each of which is a Go expression:
//
//    @NotNull
//    @annotations.StringFormatMethod("format")
//    @annotations.UsedImplicitlyAs(annotations.ImplicitUseKindAccess, annotations.ImplicitUseKindAssign)
//
// A struct annotation may also be written as a composite literal, with keyed
// or positional fields:
//
//    @annotations.ContractAnnotation{Contract: "s:null => halt"}
//
// More than one annotation can appear on the same line. Since arguments are
// parsed as Go expressions, an argument list that spans multiple lines must
// use a trailing comma, just like Go source.
//
// Text that is not an annotation is ignored, so annotations can share a
// comment with prose or with annotations meant for other tools (such as
// "@Summary List users"). An annotation whose arguments cannot be parsed is
// still returned, with Err describing the problem, so that the caller can
// decide whether it matters.
package parser

import (
	"errors"
	"fmt"
	"go/ast"
	goparser "go/parser"
	"go/scanner"
	"go/token"
	"io"
)

// Identifier refers to an annotation type or constructor, possibly qualified
// with a package name/alias.
type Identifier struct {
	PackageAlias string
	Name         string
	Pos          token.Position
}

func (id Identifier) String() string {
	if id.PackageAlias == "" {
		return id.Name
	} else {
		return fmt.Sprintf("%s.%s", id.PackageAlias, id.Name)
	}
}

// Annotation is a fully parsed annotation. It identifies the annotation type
// (or constructor function) and has an optional list of arguments.
type Annotation struct {
	Type Identifier
	// Args are the argument expressions, in order. Use Position to compute
	// the location of an argument in the parsed input.
	Args []ast.Expr
	// HasArgs is true if the annotation included a parenthesized argument
	// list, even if the list was empty.
	HasArgs bool
	// Ellipsis is true if the final argument was followed by "...".
	Ellipsis bool
	// Literal is true if the annotation was written as a composite literal,
	// in which case Args are the elements of the literal and may be
	// *ast.KeyValueExpr values.
	Literal bool
	// Err is non-nil if the annotation's arguments are malformed. Only Type
	// and Pos are valid in that case.
	Err *ParseError
	// Pos is the location of the leading "@".
	Pos token.Position

	exprFset *token.FileSet
	base     int
	file     *token.File
}

// Position returns the location in the parsed input of the given position,
// which must be the position of a node in a.Args.
func (a *Annotation) Position(p token.Pos) token.Position {
	if a.exprFset == nil || !p.IsValid() {
		return a.Pos
	}
	off := a.exprFset.Position(p).Offset + a.base
	if off < 0 || off > a.file.Size() {
		return a.Pos
	}
	return a.file.Position(a.file.Pos(off))
}

// ParseError describes a malformed annotation.
type ParseError struct {
	err error
	pos token.Position
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.pos.Line, e.pos.Column, e.err)
}

// Underlying returns the underlying error.
func (e *ParseError) Underlying() error {
	return e.err
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.err
}

// Pos returns the location in the input where the error was found.
func (e *ParseError) Pos() token.Position {
	return e.pos
}

type tok struct {
	pos token.Pos
	tok token.Token
	lit string
}

// ParseAnnotations parses all annotations in the given input. Anything that
// is not an annotation is skipped. An error is returned only if the input
// cannot be read.
func ParseAnnotations(filename string, r io.Reader) ([]Annotation, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{err: err, pos: token.Position{Filename: filename}}
	}

	fset := token.NewFileSet()
	file := fset.AddFile(filename, -1, len(src))
	var scanErrs []*ParseError
	var s scanner.Scanner
	s.Init(file, src, func(pos token.Position, msg string) {
		if !isAtSign(src, pos) {
			scanErrs = append(scanErrs, &ParseError{err: errors.New(msg), pos: pos})
		}
	}, 0)

	var toks []tok
	for {
		p, t, lit := s.Scan()
		if t == token.EOF {
			break
		}
		toks = append(toks, tok{pos: p, tok: t, lit: lit})
	}

	p := &annoParser{fset: fset, file: file, src: src, toks: toks, scanErrs: scanErrs}
	var annos []Annotation
	for i := 0; i < len(p.toks); {
		if !p.isAnnotationStart(i) {
			// prose
			i++
			continue
		}
		anno, next := p.parseAnnotation(i)
		annos = append(annos, anno)
		i = next
	}
	return annos, nil
}

type annoParser struct {
	fset     *token.FileSet
	file     *token.File
	src      []byte
	toks     []tok
	scanErrs []*ParseError
}

// isAnnotationStart returns true if the i-th token is an "@" immediately
// followed by an identifier.
func (p *annoParser) isAnnotationStart(i int) bool {
	if p.toks[i].tok != token.ILLEGAL || p.toks[i].lit != "@" || i+1 >= len(p.toks) {
		return false
	}
	next := p.toks[i+1]
	return next.tok == token.IDENT && p.file.Offset(next.pos) == p.file.Offset(p.toks[i].pos)+1
}

// parseAnnotation parses the annotation whose "@" is the i-th token. It
// returns the annotation and the index of the first token after it.
func (p *annoParser) parseAnnotation(i int) (Annotation, int) {
	at := p.toks[i]
	anno := Annotation{Pos: p.fset.Position(at.pos)}
	i++
	nameStart := i
	start := p.file.Offset(p.toks[i].pos)
	end := start + len(p.toks[i].lit)
	anno.Type = Identifier{Name: p.toks[i].lit, Pos: p.fset.Position(p.toks[i].pos)}
	i++
	if i+1 < len(p.toks) && p.toks[i].tok == token.PERIOD && p.toks[i+1].tok == token.IDENT {
		anno.Type = Identifier{PackageAlias: anno.Type.Name, Name: p.toks[i+1].lit, Pos: anno.Type.Pos}
		end = p.file.Offset(p.toks[i+1].pos) + len(p.toks[i+1].lit)
		i += 2
	}
	afterName := i

	if i < len(p.toks) && (p.toks[i].tok == token.LPAREN || p.toks[i].tok == token.LBRACE) {
		depth := 0
		closed := false
		for ; i < len(p.toks); i++ {
			switch p.toks[i].tok {
			case token.LPAREN, token.LBRACK, token.LBRACE:
				depth++
			case token.RPAREN, token.RBRACK, token.RBRACE:
				depth--
			}
			if depth == 0 {
				end = p.file.Offset(p.toks[i].pos) + 1
				closed = true
				i++
				break
			}
		}
		if !closed {
			// the rest of the input may hold other annotations
			anno.Err = &ParseError{err: errors.New("unbalanced parentheses in annotation arguments"), pos: anno.Pos}
			return anno, afterName
		}
	}
	for _, serr := range p.scanErrs {
		if serr.pos.Offset >= start && serr.pos.Offset < end {
			anno.Err = serr
			return anno, i
		}
	}

	exprFset := token.NewFileSet()
	expr, err := goparser.ParseExprFrom(exprFset, p.file.Name(), p.src[start:end], 0)
	if err != nil {
		var list scanner.ErrorList
		if errors.As(err, &list) && len(list) > 0 {
			pos := p.file.Position(p.file.Pos(start + list[0].Pos.Offset))
			anno.Err = &ParseError{err: errors.New(list[0].Msg), pos: pos}
		} else {
			anno.Err = &ParseError{err: err, pos: anno.Pos}
		}
		return anno, i
	}
	anno.exprFset = exprFset
	anno.base = start
	anno.file = p.file

	switch e := expr.(type) {
	case *ast.CallExpr:
		anno.HasArgs = true
		anno.Args = e.Args
		anno.Ellipsis = e.Ellipsis.IsValid()
	case *ast.CompositeLit:
		anno.HasArgs = true
		anno.Literal = true
		anno.Args = e.Elts
	case *ast.Ident, *ast.SelectorExpr:
	default:
		anno.Err = &ParseError{err: fmt.Errorf("invalid annotation %s", p.src[start:end]), pos: p.fset.Position(p.toks[nameStart].pos)}
	}
	return anno, i
}

func isAtSign(src []byte, pos token.Position) bool {
	return pos.Offset >= 0 && pos.Offset < len(src) && src[pos.Offset] == '@'
}
