package extract

import (
	"bytes"
	"go/ast"
	"go/token"
	"strings"
)

// extractAnnotations returns the annotation lines of the given comments:
// lines that start with "@", plus the lines that continue an argument list
// left open by such a line. A blank line ends an argument list. It returns
// nil if there are no annotations. The returned adjuster maps positions in
// the buffer back to positions in the source file.
func extractAnnotations(fset *token.FileSet, comments []*ast.Comment) (*bytes.Buffer, posAdjuster) {
	if len(comments) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	var adjuster posAdjuster
	var pos token.Position
	depth := 0
	for _, l := range comments {
		txt := l.Text
		if strings.HasPrefix(txt, "/*") {
			txt = strings.TrimSuffix(txt[2:], "*/")
		} else {
			txt = strings.TrimPrefix(txt, "//")
		}

		pos = fset.Position(l.Slash)
		// skip past opening "//" or "/*"
		pos.Offset += 2
		pos.Column += 2

		for _, line := range strings.Split(txt, "\n") {
			trimmed := strings.TrimSpace(line)
			include := false
			switch {
			case trimmed == "":
				depth = 0
			case depth > 0:
				include = true
			case trimmed[0] == '@':
				include = true
			}
			if include {
				adjuster = append(adjuster, posAdj{outOffset: buf.Len(), inPos: pos})
				buf.WriteString(line)
				buf.WriteByte('\n')
				depth = bracketDepth(line, depth)
			}
			pos.Offset += len(line) + 1
			pos.Line++
			pos.Column = 1
		}

		// set this so we can record end of input as the last entry in adjuster
		pos = fset.Position(l.End())
	}
	if len(adjuster) == 0 {
		return nil, nil
	}
	adjuster = append(adjuster, posAdj{outOffset: buf.Len(), inPos: pos})
	return &buf, adjuster
}

// bracketDepth returns the nesting depth of brackets after the given line,
// starting at depth. Brackets inside string and rune literals are ignored.
func bracketDepth(line string, depth int) int {
	for i := 0; i < len(line); i++ {
		switch c := line[i]; c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case '"', '\'', '`':
			for i++; i < len(line) && line[i] != c; i++ {
				if line[i] == '\\' && c != '`' {
					i++
				}
			}
		}
	}
	return depth
}

type posAdj struct {
	outOffset int
	inPos     token.Position
}

type posAdjuster []posAdj

func (a posAdjuster) adjustPosition(pos token.Position) token.Position {
	if pos.Line < 1 || pos.Line > len(a) {
		if len(a) == 0 {
			return pos
		}
		return a[len(a)-1].inPos
	}
	el := a[pos.Line-1]
	var tok token.Position
	tok.Filename = el.inPos.Filename
	tok.Line = el.inPos.Line
	tok.Column = el.inPos.Column + pos.Column - 1
	tok.Offset = el.inPos.Offset + (pos.Offset - el.outOffset)
	return tok
}

// commentsBetween returns the comments of the file that lie entirely between
// the two given positions.
func commentsBetween(file *ast.File, from, to token.Pos) []*ast.Comment {
	var comments []*ast.Comment
	for _, group := range file.Comments {
		if group.End() <= from {
			continue
		}
		if group.Pos() >= to {
			break
		}
		for _, c := range group.List {
			if c.Pos() >= from && c.End() <= to {
				comments = append(comments, c)
			}
		}
	}
	return comments
}

func docComments(groups ...*ast.CommentGroup) []*ast.Comment {
	for _, g := range groups {
		if g != nil && len(g.List) > 0 {
			return g.List
		}
	}
	return nil
}
