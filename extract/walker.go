package extract

import (
	"go/ast"
	"go/token"
	"go/types"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/tools/go/packages"

	"github.com/jhump/annoxml"
)

type funcInfo struct {
	decl  *ast.FuncDecl
	scope *fileScope
}

type accessors struct {
	getter, setter *types.Func
}

// walker visits the declarations of one package in document order.
type walker struct {
	x     *Extractor
	pkg   *packages.Package
	yield func(annoxml.Member, error) bool

	funcs      map[*types.Func]funcInfo
	properties map[*types.Var]accessors
	claimed    map[*types.Func]bool
}

func newWalker(x *Extractor, pkg *packages.Package, yield func(annoxml.Member, error) bool) *walker {
	w := &walker{
		x:          x,
		pkg:        pkg,
		yield:      yield,
		funcs:      map[*types.Func]funcInfo{},
		properties: map[*types.Var]accessors{},
		claimed:    map[*types.Func]bool{},
	}
	for _, file := range pkg.Syntax {
		scope := &fileScope{pkg: pkg, file: file}
		for _, decl := range file.Decls {
			if fd, ok := decl.(*ast.FuncDecl); ok {
				if fn, ok := pkg.TypesInfo.Defs[fd.Name].(*types.Func); ok {
					w.funcs[fn] = funcInfo{decl: fd, scope: scope}
				}
			}
		}
	}
	// accessors must be known before any file is visited, since a method
	// may be declared before the type that owns it
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, s := range gd.Specs {
				w.findProperties(s.(*ast.TypeSpec))
			}
		}
	}
	return w
}

func (w *walker) findProperties(spec *ast.TypeSpec) {
	tn, ok := w.pkg.TypesInfo.Defs[spec.Name].(*types.TypeName)
	if !ok || tn.IsAlias() {
		return
	}
	st, ok := spec.Type.(*ast.StructType)
	if !ok {
		return
	}
	for _, field := range st.Fields.List {
		for _, name := range field.Names {
			v, ok := w.pkg.TypesInfo.Defs[name].(*types.Var)
			if !ok || v.Exported() {
				continue
			}
			acc := w.findAccessors(tn, name.Name)
			if acc.getter == nil && acc.setter == nil {
				continue
			}
			w.properties[v] = acc
			if acc.getter != nil {
				w.claimed[acc.getter] = true
			}
			if acc.setter != nil {
				w.claimed[acc.setter] = true
			}
		}
	}
}

// findAccessors returns the getter and setter for the given unexported
// field: a method with the field's exported name that takes no parameters
// and returns one value, and a "Set" method that takes one parameter.
func (w *walker) findAccessors(tn *types.TypeName, field string) accessors {
	var acc accessors
	named, ok := tn.Type().(*types.Named)
	if !ok {
		return acc
	}
	prop := propertyName(field)
	if prop == "" {
		return acc
	}
	for i := 0; i < named.NumMethods(); i++ {
		m := named.Method(i)
		if _, ok := w.funcs[m]; !ok {
			continue
		}
		sig := m.Type().(*types.Signature)
		switch m.Name() {
		case prop:
			if sig.Params().Len() == 0 && sig.Results().Len() == 1 {
				acc.getter = m
			}
		case "Set" + prop:
			if sig.Params().Len() == 1 && !sig.Variadic() {
				acc.setter = m
			}
		}
	}
	return acc
}

// propertyName returns the exported name of the given unexported field
// name, or the empty string if it has none.
func propertyName(field string) string {
	if field == "_" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(field)
	if !unicode.IsLetter(r) {
		return ""
	}
	up := unicode.ToUpper(r)
	if up == r {
		return ""
	}
	return string(up) + field[size:]
}

// walkFile visits the declarations of the given file. It returns false if
// iteration should stop.
func (w *walker) walkFile(file *ast.File) bool {
	scope := &fileScope{pkg: w.pkg, file: file}
	for _, decl := range file.Decls {
		switch decl := decl.(type) {
		case *ast.GenDecl:
			switch decl.Tok {
			case token.TYPE:
				for _, s := range decl.Specs {
					if !w.walkType(scope, decl, s.(*ast.TypeSpec)) {
						return false
					}
				}
			case token.VAR, token.CONST:
				for _, s := range decl.Specs {
					if !w.walkValues(scope, decl, s.(*ast.ValueSpec)) {
						return false
					}
				}
			}
		case *ast.FuncDecl:
			if !w.walkFunc(scope, decl) {
				return false
			}
		}
	}
	return true
}

// specDoc returns the doc comment of a spec. A spec that is not in a
// parenthesized group uses the doc comment of its declaration.
func specDoc(decl *ast.GenDecl, doc *ast.CommentGroup) []*ast.Comment {
	if !decl.Lparen.IsValid() {
		return docComments(doc, decl.Doc)
	}
	return docComments(doc)
}

// nameComments returns the comments for the i-th name of a multi-name
// declaration: the shared doc comment plus any comments between the
// previous name and this one.
func nameComments(file *ast.File, doc []*ast.Comment, names []*ast.Ident, i int) []*ast.Comment {
	if i == 0 {
		return doc
	}
	between := commentsBetween(file, names[i-1].End(), names[i].Pos())
	if len(between) == 0 {
		return doc
	}
	return append(append([]*ast.Comment(nil), doc...), between...)
}

func (w *walker) walkType(scope *fileScope, decl *ast.GenDecl, spec *ast.TypeSpec) bool {
	tn, ok := w.pkg.TypesInfo.Defs[spec.Name].(*types.TypeName)
	if !ok {
		return true
	}
	if !w.emit(Symbol{
		Kind:     NamedTypeSymbol,
		Name:     typeDisplayName(tn),
		Obj:      tn,
		scope:    scope,
		comments: specDoc(decl, spec.Doc),
	}) {
		return false
	}
	if tn.IsAlias() {
		return true
	}
	switch t := spec.Type.(type) {
	case *ast.StructType:
		return w.walkFields(scope, tn, t.Fields)
	case *ast.InterfaceType:
		return w.walkInterface(scope, t.Methods)
	}
	return true
}

func (w *walker) walkFields(scope *fileScope, owner *types.TypeName, fields *ast.FieldList) bool {
	for _, field := range fields.List {
		doc := docComments(field.Doc)
		for i, name := range field.Names {
			if name.Name == "_" {
				continue
			}
			v, ok := w.pkg.TypesInfo.Defs[name].(*types.Var)
			if !ok {
				continue
			}
			comments := nameComments(scope.file, doc, field.Names, i)
			sym := Symbol{
				Kind:     FieldSymbol,
				Name:     memberDisplayName(owner, name.Name),
				Obj:      v,
				scope:    scope,
				comments: comments,
			}
			if acc, ok := w.properties[v]; ok {
				sym.Kind = PropertySymbol
				sym.Name = memberDisplayName(owner, propertyName(name.Name))
				for _, fn := range []*types.Func{acc.getter, acc.setter} {
					if fn == nil {
						continue
					}
					info := w.funcs[fn]
					sym.accessors = append(sym.accessors, Symbol{
						Kind:     MethodSymbol,
						Name:     funcDisplayName(fn),
						Obj:      fn,
						scope:    info.scope,
						comments: docComments(info.decl.Doc),
					})
				}
			}
			if !w.emit(sym) {
				return false
			}
		}
	}
	return true
}

func (w *walker) walkInterface(scope *fileScope, methods *ast.FieldList) bool {
	for _, field := range methods.List {
		ft, ok := field.Type.(*ast.FuncType)
		if !ok || len(field.Names) != 1 {
			// embedded interfaces and type constraints
			continue
		}
		fn, ok := w.pkg.TypesInfo.Defs[field.Names[0]].(*types.Func)
		if !ok {
			continue
		}
		if !w.emit(Symbol{
			Kind:     MethodSymbol,
			Name:     funcDisplayName(fn),
			Obj:      fn,
			scope:    scope,
			comments: docComments(field.Doc),
			params:   ft.Params,
		}) {
			return false
		}
	}
	return true
}

func (w *walker) walkValues(scope *fileScope, decl *ast.GenDecl, spec *ast.ValueSpec) bool {
	doc := specDoc(decl, spec.Doc)
	for i, name := range spec.Names {
		if name.Name == "_" {
			continue
		}
		obj := w.pkg.TypesInfo.Defs[name]
		if obj == nil {
			continue
		}
		if !w.emit(Symbol{
			Kind:     FieldSymbol,
			Name:     qualifiedName(obj),
			Obj:      obj,
			scope:    scope,
			comments: nameComments(scope.file, doc, spec.Names, i),
		}) {
			return false
		}
	}
	return true
}

func (w *walker) walkFunc(scope *fileScope, decl *ast.FuncDecl) bool {
	fn, ok := w.pkg.TypesInfo.Defs[decl.Name].(*types.Func)
	if !ok || w.claimed[fn] {
		return true
	}
	kind := MethodSymbol
	if decl.Recv == nil && w.isConstructor(fn) {
		kind = ConstructorSymbol
	}
	return w.emit(Symbol{
		Kind:     kind,
		Name:     funcDisplayName(fn),
		Obj:      fn,
		scope:    scope,
		comments: docComments(decl.Doc),
		params:   decl.Type.Params,
	})
}

// isConstructor reports whether fn is a function named New... whose first
// result is a type, or a pointer to a type, declared in this package.
func (w *walker) isConstructor(fn *types.Func) bool {
	if !strings.HasPrefix(fn.Name(), "New") {
		return false
	}
	results := fn.Type().(*types.Signature).Results()
	if results.Len() == 0 {
		return false
	}
	t := results.At(0).Type()
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	named, ok := types.Unalias(t).(*types.Named)
	return ok && named.Obj().Pkg() == w.pkg.Types
}

// emit extracts the member records of the given symbol and passes them to
// yield. It returns false if iteration should stop.
func (w *walker) emit(sym Symbol) bool {
	for _, s := range expand(sym) {
		m, ok, err := w.extractMember(s)
		if err != nil {
			w.yield(annoxml.Member{}, err)
			return false
		}
		if ok && !w.yield(m, nil) {
			return false
		}
	}
	return true
}

func (w *walker) extractMember(sym Symbol) (annoxml.Member, bool, error) {
	attrs, err := w.x.attributes(sym.scope, sym.comments)
	if err != nil {
		return annoxml.Member{}, false, err
	}
	var params []annoxml.Parameter
	if sym.params != nil {
		params, err = w.parameters(sym)
		if err != nil {
			return annoxml.Member{}, false, err
		}
	}
	if len(attrs) == 0 && len(params) == 0 {
		return annoxml.Member{}, false, nil
	}
	id, err := FormatIdentifier(sym)
	if err != nil {
		return annoxml.Member{}, false, NewErrorWithPosition(sym.scope.position(sym.Obj.Pos()), err)
	}
	return annoxml.Member{
		Name:       id,
		Attributes: attrs,
		Parameters: params,
		Package:    w.pkg.PkgPath,
	}, true, nil
}

// parameters returns the annotated parameters of a method-like symbol. A
// parameter's annotations are the comments between the previous parameter
// (or the opening parenthesis) and the parameter's name.
func (w *walker) parameters(sym Symbol) ([]annoxml.Parameter, error) {
	var params []annoxml.Parameter
	prev := sym.params.Opening
	for _, field := range sym.params.List {
		for _, name := range field.Names {
			comments := commentsBetween(sym.scope.file, prev, name.Pos())
			prev = name.End()
			attrs, err := w.x.attributes(sym.scope, comments)
			if err != nil {
				return nil, err
			}
			if len(attrs) > 0 {
				params = append(params, annoxml.Parameter{Name: name.Name, Attributes: attrs})
			}
		}
		prev = field.End()
	}
	return params, nil
}
