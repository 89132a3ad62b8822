package extract

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/types"
	"strings"

	"github.com/jhump/annoxml"
	"github.com/jhump/annoxml/parser"
)

// attributes returns the recognized annotations found in the given comments.
func (x *Extractor) attributes(scope *fileScope, comments []*ast.Comment) ([]annoxml.Attribute, error) {
	buf, adjuster := extractAnnotations(scope.fset(), comments)
	if buf == nil {
		return nil, nil
	}

	filename := adjuster[0].inPos.Filename
	annos, err := parser.ParseAnnotations(filename, buf)
	if err != nil {
		return nil, err
	}

	var attrs []annoxml.Attribute
	for _, a := range annos {
		attr, ok, err := x.convertAnnotation(scope, a, adjuster)
		if err != nil {
			return nil, err
		}
		if ok {
			attrs = append(attrs, attr)
		}
	}
	return attrs, nil
}

// convertAnnotation resolves the given annotation and, if it is recognized,
// binds its arguments to the annotation's constructor. Malformed text that
// does not name a recognized annotation is prose and is skipped.
func (x *Extractor) convertAnnotation(scope *fileScope, a parser.Annotation, adjuster posAdjuster) (annoxml.Attribute, bool, error) {
	pos := adjuster.adjustPosition(a.Pos)
	obj := scope.lookup(a.Type.PackageAlias, a.Type.Name)
	if obj == nil {
		x.logger.Debug("skipping unresolved annotation", "annotation", a.Type.String(), "pos", pos.String())
		return annoxml.Attribute{}, false, nil
	}
	if obj.Pkg() == nil || !x.recognizer(obj.Pkg().Path()) {
		x.logger.Debug("skipping unrecognized annotation", "annotation", a.Type.String(), "pos", pos.String())
		return annoxml.Attribute{}, false, nil
	}
	if a.Err != nil {
		return annoxml.Attribute{}, false, NewErrorWithPosition(adjuster.adjustPosition(a.Err.Pos()), a.Err.Underlying())
	}

	b, err := bindConstructor(obj, a)
	if err != nil {
		return annoxml.Attribute{}, false, NewErrorWithPosition(pos, err)
	}

	ev := evaluator{scope: scope}
	mismatch := func(arg argument, target types.Type) error {
		return NewErrorWithPosition(adjuster.adjustPosition(a.Position(arg.pos)),
			fmt.Errorf("%w: cannot use %s as %s value in annotation %v", ErrArgumentType, arg.src, types.TypeString(target, nil), a.Type))
	}
	args := make([]argument, 0, len(b.params))
	for i, param := range b.params {
		if b.variadic && i == len(b.params)-1 {
			// surplus arguments are grouped into one array
			arr := argument{kind: KindArray}
			if sl, ok := param.(*types.Slice); ok {
				arr.typ = sl.Elem()
			}
			for _, expr := range b.args[i:] {
				el := coerce(ev.eval(expr), arr.typ)
				if el.kind == KindUnsupported {
					return annoxml.Attribute{}, false, NewErrorWithPosition(adjuster.adjustPosition(a.Position(expr.Pos())), fmt.Errorf("%w: %s argument %s", ErrUnsupportedArgumentKind, el.kind, el.src))
				}
				if !assignable(el, arr.typ) {
					return annoxml.Attribute{}, false, mismatch(el, arr.typ)
				}
				arr.elems = append(arr.elems, el)
			}
			args = append(args, arr)
			break
		}
		arg := b.args[i]
		var val argument
		switch lit, isLit := arg.(*ast.CompositeLit); {
		case arg == nil:
			zero, ok := zeroArgument(param)
			if !ok {
				return annoxml.Attribute{}, false, NewErrorWithPosition(pos, fmt.Errorf("field %s of annotation %v must be set", b.names[i], a.Type))
			}
			args = append(args, zero)
			continue
		case isLit && lit.Type == nil:
			val = ev.evalComposite(lit, param)
			val.src = types.ExprString(lit)
			val.pos = lit.Pos()
		default:
			val = ev.eval(arg)
		}
		val = coerce(val, param)
		if !assignable(val, param) {
			return annoxml.Attribute{}, false, mismatch(val, param)
		}
		args = append(args, val)
	}

	attr := annoxml.Attribute{Constructor: b.ctor}
	for i, arg := range args {
		text, err := render(arg)
		if err != nil {
			argPos := pos
			if i < len(b.args) && b.args[i] != nil {
				argPos = adjuster.adjustPosition(a.Position(b.args[i].Pos()))
			}
			return annoxml.Attribute{}, false, NewErrorWithPosition(argPos, err)
		}
		attr.Arguments = append(attr.Arguments, text)
	}
	return attr, true, nil
}

// binding is an annotation bound to its constructor.
type binding struct {
	ctor string
	// params are the types of the constructor's parameters.
	params []types.Type
	// args are the argument expressions in parameter order. An entry is nil
	// if a composite literal omits the corresponding field.
	args []ast.Expr
	// names are the field names of a struct constructor.
	names []string
	// variadic is true if the surplus arguments of a variadic function must
	// be grouped into one array.
	variadic bool
}

// bindConstructor returns the constructor signature of the given annotation
// object and the types of the parameters that receive its arguments.
//
// An annotation that names a type with no arguments binds to a constructor
// with no parameters. A struct type binds one parameter per field and any
// other type binds a single parameter, like a conversion. An annotation that
// names a function binds to that function.
func bindConstructor(obj types.Object, a parser.Annotation) (binding, error) {
	switch obj := obj.(type) {
	case *types.TypeName:
		name := qualifiedName(obj)
		if a.Literal {
			return bindLiteral(obj, a)
		}
		if len(a.Args) == 0 {
			return binding{ctor: name + "()"}, nil
		}
		if a.Ellipsis {
			return binding{}, fmt.Errorf("annotation %v cannot use ... with a type", a.Type)
		}
		if st, ok := obj.Type().Underlying().(*types.Struct); ok {
			if st.NumFields() != len(a.Args) {
				return binding{}, fmt.Errorf("annotation %v has %d argument(s) but %v has %d field(s)", a.Type, len(a.Args), name, st.NumFields())
			}
			b := structBinding(name, st)
			copy(b.args, a.Args)
			return b, nil
		}
		if len(a.Args) != 1 {
			return binding{}, fmt.Errorf("annotation %v has %d arguments but conversion to %v takes one", a.Type, len(a.Args), name)
		}
		underlying := obj.Type().Underlying()
		return binding{
			ctor:   name + "(" + types.TypeString(underlying, nil) + ")",
			params: []types.Type{obj.Type()},
			args:   a.Args,
		}, nil

	case *types.Func:
		sig := obj.Type().(*types.Signature)
		n := sig.Params().Len()
		b := binding{
			ctor:     qualifiedName(obj) + signatureParams(sig.Params(), sig.Variadic()),
			params:   make([]types.Type, n),
			args:     a.Args,
			variadic: sig.Variadic() && !a.Ellipsis,
		}
		for i := range b.params {
			b.params[i] = sig.Params().At(i).Type()
		}
		switch {
		case a.Literal:
			return binding{}, fmt.Errorf("annotation %v cannot use a composite literal with a function", a.Type)
		case a.Ellipsis && !sig.Variadic():
			return binding{}, fmt.Errorf("annotation %v cannot use ... since %v is not variadic", a.Type, qualifiedName(obj))
		case !sig.Variadic() || a.Ellipsis:
			if len(a.Args) != n {
				return binding{}, fmt.Errorf("annotation %v has %d argument(s) but %v takes %d", a.Type, len(a.Args), qualifiedName(obj), n)
			}
		case len(a.Args) < n-1:
			return binding{}, fmt.Errorf("annotation %v has %d argument(s) but %v takes at least %d", a.Type, len(a.Args), qualifiedName(obj), n-1)
		}
		return b, nil

	default:
		return binding{}, fmt.Errorf("annotation %v must refer to a type or function", a.Type)
	}
}

func structBinding(name string, st *types.Struct) binding {
	b := binding{
		params: make([]types.Type, st.NumFields()),
		args:   make([]ast.Expr, st.NumFields()),
		names:  make([]string, st.NumFields()),
	}
	for i := range b.params {
		b.params[i] = st.Field(i).Type()
		b.names[i] = st.Field(i).Name()
	}
	b.ctor = name + typeList(b.params)
	return b
}

// bindLiteral binds the elements of a composite literal to the fields of a
// struct type. Elements are either all keyed by field name or all
// positional, like Go composite literals. Omitted fields get zero values.
func bindLiteral(tn *types.TypeName, a parser.Annotation) (binding, error) {
	name := qualifiedName(tn)
	st, ok := tn.Type().Underlying().(*types.Struct)
	if !ok {
		return binding{}, fmt.Errorf("annotation %v must refer to a struct type to use a composite literal", a.Type)
	}
	b := structBinding(name, st)
	keyed := 0
	for _, el := range a.Args {
		if _, ok := el.(*ast.KeyValueExpr); ok {
			keyed++
		}
	}
	if keyed == 0 {
		if len(a.Args) > 0 && len(a.Args) != len(b.params) {
			return binding{}, fmt.Errorf("annotation %v has %d value(s) but %v has %d field(s)", a.Type, len(a.Args), name, len(b.params))
		}
		copy(b.args, a.Args)
		return b, nil
	}
	if keyed != len(a.Args) {
		return binding{}, fmt.Errorf("annotation %v mixes field:value and value elements", a.Type)
	}
	for _, el := range a.Args {
		kv := el.(*ast.KeyValueExpr)
		key, ok := kv.Key.(*ast.Ident)
		if !ok {
			return binding{}, fmt.Errorf("annotation %v has invalid field name %s", a.Type, types.ExprString(kv.Key))
		}
		idx := -1
		for i, n := range b.names {
			if n == key.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return binding{}, fmt.Errorf("unknown field %s in annotation %v", key.Name, a.Type)
		}
		if b.args[idx] != nil {
			return binding{}, fmt.Errorf("duplicate field %s in annotation %v", key.Name, a.Type)
		}
		b.args[idx] = kv.Value
	}
	return b, nil
}

// zeroArgument returns the zero value of a field omitted from a composite
// literal. It reports false for types whose zero value has no rendering.
func zeroArgument(t types.Type) (argument, bool) {
	switch u := t.Underlying().(type) {
	case *types.Basic:
		switch {
		case u.Info()&types.IsString != 0:
			return argument{kind: KindPrimitive, val: constant.MakeString(""), typ: t}, true
		case u.Info()&types.IsBoolean != 0:
			return argument{kind: KindPrimitive, val: constant.MakeBool(false), typ: t}, true
		case u.Info()&types.IsNumeric != 0:
			return constantArgument(constant.MakeInt64(0), t), true
		}
	case *types.Slice:
		return argument{kind: KindArray, typ: u.Elem()}, true
	}
	return argument{}, false
}

func typeList(ts []types.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = types.TypeString(t, nil)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
