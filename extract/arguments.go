package extract

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"strconv"
	"strings"
)

// ArgumentKind describes how an annotation argument is rendered.
type ArgumentKind int

const (
	// KindInvalid should not be used and indicates an incorrectly
	// uninitialized kind.
	KindInvalid ArgumentKind = iota
	// KindError is an argument that could not be resolved or evaluated. It is
	// rendered as its source text.
	KindError
	// KindEnum is a constant whose type is a named integer type.
	KindEnum
	// KindPrimitive is any other constant.
	KindPrimitive
	// KindType is a type expression.
	KindType
	// KindArray is a slice or array literal, or the grouped trailing
	// arguments of a variadic function.
	KindArray
	// KindUnsupported is an argument that has no rendering, such as nil,
	// a variable, a function, or a struct or map literal.
	KindUnsupported
)

var argumentKindNames = map[ArgumentKind]string{
	KindError:       "error",
	KindEnum:        "enum",
	KindPrimitive:   "primitive",
	KindType:        "type",
	KindArray:       "array",
	KindUnsupported: "unsupported",
}

func (k ArgumentKind) String() string {
	if s, ok := argumentKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("?%d?", int(k))
}

// argument is an evaluated annotation argument.
type argument struct {
	kind ArgumentKind
	// val is the value of enum and primitive arguments.
	val constant.Value
	// typ is the type of a constant (nil when untyped), the type of a type
	// argument, or the element type of an array.
	typ   types.Type
	elems []argument
	// src is the source text of the expression.
	src string
	pos token.Pos
}

// evaluator evaluates annotation argument expressions in the scope of a
// file.
type evaluator struct {
	scope *fileScope
}

func (e evaluator) eval(expr ast.Expr) argument {
	arg := e.evalExpr(expr)
	arg.src = types.ExprString(expr)
	arg.pos = expr.Pos()
	return arg
}

func (e evaluator) evalExpr(expr ast.Expr) argument {
	switch expr := expr.(type) {
	case *ast.ParenExpr:
		return e.eval(expr.X)

	case *ast.BasicLit:
		val := constant.MakeFromLiteral(expr.Value, expr.Kind, 0)
		if val.Kind() == constant.Unknown {
			return argument{kind: KindError}
		}
		var typ types.Type
		if expr.Kind == token.CHAR {
			typ = types.Typ[types.UntypedRune]
		}
		return argument{kind: KindPrimitive, val: val, typ: typ}

	case *ast.Ident, *ast.SelectorExpr:
		obj, ok := e.resolve(expr)
		if !ok {
			return argument{kind: KindError}
		}
		return e.evalObject(obj)

	case *ast.UnaryExpr:
		if expr.Op == token.AND || expr.Op == token.ARROW {
			return argument{kind: KindUnsupported}
		}
		x := e.eval(expr.X)
		if x.kind != KindEnum && x.kind != KindPrimitive {
			return x
		}
		val, ok := safeConstantOp(func() constant.Value {
			return constant.UnaryOp(expr.Op, x.val, 0)
		})
		if !ok {
			return argument{kind: KindError}
		}
		return constantArgument(val, x.typ)

	case *ast.BinaryExpr:
		return e.evalBinary(expr)

	case *ast.CallExpr:
		return e.evalCall(expr)

	case *ast.CompositeLit:
		return e.evalComposite(expr, nil)

	case *ast.StarExpr, *ast.ArrayType, *ast.MapType, *ast.ChanType, *ast.InterfaceType, *ast.StructType,
		*ast.FuncType, *ast.IndexExpr, *ast.IndexListExpr:
		t, ok := e.resolveType(expr)
		if !ok {
			return argument{kind: KindError}
		}
		return argument{kind: KindType, typ: t}

	case *ast.FuncLit, *ast.KeyValueExpr:
		return argument{kind: KindUnsupported}

	default:
		return argument{kind: KindError}
	}
}

// resolve looks up an identifier or a package-qualified identifier.
func (e evaluator) resolve(expr ast.Expr) (types.Object, bool) {
	var obj types.Object
	switch expr := expr.(type) {
	case *ast.Ident:
		obj = e.scope.lookup("", expr.Name)
	case *ast.SelectorExpr:
		x, ok := expr.X.(*ast.Ident)
		if !ok {
			return nil, false
		}
		obj = e.scope.lookup(x.Name, expr.Sel.Name)
	}
	return obj, obj != nil
}

func (e evaluator) evalObject(obj types.Object) argument {
	switch obj := obj.(type) {
	case *types.Const:
		return constantArgument(obj.Val(), obj.Type())
	case *types.TypeName:
		if isGeneric(obj.Type()) {
			// type arguments are required
			return argument{kind: KindUnsupported}
		}
		return argument{kind: KindType, typ: obj.Type()}
	default:
		// nil, variables, functions, and builtins
		return argument{kind: KindUnsupported}
	}
}

func (e evaluator) evalBinary(expr *ast.BinaryExpr) argument {
	x := e.eval(expr.X)
	y := e.eval(expr.Y)
	for _, operand := range []argument{x, y} {
		if operand.kind == KindUnsupported {
			return operand
		}
		if operand.kind != KindEnum && operand.kind != KindPrimitive {
			return argument{kind: KindError}
		}
	}

	typ := x.typ
	if typ == nil || isUntyped(typ) {
		typ = y.typ
	}

	switch expr.Op {
	case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ:
		var result bool
		if _, ok := safeConstantOp(func() constant.Value {
			result = constant.Compare(x.val, expr.Op, y.val)
			return constant.MakeBool(result)
		}); !ok {
			return argument{kind: KindError}
		}
		return argument{kind: KindPrimitive, val: constant.MakeBool(result)}

	case token.SHL, token.SHR:
		s, ok := constant.Uint64Val(constant.ToInt(y.val))
		if !ok {
			return argument{kind: KindError}
		}
		val, ok := safeConstantOp(func() constant.Value {
			return constant.Shift(x.val, expr.Op, uint(s))
		})
		if !ok {
			return argument{kind: KindError}
		}
		return constantArgument(val, x.typ)
	}

	op := expr.Op
	if op == token.QUO && isIntegerValue(x.val) && isIntegerValue(y.val) && !isFloatType(typ) {
		op = token.QUO_ASSIGN // integer division
	}
	val, ok := safeConstantOp(func() constant.Value {
		return constant.BinaryOp(x.val, op, y.val)
	})
	if !ok {
		return argument{kind: KindError}
	}
	return constantArgument(val, typ)
}

// evalCall evaluates conversions. Calls of functions are not supported.
func (e evaluator) evalCall(expr *ast.CallExpr) argument {
	t, ok := e.resolveType(expr.Fun)
	if !ok {
		if obj, found := e.resolve(expr.Fun); found {
			if _, isType := obj.(*types.TypeName); !isType {
				return argument{kind: KindUnsupported}
			}
		}
		return argument{kind: KindError}
	}
	if len(expr.Args) != 1 || expr.Ellipsis.IsValid() {
		return argument{kind: KindError}
	}
	x := e.eval(expr.Args[0])
	if x.kind != KindEnum && x.kind != KindPrimitive {
		return x
	}
	return convertConstant(x, t)
}

func (e evaluator) evalComposite(expr *ast.CompositeLit, implicit types.Type) argument {
	var litType types.Type
	if expr.Type != nil {
		t, ok := e.resolveType(expr.Type)
		if !ok {
			return argument{kind: KindError}
		}
		litType = t
	} else {
		litType = implicit
	}
	if litType == nil {
		return argument{kind: KindError}
	}
	var elemType types.Type
	switch u := litType.Underlying().(type) {
	case *types.Slice:
		elemType = u.Elem()
	case *types.Array:
		elemType = u.Elem()
	default:
		return argument{kind: KindUnsupported}
	}

	arr := argument{kind: KindArray, typ: elemType}
	for _, el := range expr.Elts {
		var elem argument
		switch el := el.(type) {
		case *ast.KeyValueExpr:
			return argument{kind: KindUnsupported}
		case *ast.CompositeLit:
			elem = e.evalComposite(el, elemType)
			elem.src = types.ExprString(el)
			elem.pos = el.Pos()
		default:
			elem = e.eval(el)
		}
		elem = coerce(elem, elemType)
		if elem.kind == KindUnsupported || elem.kind == KindError {
			return argument{kind: elem.kind}
		}
		arr.elems = append(arr.elems, elem)
	}
	return arr
}

// resolveType resolves a type expression.
func (e evaluator) resolveType(expr ast.Expr) (types.Type, bool) {
	switch expr := expr.(type) {
	case *ast.ParenExpr:
		return e.resolveType(expr.X)
	case *ast.Ident, *ast.SelectorExpr:
		obj, ok := e.resolve(expr)
		if !ok {
			return nil, false
		}
		tn, ok := obj.(*types.TypeName)
		if !ok || isGeneric(tn.Type()) {
			return nil, false
		}
		return tn.Type(), true
	case *ast.IndexExpr:
		return e.instantiate(expr.X, []ast.Expr{expr.Index})
	case *ast.IndexListExpr:
		return e.instantiate(expr.X, expr.Indices)
	case *ast.StarExpr:
		elem, ok := e.resolveType(expr.X)
		if !ok {
			return nil, false
		}
		return types.NewPointer(elem), true
	case *ast.ArrayType:
		elem, ok := e.resolveType(expr.Elt)
		if !ok {
			return nil, false
		}
		if expr.Len == nil {
			return types.NewSlice(elem), true
		}
		n := e.eval(expr.Len)
		if n.kind != KindPrimitive && n.kind != KindEnum {
			return nil, false
		}
		length, ok := constant.Int64Val(constant.ToInt(n.val))
		if !ok || length < 0 {
			return nil, false
		}
		return types.NewArray(elem, length), true
	case *ast.MapType:
		key, ok := e.resolveType(expr.Key)
		if !ok {
			return nil, false
		}
		val, ok := e.resolveType(expr.Value)
		if !ok {
			return nil, false
		}
		return types.NewMap(key, val), true
	case *ast.ChanType:
		elem, ok := e.resolveType(expr.Value)
		if !ok {
			return nil, false
		}
		dir := types.SendRecv
		switch expr.Dir {
		case ast.SEND:
			dir = types.SendOnly
		case ast.RECV:
			dir = types.RecvOnly
		}
		return types.NewChan(dir, elem), true
	case *ast.InterfaceType:
		return e.resolveInterface(expr)
	case *ast.StructType:
		return e.resolveStruct(expr)
	case *ast.FuncType:
		sig, ok := e.resolveSignature(expr)
		if !ok {
			return nil, false
		}
		return sig, true
	default:
		return nil, false
	}
}

// instantiate resolves a generic type with the given type arguments.
func (e evaluator) instantiate(x ast.Expr, indices []ast.Expr) (types.Type, bool) {
	obj, ok := e.resolve(x)
	if !ok {
		return nil, false
	}
	tn, ok := obj.(*types.TypeName)
	if !ok {
		return nil, false
	}
	generic, ok := tn.Type().(*types.Named)
	if !ok || generic.TypeParams().Len() != len(indices) {
		return nil, false
	}
	targs := make([]types.Type, len(indices))
	for i, index := range indices {
		t, ok := e.resolveType(index)
		if !ok {
			return nil, false
		}
		targs[i] = t
	}
	t, err := types.Instantiate(nil, generic, targs, true)
	if err != nil {
		return nil, false
	}
	return t, true
}

func (e evaluator) resolveStruct(expr *ast.StructType) (types.Type, bool) {
	var fields []*types.Var
	var tags []string
	for _, field := range expr.Fields.List {
		typ, ok := e.resolveType(field.Type)
		if !ok {
			return nil, false
		}
		var tag string
		if field.Tag != nil {
			t, err := strconv.Unquote(field.Tag.Value)
			if err != nil {
				return nil, false
			}
			tag = t
		}
		if len(field.Names) == 0 {
			name, ok := embeddedName(typ)
			if !ok {
				return nil, false
			}
			fields = append(fields, types.NewField(field.Pos(), e.scope.pkg.Types, name, typ, true))
			tags = append(tags, tag)
			continue
		}
		for _, name := range field.Names {
			fields = append(fields, types.NewField(name.Pos(), e.scope.pkg.Types, name.Name, typ, false))
			tags = append(tags, tag)
		}
	}
	return types.NewStruct(fields, tags), true
}

func embeddedName(t types.Type) (string, bool) {
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	switch t := types.Unalias(t).(type) {
	case *types.Named:
		return t.Obj().Name(), true
	case *types.Basic:
		return t.Name(), true
	default:
		return "", false
	}
}

// resolveInterface resolves an interface type of methods and embedded
// interfaces. Type constraints such as unions are not supported.
func (e evaluator) resolveInterface(expr *ast.InterfaceType) (types.Type, bool) {
	var methods []*types.Func
	var embeddeds []types.Type
	for _, field := range expr.Methods.List {
		if len(field.Names) == 0 {
			t, ok := e.resolveType(field.Type)
			if !ok {
				return nil, false
			}
			if _, ok := t.Underlying().(*types.Interface); !ok {
				return nil, false
			}
			embeddeds = append(embeddeds, t)
			continue
		}
		ft, ok := field.Type.(*ast.FuncType)
		if !ok {
			return nil, false
		}
		sig, ok := e.resolveSignature(ft)
		if !ok {
			return nil, false
		}
		for _, name := range field.Names {
			methods = append(methods, types.NewFunc(name.Pos(), e.scope.pkg.Types, name.Name, sig))
		}
	}
	return types.NewInterfaceType(methods, embeddeds).Complete(), true
}

func (e evaluator) resolveSignature(expr *ast.FuncType) (*types.Signature, bool) {
	if expr.TypeParams != nil {
		return nil, false
	}
	params, variadic, ok := e.resolveTuple(expr.Params)
	if !ok {
		return nil, false
	}
	results, resultVariadic, ok := e.resolveTuple(expr.Results)
	if !ok || resultVariadic {
		return nil, false
	}
	return types.NewSignatureType(nil, nil, nil, params, results, variadic), true
}

// resolveTuple resolves a parameter or result list. It reports whether the
// last parameter is variadic.
func (e evaluator) resolveTuple(list *ast.FieldList) (*types.Tuple, bool, bool) {
	if list == nil {
		return nil, false, true
	}
	var vars []*types.Var
	variadic := false
	for i, field := range list.List {
		typeExpr := field.Type
		if ell, ok := typeExpr.(*ast.Ellipsis); ok {
			if i != len(list.List)-1 || len(field.Names) > 1 {
				return nil, false, false
			}
			typeExpr = ell.Elt
			variadic = true
		}
		typ, ok := e.resolveType(typeExpr)
		if !ok {
			return nil, false, false
		}
		if variadic {
			typ = types.NewSlice(typ)
		}
		if len(field.Names) == 0 {
			vars = append(vars, types.NewParam(field.Pos(), e.scope.pkg.Types, "", typ))
			continue
		}
		for _, name := range field.Names {
			vars = append(vars, types.NewParam(name.Pos(), e.scope.pkg.Types, name.Name, typ))
		}
	}
	return types.NewTuple(vars...), variadic, true
}

// isGeneric reports whether t is a generic type that has not been
// instantiated.
func isGeneric(t types.Type) bool {
	named, ok := t.(*types.Named)
	return ok && named.TypeParams().Len() > 0 && named.TypeArgs().Len() == 0
}

// coerce adapts an evaluated argument to the type of the parameter that
// receives it. Untyped integer constants passed to a named integer type
// become enums.
func coerce(arg argument, target types.Type) argument {
	if target == nil {
		return arg
	}
	if arg.kind == KindPrimitive && (arg.typ == nil || isUntyped(arg.typ)) && isEnumType(target) {
		if v := constant.ToInt(arg.val); v.Kind() == constant.Int {
			return argument{kind: KindEnum, val: v, typ: target, src: arg.src, pos: arg.pos}
		}
	}
	return arg
}

// assignable reports whether the evaluated argument can be passed to a
// parameter of the given type. Arguments that could not be evaluated are
// accepted, since they are rendered as their source text.
func assignable(arg argument, target types.Type) bool {
	if target == nil {
		return true
	}
	switch arg.kind {
	case KindType:
		_, ok := target.Underlying().(*types.Interface)
		return ok
	case KindEnum, KindPrimitive:
		if arg.typ != nil && !isUntyped(arg.typ) {
			return types.AssignableTo(arg.typ, target)
		}
		return untypedAssignable(arg, target)
	case KindArray:
		var elem types.Type
		switch u := target.Underlying().(type) {
		case *types.Slice:
			elem = u.Elem()
		case *types.Array:
			elem = u.Elem()
		case *types.Interface:
			if u.Empty() {
				return true
			}
			return arg.typ != nil && types.AssignableTo(types.NewSlice(arg.typ), target)
		default:
			return false
		}
		for _, el := range arg.elems {
			if !assignable(el, elem) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// untypedAssignable reports whether an untyped constant can be converted
// implicitly to the given type.
func untypedAssignable(arg argument, target types.Type) bool {
	switch u := target.Underlying().(type) {
	case *types.Interface:
		if u.Empty() {
			return true
		}
		t := inferElemType([]argument{arg})
		return t != nil && types.AssignableTo(t, target)
	case *types.Basic:
		info := u.Info()
		switch arg.val.Kind() {
		case constant.String:
			return info&types.IsString != 0
		case constant.Bool:
			return info&types.IsBoolean != 0
		case constant.Int:
			return info&types.IsNumeric != 0
		case constant.Float:
			if info&(types.IsFloat|types.IsComplex) != 0 {
				return true
			}
			return info&types.IsInteger != 0 && constant.ToInt(arg.val).Kind() == constant.Int
		case constant.Complex:
			if info&types.IsComplex != 0 {
				return true
			}
			if constant.Sign(constant.Imag(arg.val)) != 0 {
				return false
			}
			return untypedAssignable(argument{val: constant.ToFloat(constant.Real(arg.val))}, target)
		}
	}
	return false
}

func convertConstant(arg argument, t types.Type) argument {
	b, ok := t.Underlying().(*types.Basic)
	if !ok {
		return argument{kind: KindError}
	}
	val := arg.val
	switch {
	case b.Info()&types.IsInteger != 0:
		val = constant.ToInt(val)
	case b.Info()&types.IsFloat != 0:
		val = constant.ToFloat(val)
	case b.Info()&types.IsComplex != 0:
		val = constant.ToComplex(val)
	case b.Info()&types.IsString != 0:
		if isIntegerValue(val) {
			// string(rune)
			r, ok := constant.Int64Val(val)
			if !ok {
				return argument{kind: KindError}
			}
			val = constant.MakeString(string(rune(r)))
		}
	}
	if val.Kind() == constant.Unknown {
		return argument{kind: KindError}
	}
	return constantArgument(val, t)
}

func constantArgument(val constant.Value, typ types.Type) argument {
	if typ != nil && isEnumType(typ) {
		if v := constant.ToInt(val); v.Kind() == constant.Int {
			return argument{kind: KindEnum, val: v, typ: typ}
		}
	}
	return argument{kind: KindPrimitive, val: val, typ: typ}
}

func safeConstantOp(op func() constant.Value) (val constant.Value, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			val, ok = nil, false
		}
	}()
	val = op()
	return val, val != nil && val.Kind() != constant.Unknown
}

func isEnumType(t types.Type) bool {
	named, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return false
	}
	b, ok := named.Underlying().(*types.Basic)
	return ok && b.Info()&types.IsInteger != 0
}

func isUntyped(t types.Type) bool {
	b, ok := t.(*types.Basic)
	return ok && b.Info()&types.IsUntyped != 0
}

func isFloatType(t types.Type) bool {
	if t == nil {
		return false
	}
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Info()&(types.IsFloat|types.IsComplex) != 0 && b.Info()&types.IsUntyped == 0
}

func isIntegerValue(v constant.Value) bool {
	return v.Kind() == constant.Int
}

// render returns the text of an argument, as written to the external
// configuration file.
func render(arg argument) (string, error) {
	switch arg.kind {
	case KindError:
		return arg.src, nil
	case KindEnum:
		return arg.val.ExactString(), nil
	case KindPrimitive:
		return primitiveText(arg), nil
	case KindType:
		return typeLiteral(arg.typ), nil
	case KindArray:
		return arrayLiteral(arg)
	default:
		return "", fmt.Errorf("%w: %s argument %s", ErrUnsupportedArgumentKind, arg.kind, arg.src)
	}
}

func primitiveText(arg argument) string {
	val := arg.val
	switch val.Kind() {
	case constant.String:
		return constant.StringVal(val)
	case constant.Bool:
		return strconv.FormatBool(constant.BoolVal(val))
	case constant.Int:
		if arg.typ == types.Typ[types.UntypedRune] {
			if r, ok := constant.Int64Val(val); ok {
				return string(rune(r))
			}
		}
		return val.ExactString()
	case constant.Float:
		return floatText(val)
	case constant.Complex:
		re := floatText(constant.Real(val))
		im := floatText(constant.Imag(val))
		if !strings.HasPrefix(im, "-") {
			im = "+" + im
		}
		return "(" + re + im + "i)"
	default:
		return val.String()
	}
}

func floatText(val constant.Value) string {
	f, _ := constant.Float64Val(constant.ToFloat(val))
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// typeLiteral is the canonical form of a type argument: an expression that
// evaluates to the reflect.Type of the given type.
func typeLiteral(t types.Type) string {
	return "reflect.TypeOf((*" + types.TypeString(t, nil) + ")(nil)).Elem()"
}

func arrayLiteral(arg argument) (string, error) {
	elemType := arg.typ
	if elemType == nil {
		elemType = inferElemType(arg.elems)
	}
	elems := make([]string, len(arg.elems))
	for i, el := range arg.elems {
		s, err := elementLiteral(el)
		if err != nil {
			return "", err
		}
		elems[i] = s
	}
	return "[]" + elemTypeString(elemType) + "{" + strings.Join(elems, ", ") + "}", nil
}

// elementLiteral renders an array element as Go source.
func elementLiteral(arg argument) (string, error) {
	switch arg.kind {
	case KindEnum:
		return types.TypeString(arg.typ, nil) + "(" + arg.val.ExactString() + ")", nil
	case KindPrimitive:
		if arg.val.Kind() == constant.String {
			return strconv.Quote(constant.StringVal(arg.val)), nil
		}
		if arg.val.Kind() == constant.Int && arg.typ == types.Typ[types.UntypedRune] {
			return arg.src, nil
		}
		return primitiveText(arg), nil
	default:
		return render(arg)
	}
}

func inferElemType(elems []argument) types.Type {
	if len(elems) == 0 {
		return nil
	}
	first := elems[0]
	switch first.kind {
	case KindEnum:
		return first.typ
	case KindPrimitive:
		if first.typ != nil {
			return types.Default(first.typ)
		}
		switch first.val.Kind() {
		case constant.String:
			return types.Typ[types.String]
		case constant.Bool:
			return types.Typ[types.Bool]
		case constant.Float:
			return types.Typ[types.Float64]
		case constant.Complex:
			return types.Typ[types.Complex128]
		default:
			return types.Typ[types.Int]
		}
	}
	return nil
}

func elemTypeString(t types.Type) string {
	if t == nil {
		return "any"
	}
	return types.TypeString(t, nil)
}
