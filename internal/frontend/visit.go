package frontend

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// DeclCategory enumerates the declaration shapes the TU indexer cares
// about (spec.md §4.4 "Decl categories").
type DeclCategory int

const (
	DeclBinding DeclCategory = iota
	DeclEnumConstant
	DeclEnum
	DeclField
	DeclFunction
	DeclNamespace
	DeclNonTypeTemplateParm
	DeclRecord
	DeclTemplateTemplateParm
	DeclTemplateTypeParm
	DeclTypedefName
	DeclVar
)

// ExprCategory enumerates the expression shapes the TU indexer cares
// about (spec.md §4.4 "Expr categories").
type ExprCategory int

const (
	ExprCXXConstruct ExprCategory = iota
	ExprDeclRef
	ExprMember
)

// TypeLocCategory enumerates the type-reference shapes the TU indexer
// cares about (spec.md §4.4 "TypeLoc categories").
type TypeLocCategory int

const (
	TypeLocEnum TypeLocCategory = iota
	TypeLocRecord
	TypeLocTemplateSpecialization
	TypeLocTemplateTypeParm
)

// Visitor receives one callback per AST node the Dispatch traversal
// recognizes. Every callback gets the raw node, so implementations can
// pull text/range themselves instead of Dispatch pre-computing data most
// nodes won't need.
type Visitor interface {
	VisitDecl(cat DeclCategory, n sitter.Node)
	VisitExpr(cat ExprCategory, n sitter.Node)
	VisitTypeLoc(cat TypeLocCategory, n sitter.Node)
	// VisitNestedNameSpecifier is called for each qualifier component of a
	// qualified name (`a::b::c`), most-specific last. The default
	// traversal only reaches a qualified identifier's final component, so
	// this exists as an explicit callback the way spec.md §4.4 calls for
	// ("the default visitor misses field references in member
	// initializers" applies equally to qualifier components).
	VisitNestedNameSpecifier(n sitter.Node)
	// VisitConstructorInitializer is called for each member/base
	// initializer in a constructor's initializer list (`Foo() : x(1) {}`).
	VisitConstructorInitializer(n sitter.Node)
	// Exit is called for every node, recognized or not, once all of its
	// children have been visited — the post-order half of the traversal, so
	// a Visitor that pushes a lexical scope (namespace, record, function)
	// on a VisitDecl call has a matching signal for when to pop it.
	Exit(n sitter.Node)
}

// Dispatch walks tree and invokes v for every recognized node. Declaration
// names are suppressed from also firing ExprDeclRef (a field_declaration's
// own name is not a reference to itself); everything else a declaration
// contains — initializers, default arguments, nested declarations — is
// still walked normally.
//
// The traversal tracks each node's immediate parent type itself (rather
// than querying the tree for it) since a non-type template parameter is
// only distinguishable from an ordinary parameter declaration by what
// encloses it.
func Dispatch(tree *Tree, v Visitor) {
	skip := make(map[[2]uint]bool)

	var walk func(n sitter.Node, parentType string)
	walk = func(n sitter.Node, parentType string) {
		if n.IsNull() {
			return
		}

		dispatchNode(n, parentType, v, skip)

		selfType := n.Type()

		count := n.NamedChildCount()
		for i := range count {
			walk(n.NamedChild(i), selfType)
		}

		v.Exit(n)
	}

	walk(tree.Root, "")
}

func dispatchNode(n sitter.Node, parentType string, v Visitor, skip map[[2]uint]bool) {
	switch n.Type() {
	case "function_definition":
		v.VisitDecl(DeclFunction, n)
		markDeclName(n, skip)
	case "parameter_declaration", "optional_parameter_declaration":
		if parentType == "template_parameter_list" {
			v.VisitDecl(DeclNonTypeTemplateParm, n)
		} else {
			v.VisitDecl(DeclVar, n)
		}

		markDeclName(n, skip)
	case "declaration":
		// init_declarator (the "= value" form) is deliberately not matched
		// on its own: "declaration" is always the outer node whether or
		// not an initializer is present, so dispatching here once covers
		// both shapes without double-reporting the initialized case.
		v.VisitDecl(DeclVar, n)
		markDeclName(n, skip)
	case "field_declaration":
		v.VisitDecl(DeclField, n)
		markDeclName(n, skip)
	case "structured_binding_declarator":
		v.VisitDecl(DeclBinding, n)
	case "enumerator":
		v.VisitDecl(DeclEnumConstant, n)
		markDeclName(n, skip)
	case "enum_specifier":
		if hasField(n, "body") {
			v.VisitDecl(DeclEnum, n)
			markDeclName(n, skip)
		} else {
			v.VisitTypeLoc(TypeLocEnum, n)
		}
	case "struct_specifier", "class_specifier", "union_specifier":
		if hasField(n, "body") {
			v.VisitDecl(DeclRecord, n)
			markDeclName(n, skip)
		} else {
			v.VisitTypeLoc(TypeLocRecord, n)
		}
	case "namespace_definition":
		v.VisitDecl(DeclNamespace, n)
		markDeclName(n, skip)
	case "type_definition", "alias_declaration":
		v.VisitDecl(DeclTypedefName, n)
		markDeclName(n, skip)
	case "template_template_parameter_declaration":
		v.VisitDecl(DeclTemplateTemplateParm, n)
		markDeclName(n, skip)
	case "type_parameter_declaration", "variadic_type_parameter_declaration":
		v.VisitDecl(DeclTemplateTypeParm, n)
		markDeclName(n, skip)
	case "template_type":
		v.VisitTypeLoc(TypeLocTemplateSpecialization, n)
	case "new_expression":
		v.VisitExpr(ExprCXXConstruct, n)
	case "field_identifier":
		v.VisitExpr(ExprMember, n)
	case "qualified_identifier":
		if scope := fieldByName(n, "scope"); !scope.IsNull() {
			v.VisitNestedNameSpecifier(scope)
		}
	case "field_initializer":
		v.VisitConstructorInitializer(n)
	case "identifier", "namespace_identifier":
		if !skip[byteRange(n)] {
			v.VisitExpr(ExprDeclRef, n)
		}
	}
}

// markDeclName finds the identifier that names decl and records its byte
// range so the generic identifier pass doesn't also report it as a
// reference to itself.
func markDeclName(decl sitter.Node, skip map[[2]uint]bool) {
	name := declaratorName(decl)
	if !name.IsNull() {
		skip[byteRange(name)] = true
	}
}

// DeclaratorName exports declaratorName's unwrapping for callers outside
// this package that need a declaration's naming identifier directly (the
// TU indexer, to look up a declaration's own spelled name).
func DeclaratorName(n sitter.Node) sitter.Node {
	return declaratorName(n)
}

// declaratorName unwraps nested pointer/array/reference declarators (and
// the "name"/"declarator" field conventions tree-sitter-c/cpp use across
// different declaration shapes) down to the base identifier node.
func declaratorName(n sitter.Node) sitter.Node {
	cur := n

	for range 16 {
		name := fieldByName(cur, "name")
		if !name.IsNull() && isIdentifierLike(name) {
			return name
		}

		decl := fieldByName(cur, "declarator")
		if decl.IsNull() {
			return decl
		}

		if isIdentifierLike(decl) {
			return decl
		}

		cur = decl
	}

	return fieldByName(cur, "name")
}

func isIdentifierLike(n sitter.Node) bool {
	switch n.Type() {
	case "identifier", "field_identifier", "namespace_identifier", "type_identifier", "destructor_name", "operator_name":
		return true
	default:
		return false
	}
}

func hasField(n sitter.Node, field string) bool {
	return !fieldByName(n, field).IsNull()
}

func fieldByName(n sitter.Node, field string) sitter.Node {
	return n.ChildByFieldName(field)
}

func byteRange(n sitter.Node) [2]uint {
	return [2]uint{n.StartByte(), n.EndByte()}
}
