package indexer

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/scipcxx/internal/classgraph"
	"github.com/Sumatoshi-tech/scipcxx/internal/frontend"
	"github.com/Sumatoshi-tech/scipcxx/internal/pathmodel"
	"github.com/Sumatoshi-tech/scipcxx/internal/symbol"
)

// scopeFrame is one entry of the lexical-scope stack TUIndexer maintains
// while walking a TU: the contextSymbol a nested declaration should be
// formatted against, and the byte range of the node that pushed it, so
// Exit can pop it at the right moment without needing real parent links.
type scopeFrame struct {
	contextSymbol string
	isFunction    bool
	rangeKey      [2]uint
}

// TUIndexer implements frontend.Visitor, turning one TU's AST into
// occurrences and symbol information (spec.md §4.4 "TU indexer"). It
// shares a *symbol.Formatter with the sibling MacroIndexer so that
// formatter caches (location-based, decl-based) collapse consistently
// across both passes of the same TU.
//
// Base-class and member-override relationships rely on matching a type's
// spelled name against names already seen in this TU (spec.md §4.4
// "Relationships"): tree-sitter's grammar does not resolve a base-class
// specifier or an overriding method to the declaration it refers to, so
// cross-TU bases and overrides of entities not otherwise visited in this
// same TU are not discovered. This mirrors the same approximation
// documented on internal/frontend's package doc comment.
type TUIndexer struct {
	formatter    *symbol.Formatter
	hierarchy    *classgraph.Hierarchy
	doc          *PartialDocument
	tree         *frontend.Tree
	file         pathmodel.FileID
	mainFilePath pathmodel.AbsolutePath

	scopes []scopeFrame

	// names resolves a bare spelled name to the symbol this TU assigned it,
	// for best-effort reference resolution of identifiers, field accesses,
	// and base-class specifiers (spec.md §4.4's visitor callbacks only ever
	// hand back raw text, never a resolved declaration).
	names map[string]string

	// pendingBases holds (derivedSymbol, baseName) pairs recorded while
	// inside a record's base_class_clause, resolved against names once the
	// whole TU has been walked (a base class can be declared after its
	// derived class is first seen, e.g. via a forward declaration).
	pendingBases []pendingBase
}

type pendingBase struct {
	derivedSymbol string
	baseName      string
}

// NewTUIndexer returns a TUIndexer for one TU rooted at file, sharing
// formatter and hierarchy with the rest of the worker's indexing of this
// TU (hierarchy is typically fresh per TU; formatter is shared with the
// MacroIndexer).
func NewTUIndexer(formatter *symbol.Formatter, hierarchy *classgraph.Hierarchy, tree *frontend.Tree, file pathmodel.FileID, relPath string, mainFilePath pathmodel.AbsolutePath) *TUIndexer {
	return &TUIndexer{
		formatter:    formatter,
		hierarchy:    hierarchy,
		doc:          newPartialDocument(file, tree.Language.String(), relPath),
		tree:         tree,
		file:         file,
		mainFilePath: mainFilePath,
		names:        make(map[string]string),
	}
}

// Document returns the accumulated PartialDocument, resolving any
// still-pending base-class edges first.
func (t *TUIndexer) Document() *PartialDocument {
	t.resolvePendingBases()
	return t.doc
}

func (t *TUIndexer) resolvePendingBases() {
	for _, p := range t.pendingBases {
		baseSymbol, ok := t.names[p.baseName]
		if !ok {
			continue
		}

		t.hierarchy.AddBase(p.derivedSymbol, baseSymbol)

		info := t.doc.symbolInfo(p.derivedSymbol, "")
		info.addRelationship(Relationship{Symbol: baseSymbol, IsImplementation: true})
	}

	t.pendingBases = nil
}

func (t *TUIndexer) declKey(n sitter.Node) symbol.DeclKey {
	return symbol.DeclKey(n.StartByte())
}

func (t *TUIndexer) currentContext() string {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if t.scopes[i].contextSymbol != "" {
			return t.scopes[i].contextSymbol
		}
	}

	return t.formatter.RootContext()
}

func (t *TUIndexer) insideFunction() bool {
	for _, s := range t.scopes {
		if s.isFunction {
			return true
		}
	}

	return false
}

func (t *TUIndexer) pushScope(n sitter.Node, contextSymbol string, isFunction bool) {
	t.scopes = append(t.scopes, scopeFrame{
		contextSymbol: contextSymbol,
		isFunction:    isFunction,
		rangeKey:      nodeRange(n),
	})
}

func (t *TUIndexer) addOccurrenceFor(n sitter.Node, sym string, role Role, syntaxKind string) {
	sl, sc, el, ec := t.tree.Range(n)
	t.doc.addOccurrence(Occurrence{
		Range:      [4]int{sl, sc, el, ec},
		Symbol:     sym,
		Roles:      role,
		SyntaxKind: syntaxKind,
	})
}

// VisitDecl implements frontend.Visitor.
func (t *TUIndexer) VisitDecl(cat frontend.DeclCategory, n sitter.Node) {
	switch cat {
	case frontend.DeclNamespace:
		t.visitNamespace(n)
	case frontend.DeclRecord:
		t.visitRecord(n)
	case frontend.DeclEnum:
		t.visitTagLike(n, "EnumDefinition")
	case frontend.DeclEnumConstant:
		t.visitSimpleTerm(n, "EnumMemberDeclaration")
	case frontend.DeclField:
		t.visitField(n)
	case frontend.DeclFunction:
		t.visitFunction(n)
	case frontend.DeclVar:
		t.visitVar(n)
	case frontend.DeclTypedefName:
		t.visitTagLike(n, "TypeDefinition")
	case frontend.DeclBinding, frontend.DeclTemplateTypeParm, frontend.DeclTemplateTemplateParm, frontend.DeclNonTypeTemplateParm:
		t.visitLocal(n, "TypeParameterDefinition")
	}
}

func (t *TUIndexer) visitNamespace(n sitter.Node) {
	name := t.nameText(n)
	anonymous := name == ""

	qualified := name
	if !anonymous {
		if parent := t.enclosingNamespaceName(); parent != "" {
			qualified = parent + "::" + name
		}
	}

	sym := t.formatter.NamespaceSymbol(t.declKey(n), t.file, qualified, anonymous, t.mainFilePath)
	t.addOccurrenceFor(n, sym, RoleDefinition, "Namespace")
	t.doc.symbolInfo(sym, name)

	if !anonymous {
		t.names[name] = sym
	}

	t.pushScope(n, sym, false)
}

// enclosingNamespaceName returns the nearest enclosing namespace's
// unqualified spelling, best-effort, by reverse-lookup against names —
// good enough to build a nested "a::b" qualified name for diagnostics and
// symbol display without needing a second parallel stack.
func (t *TUIndexer) enclosingNamespaceName() string {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if ctx := t.scopes[i].contextSymbol; ctx != "" {
			for name, sym := range t.names {
				if sym == ctx {
					return name
				}
			}
		}
	}

	return ""
}

func (t *TUIndexer) visitRecord(n sitter.Node) {
	name := t.nameText(n)
	anonymous := name == ""
	contextSymbol := t.currentContext()

	sym := t.formatter.TagSymbol(t.declKey(n), contextSymbol, t.file, t.doc.RelPath, name, anonymous)
	t.addOccurrenceFor(n, sym, RoleDefinition, "TypeDefinition")
	t.doc.symbolInfo(sym, name)

	if !anonymous {
		t.names[name] = sym
	}

	for _, baseName := range baseClauseNames(t.tree, n) {
		t.pendingBases = append(t.pendingBases, pendingBase{derivedSymbol: sym, baseName: baseName})
	}

	t.pushScope(n, sym, false)
}

func (t *TUIndexer) visitTagLike(n sitter.Node, syntaxKind string) {
	name := t.nameText(n)
	anonymous := name == ""
	contextSymbol := t.currentContext()

	sym := t.formatter.TagSymbol(t.declKey(n), contextSymbol, t.file, t.doc.RelPath, name, anonymous)
	t.addOccurrenceFor(n, sym, RoleDefinition, syntaxKind)
	t.doc.symbolInfo(sym, name)

	if !anonymous {
		t.names[name] = sym
	}
}

func (t *TUIndexer) visitSimpleTerm(n sitter.Node, syntaxKind string) {
	name := t.nameText(n)
	if name == "" {
		return
	}

	contextSymbol := t.currentContext()
	sym := t.formatter.VariableSymbol(t.declKey(n), contextSymbol, name)
	t.addOccurrenceFor(n, sym, RoleDefinition, syntaxKind)
	t.doc.symbolInfo(sym, name)
	t.names[name] = sym
}

func (t *TUIndexer) visitField(n sitter.Node) {
	name := t.nameText(n)
	if name == "" {
		return
	}

	contextSymbol := t.currentContext()
	sym := t.formatter.VariableSymbol(t.declKey(n), contextSymbol, name)
	t.addOccurrenceFor(n, sym, RoleDefinition, "TermDefinition")
	t.doc.symbolInfo(sym, name)
	t.names[name] = sym
}

func (t *TUIndexer) visitFunction(n sitter.Node) {
	name := t.nameText(n)
	if name == "" {
		return
	}

	contextSymbol := t.currentContext()
	kind, targetType := classifyFunctionName(name, t.enclosingRecordName())
	signature := t.canonicalSignature(n)

	sym := t.formatter.FunctionSymbol(t.declKey(n), contextSymbol, name, kind, targetType, signature)
	t.addOccurrenceFor(n, sym, RoleDefinition, "MethodDefinition")
	t.doc.symbolInfo(sym, name)
	t.names[name] = sym

	if override := overrideBaseCandidate(t.tree, n); override {
		if parent := t.enclosingRecordSymbol(); parent != "" {
			for _, baseSym := range t.hierarchy.DirectBases(parent) {
				t.hierarchy.AddOverride(sym, baseSym)
			}
		}
	}

	t.pushScope(n, contextSymbol, true)
}

func (t *TUIndexer) enclosingRecordName() string {
	if sym := t.enclosingRecordSymbol(); sym != "" {
		for name, s := range t.names {
			if s == sym {
				return name
			}
		}
	}

	return ""
}

func (t *TUIndexer) enclosingRecordSymbol() string {
	if len(t.scopes) == 0 {
		return ""
	}

	for i := len(t.scopes) - 1; i >= 0; i-- {
		if !t.scopes[i].isFunction && t.scopes[i].contextSymbol != "" {
			return t.scopes[i].contextSymbol
		}
	}

	return ""
}

func (t *TUIndexer) canonicalSignature(n sitter.Node) string {
	if params := n.ChildByFieldName("declarator"); !params.IsNull() {
		return t.tree.Text(params)
	}

	return t.tree.Text(n)
}

func (t *TUIndexer) visitVar(n sitter.Node) {
	name := t.nameText(n)
	if name == "" {
		return
	}

	if t.insideFunction() {
		sym := t.formatter.LocalSymbol(t.file)
		t.addOccurrenceFor(n, sym, RoleDefinition, "TermDefinition")
		t.names[name] = sym
		return
	}

	contextSymbol := t.currentContext()
	sym := t.formatter.VariableSymbol(t.declKey(n), contextSymbol, name)
	t.addOccurrenceFor(n, sym, RoleDefinition, "TermDefinition")
	t.doc.symbolInfo(sym, name)
	t.names[name] = sym
}

func (t *TUIndexer) visitLocal(n sitter.Node, syntaxKind string) {
	name := t.nameText(n)

	sym := t.formatter.LocalSymbol(t.file)
	t.addOccurrenceFor(n, sym, RoleDefinition, syntaxKind)

	if name != "" {
		t.names[name] = sym
	}
}

// VisitExpr implements frontend.Visitor.
func (t *TUIndexer) VisitExpr(cat frontend.ExprCategory, n sitter.Node) {
	switch cat {
	case frontend.ExprDeclRef, frontend.ExprMember:
		t.visitReference(n)
	case frontend.ExprCXXConstruct:
		t.visitConstruct(n)
	}
}

func (t *TUIndexer) visitReference(n sitter.Node) {
	name := t.tree.Text(n)

	sym, ok := t.names[name]
	if !ok {
		return // unresolved identifier: not declared anywhere this TU visited
	}

	t.addOccurrenceFor(n, sym, RoleReference, "Identifier")
}

func (t *TUIndexer) visitConstruct(n sitter.Node) {
	typeNode := n.ChildByFieldName("type")
	if typeNode.IsNull() {
		return
	}

	name := t.tree.Text(typeNode)

	sym, ok := t.names[name]
	if !ok {
		return
	}

	t.addOccurrenceFor(typeNode, sym, RoleReference, "Identifier")
}

// VisitTypeLoc implements frontend.Visitor. A record/enum name this TU
// never itself defines is a forward declaration (`struct Foo;` or a bare
// use of a type defined elsewhere): recorded against its package-agnostic
// descriptor suffix so the merger can resolve it once every TU's symbols
// are known (spec.md §4.4 "ForwardDecl", §4.7).
func (t *TUIndexer) VisitTypeLoc(cat frontend.TypeLocCategory, n sitter.Node) {
	name := t.tree.Text(n)

	if sym, ok := t.names[name]; ok {
		t.addOccurrenceFor(n, sym, RoleReference, "Identifier")

		return
	}

	if cat != frontend.TypeLocRecord && cat != frontend.TypeLocEnum {
		return
	}

	if name == "" {
		return
	}

	suffixSym := t.formatter.TagSymbol(t.declKey(n), t.currentContext(), t.file, t.doc.RelPath, name, false)
	suffix := symbol.StripPackageCoordinates(suffixSym)

	t.addForwardDeclReference(suffix, name)
}

func (t *TUIndexer) addForwardDeclReference(suffix, name string) {
	for i := range t.doc.Forwards {
		if t.doc.Forwards[i].Suffix == suffix {
			t.doc.Forwards[i].References = append(t.doc.Forwards[i].References, name)

			return
		}
	}

	t.doc.Forwards = append(t.doc.Forwards, ForwardDecl{Suffix: suffix, References: []string{name}})
}

// VisitNestedNameSpecifier implements frontend.Visitor: best-effort
// reference resolution of one qualifier component (`a::`) in `a::b`.
func (t *TUIndexer) VisitNestedNameSpecifier(n sitter.Node) {
	name := t.tree.Text(n)

	sym, ok := t.names[name]
	if !ok {
		return
	}

	t.addOccurrenceFor(n, sym, RoleReference, "Identifier")
}

// VisitConstructorInitializer implements frontend.Visitor: resolves a
// member initializer's target (`x(1)` in `Foo() : x(1) {}`) against a
// field name already seen in this TU.
func (t *TUIndexer) VisitConstructorInitializer(n sitter.Node) {
	field := n.ChildByFieldName("field")
	if field.IsNull() {
		return
	}

	name := t.tree.Text(field)

	sym, ok := t.names[name]
	if !ok {
		return
	}

	t.addOccurrenceFor(field, sym, RoleReference, "Identifier")
}

// Exit implements frontend.Visitor, popping any scope this exact node
// pushed.
func (t *TUIndexer) Exit(n sitter.Node) {
	if len(t.scopes) == 0 {
		return
	}

	if top := t.scopes[len(t.scopes)-1]; top.rangeKey == nodeRange(n) {
		t.scopes = t.scopes[:len(t.scopes)-1]
	}
}

func (t *TUIndexer) nameText(n sitter.Node) string {
	name := frontend.DeclaratorName(n)
	if name.IsNull() {
		return ""
	}

	return t.tree.Text(name)
}

func nodeRange(n sitter.Node) [2]uint {
	return [2]uint{n.StartByte(), n.EndByte()}
}

// classifyFunctionName picks the FunctionKind spec.md §4.3 calls out from
// the spelled name alone: a destructor spells "~Name", an operator
// function spells "operatorX", and a constructor shares its enclosing
// record's name.
func classifyFunctionName(name, enclosingRecord string) (symbol.FunctionKind, string) {
	switch {
	case strings.HasPrefix(name, "~"):
		return symbol.FunctionDestructor, ""
	case strings.HasPrefix(name, "operator"):
		return symbol.FunctionOperator, ""
	case enclosingRecord != "" && name == enclosingRecord:
		return symbol.FunctionConstructor, ""
	default:
		return symbol.FunctionOrdinary, ""
	}
}

// baseClauseNames extracts the spelled type names out of a record's
// base_class_clause, if present.
func baseClauseNames(tree *frontend.Tree, record sitter.Node) []string {
	clause := fieldOrChildByType(record, "base_class_clause")
	if clause.IsNull() {
		return nil
	}

	var names []string

	count := clause.NamedChildCount()
	for i := range count {
		child := clause.NamedChild(i)
		if child.Type() == "type_identifier" || child.Type() == "qualified_identifier" {
			names = append(names, tree.Text(child))
		}
	}

	return names
}

// overrideBaseCandidate reports whether n's function declarator carries
// the `override` virtual-specifier, the only syntactic signal tree-sitter
// exposes for "this method overrides a base method" without semantic
// binding.
func overrideBaseCandidate(tree *frontend.Tree, fn sitter.Node) bool {
	return strings.Contains(tree.Text(fn), "override")
}

func fieldOrChildByType(n sitter.Node, childType string) sitter.Node {
	count := n.NamedChildCount()
	for i := range count {
		child := n.NamedChild(i)
		if child.Type() == childType {
			return child
		}
	}

	return n.ChildByFieldName("__missing__")
}
