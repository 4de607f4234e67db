package frontend

import (
	"testing"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingVisitor struct {
	decls     []DeclCategory
	exprs     []ExprCategory
	typeLocs  []TypeLocCategory
	nestedNNS int
	ctorInits int
}

func (r *recordingVisitor) VisitDecl(cat DeclCategory, _ sitter.Node)        { r.decls = append(r.decls, cat) }
func (r *recordingVisitor) VisitExpr(cat ExprCategory, _ sitter.Node)        { r.exprs = append(r.exprs, cat) }
func (r *recordingVisitor) VisitTypeLoc(cat TypeLocCategory, _ sitter.Node) { r.typeLocs = append(r.typeLocs, cat) }
func (r *recordingVisitor) VisitNestedNameSpecifier(_ sitter.Node)          { r.nestedNNS++ }
func (r *recordingVisitor) VisitConstructorInitializer(_ sitter.Node)       { r.ctorInits++ }
func (r *recordingVisitor) Exit(_ sitter.Node)                             {}

func TestDispatchRecognizesFunctionAndVarDecls(t *testing.T) {
	t.Parallel()

	tree, err := Parse(LangCPP, []byte("int helper(int a) { int b = a; return b; }\n"))
	require.NoError(t, err)
	defer tree.Close()

	rv := &recordingVisitor{}
	Dispatch(tree, rv)

	assert.Contains(t, rv.decls, DeclFunction)
	assert.Contains(t, rv.decls, DeclVar)
}

func TestDispatchDeclNameIsNotAlsoADeclRef(t *testing.T) {
	t.Parallel()

	tree, err := Parse(LangC, []byte("int counter;\n"))
	require.NoError(t, err)
	defer tree.Close()

	rv := &recordingVisitor{}
	Dispatch(tree, rv)

	assert.Contains(t, rv.decls, DeclVar)
	assert.Empty(t, rv.exprs)
}

func TestDispatchDistinguishesRecordDeclFromRecordTypeLoc(t *testing.T) {
	t.Parallel()

	tree, err := Parse(LangCPP, []byte("struct Point { int x; int y; };\nstruct Point p;\n"))
	require.NoError(t, err)
	defer tree.Close()

	rv := &recordingVisitor{}
	Dispatch(tree, rv)

	assert.Contains(t, rv.decls, DeclRecord)
	assert.Contains(t, rv.decls, DeclField)
	assert.Contains(t, rv.typeLocs, TypeLocRecord)
}

func TestDispatchFieldAccessIsExprMember(t *testing.T) {
	t.Parallel()

	tree, err := Parse(LangCPP, []byte(
		"struct Point { int x; };\nint readX(struct Point p) { return p.x; }\n",
	))
	require.NoError(t, err)
	defer tree.Close()

	rv := &recordingVisitor{}
	Dispatch(tree, rv)

	assert.Contains(t, rv.exprs, ExprMember)
}

func TestDispatchDeclRefForFunctionCall(t *testing.T) {
	t.Parallel()

	tree, err := Parse(LangC, []byte("int f(void); int g(void) { return f(); }\n"))
	require.NoError(t, err)
	defer tree.Close()

	rv := &recordingVisitor{}
	Dispatch(tree, rv)

	assert.Contains(t, rv.exprs, ExprDeclRef)
}
