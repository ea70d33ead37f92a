package listing

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Parse:
// - Single equation declaration produces one equation child at the right position
// - Full transport listing produces the expected sections in order
// - Values are attached only when value parsing is enabled
// - Solve summary statuses are parsed
// - Empty and unrecognisable input yield an empty tree and a ParseError
// - Parsing is deterministic, including malformed input
// - Children always sit between their parent and the parent's next sibling
// - Form feeds do not shift reported columns

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(data)
}

func TestParse_SingleEquation(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("\n", 9) + "EQUATION supply_eq  observe supply limit\n"

	root, err := Parse(text, Options{})
	require.NoError(t, err)
	require.Len(t, root.Children, 1)

	eq := root.Children[0]
	assert.Equal(t, KindEquation, eq.Kind)
	assert.Equal(t, "supply_eq", eq.Label)
	assert.Equal(t, 10, eq.Line)
	assert.Equal(t, 10, eq.Column)
	assert.Empty(t, eq.Value, "values require ParseValues")
}

func TestParse_TransportSections(t *testing.T) {
	t.Parallel()

	root, err := Parse(loadFixture(t, "trnsport.lst"), Options{})
	require.NoError(t, err)

	var labels []string
	for _, child := range root.Children {
		assert.Equal(t, KindSection, child.Kind)
		labels = append(labels, child.Label)
	}
	assert.Equal(t, []string{
		"Compilation",
		"Execution",
		"Equation Listing SOLVE transport Using LP From line 20",
		"Column Listing SOLVE transport Using LP From line 20",
		"Model Statistics SOLVE transport Using LP From line 20",
		"Solution Report SOLVE transport Using LP From line 20",
	}, labels)

	execution := root.Children[1]
	require.Len(t, execution.Children, 1)
	assert.Equal(t, KindParameter, execution.Children[0].Kind)
	assert.Equal(t, "a", execution.Children[0].Label)
	assert.Equal(t, 34, execution.Children[0].Line)
	assert.Equal(t, 23, execution.Children[0].Column)

	equations := root.Children[2]
	require.Len(t, equations.Children, 2)
	assert.Equal(t, "cost", equations.Children[0].Label)
	assert.Equal(t, KindEquation, equations.Children[0].Kind)
	assert.Equal(t, 6, equations.Children[0].Column)
	assert.Equal(t, "supply", equations.Children[1].Label)

	columns := root.Children[3]
	require.Len(t, columns.Children, 2)
	assert.Equal(t, KindVariable, columns.Children[0].Kind)
	assert.Equal(t, "x", columns.Children[0].Label)
	assert.Equal(t, "z", columns.Children[1].Label)

	assert.Empty(t, root.Children[4].Children, "model statistics have no entries")

	report := root.Children[5]
	var kinds []NodeKind
	var names []string
	for _, child := range report.Children {
		kinds = append(kinds, child.Kind)
		names = append(names, child.Label)
	}
	assert.Equal(t, []NodeKind{KindSolveSummary, KindEquation, KindEquation, KindVariable, KindVariable}, kinds)
	assert.Equal(t, []string{"SOLVE SUMMARY", "cost", "supply", "x", "z"}, names)

	// Without value parsing nothing carries a value and no records exist.
	root.Walk(func(n *Node, _ int) bool {
		assert.Empty(t, n.Value, "node %s/%s", n.Kind, n.Label)
		assert.NotEqual(t, KindRecord, n.Kind)
		return true
	})
}

func TestParse_SolveSummary(t *testing.T) {
	t.Parallel()

	root, err := Parse(loadFixture(t, "trnsport.lst"), Options{ParseValues: true})
	require.NoError(t, err)

	summary := root.Find(KindSolveSummary, "SOLVE SUMMARY")
	require.NotNil(t, summary)
	assert.Equal(t, 70, summary.Line)

	statuses := map[string]string{}
	for _, child := range summary.Children {
		require.Equal(t, KindStatus, child.Kind)
		statuses[child.Label] = child.Value
	}
	assert.Equal(t, "transport", statuses["MODEL"])
	assert.Equal(t, "z", statuses["OBJECTIVE"])
	assert.Equal(t, "MINIMIZE", statuses["DIRECTION"])
	assert.Equal(t, "CPLEX", statuses["SOLVER"])
	assert.Equal(t, "1 Normal Completion", statuses["SOLVER STATUS"])
	assert.Equal(t, "1 Optimal", statuses["MODEL STATUS"])
	assert.Equal(t, "153.6750", statuses["OBJECTIVE VALUE"])
	assert.Len(t, summary.Children, 11)
}

func TestParse_ValuesAndRecords(t *testing.T) {
	t.Parallel()

	root, err := Parse(loadFixture(t, "trnsport.lst"), Options{ParseValues: true})
	require.NoError(t, err)

	report := root.Children[5]

	z := report.Children[4]
	require.Equal(t, "z", z.Label)
	assert.Equal(t, "-INF 153.6750 +INF .", z.Value)
	assert.Empty(t, z.Children)

	supply := report.Children[2]
	require.Equal(t, "supply", supply.Label)
	assert.Equal(t, "observe supply limit at plant i", supply.Value)
	require.Len(t, supply.Children, 2)
	assert.Equal(t, KindRecord, supply.Children[0].Kind)
	assert.Equal(t, "seattle", supply.Children[0].Label)
	assert.Equal(t, "-INF 350.0000 350.0000 EPS", supply.Children[0].Value)
	assert.Equal(t, 93, supply.Children[0].Line)
	assert.Equal(t, 1, supply.Children[0].Column)
	assert.Equal(t, "san-diego", supply.Children[1].Label)

	a := root.Children[1].Children[0]
	require.Len(t, a.Children, 1)
	assert.Equal(t, "seattle", a.Children[0].Label)
}

func TestParse_EmptyInput(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "   \n\t\n"} {
		root, err := Parse(text, Options{})
		require.NotNil(t, root)
		assert.Empty(t, root.Children)

		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "empty listing", parseErr.Reason)
	}
}

func TestParse_Unrecognisable(t *testing.T) {
	t.Parallel()

	root, err := Parse("hello\nworld\n", Options{ParseValues: true})
	require.NotNil(t, root)
	assert.Empty(t, root.Children)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 2, parseErr.Skipped)
	assert.Contains(t, parseErr.Error(), "no listing structure")
}

func TestParse_Deterministic(t *testing.T) {
	t.Parallel()

	inputs := []string{
		loadFixture(t, "trnsport.lst"),
		"---- VAR\n**** $$$\nC o m p\n---- 12 PARAMETER\nEQUATION\n",
		"Solution Report\n---- VAR x\nseattle 1 2 3\n\x00\xff garbage",
	}
	for _, text := range inputs {
		for _, opts := range []Options{{}, {ParseValues: true}} {
			first, firstErr := Parse(text, opts)
			second, secondErr := Parse(text, opts)
			assert.Equal(t, first, second)
			assert.Equal(t, firstErr, secondErr)
		}
	}
}

func TestParse_ChildrenBetweenParentAndNextSibling(t *testing.T) {
	t.Parallel()

	root, err := Parse(loadFixture(t, "trnsport.lst"), Options{ParseValues: true})
	require.NoError(t, err)

	var check func(n *Node, limit int)
	check = func(n *Node, limit int) {
		for i, child := range n.Children {
			assert.True(t, child.Line > n.Line || (child.Line == n.Line && child.Column > n.Column),
				"%s/%s must follow its parent", child.Kind, child.Label)
			next := limit
			if i+1 < len(n.Children) {
				next = n.Children[i+1].Line
			}
			child.Walk(func(d *Node, _ int) bool {
				if d != child {
					assert.LessOrEqual(t, d.Line, next, "%s/%s must precede next sibling", d.Kind, d.Label)
				}
				return true
			})
			check(child, next)
		}
	}
	check(root, int(^uint(0)>>1))
}

func TestParse_FormFeedKeepsColumns(t *testing.T) {
	t.Parallel()

	root, err := Parse("\fE x e c u t i o n\n----      4 SET i  plants\n", Options{})
	require.NoError(t, err)
	require.Len(t, root.Children, 1)

	section := root.Children[0]
	assert.Equal(t, "Execution", section.Label)
	assert.Equal(t, 2, section.Column)

	require.Len(t, section.Children, 1)
	assert.Equal(t, KindSet, section.Children[0].Kind)
	assert.Equal(t, "i", section.Children[0].Label)
	assert.Equal(t, 2, section.Children[0].Line)
}

func TestParse_ErrorSummary(t *testing.T) {
	t.Parallel()

	text := "C o m p i l a t i o n\n   1  x = y;\n****      $140\n**** 1 ERROR(S)   0 WARNING(S)\n"
	root, err := Parse(text, Options{})
	require.NoError(t, err)

	node := root.Find(KindErrorSummary, "1 ERROR(S) 0 WARNING(S)")
	require.NotNil(t, node)
	assert.Equal(t, 4, node.Line)
}

func TestNode_Clone(t *testing.T) {
	t.Parallel()

	root, err := Parse(loadFixture(t, "trnsport.lst"), Options{ParseValues: true})
	require.NoError(t, err)

	clone := root.Clone()
	assert.Equal(t, root, clone)

	clone.Children[0].Label = "changed"
	assert.Equal(t, "Compilation", root.Children[0].Label)
	assert.Equal(t, root.Count(), clone.Count())
}

func TestIsListing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"/work/trnsport.lst", true},
		{"/work/TRNSPORT.LST", true},
		{"/work/trnsport.gms", false},
		{"/work/lst", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsListing(tt.path), tt.path)
	}
}
