package doc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OrionReed/ggraph/internal/ir"
)

func sampleBoard() ir.Board {
	return ir.Board{
		Nodes: []ir.Node{
			{ID: "a", Kind: ir.KindSource, Text: "7"},
			{ID: "b", Kind: ir.KindVoting, Text: "SCALAR + x"},
		},
		Connectors: []ir.Connector{
			{ID: "c1", Start: "a", End: "b", Label: "x", Directional: true},
		},
	}
}

type change struct {
	prev, next ir.Node
}

func record(d *Document) *[]change {
	var got []change
	d.OnChange(func(prev, next ir.Node) {
		got = append(got, change{prev, next})
	})
	return &got
}

func TestNodeReturnsSnapshot(t *testing.T) {
	d := FromBoard(sampleBoard(), "u1")
	require.NoError(t, d.Contribute("b", "u1", ir.Number(5)))

	n, ok := d.Node("b")
	require.True(t, ok)
	n.Contributions["u1"] = ir.Number(99)

	again, _ := d.Node("b")
	assert.Equal(t, ir.Number(5), again.Contributions["u1"])
}

func TestIncomingEdges(t *testing.T) {
	d := FromBoard(sampleBoard(), "u1")

	edges := d.IncomingEdges("b")
	require.Len(t, edges, 1)
	assert.Equal(t, ir.Edge{ID: "c1", From: "a", To: "b", Label: "x"}, edges[0])
	assert.Empty(t, d.IncomingEdges("a"))
}

func TestUpdateNotifiesHooks(t *testing.T) {
	d := FromBoard(sampleBoard(), "u1")
	got := record(d)

	require.NoError(t, d.Update("b", ir.Patch{ComputedValue: ir.Number(12)}))

	require.Len(t, *got, 1)
	assert.Nil(t, (*got)[0].prev.ComputedValue)
	assert.Equal(t, ir.Number(12), (*got)[0].next.ComputedValue)
}

func TestUpdateWithoutChangeIsSilent(t *testing.T) {
	d := FromBoard(sampleBoard(), "u1")
	require.NoError(t, d.Update("b", ir.Patch{ComputedValue: ir.Number(12)}))
	got := record(d)

	require.NoError(t, d.Update("b", ir.Patch{ComputedValue: ir.Number(12)}))
	assert.Empty(t, *got)
}

func TestUpdateMissingNode(t *testing.T) {
	d := New("u1")
	err := d.Update("nope", ir.Patch{SyntaxError: ir.Ptr(true)})
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestAddNodeNotifiesWithZeroPrev(t *testing.T) {
	d := New("u1")
	got := record(d)

	require.NoError(t, d.AddNode(ir.Node{ID: "a", Kind: ir.KindSource, Text: "1"}))
	require.Len(t, *got, 1)
	assert.Equal(t, ir.Node{}, (*got)[0].prev)
	assert.Equal(t, "1", (*got)[0].next.Text)

	err := d.AddNode(ir.Node{ID: "a", Kind: ir.KindSource})
	assert.ErrorIs(t, err, ErrDuplicateID)

	err = d.AddNode(ir.Node{ID: "z", Kind: "circle"})
	assert.Error(t, err)
}

func TestRemoveNodeUnbindsConnectors(t *testing.T) {
	d := FromBoard(sampleBoard(), "u1")

	require.NoError(t, d.RemoveNode("a"))
	_, ok := d.Node("a")
	assert.False(t, ok)

	b := d.Board()
	require.Len(t, b.Connectors, 1)
	assert.Equal(t, "", b.Connectors[0].Start)
	assert.Equal(t, "b", b.Connectors[0].End)
	assert.Empty(t, d.IncomingEdges("b"))

	n, ok := d.Node("b")
	require.True(t, ok)
	assert.Equal(t, "b", n.ID)
}

func TestConnectorLifecycle(t *testing.T) {
	d := FromBoard(sampleBoard(), "u1")

	err := d.Connect(ir.Connector{ID: "c1"})
	assert.ErrorIs(t, err, ErrDuplicateID)

	require.NoError(t, d.SetLabel("c1", "y"))
	assert.Equal(t, "y", d.IncomingEdges("b")[0].Label)

	require.NoError(t, d.Disconnect("c1"))
	assert.Empty(t, d.IncomingEdges("b"))
	assert.ErrorIs(t, d.Disconnect("c1"), ErrConnectorNotFound)
	assert.ErrorIs(t, d.SetLabel("c1", "z"), ErrConnectorNotFound)
}

func TestContributeAndWithdraw(t *testing.T) {
	d := FromBoard(sampleBoard(), "u1")

	require.NoError(t, d.Contribute("b", "u1", ir.Number(0.5)))
	require.NoError(t, d.Contribute("b", "u2", ir.Number(1)))
	n, _ := d.Node("b")
	assert.Equal(t, ir.List{ir.Number(0.5), ir.Number(1)}, n.Contributions.Ordered())

	require.NoError(t, d.Withdraw("b", "u1"))
	n, _ = d.Node("b")
	assert.Equal(t, []string{"u2"}, n.Contributions.Contributors())
}

func TestUnregisterHook(t *testing.T) {
	d := FromBoard(sampleBoard(), "u1")
	calls := 0
	unregister := d.OnChange(func(prev, next ir.Node) { calls++ })

	require.NoError(t, d.SetText("a", "8"))
	unregister()
	require.NoError(t, d.SetText("a", "9"))

	assert.Equal(t, 1, calls)
}

func TestHookMayReadDocument(t *testing.T) {
	d := FromBoard(sampleBoard(), "u1")
	var seen string
	d.OnChange(func(prev, next ir.Node) {
		n, _ := d.Node(next.ID)
		seen = n.Text
	})

	require.NoError(t, d.SetText("a", "42"))
	assert.Equal(t, "42", seen)
}

func TestContributor(t *testing.T) {
	d := New("u1")
	assert.Equal(t, "u1", d.CurrentContributor())
	d.SetContributor("u2")
	assert.Equal(t, "u2", d.CurrentContributor())
}
