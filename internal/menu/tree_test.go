package menu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dsm-gateway/internal/model"
)

func ptr(v int64) *int64 { return &v }

func TestBuildOrdersForest(t *testing.T) {
	items := []model.MenuItem{
		{ID: 1, ParentID: nil, MenuName: "workplace", OrderNum: 0},
		{ID: 2, ParentID: ptr(1), MenuName: "home", OrderNum: 0},
		{ID: 3, ParentID: ptr(1), MenuName: "about", OrderNum: 1},
		{ID: 4, ParentID: nil, MenuName: "system", OrderNum: 0},
		{ID: 8, ParentID: nil, MenuName: "profile", OrderNum: 2},
	}

	roots := Build(items)
	require.Len(t, roots, 3)

	// Equal OrderNum breaks ties by id; profile sorts last.
	require.Equal(t, "workplace", roots[0].Item.MenuName)
	require.Equal(t, "system", roots[1].Item.MenuName)
	require.Equal(t, "profile", roots[2].Item.MenuName)

	require.Len(t, roots[0].Children, 2)
	require.Equal(t, "home", roots[0].Children[0].Item.MenuName)
	require.Equal(t, "about", roots[0].Children[1].Item.MenuName)
}

func TestBuildPromotesOrphans(t *testing.T) {
	items := []model.MenuItem{
		{ID: 5, ParentID: ptr(99), MenuName: "user", OrderNum: 1},
	}

	roots := Build(items)
	require.Len(t, roots, 1)
	require.Equal(t, "user", roots[0].Item.MenuName)
}

func TestBuildSelfParentDoesNotCycle(t *testing.T) {
	items := []model.MenuItem{
		{ID: 1, ParentID: ptr(1), MenuName: "loop", OrderNum: 0},
	}

	roots := Build(items)
	require.Len(t, roots, 1)
	require.Empty(t, roots[0].Children)
}

func TestWalkVisitsDepthFirstInOrder(t *testing.T) {
	items := []model.MenuItem{
		{ID: 1, ParentID: nil, MenuName: "a", OrderNum: 0, Path: "/a"},
		{ID: 2, ParentID: ptr(1), MenuName: "a1", OrderNum: 0, Path: "/a/1"},
		{ID: 3, ParentID: ptr(1), MenuName: "a2", OrderNum: 1, Path: "/a/2"},
		{ID: 4, ParentID: nil, MenuName: "b", OrderNum: 1, Path: "/b"},
	}

	require.Equal(t, []string{"/a", "/a/1", "/a/2", "/b"}, Paths(Build(items)))
}

func TestWalkHandlesDeepChains(t *testing.T) {
	const depth = 50_000

	items := make([]model.MenuItem, 0, depth)
	items = append(items, model.MenuItem{ID: 1, Path: "/n1"})
	for i := int64(2); i <= depth; i++ {
		parent := i - 1
		items = append(items, model.MenuItem{ID: i, ParentID: &parent})
	}

	visited := 0
	Walk(Build(items), func(*Node) { visited++ })
	require.Equal(t, depth, visited)
}

func TestWalkSuppressesRevisits(t *testing.T) {
	shared := &Node{Item: model.MenuItem{ID: 2}}
	roots := []*Node{
		{Item: model.MenuItem{ID: 1}, Children: []*Node{shared}},
		{Item: model.MenuItem{ID: 3}, Children: []*Node{shared}},
	}

	visited := 0
	Walk(roots, func(*Node) { visited++ })
	require.Equal(t, 3, visited)
}
