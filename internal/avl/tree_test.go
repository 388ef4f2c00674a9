package avl

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-switch/internal/domain"
)

func insertIDs(t *testing.T, tree *Tree, ids ...uint8) {
	t.Helper()
	for _, id := range ids {
		_, err := tree.Insert(domain.NewSwitch(id))
		require.NoError(t, err, "insert %d", id)
		require.NoError(t, tree.Check(), "after insert %d", id)
	}
}

func ids(tree *Tree) []uint8 {
	var out []uint8
	for sw := range tree.All() {
		out = append(out, sw.ID)
	}
	return out
}

func TestTree_InsertScenario(t *testing.T) {
	tree := New(10)

	insertIDs(t, tree, 50, 30, 70, 20, 40)

	assert.Equal(t, 5, tree.Len())
	min, err := tree.Min()
	require.NoError(t, err)
	assert.Equal(t, uint8(20), min)
	assert.Equal(t, []uint8{20, 30, 40, 50, 70}, ids(tree))
}

func TestTree_AscendingInsertsStayBalanced(t *testing.T) {
	tree := New(255)

	for id := 1; id <= 255; id++ {
		insertIDs(t, tree, uint8(id))
	}

	assert.Equal(t, 255, tree.Len())
	// 255 nodes fit a perfect tree of height 8; AVL allows at most ~1.44 log2(n).
	assert.LessOrEqual(t, tree.Height(), 11)
}

func TestTree_RotationCases(t *testing.T) {
	tests := []struct {
		name     string
		ids      []uint8
		wantRoot uint8
	}{
		{"right right", []uint8{10, 20, 30}, 20},
		{"left left", []uint8{30, 20, 10}, 20},
		{"right left", []uint8{10, 30, 20}, 20},
		{"left right", []uint8{30, 10, 20}, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := New(3)
			insertIDs(t, tree, tt.ids...)
			assert.Equal(t, tt.wantRoot, tree.root.sw.ID)
			assert.Equal(t, 2, tree.Height())
		})
	}
}

func TestTree_CapacityExceeded(t *testing.T) {
	tree := New(3)
	insertIDs(t, tree, 1, 2, 3)
	before := ids(tree)

	created, err := tree.Insert(domain.NewSwitch(4))

	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.False(t, created)
	assert.Equal(t, 3, tree.Len())
	assert.Equal(t, before, ids(tree))
	assert.False(t, tree.Contains(4))
}

func TestTree_DuplicateInsertKeepsStoredSwitch(t *testing.T) {
	tree := New(5)
	sw := domain.NewSwitch(9)
	sw.Status = true
	_, err := tree.Insert(sw)
	require.NoError(t, err)

	created, err := tree.Insert(domain.NewSwitch(9))

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, tree.Len())
	got, ok := tree.Find(9)
	require.True(t, ok)
	assert.True(t, got.Status)
}

func TestTree_FindReturnsFields(t *testing.T) {
	tree := New(5)
	sw := domain.Switch{ID: 4, Status: true, TimerID: 2, Schedule: domain.Schedule{OnHour: 7, OnMinute: 15, OffHour: 23, OffMinute: 59}}
	_, err := tree.Insert(sw)
	require.NoError(t, err)

	got, ok := tree.Find(4)
	assert.True(t, ok)
	assert.Equal(t, sw, got)

	_, ok = tree.Find(5)
	assert.False(t, ok)
}

func TestTree_Remove(t *testing.T) {
	tree := New(10)
	insertIDs(t, tree, 50, 30, 70, 20, 40, 60, 80, 10)

	tests := []struct {
		name string
		id   uint8
		want bool
	}{
		{"absent", 55, false},
		{"node without right child", 20, true},
		{"leaf", 10, true},
		{"inner node", 30, true},
		{"root", 50, true},
		{"already removed", 50, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tree.Len()
			assert.Equal(t, tt.want, tree.Remove(tt.id))
			if tt.want {
				assert.Equal(t, before-1, tree.Len())
			} else {
				assert.Equal(t, before, tree.Len())
			}
			assert.False(t, tree.Contains(tt.id))
			require.NoError(t, tree.Check())
		})
	}

	assert.Equal(t, []uint8{40, 60, 70, 80}, ids(tree))
}

func TestTree_MinOnEmpty(t *testing.T) {
	tree := New(1)

	_, err := tree.Min()
	assert.ErrorIs(t, err, ErrEmpty)
	assert.ErrorIs(t, tree.RemoveMin(), ErrEmpty)
	assert.True(t, tree.IsEmpty())
}

func TestTree_RemoveMinDrainsInOrder(t *testing.T) {
	tree := New(20)
	insertIDs(t, tree, 15, 3, 9, 1, 12, 7, 20, 5)

	var drained []uint8
	for !tree.IsEmpty() {
		min, err := tree.Min()
		require.NoError(t, err)
		drained = append(drained, min)
		require.NoError(t, tree.RemoveMin())
		require.NoError(t, tree.Check())
	}

	assert.Equal(t, []uint8{1, 3, 5, 7, 9, 12, 15, 20}, drained)
	assert.Equal(t, 0, tree.Len())
}

func TestTree_ForEachVisitsChildrenFirst(t *testing.T) {
	tree := New(10)
	insertIDs(t, tree, 50, 30, 70, 20, 40)

	var order []uint8
	tree.ForEach(func(sw *domain.Switch) {
		order = append(order, sw.ID)
	})

	assert.Equal(t, []uint8{20, 40, 30, 70, 50}, order)
}

func TestTree_ForEachAndUpdateCannotChangeKeys(t *testing.T) {
	tree := New(10)
	insertIDs(t, tree, 1, 2, 3)

	tree.ForEach(func(sw *domain.Switch) {
		sw.ID += 100
		sw.TimerID = 7
	})
	ok := tree.Update(2, func(sw *domain.Switch) {
		sw.ID = 200
		sw.Status = true
	})

	require.True(t, ok)
	assert.Equal(t, []uint8{1, 2, 3}, ids(tree))
	got, _ := tree.Find(2)
	assert.True(t, got.Status)
	assert.Equal(t, uint8(7), got.TimerID)
	assert.False(t, tree.Update(9, func(*domain.Switch) {}))
}

func TestTree_PreOrderReplayKeepsContents(t *testing.T) {
	tree := New(50)
	insertIDs(t, tree, 8, 4, 12, 2, 6, 10, 14, 1, 3, 5)

	replayed := New(50)
	for sw := range tree.PreOrder() {
		_, err := replayed.Insert(sw)
		require.NoError(t, err)
	}

	assert.Equal(t, slices.Collect(tree.All()), slices.Collect(replayed.All()))
	assert.Equal(t, uint8(8), slices.Collect(tree.PreOrder())[0])
	require.NoError(t, replayed.Check())
}

func TestTree_RandomOperationsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	tree := New(64)
	present := make(map[uint8]bool)

	for i := 0; i < 5000; i++ {
		id := uint8(rng.IntN(256))
		if rng.IntN(3) == 0 {
			assert.Equal(t, present[id], tree.Remove(id))
			delete(present, id)
		} else {
			created, err := tree.Insert(domain.NewSwitch(id))
			if len(present) >= 64 {
				require.ErrorIs(t, err, ErrCapacityExceeded)
				continue
			}
			require.NoError(t, err)
			assert.Equal(t, !present[id], created)
			present[id] = true
		}
		require.NoError(t, tree.Check())
		require.Equal(t, len(present), tree.Len())
	}

	for id := 0; id < 256; id++ {
		assert.Equal(t, present[uint8(id)], tree.Contains(uint8(id)), "id %d", id)
	}
}

func TestTree_Clear(t *testing.T) {
	tree := New(5)
	insertIDs(t, tree, 1, 2, 3)

	tree.Clear()

	assert.True(t, tree.IsEmpty())
	assert.Equal(t, 0, tree.Len())
	require.NoError(t, tree.Check())
}
