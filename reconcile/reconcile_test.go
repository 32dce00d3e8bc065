package reconcile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bubblytree/tuicore/reconcile"
	"github.com/bubblytree/tuicore/registry"
	"github.com/bubblytree/tuicore/vnode"
)

type seqAllocator struct{ next registry.InstanceID }

func (a *seqAllocator) Allocate() registry.InstanceID {
	a.next++
	return a.next
}

func TestSlotIDKeyedVsIndexed(t *testing.T) {
	assert.Equal(t, "k:a", reconcile.SlotID(vnode.Node{Key: "a"}, 3))
	assert.Equal(t, "i:3", reconcile.SlotID(vnode.Node{}, 3))
}

func TestFastPathReusesByIndex(t *testing.T) {
	prev := []reconcile.PrevChild{
		{SlotID: "i:0", Node: vnode.Node{Kind: vnode.KindButton}, InstanceID: 10},
		{SlotID: "i:1", Node: vnode.Node{Kind: vnode.KindButton}, InstanceID: 11},
	}
	next := []vnode.Node{{Kind: vnode.KindButton}, {Kind: vnode.KindButton}}

	res, err := reconcile.Reconcile(1, prev, next, &seqAllocator{})
	require.NoError(t, err)
	require.Len(t, res.Children, 2)
	assert.Equal(t, registry.InstanceID(10), res.Children[0].InstanceID)
	assert.Equal(t, registry.InstanceID(11), res.Children[1].InstanceID)
	assert.True(t, res.Reused[10])
	assert.True(t, res.Reused[11])
	assert.Empty(t, res.Unmounted)
	assert.Empty(t, res.Allocated)
}

func TestFastPathUnmountsSurplusPrevAndAllocatesSurplusNext(t *testing.T) {
	prev := []reconcile.PrevChild{
		{SlotID: "i:0", Node: vnode.Node{Kind: vnode.KindText}, InstanceID: 1},
		{SlotID: "i:1", Node: vnode.Node{Kind: vnode.KindText}, InstanceID: 2},
		{SlotID: "i:2", Node: vnode.Node{Kind: vnode.KindText}, InstanceID: 3},
	}
	next := []vnode.Node{{Kind: vnode.KindText}}

	res, err := reconcile.Reconcile(1, prev, next, &seqAllocator{})
	require.NoError(t, err)
	assert.True(t, res.Reused[1])
	assert.True(t, res.Unmounted[2])
	assert.True(t, res.Unmounted[3])

	prev2 := prev[:1]
	next2 := []vnode.Node{{Kind: vnode.KindText}, {Kind: vnode.KindText}, {Kind: vnode.KindText}}
	res2, err := reconcile.Reconcile(1, prev2, next2, &seqAllocator{})
	require.NoError(t, err)
	assert.Len(t, res2.Allocated, 2)
}

func TestIncompatibleSameIndexUnmountsAndAllocates(t *testing.T) {
	prev := []reconcile.PrevChild{
		{SlotID: "i:0", Node: vnode.Node{Kind: vnode.KindButton}, InstanceID: 1},
	}
	next := []vnode.Node{{Kind: vnode.KindInput}}

	res, err := reconcile.Reconcile(1, prev, next, &seqAllocator{})
	require.NoError(t, err)
	assert.True(t, res.Unmounted[1])
	assert.Len(t, res.Allocated, 1)
	assert.Empty(t, res.Reused)
}

func TestKeyedPathReusesMatchingKeyRegardlessOfPosition(t *testing.T) {
	prev := []reconcile.PrevChild{
		{SlotID: "k:a", Node: vnode.Node{Kind: vnode.KindText, Key: "a"}, InstanceID: 1},
		{SlotID: "k:b", Node: vnode.Node{Kind: vnode.KindText, Key: "b"}, InstanceID: 2},
	}
	next := []vnode.Node{
		{Kind: vnode.KindText, Key: "b"},
		{Kind: vnode.KindText, Key: "a"},
	}

	res, err := reconcile.Reconcile(1, prev, next, &seqAllocator{})
	require.NoError(t, err)
	require.Len(t, res.Children, 2)
	assert.Equal(t, registry.InstanceID(2), res.Children[0].InstanceID)
	assert.Equal(t, registry.InstanceID(1), res.Children[1].InstanceID)
	assert.Empty(t, res.Unmounted)
}

func TestKeyedPathUnmountsDroppedKeys(t *testing.T) {
	prev := []reconcile.PrevChild{
		{SlotID: "k:a", Node: vnode.Node{Kind: vnode.KindText, Key: "a"}, InstanceID: 1},
		{SlotID: "k:b", Node: vnode.Node{Kind: vnode.KindText, Key: "b"}, InstanceID: 2},
	}
	next := []vnode.Node{{Kind: vnode.KindText, Key: "a"}}

	res, err := reconcile.Reconcile(1, prev, next, &seqAllocator{})
	require.NoError(t, err)
	assert.True(t, res.Reused[1])
	assert.True(t, res.Unmounted[2])
}

func TestCompositeKeyMismatchForcesNewInstance(t *testing.T) {
	prev := []reconcile.PrevChild{
		{SlotID: "i:0", Node: vnode.Node{Kind: vnode.KindBox, Composite: "Counter"}, InstanceID: 1},
	}
	next := []vnode.Node{{Kind: vnode.KindBox, Composite: "Gauge"}}

	res, err := reconcile.Reconcile(1, prev, next, &seqAllocator{})
	require.NoError(t, err)
	assert.True(t, res.Unmounted[1])
	assert.Len(t, res.Allocated, 1)
}

func TestDuplicateKeyInNextIsFatal(t *testing.T) {
	next := []vnode.Node{
		{Kind: vnode.KindText, Key: "dup"},
		{Kind: vnode.KindText, Key: "dup"},
	}
	_, err := reconcile.Reconcile(7, nil, next, &seqAllocator{})
	require.Error(t, err)
	var dup *reconcile.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, registry.InstanceID(7), dup.Parent)
	assert.Equal(t, "dup", dup.Key)
}

func TestDuplicateKeyInPrevIsFatal(t *testing.T) {
	prev := []reconcile.PrevChild{
		{SlotID: "k:dup", Node: vnode.Node{Kind: vnode.KindText, Key: "dup"}, InstanceID: 1},
		{SlotID: "k:dup", Node: vnode.Node{Kind: vnode.KindText, Key: "dup"}, InstanceID: 2},
	}
	_, err := reconcile.Reconcile(7, prev, nil, &seqAllocator{})
	require.Error(t, err)
}

func TestUnknownKindNeverPanicsOnlyFailsToMatch(t *testing.T) {
	prev := []reconcile.PrevChild{
		{SlotID: "i:0", Node: vnode.Node{Kind: "mystery"}, InstanceID: 1},
	}
	next := []vnode.Node{{Kind: "mystery"}}

	assert.NotPanics(t, func() {
		res, err := reconcile.Reconcile(1, prev, next, &seqAllocator{})
		require.NoError(t, err)
		assert.False(t, res.Reused[1])
		assert.True(t, res.Unmounted[1])
		assert.Len(t, res.Allocated, 1)
	})
}
