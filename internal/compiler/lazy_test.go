package compiler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/shapeql/internal/shape"
)

func TestResolveFollowsThunkChains(t *testing.T) {
	inner := shape.LazyNode(func() shape.Node { return shape.Obj(shape.Leaves("id")...) })
	outer := shape.LazyNode(func() shape.Node { return inner })

	n, err := New(nil).Resolve(context.Background(), outer)
	require.NoError(t, err)
	assert.Equal(t, shape.Obj(shape.Leaves("id")...), n)

	rel := shape.Ref("Tag", shape.Common)
	n, err = New(nil).Resolve(context.Background(), rel)
	require.NoError(t, err)
	assert.Same(t, rel, n)
}

func TestThunksRunOncePerCompile(t *testing.T) {
	var calls atomic.Int32
	shared := shape.LazyNode(func() shape.Node {
		calls.Add(1)
		return shape.Obj(shape.Leaves("id")...)
	})
	root := shape.Obj(
		shape.F("a", shared),
		shape.F("b", shared),
		shape.F("c", shape.Seq{shared, shared, shared}),
	)

	c := New(nil)
	_, err := c.ResolveDeep(context.Background(), root)
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())

	// memoization does not outlive the call
	_, err = c.ResolveDeep(context.Background(), root)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestResolveDeepKeepsSequenceOrder(t *testing.T) {
	seq := make(shape.Seq, 32)
	for i := range seq {
		name := string(rune('a' + i%26))
		seq[i] = shape.LazyNode(func() shape.Node { return shape.Obj(shape.Leaves(name)...) })
	}
	out, err := New(nil).ResolveDeep(context.Background(), shape.Obj(shape.F("items", seq)))
	require.NoError(t, err)

	items, _ := out.(*shape.Object).Get("items")
	got := items.(shape.Seq)
	require.Len(t, got, len(seq))
	for i, n := range got {
		assert.Equal(t, string(rune('a'+i%26)), n.(*shape.Object).Fields[0].Name)
	}
}

func TestResolveDeepLeavesInputUntouched(t *testing.T) {
	thunk := shape.LazyNode(func() shape.Node { return shape.True })
	root := shape.Obj(shape.F("a", thunk)).Define("x", shape.LazyNode(func() shape.Node {
		return shape.Tagged("X", shape.Nav, shape.Leaves("id")...)
	}))

	out, err := New(nil).ResolveDeep(context.Background(), root)
	require.NoError(t, err)
	assert.Same(t, thunk, root.Fields[0].Node)

	obj := out.(*shape.Object)
	assert.Equal(t, shape.True, obj.Fields[0].Node)
	assert.Equal(t, shape.Tagged("X", shape.Nav, shape.Leaves("id")...), obj.Fragments[0].Node)
}

func TestThunkFailure(t *testing.T) {
	boom := errors.New("boom")
	root := shape.Obj(
		shape.F("id", shape.True),
		shape.F("owner", shape.Lazy(func(context.Context) (shape.Node, error) { return nil, boom })),
	)

	_, err := New(nil).ResolveDeep(context.Background(), root)
	require.ErrorIs(t, err, boom)
	assert.True(t, IsThunkError(err))
	var te *ThunkError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "owner", te.Path)

	spec := shape.NewSpec("Note").With(shape.Full, root)
	_, err = New(nil).Query(context.Background(), "note", "", spec, shape.Full)
	require.ErrorIs(t, err, boom)
	assert.True(t, IsThunkError(err))
}

func TestThunkFailureInSequence(t *testing.T) {
	boom := errors.New("boom")
	seq := shape.Seq{
		shape.True,
		shape.Lazy(func(context.Context) (shape.Node, error) { return nil, boom }),
	}
	_, err := New(nil).ResolveDeep(context.Background(), seq)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "[1]")
}
