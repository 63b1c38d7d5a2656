package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type started struct{ Name string }
type finished struct{ Name string }

func TestDispatchByType(t *testing.T) {
	b := New()
	var got []string
	On(b, func(_ context.Context, e started) { got = append(got, "start:"+e.Name) })
	On(b, func(_ context.Context, e finished) { got = append(got, "finish:"+e.Name) })

	Emit(context.Background(), b, started{Name: "note"})
	Emit(context.Background(), b, finished{Name: "note"})

	assert.Equal(t, []string{"start:note", "finish:note"}, got)
}

func TestUnsubscribeRemovesOnlyThatHandler(t *testing.T) {
	b := New()
	var a, c int
	unA := On(b, func(context.Context, started) { a++ })
	On(b, func(context.Context, started) { c++ })

	Emit(context.Background(), b, started{})
	unA()
	unA()
	Emit(context.Background(), b, started{})

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, c)
}

func TestGlobalBus(t *testing.T) {
	Use(nil)
	Publish(context.Background(), started{})
	unsub := Subscribe(func(context.Context, started) { t.Fatal("no bus installed") })
	unsub()

	b := New()
	Use(b)
	defer Use(nil)

	var names []string
	unsub = Subscribe(func(_ context.Context, e started) { names = append(names, e.Name) })
	defer unsub()
	Publish(context.Background(), started{Name: "notes"})
	require.Equal(t, []string{"notes"}, names)
}
