package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFIFO_New(t *testing.T) {
	tests := []struct {
		name    string
		maxSize int
		want    int
	}{
		{name: "bounded", maxSize: 5, want: 5},
		{name: "zero is unbounded", maxSize: 0, want: Unbounded},
		{name: "negative is unbounded", maxSize: -3, want: Unbounded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New[int](tt.maxSize)
			if q.maxSize != tt.want {
				t.Errorf("expected maxSize %d, got %d", tt.want, q.maxSize)
			}
			if q.Len() != 0 {
				t.Errorf("new queue should be empty, got len %d", q.Len())
			}
		})
	}
}

func TestFIFO_BoundedRejectsOverflow(t *testing.T) {
	q := New[string](2)
	require.NoError(t, q.Enqueue("a"))
	require.NoError(t, q.Enqueue("b"))
	require.ErrorIs(t, q.Enqueue("c"), ErrQueueFull)
	require.Equal(t, 2, q.Len())
}

func TestFIFO_UnboundedAcceptsMany(t *testing.T) {
	var q FIFO[int]
	for i := 0; i < 10_000; i++ {
		require.NoError(t, q.Enqueue(i))
	}
	require.Equal(t, 10_000, q.Len())
}

func TestFIFO_DequeueEmpty(t *testing.T) {
	q := New[int](0)
	_, ok := q.Dequeue()
	require.False(t, ok)

	require.NoError(t, q.Enqueue(7))
	v, ok := q.Dequeue()
	require.True(t, ok)
	require.Equal(t, 7, v)
	require.Zero(t, q.Len())
}

func TestFIFO_DrainEmpty(t *testing.T) {
	q := New[int](0)
	got := q.Drain()
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestFIFO_ConcurrentEnqueue(t *testing.T) {
	q := New[int](0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = q.Enqueue(j)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 800, q.Len())
}

func TestFIFO_PreservesOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		items := rapid.SliceOf(rapid.Int()).Draw(t, "items")
		split := rapid.IntRange(0, len(items)).Draw(t, "split")

		q := New[int](0)
		for _, it := range items {
			if err := q.Enqueue(it); err != nil {
				t.Fatalf("enqueue: %v", err)
			}
		}

		var got []int
		for i := 0; i < split; i++ {
			v, ok := q.Dequeue()
			if !ok {
				t.Fatalf("dequeue %d: empty", i)
			}
			got = append(got, v)
		}
		got = append(got, q.Drain()...)

		if len(got) != len(items) {
			t.Fatalf("got %d items, want %d", len(got), len(items))
		}
		for i := range items {
			if got[i] != items[i] {
				t.Fatalf("index %d: got %d want %d", i, got[i], items[i])
			}
		}
	})
}
