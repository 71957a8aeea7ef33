// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fanout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMap_PreservesSubmissionOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	// Earlier items finish last.
	got, err := Map(context.Background(), items, Unbounded, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Duration(len(items)-n) * 5 * time.Millisecond)
		return n * 10, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30, 40, 50, 60, 70}, got)
}

func TestMap_RespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 20)

	_, err := Map(context.Background(), items, DetailLimit, func(_ context.Context, _ int) (struct{}, error) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}, nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(DetailLimit))
	assert.Greater(t, peak.Load(), int32(1))
}

func TestMap_FirstErrorWinsAndDiscardsResults(t *testing.T) {
	boom := errors.New("boom")
	var started atomic.Int32

	got, err := Map(context.Background(), []string{"a", "b", "c"}, Unbounded, func(ctx context.Context, s string) (string, error) {
		started.Add(1)
		if s == "b" {
			return "", boom
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Second):
			return s, nil
		}
	})
	require.ErrorIs(t, err, boom)
	assert.Nil(t, got)
}

func TestMap_ErrorStopsLaterSubmissions(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32

	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}
	_, err := Map(context.Background(), items, 1, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		if n == 0 {
			return 0, boom
		}
		return n, nil
	})
	require.ErrorIs(t, err, boom)
	assert.Less(t, calls.Load(), int32(len(items)))
}

func TestMap_Empty(t *testing.T) {
	got, err := Map(context.Background(), nil, DetailLimit, func(_ context.Context, n int) (int, error) {
		t.Fatal("fn must not be called")
		return 0, nil
	})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestMap_CancelledParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Map(ctx, []int{1, 2}, Unbounded, func(ctx context.Context, n int) (int, error) {
		return n, nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

type member struct {
	ID   string
	Name string
}

func TestUniqueBy_FirstSeenWins(t *testing.T) {
	board1 := []member{{"1", "Bob Holness"}, {"2", "Anneka Rice"}}
	board2 := []member{{"2", "Anneka R."}, {"3", "Henry Kelly"}}

	got := UniqueBy(Concat([][]member{board1, board2}), func(m member) string { return m.ID })

	assert.Equal(t, []member{
		{"1", "Bob Holness"},
		{"2", "Anneka Rice"},
		{"3", "Henry Kelly"},
	}, got)
}

func TestConcat_KeepsOuterOrder(t *testing.T) {
	got := Concat([][]string{{"a", "b"}, nil, {"c"}})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}
