package schedule

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunCommitsInTaskIDOrder(t *testing.T) {
	const n = 50
	tasks := make([]Task, n)
	// Shuffle the plan's slice order; Run must still commit by TaskID.
	order := rand.Perm(n)
	for i, pos := range order {
		id := TaskID(pos)
		tasks[i] = Task{ID: id, Run: func(ctx context.Context) (any, error) {
			return int(id) * 2, nil
		}}
	}

	var mu sync.Mutex
	var committed []TaskID
	err := Run(context.Background(), tasks, 8, func(r Result) error {
		mu.Lock()
		defer mu.Unlock()
		committed = append(committed, r.ID)
		require.Equal(t, int(r.ID)*2, r.Value)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, committed, n)
	for i, id := range committed {
		require.EqualValues(t, i, id)
	}
}

func TestRunPropagatesTaskError(t *testing.T) {
	tasks := []Task{
		{ID: 0, Run: func(ctx context.Context) (any, error) { return 1, nil }},
		{ID: 1, Run: func(ctx context.Context) (any, error) { return nil, errors.New("boom") }},
		{ID: 2, Run: func(ctx context.Context) (any, error) { return 3, nil }},
	}
	err := Run(context.Background(), tasks, 4, func(r Result) error { return nil })
	require.Error(t, err)
}

func TestRunNoCommitAfterTaskFailure(t *testing.T) {
	tasks := []Task{
		{ID: 0, Run: func(ctx context.Context) (any, error) { return 1, nil }},
		{ID: 1, Run: func(ctx context.Context) (any, error) { return nil, errors.New("boom") }},
	}
	var committed int
	_ = Run(context.Background(), tasks, 4, func(r Result) error {
		committed++
		return nil
	})
	require.Zero(t, committed, "no commit should be observed once any task in the plan fails")
}

func TestRunCommitErrorAbortsRemainingCommits(t *testing.T) {
	tasks := make([]Task, 5)
	for i := range tasks {
		i := i
		tasks[i] = Task{ID: TaskID(i), Run: func(ctx context.Context) (any, error) { return i, nil }}
	}
	var committed int
	err := Run(context.Background(), tasks, 4, func(r Result) error {
		committed++
		if r.ID == 2 {
			return fmt.Errorf("commit refused")
		}
		return nil
	})
	require.Error(t, err)
	require.Equal(t, 3, committed) // ids 0,1,2 attempted; 3,4 never reached
}
