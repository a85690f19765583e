package workerpool

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitialize_RejectsDoubleInitialize(t *testing.T) {
	p, err := Initialize(1, time.Second, nil)
	require.NoError(t, err)
	defer Destroy()

	_, err = Initialize(1, time.Second, nil)
	require.Error(t, err)
	require.NotNil(t, p)
}

// With exactly one worker, instructions must execute in FIFO order.
func TestSingleWorker_ExecutesInFIFOOrder(t *testing.T) {
	p, err := Initialize(1, time.Second, nil)
	require.NoError(t, err)
	defer Destroy()

	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		p.Instruct(Instruction{
			Name: "step",
			Run: func(ctx context.Context, client *http.Client) error {
				defer wg.Done()
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			},
		})
	}
	wg.Wait()

	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestAwaitInstruct_ReturnsRunError(t *testing.T) {
	p, err := Initialize(2, time.Second, nil)
	require.NoError(t, err)
	defer Destroy()

	err = p.AwaitInstruct(context.Background(), Instruction{
		Name: "fails",
		Run: func(ctx context.Context, client *http.Client) error {
			return context.DeadlineExceeded
		},
	})
	require.Error(t, err)
}

func TestStatsSnapshot_ReportsWorkerCount(t *testing.T) {
	p, err := Initialize(3, time.Second, nil)
	require.NoError(t, err)
	defer Destroy()

	stats := p.StatsSnapshot()
	require.Equal(t, 3, stats.Workers)
}
