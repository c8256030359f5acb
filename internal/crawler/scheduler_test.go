package crawler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/depcrawl/internal/sqlname"
	"github.com/dbsmedya/depcrawl/internal/types"
)

func TestPartitionFrontier(t *testing.T) {
	frontier := []sqlname.ObjectReference{
		mkRef("WarehouseDB", "dbo", "Stock", sqlname.KindTable),
		mkRef("SalesDB", "dbo", "Orders", sqlname.KindTable),
		mkRef("SalesDB", "dbo", "OrderItems", sqlname.KindTable),
		mkRef("SalesDB", "dbo", "Customers", sqlname.KindTable),
	}

	partitions := partitionFrontier(1, frontier, 2)
	require.Len(t, partitions, 3)

	// Sorted database order, batchSize-bounded, sequential numbering.
	assert.Equal(t, "SalesDB", partitions[0].Database)
	assert.Equal(t, []string{"Orders", "OrderItems"}, partitions[0].Names())
	assert.Equal(t, 0, partitions[0].Seq)

	assert.Equal(t, "SalesDB", partitions[1].Database)
	assert.Equal(t, []string{"Customers"}, partitions[1].Names())
	assert.Equal(t, 1, partitions[1].Seq)

	assert.Equal(t, "WarehouseDB", partitions[2].Database)
	assert.Equal(t, []string{"Stock"}, partitions[2].Names())
	assert.Equal(t, 2, partitions[2].Seq)

	for _, p := range partitions {
		assert.Equal(t, 1, p.Level)
	}
}

func TestPartitionFrontier_Empty(t *testing.T) {
	assert.Nil(t, partitionFrontier(1, nil, 10))
}

func TestPartitionNames_Deduped(t *testing.T) {
	p := Partition{Refs: []sqlname.ObjectReference{
		mkRef("SalesDB", "dbo", "Orders", sqlname.KindTable),
		mkRef("SalesDB", "archive", "orders", sqlname.KindTable),
		mkRef("SalesDB", "dbo", "Customers", sqlname.KindTable),
	}}
	assert.Equal(t, []string{"Orders", "Customers"}, p.Names())
}

func TestSchedulerRunLevel_ResultsInPartitionOrder(t *testing.T) {
	s := NewScheduler(4, 0, nil)

	partitions := make([]Partition, 8)
	for i := range partitions {
		partitions[i] = Partition{Database: "SalesDB", Level: 1, Seq: i}
	}

	results := s.RunLevel(context.Background(), partitions, func(ctx context.Context, p Partition) partitionResult {
		// Later partitions finish first.
		time.Sleep(time.Duration(len(partitions)-p.Seq) * time.Millisecond)
		return partitionResult{partition: p}
	})

	require.Len(t, results, len(partitions))
	for i, res := range results {
		assert.Equal(t, i, res.partition.Seq)
	}
}

func TestSchedulerRunLevel_PoolWidth(t *testing.T) {
	s := NewScheduler(2, 0, nil)

	var running, peak int32
	partitions := make([]Partition, 6)
	for i := range partitions {
		partitions[i] = Partition{Database: "SalesDB", Level: 1, Seq: i}
	}

	s.RunLevel(context.Background(), partitions, func(ctx context.Context, p Partition) partitionResult {
		n := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return partitionResult{partition: p}
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestSchedulerRunLevel_TimeoutIsolation(t *testing.T) {
	s := NewScheduler(3, 20*time.Millisecond, nil)

	partitions := []Partition{
		{Database: "SalesDB", Level: 1, Seq: 0},
		{Database: "HrDB", Level: 1, Seq: 1},
		{Database: "WarehouseDB", Level: 1, Seq: 2},
	}

	results := s.RunLevel(context.Background(), partitions, func(ctx context.Context, p Partition) partitionResult {
		if p.Database == "HrDB" {
			// Simulates a catalog query that never returns.
			<-ctx.Done()
			return partitionResult{partition: p, err: &types.PartitionError{
				Database: p.Database,
				Level:    p.Level,
				Err:      ctx.Err(),
			}}
		}
		return partitionResult{partition: p}
	})

	require.Len(t, results, 3)
	assert.Nil(t, results[0].err)
	assert.Nil(t, results[2].err)
	require.NotNil(t, results[1].err)
	assert.True(t, errors.Is(results[1].err, context.DeadlineExceeded))
	assert.Equal(t, "HrDB", results[1].err.Database)
}
