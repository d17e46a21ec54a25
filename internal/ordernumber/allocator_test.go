package ordernumber

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tradein-backend/pkg/db"
	"github.com/angelmondragon/tradein-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradein-backend/pkg/db/models"
)

func TestAllocateOrderNumber_Sequential(t *testing.T) {
	client := dbtest.NewClient(t)
	alloc := NewAllocator(client)
	ctx := context.Background()

	for _, want := range []string{"ORD-0000001", "ORD-0000002", "ORD-0000003"} {
		got, err := alloc.AllocateOrderNumber(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	var counter models.OrderCounter
	require.NoError(t, client.DB().Where("name = ?", CounterOrders).Take(&counter).Error)
	assert.Equal(t, int64(3), counter.Value)
}

func TestAllocateOrderNumber_ConcurrentCallersGetDistinctNumbers(t *testing.T) {
	client := dbtest.NewClient(t)
	alloc := NewAllocator(client)
	ctx := context.Background()

	const callers = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]struct{}{}
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := alloc.AllocateOrderNumber(ctx)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numbers[n] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, numbers, callers)
	for i := int64(1); i <= callers; i++ {
		assert.Contains(t, numbers, Format(DefaultPrefix, DefaultWidth, i))
	}
}

func TestAdvance_StaleValueIsWriteConflict(t *testing.T) {
	client := dbtest.NewClient(t)
	alloc := NewAllocator(client)
	ctx := context.Background()

	_, err := alloc.AllocateOrderNumber(ctx)
	require.NoError(t, err)
	_, err = alloc.AllocateOrderNumber(ctx)
	require.NoError(t, err)

	// A writer that read value 1 lost the race to the second allocation.
	err = alloc.advance(client.DB().WithContext(ctx), 1, 2)
	assert.ErrorIs(t, err, db.ErrWriteConflict)

	// A second first-insert loses against the existing row.
	err = alloc.advance(client.DB().WithContext(ctx), 0, 1)
	assert.ErrorIs(t, err, db.ErrWriteConflict)
}

func TestNext_RequiresTransaction(t *testing.T) {
	alloc := NewAllocator(dbtest.NewClient(t))
	_, err := alloc.Next(context.Background(), nil)
	assert.Error(t, err)
}

func TestAllocator_WholesaleCounterIsIndependent(t *testing.T) {
	client := dbtest.NewClient(t)
	ctx := context.Background()
	orders := NewAllocator(client)
	wholesale := NewAllocator(client, WithCounter(CounterWholesale), WithFormat("WHL", 6))

	_, err := orders.AllocateOrderNumber(ctx)
	require.NoError(t, err)
	_, err = orders.AllocateOrderNumber(ctx)
	require.NoError(t, err)

	got, err := wholesale.AllocateOrderNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "WHL-000001", got)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "ORD-0000042", Format("ORD", 7, 42))
	assert.Equal(t, "ORD-12345678", Format("ORD", 7, 12345678))
}
