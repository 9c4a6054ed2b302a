package store_test

import (
	"context"
	"errors"
	"testing"

	"laundry-api/apperr"
	"laundry-api/models"
	"laundry-api/notify"
	"laundry-api/store"
	"laundry-api/store/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderNumbersSequentially(t *testing.T) {
	db := testdb.Open(t)
	f := testdb.Seed(t, db)

	first := f.Order(t, db, models.StatusPending, nil)
	second := f.Order(t, db, models.StatusPending, nil)
	assert.Equal(t, 1, first.OrderNumber)
	assert.Equal(t, 2, second.OrderNumber)
}

func TestSaveOrderDetectsStaleVersion(t *testing.T) {
	db := testdb.Open(t)
	f := testdb.Seed(t, db)
	o := f.Order(t, db, models.StatusConfirmed, nil)

	stale := testdb.Reload(t, db, o.ID)
	fresh := testdb.Reload(t, db, o.ID)

	fresh.BinNumber = "B-12"
	require.NoError(t, store.SaveOrder(db, fresh))
	assert.Equal(t, 1, fresh.Version)

	stale.BinNumber = "B-99"
	err := store.SaveOrder(db, stale)
	assert.ErrorIs(t, err, apperr.ErrConcurrentModification)
	assert.Equal(t, 0, stale.Version)
	assert.Equal(t, "B-12", testdb.Reload(t, db, o.ID).BinNumber)
}

func TestLockOrderNotFound(t *testing.T) {
	db := testdb.Open(t)
	_, err := store.LockOrder(db, 404)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestUnitOfWorkDispatchesOnlyAfterCommit(t *testing.T) {
	db := testdb.Open(t)
	f := testdb.Seed(t, db)
	o := f.Order(t, db, models.StatusConfirmed, nil)
	rec := &notify.Recorder{}
	uow := store.NewUnitOfWork(db, store.DefaultRetryPolicy, rec)
	ctx := context.Background()

	boom := errors.New("boom")
	err := uow.Execute(ctx, func(tx *store.Tx) error {
		order, err := store.LockOrder(tx.DB, o.ID)
		require.NoError(t, err)
		order.BinNumber = "lost"
		require.NoError(t, store.SaveOrder(tx.DB, order))
		tx.Emit(notify.Event{Type: notify.EventStatusChanged, OrderID: o.ID})
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, rec.Events())
	assert.Empty(t, testdb.Reload(t, db, o.ID).BinNumber)

	err = uow.Execute(ctx, func(tx *store.Tx) error {
		order, err := store.LockOrder(tx.DB, o.ID)
		if err != nil {
			return err
		}
		order.BinNumber = "kept"
		tx.Emit(notify.Event{Type: notify.EventStatusChanged, OrderID: o.ID})
		return store.SaveOrder(tx.DB, order)
	})
	require.NoError(t, err)
	assert.Equal(t, []notify.EventType{notify.EventStatusChanged}, rec.Types())
	assert.Equal(t, "kept", testdb.Reload(t, db, o.ID).BinNumber)
}

func TestUnitOfWorkRetriesLostRace(t *testing.T) {
	db := testdb.Open(t)
	f := testdb.Seed(t, db)
	o := f.Order(t, db, models.StatusConfirmed, nil)
	uow := store.NewUnitOfWork(db, store.DefaultRetryPolicy, nil)

	attempts := 0
	err := uow.Execute(context.Background(), func(tx *store.Tx) error {
		attempts++
		order, err := store.LockOrder(tx.DB, o.ID)
		if err != nil {
			return err
		}
		if attempts == 1 {
			// simulate a writer that committed between our read and write
			order.Version--
		}
		order.NumBags = 2
		return store.SaveOrder(tx.DB, order)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 2, testdb.Reload(t, db, o.ID).NumBags)
}

func TestAppendHistory(t *testing.T) {
	db := testdb.Open(t)
	f := testdb.Seed(t, db)
	o := f.Order(t, db, models.StatusPending, nil)

	require.NoError(t, store.AppendHistory(db, o.ID, models.StatusPending, models.StatusConfirmed, f.Attendant.ID, ""))
	require.NoError(t, store.AppendHistory(db, o.ID, models.StatusConfirmed, models.StatusPickedUp, f.Driver.ID, "bag 1 of 2"))

	h, err := store.LoadHistory(db, o.ID)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, models.StatusConfirmed, h[0].ToStatus)
	assert.Equal(t, "bag 1 of 2", h[1].Note)
	assert.Equal(t, f.Driver.ID, h[1].ChangedBy)
}
