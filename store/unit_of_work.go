package store

import (
	"context"

	"laundry-api/notify"

	"gorm.io/gorm"
)

// Tx is the transaction handed to a unit of work body. Events emitted on it
// are dispatched only after the transaction commits.
type Tx struct {
	*gorm.DB
	events []notify.Event
}

// Emit queues an event for post-commit dispatch.
func (t *Tx) Emit(e notify.Event) {
	t.events = append(t.events, e)
}

// UnitOfWork runs a body inside one database transaction, retrying the whole
// body on contention and rolling back on any error.
type UnitOfWork struct {
	db         *gorm.DB
	retry      RetryPolicy
	dispatcher notify.Dispatcher
}

func NewUnitOfWork(db *gorm.DB, retry RetryPolicy, dispatcher notify.Dispatcher) *UnitOfWork {
	return &UnitOfWork{db: db, retry: retry, dispatcher: dispatcher}
}

// DB returns the root handle bound to ctx for read-only queries outside a transaction.
func (u *UnitOfWork) DB(ctx context.Context) *gorm.DB {
	return u.db.WithContext(ctx)
}

func (u *UnitOfWork) Execute(ctx context.Context, fn func(tx *Tx) error) error {
	var committed []notify.Event
	err := executeWithRetry(ctx, u.retry, func(ctx context.Context) error {
		committed = nil
		return u.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
			tx := &Tx{DB: gtx}
			if err := fn(tx); err != nil {
				return err
			}
			committed = tx.events
			return nil
		})
	})
	if err != nil {
		return err
	}
	if u.dispatcher != nil {
		for _, e := range committed {
			u.dispatcher.Notify(e)
		}
	}
	return nil
}
