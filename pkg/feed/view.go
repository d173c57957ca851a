package feed

import (
	"context"
	"sync"
	"time"
)

// Query mirrors the list filters every resource supports.
type Query struct {
	OwnerID  string
	Status   string
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
}

// Source is the remote resource a view reads and writes. Each call is one round trip.
type Source[T Record] interface {
	List(ctx context.Context, q Query) ([]T, error)
	Create(ctx context.Context, payload interface{}) (T, error)
	Update(ctx context.Context, id string, payload interface{}) (T, error)
	SetStatus(ctx context.Context, id, status string) (T, error)
	Delete(ctx context.Context, id string) error
}

// Options tune a view.
type Options[T Record] struct {
	// Timeout bounds every source call. Zero means 15 seconds.
	Timeout time.Duration
	// PatchStatus splices the returned record after a status change instead of refetching.
	PatchStatus bool
	// Less orders the held list; nil keeps source order.
	Less func(a, b T) bool
	// Notify receives every failure as a transient notification.
	Notify func(error)
}

// View holds one resource list for a page and applies mutations to it only
// after the source confirms them.
type View[T Record] struct {
	source Source[T]
	opts   Options[T]
	list   *List[T]
	dialog Dialog

	mu    sync.Mutex
	query Query
}

// NewView builds a view over source.
func NewView[T Record](source Source[T], opts Options[T]) *View[T] {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Notify == nil {
		opts.Notify = func(error) {}
	}
	return &View[T]{source: source, opts: opts, list: NewList[T](opts.Less)}
}

// Open performs the initial fetch.
func (v *View[T]) Open(ctx context.Context, q Query) error {
	v.mu.Lock()
	v.query = q
	v.mu.Unlock()
	return v.Refresh(ctx)
}

// Refresh refetches the full list. On failure the held list is left untouched.
func (v *View[T]) Refresh(ctx context.Context) error {
	v.mu.Lock()
	q := v.query
	v.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, v.opts.Timeout)
	defer cancel()
	items, err := v.source.List(callCtx, q)
	if err != nil {
		v.opts.Notify(err)
		return err
	}
	v.list.Replace(items)
	return nil
}

// Items returns the held records.
func (v *View[T]) Items() []T {
	return v.list.Snapshot()
}

// Dialog exposes the view's single dialog.
func (v *View[T]) Dialog() *Dialog {
	return &v.dialog
}

// Create writes a new record then refetches.
func (v *View[T]) Create(ctx context.Context, payload interface{}) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, v.opts.Timeout)
	rec, err := v.source.Create(callCtx, payload)
	cancel()
	if err != nil {
		v.opts.Notify(err)
		return rec, err
	}
	v.afterWrite(ctx, func() { v.list.Upsert(rec) })
	return rec, nil
}

// Update edits a record then refetches.
func (v *View[T]) Update(ctx context.Context, id string, payload interface{}) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, v.opts.Timeout)
	rec, err := v.source.Update(callCtx, id, payload)
	cancel()
	if err != nil {
		v.opts.Notify(err)
		return rec, err
	}
	v.afterWrite(ctx, func() { v.list.Upsert(rec) })
	return rec, nil
}

// SetStatus changes a record's status. In patch mode only that record is
// replaced in the held list; otherwise the list is refetched.
func (v *View[T]) SetStatus(ctx context.Context, id, status string) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, v.opts.Timeout)
	rec, err := v.source.SetStatus(callCtx, id, status)
	cancel()
	if err != nil {
		v.opts.Notify(err)
		return rec, err
	}
	if v.opts.PatchStatus {
		v.list.Patch(rec)
		return rec, nil
	}
	v.afterWrite(ctx, func() { v.list.Upsert(rec) })
	return rec, nil
}

// Delete removes a record then refetches.
func (v *View[T]) Delete(ctx context.Context, id string) error {
	callCtx, cancel := context.WithTimeout(ctx, v.opts.Timeout)
	err := v.source.Delete(callCtx, id)
	cancel()
	if err != nil {
		v.opts.Notify(err)
		return err
	}
	v.afterWrite(ctx, func() { v.list.Remove(id) })
	return nil
}

// SubmitDialog sends the open dialog's form as a create or an update.
func (v *View[T]) SubmitDialog(ctx context.Context) error {
	return v.dialog.Submit(ctx, func(ctx context.Context, mode DialogMode, id string, form interface{}) error {
		if mode == ModeEdit {
			_, err := v.Update(ctx, id, form)
			return err
		}
		_, err := v.Create(ctx, form)
		return err
	})
}

// afterWrite refetches; if that fails the confirmed change is spliced in locally.
func (v *View[T]) afterWrite(ctx context.Context, splice func()) {
	if err := v.Refresh(ctx); err != nil {
		splice()
	}
}
