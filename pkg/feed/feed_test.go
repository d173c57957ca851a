package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID     string
	Owner  string
	Status string
	At     int
}

func (i item) RecordID() string { return i.ID }

type fakeSource struct {
	mu       sync.Mutex
	rows     []item
	nextID   int
	lists    int
	failNext error
	block    bool
}

func (f *fakeSource) fail() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeSource) List(ctx context.Context, q Query) ([]item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if err := f.fail(); err != nil {
		return nil, err
	}
	out := make([]item, 0, len(f.rows))
	for _, r := range f.rows {
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeSource) Create(ctx context.Context, payload interface{}) (item, error) {
	if f.block {
		<-ctx.Done()
		return item{}, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return item{}, err
	}
	f.nextID++
	rec := payload.(item)
	rec.ID = fmt.Sprintf("r%d", f.nextID)
	f.rows = append(f.rows, rec)
	return rec, nil
}

func (f *fakeSource) Update(ctx context.Context, id string, payload interface{}) (item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return item{}, err
	}
	for i, r := range f.rows {
		if r.ID == id {
			rec := payload.(item)
			rec.ID = id
			f.rows[i] = rec
			return rec, nil
		}
	}
	return item{}, errors.New("not found")
}

func (f *fakeSource) SetStatus(ctx context.Context, id, status string) (item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return item{}, err
	}
	for i, r := range f.rows {
		if r.ID == id {
			f.rows[i].Status = status
			return f.rows[i], nil
		}
	}
	return item{}, errors.New("not found")
}

func (f *fakeSource) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	for i, r := range f.rows {
		if r.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func ids(items []item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestListUpsertPatchRemove(t *testing.T) {
	l := NewList[item](func(a, b item) bool { return a.At < b.At })
	l.Replace([]item{{ID: "m3", At: 3}, {ID: "m1", At: 1}, {ID: "m2", At: 2}, {ID: "m1", At: 9}})
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(l.Snapshot()))

	assert.False(t, l.Patch(item{ID: "zz"}))
	assert.True(t, l.Patch(item{ID: "m2", At: 2, Status: "edited"}))
	got, ok := l.Get("m2")
	require.True(t, ok)
	assert.Equal(t, "edited", got.Status)

	assert.True(t, l.Upsert(item{ID: "m0", At: 0}))
	assert.False(t, l.Upsert(item{ID: "m3", At: 3, Status: "x"}))
	assert.Equal(t, []string{"m0", "m1", "m2", "m3"}, ids(l.Snapshot()))

	before := l.Snapshot()
	assert.True(t, l.Remove("m2"))
	after := l.Snapshot()
	assert.Equal(t, []item{before[0], before[1], before[3]}, after)
	assert.False(t, l.Remove("m2"))
}

func TestViewFetchesOnOpenAndRefetchesAfterWrites(t *testing.T) {
	src := &fakeSource{rows: []item{{ID: "a", Status: "pending"}}}
	v := NewView[item](src, Options[item]{})
	require.NoError(t, v.Open(context.Background(), Query{}))
	assert.Equal(t, 1, src.lists)

	rec, err := v.Create(context.Background(), item{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, 2, src.lists)
	assert.Contains(t, ids(v.Items()), rec.ID)

	require.NoError(t, v.Delete(context.Background(), "a"))
	assert.Equal(t, 3, src.lists)
	assert.Equal(t, []string{rec.ID}, ids(v.Items()))
}

func TestViewFailureLeavesListUnchanged(t *testing.T) {
	src := &fakeSource{rows: []item{{ID: "a"}, {ID: "b"}}}
	var notified []error
	v := NewView[item](src, Options[item]{Notify: func(err error) { notified = append(notified, err) }})
	require.NoError(t, v.Open(context.Background(), Query{}))
	before := v.Items()

	src.failNext = errors.New("backend down")
	require.Error(t, v.Delete(context.Background(), "a"))
	assert.Equal(t, before, v.Items())

	src.failNext = errors.New("backend down")
	require.Error(t, v.Refresh(context.Background()))
	assert.Equal(t, before, v.Items())
	assert.Len(t, notified, 2)
}

func TestViewStatusPatchModeSkipsRefetch(t *testing.T) {
	src := &fakeSource{rows: []item{{ID: "a", Status: "pending"}, {ID: "b", Status: "pending"}}}
	v := NewView[item](src, Options[item]{PatchStatus: true})
	require.NoError(t, v.Open(context.Background(), Query{}))

	_, err := v.SetStatus(context.Background(), "b", "resolved")
	require.NoError(t, err)
	assert.Equal(t, 1, src.lists)
	items := v.Items()
	assert.Equal(t, []string{"a", "b"}, ids(items))
	assert.Equal(t, "resolved", items[1].Status)
}

func TestViewRequestTimeout(t *testing.T) {
	src := &fakeSource{block: true}
	v := NewView[item](src, Options[item]{Timeout: 20 * time.Millisecond})
	_, err := v.Create(context.Background(), item{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDialogStateMachine(t *testing.T) {
	src := &fakeSource{}
	v := NewView[item](src, Options[item]{})
	d := v.Dialog()
	assert.Equal(t, DialogClosed, d.State())
	assert.ErrorIs(t, v.SubmitDialog(context.Background()), ErrDialogClosed)

	require.NoError(t, d.OpenCreate(item{Owner: "u1"}))
	assert.ErrorIs(t, d.OpenEdit("x", item{}), ErrDialogBusy)

	src.failNext = errors.New("validation failed")
	require.Error(t, v.SubmitDialog(context.Background()))
	assert.Equal(t, DialogFailed, d.State())
	assert.Equal(t, item{Owner: "u1"}, d.Form())
	assert.EqualError(t, d.Err(), "validation failed")

	require.NoError(t, v.SubmitDialog(context.Background()))
	assert.Equal(t, DialogClosed, d.State())
	assert.Nil(t, d.Form())
	assert.Len(t, v.Items(), 1)

	require.NoError(t, d.OpenEdit(v.Items()[0].ID, item{Owner: "u1", Status: "done"}))
	require.NoError(t, v.SubmitDialog(context.Background()))
	assert.Equal(t, "done", v.Items()[0].Status)
	assert.Equal(t, "open_with_error", DialogFailed.String())
}
