package service

import (
	"context"
	"database/sql"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/prefect-api/internal/models"
)

type stampedRecord[T any] interface {
	*T
	Stamp(now time.Time)
	RecordID() string
}

// fakeResourceRepo is an in-memory resourceRepository. apply copies update
// fields onto a stored row; when nil the row is returned unchanged.
type fakeResourceRepo[T any, PT stampedRecord[T]] struct {
	mu         sync.Mutex
	rows       map[string]*T
	order      []string
	apply      func(row *T, fields models.Fields)
	lastFilter models.ListFilter
	lastFields models.Fields
	createErr  error
	updateErr  error
	deleteErr  error
}

func newFakeResourceRepo[T any, PT stampedRecord[T]](apply func(row *T, fields models.Fields)) *fakeResourceRepo[T, PT] {
	return &fakeResourceRepo[T, PT]{rows: make(map[string]*T), apply: apply}
}

func (f *fakeResourceRepo[T, PT]) List(ctx context.Context, filter models.ListFilter) ([]T, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	out := make([]T, 0, len(f.order))
	for _, id := range f.order {
		row := *f.rows[id]
		if filter.OwnerID != "" {
			if owned, ok := any(row).(models.Owned); ok && owned.OwnerID() != filter.OwnerID {
				continue
			}
		}
		out = append(out, row)
	}
	return out, len(out), nil
}

func (f *fakeResourceRepo[T, PT]) FindByID(ctx context.Context, id string) (*T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *row
	return &cp, nil
}

func (f *fakeResourceRepo[T, PT]) Create(ctx context.Context, rec *T) (*T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	stamp := PT(rec)
	stamp.Stamp(time.Now().UTC())
	cp := *rec
	f.rows[stamp.RecordID()] = &cp
	f.order = append(f.order, stamp.RecordID())
	out := cp
	return &out, nil
}

func (f *fakeResourceRepo[T, PT]) Update(ctx context.Context, id string, fields models.Fields) (*T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	row, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	f.lastFields = fields
	if f.apply != nil {
		f.apply(row, fields)
	}
	PT(row).Stamp(time.Now().UTC())
	cp := *row
	return &cp, nil
}

func (f *fakeResourceRepo[T, PT]) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.rows[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.rows, id)
	for i, existing := range f.order {
		if existing == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

// seed stores a row as-is.
func (f *fakeResourceRepo[T, PT]) seed(rows ...T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range rows {
		row := rows[i]
		id := PT(&row).RecordID()
		f.rows[id] = &row
		f.order = append(f.order, id)
	}
	sort.Strings(f.order)
}

type fakeAudit struct {
	mu   sync.Mutex
	logs []*models.AuditLog
	err  error
}

func (f *fakeAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return f.err
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.logs))
	for i, l := range f.logs {
		out[i] = l.Action
	}
	return out
}

type fakeBlobStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	deleted []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (f *fakeBlobStore) Save(key string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[key] = append([]byte(nil), data...)
	return key, nil
}

func (f *fakeBlobStore) SaveStream(key string, r io.Reader) (string, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	_, err = f.Save(key, data)
	return key, int64(len(data)), err
}

func (f *fakeBlobStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlobStore) PublicURL(key string) string {
	return "http://files.test/" + key
}

func admin(id string) models.Actor {
	return models.Actor{ID: id, Roles: models.RoleSet{models.RoleAdmin}}
}

func prefect(id string) models.Actor {
	return models.Actor{ID: id, Roles: models.RoleSet{models.RolePrefect}}
}

func student(id string) models.Actor {
	return models.Actor{ID: id, Roles: models.RoleSet{models.RoleStudent}}
}

func strPtr(v string) *string { return &v }
