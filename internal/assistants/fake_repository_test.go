package assistants

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type fakeRepository struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*Row
	err  error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{rows: map[uuid.UUID]*Row{}}
}

func (r *fakeRepository) CreateMany(_ context.Context, rows []*Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, row := range rows {
		cp := *row
		r.rows[row.ID] = &cp
	}
	return nil
}

func (r *fakeRepository) GetByID(_ context.Context, id uuid.UUID) (*Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (r *fakeRepository) ListByAccount(_ context.Context, accountID uuid.UUID, limit, offset int) ([]*Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Row
	for _, row := range r.rows {
		if row.AccountID == accountID {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepository) CountByAccount(_ context.Context, accountID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, row := range r.rows {
		if row.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepository) Update(_ context.Context, row *Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.rows[row.ID]
	if !ok {
		return ErrNotFound
	}
	cur.UserInstruction = row.UserInstruction
	cur.ModelID = row.ModelID
	cur.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *fakeRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}
