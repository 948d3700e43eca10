package usagelog

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]Record
	err     error
	last    ListParams
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[uuid.UUID]Record{}}
}

func (s *fakeStore) Insert(_ context.Context, rec *Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if _, ok := s.records[rec.ID]; ok {
		return false, nil
	}
	s.records[rec.ID] = *rec
	return true, nil
}

func (s *fakeStore) ListByAccount(_ context.Context, accountID uuid.UUID, params ListParams) ([]Record, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = params
	if s.err != nil {
		return nil, 0, s.err
	}
	var matched []Record
	for _, rec := range s.records {
		if rec.AccountID != accountID {
			continue
		}
		if params.From != nil && rec.OccurredAt.Before(*params.From) {
			continue
		}
		if params.To != nil && rec.OccurredAt.After(*params.To) {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].OccurredAt.After(matched[j].OccurredAt) })

	total := int64(len(matched))
	start := (params.Page - 1) * params.PageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := min(start+params.PageSize, len(matched))
	return matched[start:end], total, nil
}

var errStoreDown = errors.New("store down")
