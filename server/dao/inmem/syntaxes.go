package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dekarrin/phrasegen/server/dao"
	"github.com/google/uuid"
)

type syntaxesRepository struct {
	mu   *sync.Mutex
	recs map[uuid.UUID]dao.SyntaxRecord
}

func newSyntaxesRepository(mu *sync.Mutex) *syntaxesRepository {
	return &syntaxesRepository{
		mu:   mu,
		recs: make(map[uuid.UUID]dao.SyntaxRecord),
	}
}

func (r *syntaxesRepository) Create(ctx context.Context, s dao.SyntaxRecord) (dao.SyntaxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	newUUID, err := uuid.NewRandom()
	if err != nil {
		return dao.SyntaxRecord{}, fmt.Errorf("could not generate ID: %w", err)
	}
	s.ID = newUUID
	s.Created = time.Now()

	r.recs[s.ID] = s
	return s, nil
}

func (r *syntaxesRepository) GetByID(ctx context.Context, id uuid.UUID) (dao.SyntaxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.recs[id]
	if !ok {
		return dao.SyntaxRecord{}, dao.ErrNotFound
	}
	return rec, nil
}

func (r *syntaxesRepository) GetAllByOwner(ctx context.Context, owner uuid.UUID) ([]dao.SyntaxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]dao.SyntaxRecord, 0)
	for _, rec := range r.recs {
		if rec.Owner == owner {
			all = append(all, rec)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Created.Before(all[j].Created)
	})

	return all, nil
}

func (r *syntaxesRepository) Delete(ctx context.Context, id uuid.UUID) (dao.SyntaxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.recs[id]
	if !ok {
		return dao.SyntaxRecord{}, dao.ErrNotFound
	}
	delete(r.recs, id)
	return rec, nil
}
