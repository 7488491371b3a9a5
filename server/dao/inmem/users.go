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

type usersRepository struct {
	mu              *sync.Mutex
	users           map[uuid.UUID]dao.User
	byUsernameIndex map[string]uuid.UUID
}

func newUsersRepository(mu *sync.Mutex) *usersRepository {
	return &usersRepository{
		mu:              mu,
		users:           make(map[uuid.UUID]dao.User),
		byUsernameIndex: make(map[string]uuid.UUID),
	}
}

func (r *usersRepository) Create(ctx context.Context, user dao.User) (dao.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	newUUID, err := uuid.NewRandom()
	if err != nil {
		return dao.User{}, fmt.Errorf("could not generate ID: %w", err)
	}
	user.ID = newUUID

	if _, ok := r.byUsernameIndex[user.Username]; ok {
		return dao.User{}, dao.ErrConstraintViolation
	}

	now := time.Now()
	user.Created = now
	user.Modified = now
	user.LastLogoutTime = now

	r.users[user.ID] = user
	r.byUsernameIndex[user.Username] = user.ID

	return user, nil
}

func (r *usersRepository) GetAll(ctx context.Context) ([]dao.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]dao.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Username < all[j].Username
	})

	return all, nil
}

func (r *usersRepository) Update(ctx context.Context, id uuid.UUID, user dao.User) (dao.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[id]
	if !ok {
		return dao.User{}, dao.ErrNotFound
	}

	if user.Username != existing.Username {
		if _, ok := r.byUsernameIndex[user.Username]; ok {
			return dao.User{}, dao.ErrConstraintViolation
		}
	} else if user.ID != id {
		if _, ok := r.users[user.ID]; ok {
			return dao.User{}, dao.ErrConstraintViolation
		}
	}

	user.Modified = time.Now()

	delete(r.byUsernameIndex, existing.Username)
	if user.ID != id {
		delete(r.users, id)
	}
	r.users[user.ID] = user
	r.byUsernameIndex[user.Username] = user.ID

	return user, nil
}

func (r *usersRepository) GetByID(ctx context.Context, id uuid.UUID) (dao.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return dao.User{}, dao.ErrNotFound
	}
	return user, nil
}

func (r *usersRepository) GetByUsername(ctx context.Context, username string) (dao.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byUsernameIndex[username]
	if !ok {
		return dao.User{}, dao.ErrNotFound
	}
	return r.users[id], nil
}

func (r *usersRepository) Delete(ctx context.Context, id uuid.UUID) (dao.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return dao.User{}, dao.ErrNotFound
	}

	delete(r.byUsernameIndex, user.Username)
	delete(r.users, user.ID)

	return user, nil
}
