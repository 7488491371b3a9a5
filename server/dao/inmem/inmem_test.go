package inmem

import (
	"context"
	"testing"

	"github.com/dekarrin/phrasegen/server/dao"
	"github.com/stretchr/testify/assert"
)

func Test_UsersRepository_CreateAndGet(t *testing.T) {
	store := NewDatastore()

	created, err := store.Users().Create(context.Background(), dao.User{Username: "alice"})
	if !assert.NoError(t, err) {
		return
	}
	assert.NotZero(t, created.ID)
	assert.NotZero(t, created.Created)

	fromID, err := store.Users().GetByID(context.Background(), created.ID)
	if assert.NoError(t, err) {
		assert.Equal(t, "alice", fromID.Username)
	}

	fromName, err := store.Users().GetByUsername(context.Background(), "alice")
	if assert.NoError(t, err) {
		assert.Equal(t, created.ID, fromName.ID)
	}
}

func Test_UsersRepository_CreateDuplicateUsernameFails(t *testing.T) {
	store := NewDatastore()

	_, err := store.Users().Create(context.Background(), dao.User{Username: "alice"})
	assert.NoError(t, err)

	_, err = store.Users().Create(context.Background(), dao.User{Username: "alice"})
	assert.ErrorIs(t, err, dao.ErrConstraintViolation)
}

func Test_UsersRepository_GetAllIsSortedByUsername(t *testing.T) {
	store := NewDatastore()

	for _, name := range []string{"carol", "alice", "bob"} {
		_, err := store.Users().Create(context.Background(), dao.User{Username: name})
		assert.NoError(t, err)
	}

	all, err := store.Users().GetAll(context.Background())
	if !assert.NoError(t, err) || !assert.Len(t, all, 3) {
		return
	}
	assert.Equal(t, []string{"alice", "bob", "carol"}, []string{all[0].Username, all[1].Username, all[2].Username})
}

func Test_UsersRepository_DeleteRemovesUsernameIndex(t *testing.T) {
	store := NewDatastore()

	created, err := store.Users().Create(context.Background(), dao.User{Username: "alice"})
	assert.NoError(t, err)

	_, err = store.Users().Delete(context.Background(), created.ID)
	assert.NoError(t, err)

	_, err = store.Users().GetByUsername(context.Background(), "alice")
	assert.ErrorIs(t, err, dao.ErrNotFound)

	// username should be free for reuse now
	_, err = store.Users().Create(context.Background(), dao.User{Username: "alice"})
	assert.NoError(t, err)
}

func Test_SyntaxesRepository_CreateAndGetAllByOwner(t *testing.T) {
	store := NewDatastore()

	owner, err := store.Users().Create(context.Background(), dao.User{Username: "alice"})
	if !assert.NoError(t, err) {
		return
	}
	other, err := store.Users().Create(context.Background(), dao.User{Username: "bob"})
	if !assert.NoError(t, err) {
		return
	}

	_, err = store.Syntaxes().Create(context.Background(), dao.SyntaxRecord{Owner: owner.ID, Name: "greeting", Start: "main"})
	assert.NoError(t, err)
	_, err = store.Syntaxes().Create(context.Background(), dao.SyntaxRecord{Owner: owner.ID, Name: "farewell", Start: "main"})
	assert.NoError(t, err)
	_, err = store.Syntaxes().Create(context.Background(), dao.SyntaxRecord{Owner: other.ID, Name: "unrelated", Start: "main"})
	assert.NoError(t, err)

	owned, err := store.Syntaxes().GetAllByOwner(context.Background(), owner.ID)
	if assert.NoError(t, err) {
		assert.Len(t, owned, 2)
	}
}

func Test_SyntaxesRepository_DeleteThenGetByIDNotFound(t *testing.T) {
	store := NewDatastore()

	rec, err := store.Syntaxes().Create(context.Background(), dao.SyntaxRecord{Name: "greeting", Start: "main"})
	if !assert.NoError(t, err) {
		return
	}

	_, err = store.Syntaxes().Delete(context.Background(), rec.ID)
	assert.NoError(t, err)

	_, err = store.Syntaxes().GetByID(context.Background(), rec.ID)
	assert.ErrorIs(t, err, dao.ErrNotFound)
}
