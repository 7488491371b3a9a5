package token

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dekarrin/phrasegen/server/dao"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubUsers struct {
	user dao.User
}

func (s stubUsers) Create(ctx context.Context, user dao.User) (dao.User, error) { return user, nil }
func (s stubUsers) GetByID(ctx context.Context, id uuid.UUID) (dao.User, error) {
	if id != s.user.ID {
		return dao.User{}, dao.ErrNotFound
	}
	return s.user, nil
}
func (s stubUsers) GetByUsername(ctx context.Context, username string) (dao.User, error) {
	return dao.User{}, dao.ErrNotFound
}
func (s stubUsers) GetAll(ctx context.Context) ([]dao.User, error) { return nil, nil }
func (s stubUsers) Update(ctx context.Context, id uuid.UUID, user dao.User) (dao.User, error) {
	return user, nil
}
func (s stubUsers) Delete(ctx context.Context, id uuid.UUID) (dao.User, error) {
	return dao.User{}, nil
}

var secret = []byte("01234567890123456789012345678901")

func Test_GenerateThenValidateRoundTrips(t *testing.T) {
	user := dao.User{ID: uuid.New(), Password: "hashedpw"}
	users := stubUsers{user: user}

	tok, err := Generate(user, secret)
	if !assert.NoError(t, err) {
		return
	}

	validated, err := Validate(context.Background(), tok, secret, users)
	if assert.NoError(t, err) {
		assert.Equal(t, user.ID, validated.ID)
	}
}

func Test_ValidateFailsAfterLogout(t *testing.T) {
	user := dao.User{ID: uuid.New(), Password: "hashedpw"}

	tok, err := Generate(user, secret)
	if !assert.NoError(t, err) {
		return
	}

	user.LastLogoutTime = time.Now()
	users := stubUsers{user: user}

	_, err = Validate(context.Background(), tok, secret, users)
	assert.Error(t, err)
}

func Test_ValidateFailsWithWrongSecret(t *testing.T) {
	user := dao.User{ID: uuid.New(), Password: "hashedpw"}
	users := stubUsers{user: user}

	tok, err := Generate(user, secret)
	if !assert.NoError(t, err) {
		return
	}

	_, err = Validate(context.Background(), tok, []byte("different-secret-that-is-32-bytes"), users)
	assert.Error(t, err)
}

func Test_GetExtractsBearerToken(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "/", nil)
	if !assert.NoError(t, err) {
		return
	}
	req.Header.Set("Authorization", "Bearer abc.def.ghi")

	tok, err := Get(req)
	if assert.NoError(t, err) {
		assert.Equal(t, "abc.def.ghi", tok)
	}
}

func Test_GetFailsWithoutAuthorizationHeader(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "/", nil)
	if !assert.NoError(t, err) {
		return
	}

	_, err = Get(req)
	assert.Error(t, err)
}
