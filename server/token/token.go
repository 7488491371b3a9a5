// Package token issues and validates the JWTs the phrasegen preview server
// uses for session auth.
package token

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dekarrin/phrasegen/server/dao"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "phrasegen"

// Get extracts the bearer token from req's Authorization header.
func Get(req *http.Request) (string, error) {
	authHeader := strings.TrimSpace(req.Header.Get("Authorization"))
	if authHeader == "" {
		return "", fmt.Errorf("no authorization header present")
	}

	authParts := strings.SplitN(authHeader, " ", 2)
	if len(authParts) != 2 {
		return "", fmt.Errorf("authorization header not in Bearer format")
	}

	scheme := strings.TrimSpace(strings.ToLower(authParts[0]))
	tok := strings.TrimSpace(authParts[1])
	if scheme != "bearer" {
		return "", fmt.Errorf("authorization header not in Bearer format")
	}

	return tok, nil
}

// Generate returns a new signed JWT for u, valid for one hour.
func Generate(u dao.User, secret []byte) (string, error) {
	claims := &jwt.MapClaims{
		"iss":        issuer,
		"exp":        time.Now().Add(time.Hour).Unix(),
		"sub":        u.ID.String(),
		"authorized": true,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return tok.SignedString(signingKey(secret, u))
}

// Validate parses and verifies tok, looking up its subject through users and
// binding the signing key to that user's current password hash and logout
// time so a password change or logout immediately invalidates every
// previously issued token.
func Validate(ctx context.Context, tok string, secret []byte, users dao.UserRepository) (dao.User, error) {
	var user dao.User

	_, err := jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) {
		subj, err := t.Claims.GetSubject()
		if err != nil {
			return nil, fmt.Errorf("cannot get subject: %w", err)
		}

		id, err := uuid.Parse(subj)
		if err != nil {
			return nil, fmt.Errorf("cannot parse subject UUID: %w", err)
		}

		user, err = users.GetByID(ctx, id)
		if err != nil {
			if err == dao.ErrNotFound {
				return nil, fmt.Errorf("subject does not exist")
			}
			return nil, fmt.Errorf("subject could not be validated")
		}

		return signingKey(secret, user), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}), jwt.WithIssuer(issuer), jwt.WithLeeway(time.Minute))

	if err != nil {
		return dao.User{}, err
	}

	return user, nil
}

func signingKey(secret []byte, u dao.User) []byte {
	var key []byte
	key = append(key, secret...)
	key = append(key, []byte(u.Password)...)
	key = append(key, []byte(fmt.Sprintf("%d", u.LastLogoutTime.Unix()))...)
	return key
}
