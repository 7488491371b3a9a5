package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dekarrin/phrasegen"
	"github.com/dekarrin/phrasegen/internal/version"
	"github.com/dekarrin/phrasegen/server/dao"
	"github.com/dekarrin/phrasegen/server/middle"
	"github.com/dekarrin/phrasegen/server/result"
	"github.com/dekarrin/phrasegen/server/serr"
	"github.com/dekarrin/phrasegen/server/token"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func tokenFor(s *Server, user dao.User) (string, error) {
	return token.Generate(user, s.jwtSecret)
}

// v must be a pointer to a type.
func parseJSON(req *http.Request, v interface{}) error {
	contentType := req.Header.Get("Content-Type")
	if strings.ToLower(contentType) != "application/json" {
		return fmt.Errorf("request content-type is not application/json")
	}

	bodyData, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("could not read request body: %w", err)
	}

	if err := json.Unmarshal(bodyData, v); err != nil {
		return serr.New(serr.ErrBodyUnmarshal.Error(), serr.ErrBodyUnmarshal)
	}
	return nil
}

func requestUser(req *http.Request) (dao.User, bool) {
	loggedIn, _ := req.Context().Value(middle.AuthLoggedIn).(bool)
	user, _ := req.Context().Value(middle.AuthUser).(dao.User)
	return user, loggedIn
}

func pathUUID(req *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(req, "id"))
}

// parseErrorResponse is the JSON shape returned for a malformed phrase-syntax
// source text, one entry per issue the parser recovered from and reported.
type parseErrorResponse struct {
	Issues []phrasegen.Issue `json:"issues"`
}

func (s *Server) httpCreateSyntax() http.HandlerFunc {
	return s.httpEndpoint(func(req *http.Request) result.Result {
		user, _ := requestUser(req)

		var body CreateSyntaxRequest
		if err := parseJSON(req, &body); err != nil {
			return result.BadRequest(err.Error(), err.Error())
		}
		if strings.TrimSpace(body.Source) == "" {
			return result.BadRequest("source: property is empty or missing from request", "empty source")
		}

		rec, err := s.CreateSyntax(req.Context(), user.ID, body.Name, body.Source, body.Start)
		if err != nil {
			var perr *phrasegen.ParseError
			if errors.As(err, &perr) {
				return result.Response(http.StatusUnprocessableEntity, parseErrorResponse{Issues: perr.Issues}, "source has %d issue(s)", len(perr.Issues))
			}
			return result.BadRequest(err.Error(), "could not bind syntax: %s", err.Error())
		}

		return result.Created(syntaxResponse(rec), "syntax %q created", rec.ID)
	})
}

func (s *Server) httpGetSyntax() http.HandlerFunc {
	return s.httpEndpoint(func(req *http.Request) result.Result {
		id, err := pathUUID(req)
		if err != nil {
			return result.BadRequest("id is not a valid UUID", err.Error())
		}

		rec, err := s.GetSyntax(req.Context(), id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return result.NotFound()
			}
			return result.InternalServerError(err.Error())
		}

		return result.OK(syntaxResponse(rec))
	})
}

func (s *Server) httpDeleteSyntax() http.HandlerFunc {
	return s.httpEndpoint(func(req *http.Request) result.Result {
		user, _ := requestUser(req)

		id, err := pathUUID(req)
		if err != nil {
			return result.BadRequest("id is not a valid UUID", err.Error())
		}

		rec, err := s.GetSyntax(req.Context(), id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return result.NotFound()
			}
			return result.InternalServerError(err.Error())
		}
		if rec.Owner != user.ID && user.Role != dao.Admin {
			return result.Forbidden("syntax %q: not owner", id)
		}

		if _, err := s.DeleteSyntax(req.Context(), id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return result.NotFound()
			}
			return result.InternalServerError(err.Error())
		}

		return result.NoContent("syntax %q deleted", id)
	})
}

func (s *Server) httpGenerateSample() http.HandlerFunc {
	return s.httpEndpoint(func(req *http.Request) result.Result {
		id, err := pathUUID(req)
		if err != nil {
			return result.BadRequest("id is not a valid UUID", err.Error())
		}

		var body GenerateRequest
		if req.ContentLength > 0 {
			if err := parseJSON(req, &body); err != nil {
				return result.BadRequest(err.Error(), err.Error())
			}
		}

		var ext phrasegen.ExternalContext
		if len(body.Context) > 0 {
			ext = phrasegen.ExternalContext(body.Context)
		}

		out, err := s.GenerateSample(req.Context(), id, ext, body.Equalize)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return result.NotFound()
			}
			return result.BadRequest(err.Error(), "could not generate: %s", err.Error())
		}

		return result.OK(GenerateResponse{Output: out})
	})
}

func (s *Server) httpCreateLogin() http.HandlerFunc {
	return s.httpEndpoint(func(req *http.Request) result.Result {
		var body LoginRequest
		if err := parseJSON(req, &body); err != nil {
			return result.BadRequest(err.Error(), err.Error())
		}
		if body.Username == "" {
			return result.BadRequest("username: property is empty or missing from request", "empty user")
		}
		if body.Password == "" {
			return result.BadRequest("password: property is empty or missing from request", "empty password")
		}

		user, err := s.Login(req.Context(), body.Username, body.Password)
		if err != nil {
			if errors.Is(err, ErrBadCredentials) {
				return result.Unauthorized(err.Error())
			}
			return result.InternalServerError(err.Error())
		}

		tok, err := tokenFor(s, user)
		if err != nil {
			return result.InternalServerError("could not generate token: " + err.Error())
		}

		return result.Created(LoginResponse{Token: tok, UserID: user.ID.String()}, "user %q logged in", user.Username)
	})
}

func (s *Server) httpDeleteLogin() http.HandlerFunc {
	return s.httpEndpoint(func(req *http.Request) result.Result {
		actor, _ := requestUser(req)

		id, err := pathUUID(req)
		if err != nil {
			return result.BadRequest("id is not a valid UUID", err.Error())
		}

		if id != actor.ID && actor.Role != dao.Admin {
			return result.Forbidden("user %q logout of %q: forbidden", actor.Username, id)
		}

		loggedOut, err := s.Logout(req.Context(), id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return result.NotFound()
			}
			return result.InternalServerError(err.Error())
		}

		return result.NoContent("user %q logged out", loggedOut.Username)
	})
}

func (s *Server) httpCreateToken() http.HandlerFunc {
	return s.httpEndpoint(func(req *http.Request) result.Result {
		user, _ := requestUser(req)

		tok, err := tokenFor(s, user)
		if err != nil {
			return result.InternalServerError("could not generate token: " + err.Error())
		}

		return result.Created(LoginResponse{Token: tok, UserID: user.ID.String()}, "user %q refreshed token", user.Username)
	})
}

func (s *Server) httpGetInfo() http.HandlerFunc {
	return s.httpEndpoint(func(req *http.Request) result.Result {
		return result.OK(InfoResponse{Version: version.Current})
	})
}

func syntaxResponse(rec dao.SyntaxRecord) SyntaxResponse {
	return SyntaxResponse{
		ID:           rec.ID.String(),
		Name:         rec.Name,
		Start:        rec.Start,
		Combinations: rec.Combinations,
		Weight:       rec.Weight,
	}
}
