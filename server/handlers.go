package server

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dekarrin/phrasegen/server/dao"
	"github.com/dekarrin/phrasegen/server/middle"
	"github.com/dekarrin/phrasegen/server/result"
	"github.com/go-chi/chi/v5"
)

// APIPathPrefix is mounted in front of every route this package serves.
const APIPathPrefix = "/api/v1"

var paramTypePats = map[string]string{
	"uuid": "[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}",
}

// p builds a chi route parameter, optionally constrained to a known pattern
// such as "id:uuid".
func p(nameType string) string {
	parts := strings.SplitN(nameType, ":", 2)
	name := parts[0]
	var pat string
	if len(parts) == 2 {
		pat = parts[1]
		if translated, ok := paramTypePats[parts[1]]; ok {
			pat = translated
		}
	}
	if pat == "" {
		return "{" + name + "}"
	}
	return "{" + name + ":" + pat + "}"
}

func newRouter(s *Server) chi.Router {
	r := chi.NewRouter()
	r.Mount(APIPathPrefix, newAPIRouter(s))
	return r
}

func newAPIRouter(s *Server) chi.Router {
	r := chi.NewRouter()

	r.Mount("/syntaxes", newSyntaxesRouter(s))
	r.Mount("/login", newLoginRouter(s))
	r.Mount("/tokens", newTokensRouter(s))
	r.Mount("/info", newInfoRouter(s))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		result.NotFound().WriteResponse(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		time.Sleep(s.unauthedDelay)
		result.MethodNotAllowed(req).WriteResponse(w)
	})

	return r
}

func newSyntaxesRouter(s *Server) chi.Router {
	reqAuth := middle.RequireAuth(s.db.Users(), s.jwtSecret, s.unauthedDelay, dao.User{})
	optAuth := middle.OptionalAuth(s.db.Users(), s.jwtSecret, s.unauthedDelay, dao.User{})

	r := chi.NewRouter()

	r.With(reqAuth).Post("/", s.httpCreateSyntax())
	r.Route("/"+p("id:uuid"), func(r chi.Router) {
		r.With(optAuth).Get("/", s.httpGetSyntax())
		r.With(reqAuth).Delete("/", s.httpDeleteSyntax())
		r.With(optAuth).Post("/generate", s.httpGenerateSample())
	})

	return r
}

func newLoginRouter(s *Server) chi.Router {
	reqAuth := middle.RequireAuth(s.db.Users(), s.jwtSecret, s.unauthedDelay, dao.User{})

	r := chi.NewRouter()
	r.Post("/", s.httpCreateLogin())
	r.With(reqAuth).Delete("/"+p("id:uuid"), s.httpDeleteLogin())
	return r
}

func newTokensRouter(s *Server) chi.Router {
	reqAuth := middle.RequireAuth(s.db.Users(), s.jwtSecret, s.unauthedDelay, dao.User{})

	r := chi.NewRouter()
	r.With(reqAuth).Post("/", s.httpCreateToken())
	return r
}

func newInfoRouter(s *Server) chi.Router {
	optAuth := middle.OptionalAuth(s.db.Users(), s.jwtSecret, s.unauthedDelay, dao.User{})

	r := chi.NewRouter()
	r.With(optAuth).Get("/", s.httpGetInfo())
	return r
}

// endpointFunc produces a result.Result from a request; wrapping it in
// httpEndpoint turns it into a regular http.HandlerFunc that also logs,
// recovers from panics, and marshals the result.
type endpointFunc func(req *http.Request) result.Result

func (s *Server) httpEndpoint(ep endpointFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		defer panicTo500(w, req)

		r := ep(req)
		if r.Status == 0 {
			http.Error(w, "An internal server error occurred", http.StatusInternalServerError)
			return
		}

		if err := r.PrepareMarshaledResponse(); err != nil {
			result.Err(r.Status, "An internal server error occurred", "could not marshal JSON response: %s", err.Error()).WriteResponse(w)
			return
		}

		if r.Status == http.StatusUnauthorized || r.Status == http.StatusForbidden || r.Status == http.StatusInternalServerError {
			time.Sleep(s.unauthedDelay)
		}

		r.WriteResponse(w)
	}
}

func panicTo500(w http.ResponseWriter, req *http.Request) {
	if panicErr := recover(); panicErr != nil {
		result.TextErr(
			http.StatusInternalServerError,
			"An internal server error occurred",
			"panic: %v\nSTACK TRACE: %s", panicErr, string(debug.Stack()),
		).WriteResponse(w)
	}
}
