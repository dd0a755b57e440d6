package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MekelWibi/SumoProjectKP/relay"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const maxRequestBody = 1 << 16 // 64 KB

type ctxKey struct{}

// newRouter wires the broker API. Everything except sign-in and health needs
// a bearer token from POST /auth/anonymous.
func newRouter(reg *Registry, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/health", Health())
	r.Post("/auth/anonymous", SignIn(reg, log))

	r.Group(func(r chi.Router) {
		r.Use(requireToken(reg, log))
		r.Post("/allocations", CreateAllocation(reg, log))
		r.Get("/allocations/{id}/joincode", GetJoinCode(reg, log))
		r.Put("/allocations/{id}/endpoint", PublishEndpoint(reg, log))
		r.Post("/allocations/{id}/heartbeat", Heartbeat(reg, log))
		r.Post("/join", Join(reg, log))
	})
	return r
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Msg("request")
		})
	}
}

func requireToken(reg *Registry, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			owner, err := reg.Authenticate(strings.TrimSpace(token))
			if err != nil {
				writeError(w, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, owner)))
		})
	}
}

func owner(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func SignIn(reg *Registry, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, token, err := reg.SignIn()
		if err != nil {
			writeError(w, log, err)
			return
		}
		log.Debug().Str("playerId", id).Msg("signed in")
		writeJSON(w, http.StatusOK, relay.SignInResponse{PlayerID: id, Token: token})
	}
}

func CreateAllocation(reg *Registry, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req relay.CreateAllocationRequest
		if !decode(w, r, log, &req) {
			return
		}
		a, err := reg.Create(owner(r), req.MaxConnections)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, relay.Allocation{AllocationID: a.ID, MaxConnections: a.MaxConnections})
	}
}

func GetJoinCode(reg *Registry, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := reg.Owned(owner(r), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, relay.JoinCodeResponse{JoinCode: a.JoinCode})
	}
}

func PublishEndpoint(reg *Registry, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req relay.PublishRequest
		if !decode(w, r, log, &req) {
			return
		}
		id := chi.URLParam(r, "id")
		if err := reg.Publish(owner(r), id, req.Address); err != nil {
			writeError(w, log, err)
			return
		}
		log.Info().Str("allocation", id).Str("address", req.Address).Msg("endpoint published")
		w.WriteHeader(http.StatusNoContent)
	}
}

func Heartbeat(reg *Registry, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req relay.HeartbeatRequest
		if !decode(w, r, log, &req) {
			return
		}
		if err := reg.Heartbeat(owner(r), chi.URLParam(r, "id"), req.Players); err != nil {
			writeError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Join(reg *Registry, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req relay.JoinRequest
		if !decode(w, r, log, &req) {
			return
		}
		a, err := reg.Resolve(strings.ToUpper(strings.TrimSpace(req.JoinCode)))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, relay.JoinAllocation{AllocationID: a.ID, Address: a.Address})
	}
}

func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func decode(w http.ResponseWriter, r *http.Request, log zerolog.Logger, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, log, errBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps registry errors onto the status and code the relay client
// understands.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status, code := http.StatusInternalServerError, relay.CodeInternal
	switch {
	case errors.Is(err, errBadRequest):
		status, code = http.StatusBadRequest, relay.CodeBadRequest
	case errors.Is(err, relay.ErrUnauthorized):
		status, code = http.StatusUnauthorized, relay.CodeUnauthorized
	case errors.Is(err, relay.ErrAllocationNotFound):
		status, code = http.StatusNotFound, relay.CodeAllocationNotFound
	case errors.Is(err, relay.ErrJoinCodeNotFound):
		status, code = http.StatusNotFound, relay.CodeJoinCodeNotFound
	case errors.Is(err, relay.ErrAllocationFull):
		status, code = http.StatusConflict, relay.CodeAllocationFull
	case errors.Is(err, relay.ErrNotReady):
		status, code = http.StatusConflict, relay.CodeNotReady
	default:
		log.Error().Err(err).Msg("request failed")
	}

	msg := ""
	if status != http.StatusInternalServerError {
		msg = err.Error()
	}
	writeJSON(w, status, relay.ErrorResponse{Error: code, Message: msg})
}
