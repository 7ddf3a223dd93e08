package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/hidaya/internal/app"
	"github.com/Guilhem-Bonnet/hidaya/internal/buildinfo"
	"github.com/Guilhem-Bonnet/hidaya/internal/httpjson"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

const defaultRequestTimeout = 30 * time.Second

type healthDTO struct {
	Status string `json:"status"`
	Schema int    `json:"schema,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		httpjson.Write(w, http.StatusOK, healthDTO{Status: "ok"})
		return
	}
	if err := s.deps.Store.Ping(r.Context()); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("store unavailable")
		httpjson.Write(w, http.StatusServiceUnavailable, healthDTO{Status: "unavailable", Error: err.Error()})
		return
	}
	v, err := s.deps.Store.SchemaVersion(r.Context())
	if err != nil {
		httpjson.Write(w, http.StatusServiceUnavailable, healthDTO{Status: "unavailable", Error: err.Error()})
		return
	}
	httpjson.Write(w, http.StatusOK, healthDTO{Status: "ok", Schema: v})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, buildinfo.Current())
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, s.deps.Daily.Today(r.Context()))
}

func (s *Server) handleOffline(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Offline.List(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, list)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd app.Command
	if err := httpjson.Decode(r, &cmd); err != nil {
		httpjson.WriteCodedError(w, http.StatusBadRequest, app.CodeInvalidParams, "invalid json")
		return
	}
	view, err := s.deps.Commands.Dispatch(r.Context(), cmd)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, view)
}

// statusFor traduit une erreur applicative en statut HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ports.ErrConflict):
		return http.StatusConflict
	}
	switch app.ErrorCode(err) {
	case app.CodeInvalidParams, app.CodeInvalidIndex:
		return http.StatusBadRequest
	case app.CodeNoChapter:
		return http.StatusConflict
	case app.CodeNoAudioResource:
		return http.StatusUnprocessableEntity
	case app.CodeFetchTimeout:
		return http.StatusGatewayTimeout
	case app.CodeFetchFailed, app.CodeHTTPStatus, app.CodeNetworkError:
		return http.StatusBadGateway
	case app.CodeLocationUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := app.ErrorCode(err)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		code = "not_found"
	case errors.Is(err, ports.ErrConflict):
		code = "conflict"
	}
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Str("code", code).Msg("request failed")
	}
	retry := status == http.StatusBadGateway || status == http.StatusGatewayTimeout
	httpjson.Write(w, status, httpjson.ErrorBody{Error: err.Error(), Code: code, Retry: retry})
}

func accessLogFn(r *http.Request, status, size int, duration time.Duration) {
	logger := hlog.FromRequest(r)
	logger.Info().
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("http")
}
