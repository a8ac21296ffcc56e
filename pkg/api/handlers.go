package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/bufferopt/pkg/buffer"
	"github.com/matzehuels/bufferopt/pkg/errors"
	"github.com/matzehuels/bufferopt/pkg/pipeline"
	"github.com/matzehuels/bufferopt/pkg/store"
)

// OptimizeRequest is the body of POST /v1/optimize. Config fields that are
// absent keep their defaults.
type OptimizeRequest struct {
	Network json.RawMessage `json:"network"`
	Library string          `json:"library,omitempty"`
	Config  json.RawMessage `json:"config,omitempty"`
	Refresh bool            `json:"refresh,omitempty"`
}

// OptimizeResponse is the body of a successful optimization.
type OptimizeResponse struct {
	Report  *store.Report   `json:"report"`
	Network json.RawMessage `json:"network"`
}

type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	cfg := buffer.DefaultConfig()
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			s.writeError(w, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode config"))
			return
		}
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	res, err := s.runner.Execute(ctx, pipeline.Options{
		Network: req.Network,
		Library: []byte(req.Library),
		Config:  cfg,
		Refresh: req.Refresh,
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = errors.Wrap(errors.ErrCodeTimeout, err, "optimization timed out")
		}
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OptimizeResponse{Report: res.Report, Network: res.Document})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rep, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		limit = n
	}
	reports, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if reports == nil {
		reports = []*store.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, status, errorBody{Code: code, Message: errors.UserMessage(err)})
}

func statusOf(err error) int {
	switch {
	case errors.IsUserError(err):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrCodeRunNotFound), errors.Is(err, errors.ErrCodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrCodeTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
