package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-operations/internal/apperr"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// responder writes the error envelope. Causes are only exposed outside prod.
type responder struct {
	logger       zerolog.Logger
	exposeDetail bool
}

func (rs responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.As(err)
	status := ae.HTTPStatus()

	if status >= http.StatusInternalServerError {
		rs.logger.Error().Err(err).Str("request_id", GetRequestID(r.Context())).Str("reason", ae.Reason).Msg("request failed")
	}

	resp := ErrorResponse{Error: ae.Reason, Message: ae.Message}
	if rs.exposeDetail && ae.Err != nil {
		resp.Details = ae.Err.Error()
	}
	writeJSON(w, status, resp)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation(apperr.ReasonInvalidBody, "could not parse JSON")
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Validation(apperr.ReasonInvalidID, name+" must be a valid UUID")
	}
	return id, nil
}

func parseOptionalID(raw, field string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Validation(apperr.ReasonInvalidID, field+" must be a valid UUID")
	}
	return &id, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validation(apperr.ReasonInvalidBody, name+" must be a non-negative integer")
	}
	return n, nil
}

// pagination reads limit and offset. Services clamp limit to their own maximum.
func pagination(r *http.Request) (limit, offset int, err error) {
	if limit, err = queryInt(r, "limit", 0); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(r, "offset", 0); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func effectiveLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
