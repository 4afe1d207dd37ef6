package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jomessina-code/EVS14/internal/adapt"
	"github.com/jomessina-code/EVS14/internal/domain"
	"github.com/jomessina-code/EVS14/internal/imaging"
	"github.com/jomessina-code/EVS14/internal/pipeline"
	"github.com/jomessina-code/EVS14/internal/preset"
	"github.com/jomessina-code/EVS14/internal/session"
)

var (
	errBusy            = errors.New("session is busy")
	errSessionNotFound = errors.New("session not found")
	errBadRequest      = errors.New("invalid request body")
)

type apiError struct {
	Error string      `json:"error"`
	Kind  domain.Kind `json:"kind,omitempty"`
}

// statusOf maps an operation error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrCredentialsRequired), errors.Is(err, domain.ErrAuthInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrGenerationBlocked):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBusy), errors.Is(err, pipeline.ErrStaleRun),
		errors.Is(err, pipeline.ErrNoCurrentResult), errors.Is(err, adapt.ErrNoMaster), errors.Is(err, adapt.ErrNoTextStyle), errors.Is(err, imaging.ErrEmptyImage):
		return http.StatusConflict
	case errors.Is(err, errSessionNotFound), errors.Is(err, preset.ErrNotFound), errors.Is(err, session.ErrHistoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, preset.ErrImmutable):
		return http.StatusForbidden
	case errors.Is(err, errBadRequest), errors.Is(err, preset.ErrInvalid),
		errors.Is(err, pipeline.ErrEmptyRequest), errors.Is(err, adapt.ErrNoRequests):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrNoImageReturned), errors.Is(err, domain.ErrMalformedResponse), errors.Is(err, domain.ErrNetworkOrUnknown):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func errorBody(status int, err error) apiError {
	switch status {
	case http.StatusUnprocessableEntity, http.StatusBadGateway, http.StatusGatewayTimeout:
		return apiError{Error: domain.UserMessage(err), Kind: domain.KindOf(err)}
	case http.StatusUnauthorized:
		return apiError{Error: domain.UserMessage(domain.ErrAuthInvalid), Kind: domain.KindAuthInvalid}
	case http.StatusInternalServerError:
		return apiError{Error: "internal error"}
	}
	return apiError{Error: err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
