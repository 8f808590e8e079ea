package api

import (
	"errors"
	"net/http"

	"github.com/okian/redstone/internal/adapters/chunks"
	"github.com/okian/redstone/internal/adapters/mq/queue"
	service "github.com/okian/redstone/internal/app"
	"github.com/okian/redstone/internal/domain/errs"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrRouteUnknown = errors.New("route not found")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

// Error kinds reported in the response body.
const (
	kindOracle       = "oracle_error"
	kindBadRequest   = "bad_request"
	kindNotFound     = "not_found"
	kindTooLarge     = "payload_too_large"
	kindBackpressure = "backpressure"
	kindRateLimit    = "rate_limited"
	kindUnavailable  = "unavailable"
	kindInternal     = "internal_error"
)

// errorResponse is the body of every failed request. Code carries the stable
// numeric code of oracle errors and the HTTP status otherwise.
type errorResponse struct {
	Code    int    `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// classify maps err to an HTTP status and response body.
func classify(err error) (int, errorResponse) {
	if code, ok := errs.Code(err); ok {
		return http.StatusUnprocessableEntity, errorResponse{Code: int(code), Error: kindOracle, Message: err.Error()}
	}

	var tooLarge *http.MaxBytesError
	status, kind := http.StatusInternalServerError, kindInternal
	switch {
	case errors.As(err, &tooLarge):
		status, kind = http.StatusRequestEntityTooLarge, kindTooLarge
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrEmptyPayload),
		errors.Is(err, chunks.ErrEmptyHash),
		errors.Is(err, chunks.ErrUnknownMode):
		status, kind = http.StatusBadRequest, kindBadRequest
	case errors.Is(err, ErrRouteUnknown), errors.Is(err, service.ErrSubmissionNotFound):
		status, kind = http.StatusNotFound, kindNotFound
	case errors.Is(err, queue.ErrFull):
		status, kind = http.StatusTooManyRequests, kindBackpressure
	case errors.Is(err, ErrRateLimited):
		status, kind = http.StatusTooManyRequests, kindRateLimit
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, queue.ErrClosed):
		status, kind = http.StatusServiceUnavailable, kindUnavailable
	}
	return status, errorResponse{Code: status, Error: kind, Message: err.Error()}
}
