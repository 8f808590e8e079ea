// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/redstone/internal/adapters/chunks"
	"github.com/okian/redstone/internal/domain/model"
	"github.com/okian/redstone/internal/domain/types"
	"github.com/okian/redstone/pkg/logger"
)

// PriceService is the price adapter exposed over HTTP.
type PriceService interface {
	GetPrices(ctx context.Context, feedIDs []types.FeedID, payload []byte) (types.ProcessorResult, error)
	WritePrices(ctx context.Context, sender types.Address, feedIDs []types.FeedID, payload []byte) (types.ProcessorResult, error)
	ReadPrices(ctx context.Context, feedIDs []types.FeedID) ([]types.Value, error)
	ReadTimestamp(ctx context.Context) (uint64, error)
	ReadPriceData(ctx context.Context, feedID types.FeedID) (types.PriceState, error)
}

// SubmissionService accepts writes for asynchronous processing.
type SubmissionService interface {
	Submit(ctx context.Context, sender types.Address, feedIDs []types.FeedID, payload []byte) (model.SubmissionStatus, bool, error)
	SubmissionStatus(id string) (model.SubmissionStatus, bool)
}

// ChunkRelay reassembles chunked payloads.
type ChunkRelay interface {
	Process(ctx context.Context, c chunks.Chunk) (chunks.Result, error)
}

// Dependencies required by HTTP handlers.
type Dependencies interface {
	PriceService
	SubmissionService
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	pricesHandler      *PricesHandler
	chunksHandler      *ChunksHandler
	submissionsHandler *SubmissionsHandler

	limiter      *rateLimiter
	maxBodyBytes int64
	logger       logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, relay ChunkRelay, opts ...Option) *Server {
	s := &Server{
		maxBodyBytes: defaultMaxBodyBytes,
		logger:       logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.pricesHandler = NewPricesHandler(deps, s.logger)
	s.chunksHandler = NewChunksHandler(relay, s.logger)
	s.submissionsHandler = NewSubmissionsHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /v1/prices/get", s.wrap(s.pricesHandler.HandleGetPrices, "prices_get"))
	mux.HandleFunc("POST /v1/prices/write", s.wrap(s.pricesHandler.HandleWritePrices, "prices_write"))
	mux.HandleFunc("GET /v1/prices", s.wrap(s.pricesHandler.HandleReadPrices, "prices_read"))
	mux.HandleFunc("GET /v1/prices/{feed}", s.wrap(s.pricesHandler.HandleReadPriceData, "price_data"))
	mux.HandleFunc("GET /v1/timestamp", s.wrap(s.pricesHandler.HandleReadTimestamp, "timestamp"))

	mux.HandleFunc("POST /v1/chunks", s.wrap(s.chunksHandler.HandlePostChunk, "chunks"))

	mux.HandleFunc("POST /v1/submissions", s.wrap(s.submissionsHandler.HandlePostSubmission, "submissions"))
	mux.HandleFunc("GET /v1/submissions/{id}", s.wrap(s.submissionsHandler.HandleGetSubmission, "submission_status"))

	mux.HandleFunc("/", MetricsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, fmt.Errorf("%w: %s %s", ErrRouteUnknown, r.Method, r.URL.Path))
	}, "unknown"))
}

// wrap applies the middleware chain shared by the v1 routes.
func (s *Server) wrap(h http.HandlerFunc, endpoint string) http.HandlerFunc {
	return MetricsMiddleware(s.limiter.middleware(maxBodyMiddleware(h, s.maxBodyBytes)), endpoint)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	writeJSON(w, status, body)
}

// fail writes err and logs it when the failure is on our side.
func fail(ctx context.Context, l logger.Logger, w http.ResponseWriter, op string, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		l.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
	}
	writeJSON(w, status, body)
}

// decodeBody reads a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
