package api

import (
	"github.com/okian/redstone/pkg/logger"
)

const defaultMaxBodyBytes int64 = 1 << 20

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithRateLimit limits v1 routes to rps sustained requests with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.limiter = newRateLimiter(rps, burst)
	}
}

// WithMaxBodyBytes caps request bodies on v1 routes.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
