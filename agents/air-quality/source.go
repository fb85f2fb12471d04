package airquality

import (
	"context"
	"fmt"
	"io"
	"time"

	"air-quality-stack/internal/models"

	"golang.org/x/time/rate"
)

// Source supplies readings for [from, to) in ascending timestamp order
type Source interface {
	Name() string
	FetchReadings(ctx context.Context, from, to time.Time) ([]models.Reading, error)
}

// RateLimitedSource wraps a Source with rate limiting
type RateLimitedSource struct {
	source  Source
	limiter *rate.Limiter
	name    string
}

// NewRateLimitedSource allows rps fetches per second (fractional values
// allowed) with the given burst
func NewRateLimitedSource(source Source, rps float64, burst int) *RateLimitedSource {
	return &RateLimitedSource{
		source:  source,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    fmt.Sprintf("%s [Rate Limited]", source.Name()),
	}
}

func (r *RateLimitedSource) FetchReadings(ctx context.Context, from, to time.Time) ([]models.Reading, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.source.FetchReadings(ctx, from, to)
}

func (r *RateLimitedSource) Name() string {
	return r.name
}

// Close closes the wrapped source when it holds a connection
func (r *RateLimitedSource) Close() error {
	if c, ok := r.source.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var (
	_ Source = (*RateLimitedSource)(nil)
	_ Source = (*PulseEcoSource)(nil)
	_ Source = (*InfluxSource)(nil)

	_ io.Closer = (*RateLimitedSource)(nil)
	_ io.Closer = (*InfluxSource)(nil)
	_ io.Closer = (*InfluxMirror)(nil)
)
