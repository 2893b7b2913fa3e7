package extract

import (
	"context"
	"time"

	"github.com/maruel/factsheet/internal/rows"
	"golang.org/x/time/rate"
)

// Limited throttles calls to an Extractor.
type Limited struct {
	ex      Extractor
	limiter *rate.Limiter
}

// NewLimited allows perMinute extractions per minute with the given burst.
// perMinute <= 0 disables limiting.
func NewLimited(ex Extractor, perMinute, burst int) *Limited {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{ex: ex, limiter: rate.NewLimiter(limit, burst)}
}

// Extract waits for a token, then delegates.
func (l *Limited) Extract(ctx context.Context, doc Document) ([]rows.Input, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return l.ex.Extract(ctx, doc)
}
