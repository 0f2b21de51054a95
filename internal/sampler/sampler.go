package sampler

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hazardwatch/go-hazard-zones/internal/geo"
	"github.com/hazardwatch/go-hazard-zones/internal/models"
)

// PositionReporter forwards accepted positions to the remote collector.
// Delivery is fire-and-forget; failures never block local processing.
type PositionReporter interface {
	UpdatePosition(ctx context.Context, c geo.Coordinate) error
}

// HandlerFunc receives each accepted sample.
type HandlerFunc func(models.PositionSample)

// Sampler debounces raw provider events: a sample is forwarded only when at
// least the configured window has elapsed since the last accepted sample.
type Sampler struct {
	window   time.Duration
	clock    clockwork.Clock
	reporter PositionReporter
	handler  HandlerFunc

	lastAccepted time.Time
}

func New(window time.Duration, clock clockwork.Clock, reporter PositionReporter, handler HandlerFunc) *Sampler {
	return &Sampler{
		window:   window,
		clock:    clock,
		reporter: reporter,
		handler:  handler,
	}
}

// Offer feeds one raw provider event through the debounce. It returns true
// when the sample was accepted and forwarded.
func (s *Sampler) Offer(sample models.PositionSample) bool {
	if sample.ObservedAt.IsZero() {
		// Some providers omit timestamps; stamp on arrival.
		sample.ObservedAt = s.clock.Now()
	}

	if !s.lastAccepted.IsZero() && sample.ObservedAt.Sub(s.lastAccepted) < s.window {
		return false
	}
	s.lastAccepted = sample.ObservedAt

	if s.reporter != nil {
		go func(c geo.Coordinate) {
			if err := s.reporter.UpdatePosition(context.Background(), c); err != nil {
				slog.Warn("position update failed", "error", err)
			}
		}(sample.Coordinate)
	}

	if s.handler != nil {
		s.handler(sample)
	}
	return true
}

// OfferError handles a provider failure. Sampling continues on the next
// provider event.
func (s *Sampler) OfferError(err error) {
	slog.Error("location provider error", "error", err)
}
