package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hazardwatch/go-hazard-zones/internal/evaluator"
	"github.com/hazardwatch/go-hazard-zones/internal/geo"
	"github.com/hazardwatch/go-hazard-zones/internal/models"
	"github.com/hazardwatch/go-hazard-zones/internal/observability"
	"github.com/hazardwatch/go-hazard-zones/internal/registry"
	"github.com/hazardwatch/go-hazard-zones/internal/sampler"
	"github.com/hazardwatch/go-hazard-zones/internal/zone"
)

// BannerFunc renders the aggregate alert level. visible is false for Safe.
type BannerFunc func(res evaluator.Result, text string, visible bool)

// AlertFunc surfaces a user-visible failure, such as push registration
// being unavailable.
type AlertFunc func(msg string)

type Options struct {
	Server          ServerClient
	Radii           zone.Radii
	DebounceWindow  time.Duration
	RegistryRefresh time.Duration
	PushToken       string
	Clock           clockwork.Clock
	Metrics         *observability.Metrics
	OnBanner        BannerFunc
	OnAlert         AlertFunc
}

// Runtime is the client-side loop: it debounces provider positions,
// keeps the hazard registry fresh from search results and push updates,
// and re-evaluates the alert level after every change. All state lives on
// one goroutine; providers hand events in through HandlePosition.
type Runtime struct {
	server   ServerClient
	registry *registry.Registry
	sampler  *sampler.Sampler
	radii    zone.Radii
	refresh  time.Duration
	token    string
	clock    clockwork.Clock
	metrics  *observability.Metrics
	onBanner BannerFunc
	onAlert  AlertFunc

	positions chan models.PositionSample
	lastPos   geo.Coordinate
	haveFix   bool
}

func NewRuntime(opts Options) *Runtime {
	rt := &Runtime{
		server:    opts.Server,
		registry:  registry.New(),
		radii:     opts.Radii,
		refresh:   opts.RegistryRefresh,
		token:     opts.PushToken,
		clock:     opts.Clock,
		metrics:   opts.Metrics,
		onBanner:  opts.OnBanner,
		onAlert:   opts.OnAlert,
		positions: make(chan models.PositionSample, 16),
	}
	rt.sampler = sampler.New(opts.DebounceWindow, opts.Clock, opts.Server, rt.onSample)
	return rt
}

// HandlePosition feeds one raw provider event into the loop. Safe to call
// from the provider's goroutine.
func (rt *Runtime) HandlePosition(c geo.Coordinate, at time.Time) {
	rt.positions <- models.PositionSample{Coordinate: c, ObservedAt: at}
}

// HandleError reports a provider failure; sampling continues.
func (rt *Runtime) HandleError(err error) {
	rt.sampler.OfferError(err)
}

// Registry exposes the current device view for rendering.
func (rt *Runtime) Registry() *registry.Registry {
	return rt.registry
}

// Run processes provider events, registry refreshes, and push updates until
// the context is cancelled.
func (rt *Runtime) Run(ctx context.Context) error {
	if err := rt.server.RegisterToken(ctx, rt.token); err != nil {
		rt.onAlert(fmt.Sprintf("Cannot register push notifications: %v", err))
	}

	notifications, err := rt.server.Notifications(ctx)
	if err != nil {
		rt.onAlert(fmt.Sprintf("Cannot connect to notification stream: %v", err))
	}

	var refreshC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			slog.Info("client runtime stopping")
			return nil

		case sample := <-rt.positions:
			if rt.sampler.Offer(sample) {
				rt.metrics.SamplesAccepted.Inc()
				if refreshC == nil {
					// First fix: load nearby devices now, then on interval.
					rt.refreshRegistry(ctx)
					ticker := rt.clock.NewTicker(rt.refresh)
					defer ticker.Stop()
					refreshC = ticker.Chan()
				}
				rt.evaluate()
			} else {
				rt.metrics.SamplesDropped.Inc()
			}

		case <-refreshC:
			rt.refreshRegistry(ctx)
			rt.evaluate()

		case payload, ok := <-notifications:
			if !ok {
				slog.Warn("notification stream closed")
				notifications = nil
				continue
			}
			rt.applyPush(payload)
			rt.evaluate()
		}
	}
}

// onSample runs for every sample the debounce accepts. Evaluation happens
// back in the loop, after the registry has had a chance to load.
func (rt *Runtime) onSample(sample models.PositionSample) {
	rt.lastPos = sample.Coordinate
	rt.haveFix = true
}

func (rt *Runtime) refreshRegistry(ctx context.Context) {
	if !rt.haveFix {
		return
	}
	devices, err := rt.server.Search(ctx, rt.lastPos)
	if err != nil {
		slog.Warn("device search failed", "error", err)
		return
	}
	rt.registry.Replace(devices)
}

func (rt *Runtime) applyPush(payload models.PushPayload) {
	pd := payload.Device
	if !pd.IsAlert {
		rt.registry.Apply(models.HazardDevice{ID: pd.ID, IsAlert: false})
		return
	}
	if pd.Location == nil || !pd.Type.Valid() {
		slog.Debug("dropping malformed push payload", "device_id", pd.ID)
		return
	}
	rt.registry.Apply(models.HazardDevice{
		ID:       pd.ID,
		Type:     pd.Type,
		Location: *pd.Location,
		IsAlert:  true,
	})
}

func (rt *Runtime) evaluate() {
	if !rt.haveFix {
		return
	}
	res := evaluator.Evaluate(rt.lastPos, rt.registry.Snapshot(), rt.radii)
	text, visible := evaluator.Banner(res.Overall)
	rt.onBanner(res, text, visible)
}
