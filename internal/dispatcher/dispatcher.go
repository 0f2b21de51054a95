package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazardwatch/go-hazard-zones/internal/models"
	"github.com/hazardwatch/go-hazard-zones/internal/observability"
	"github.com/hazardwatch/go-hazard-zones/internal/repository"
	"github.com/hazardwatch/go-hazard-zones/internal/worker"
	"github.com/hazardwatch/go-hazard-zones/internal/zone"
)

// Deliverer queues a push delivery for asynchronous sending.
type Deliverer interface {
	Submit(d worker.Delivery)
}

type pairKey struct {
	deviceID int64
	userID   string
}

// Dispatcher recomputes, per refresh pass, which (device, user) pairs are
// newly inside or newly outside a warning zone, and reconciles the entered-
// area ledger with push notifications.
type Dispatcher struct {
	devices repository.DeviceStore
	users   repository.UserPositionStore
	ledger  repository.EnteredAreaLedger
	pushes  Deliverer
	radii   zone.Radii
	metrics *observability.Metrics
}

func New(devices repository.DeviceStore, users repository.UserPositionStore, ledger repository.EnteredAreaLedger, pushes Deliverer, radii zone.Radii, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		devices: devices,
		users:   users,
		ledger:  ledger,
		pushes:  pushes,
		radii:   radii,
		metrics: metrics,
	}
}

// RunPass executes one full refresh pass. Failures for a single device or
// pair are logged and skipped; the rest of the pass continues.
func (d *Dispatcher) RunPass(ctx context.Context) error {
	start := time.Now()

	devices, err := d.devices.ListActiveDevices(ctx)
	if err != nil {
		return fmt.Errorf("error listing active devices: %w", err)
	}

	inside := make(map[pairKey]bool)
	// Devices whose proximity query failed: their ledger records must not
	// be treated as exits this pass.
	unresolved := make(map[int64]bool)

	for _, dev := range devices {
		users, err := d.users.UsersWithin(ctx, dev.Location.Coordinate(), d.radii.Warning)
		if err != nil {
			slog.Error("proximity query failed", "device_id", dev.ID, "error", err)
			unresolved[dev.ID] = true
			continue
		}
		for _, u := range users {
			inside[pairKey{deviceID: dev.ID, userID: u.UserID}] = true
			d.handleInside(ctx, dev, u)
		}
	}

	records, err := d.ledger.ListEntered(ctx)
	if err != nil {
		return fmt.Errorf("error listing entered areas: %w", err)
	}

	exited := 0
	for _, r := range records {
		if unresolved[r.DeviceID] {
			continue
		}
		if inside[pairKey{deviceID: r.DeviceID, userID: r.UserID}] {
			continue
		}
		if err := d.ledger.MarkExited(ctx, r.DeviceID, r.UserID); err != nil {
			slog.Error("error marking exited", "device_id", r.DeviceID, "user_id", r.UserID, "error", err)
			continue
		}
		exited++
		d.pushes.Submit(worker.Delivery{
			UserID:  r.UserID,
			Kind:    worker.KindExit,
			Payload: models.ExitPayload(r.DeviceID),
		})
	}

	d.metrics.PassesTotal.Inc()
	d.metrics.PassDuration.Observe(time.Since(start).Seconds())
	d.metrics.EnteredRecords.Set(float64(len(records) - exited))

	slog.Info("refresh pass complete",
		"devices", len(devices),
		"inside_pairs", len(inside),
		"exited", exited,
		"duration", time.Since(start),
	)
	return nil
}

// handleInside records a pair found inside a warning zone. Creating the
// ledger record is the serialization point: only the creator sends the
// entry notification.
func (d *Dispatcher) handleInside(ctx context.Context, dev models.HazardDevice, u repository.NearbyUser) {
	state := zone.Classify(u.Distance, d.radii)
	created, err := d.ledger.MarkEntered(ctx, dev.ID, u.UserID, state == zone.Critical)
	if err != nil {
		slog.Error("error marking entered", "device_id", dev.ID, "user_id", u.UserID, "error", err)
		return
	}
	if !created {
		return
	}

	d.pushes.Submit(worker.Delivery{
		UserID:  u.UserID,
		Kind:    worker.KindEntry,
		Payload: models.EntryPayload(dev),
	})
}
