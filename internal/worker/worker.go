package worker

import (
	"context"
	"sync"

	"github.com/hazardwatch/go-hazard-zones/internal/models"
)

// DeliveryKind labels a push delivery for metrics and logging.
type DeliveryKind string

const (
	KindEntry DeliveryKind = "entry"
	KindExit  DeliveryKind = "exit"
)

// Delivery is one push notification queued for a user.
type Delivery struct {
	UserID  string
	Kind    DeliveryKind
	Payload models.PushPayload
}

type DeliverFunc func(ctx context.Context, d Delivery) error

// Pool fans push deliveries out across a fixed set of workers so a slow
// transport does not stall the refresh pass.
type Pool struct {
	numWorkers int
	deliveries chan Delivery
	deliver    DeliverFunc
	wg         sync.WaitGroup
}

func NewPool(numWorkers int, bufferSize int, deliver DeliverFunc) *Pool {
	return &Pool{
		numWorkers: numWorkers,
		deliveries: make(chan Delivery, bufferSize),
		deliver:    deliver,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 1; i <= p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-p.deliveries:
			if !ok {
				return
			}
			p.deliver(ctx, d)
		}
	}
}

func (p *Pool) Submit(d Delivery) {
	p.deliveries <- d
}

func (p *Pool) Stop() {
	close(p.deliveries)
	p.wg.Wait()
}
