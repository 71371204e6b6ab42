package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Sweeps is implemented by service.Sweeper.
type Sweeps interface {
	AutoCancelPendingOrders(ctx context.Context) (int, error)
	MarkLostShipments(ctx context.Context) (int, error)
}

// Scheduler triggers the sweeps on their cron specs.
type Scheduler struct {
	cron   *cron.Cron
	sweeps Sweeps
	log    *slog.Logger
}

func NewScheduler(sweeps Sweeps, log *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		sweeps: sweeps,
		log:    log,
	}
}

// Register adds both sweeps. Specs use the standard five-field syntax or
// descriptors such as @hourly.
func (s *Scheduler) Register(ctx context.Context, orderCancelSpec, lostShipmentSpec string) error {
	if _, err := s.cron.AddFunc(orderCancelSpec, func() { s.run(ctx, "auto-cancel orders", s.sweeps.AutoCancelPendingOrders) }); err != nil {
		return fmt.Errorf("schedule order sweep: %w", err)
	}
	if _, err := s.cron.AddFunc(lostShipmentSpec, func() { s.run(ctx, "mark lost shipments", s.sweeps.MarkLostShipments) }); err != nil {
		return fmt.Errorf("schedule shipment sweep: %w", err)
	}
	return nil
}

func (s *Scheduler) run(ctx context.Context, name string, sweep func(context.Context) (int, error)) {
	n, err := sweep(ctx)
	if err != nil {
		s.log.Error("sweep failed", "sweep", name, "error", err)
		return
	}
	s.log.Info("sweep finished", "sweep", name, "updated", n)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running sweeps to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
