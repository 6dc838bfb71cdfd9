package cycle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Daemon fires scan and post cycles on independent cron schedules. A slow
// cycle never stacks: if a task is still running when its timer fires again,
// that firing is skipped.
type Daemon struct {
	orch *Orchestrator
	cron *cron.Cron
}

// NewDaemon registers the orchestrator's cycles on the given five-field cron
// expressions.
func NewDaemon(orch *Orchestrator, scanSchedule, postSchedule string) (*Daemon, error) {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if _, err := c.AddFunc(scanSchedule, func() {
		if err := orch.RunScanCycle(context.Background()); err != nil {
			log.Printf("Scan cycle failed: %v", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid scan schedule %q: %w", scanSchedule, err)
	}

	if _, err := c.AddFunc(postSchedule, func() {
		if err := orch.RunPostCycle(context.Background()); err != nil {
			log.Printf("Post cycle failed: %v", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid post schedule %q: %w", postSchedule, err)
	}

	return &Daemon{orch: orch, cron: c}, nil
}

// Run starts the schedules and blocks until ctx is cancelled, then waits for
// in-flight cycles to finish (bounded).
func (d *Daemon) Run(ctx context.Context) error {
	d.cron.Start()
	log.Println("Daemon started")

	<-ctx.Done()

	stopCtx := d.cron.Stop()
	select {
	case <-stopCtx.Done():
		log.Println("Daemon stopped")
	case <-time.After(30 * time.Second):
		log.Println("Daemon stopped with cycles still in flight")
	}
	return ctx.Err()
}
