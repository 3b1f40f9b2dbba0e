package worker

import (
	"context"
	"log/slog"
	"time"
)

// Periodic calls a function on a fixed interval until its context ends
type Periodic struct {
	name      string
	interval  time.Duration
	immediate bool
	fn        func(ctx context.Context)
}

// NewPeriodic creates a periodic job. With immediate set, fn also runs once at start.
func NewPeriodic(name string, interval time.Duration, immediate bool, fn func(ctx context.Context)) *Periodic {
	if interval <= 0 {
		interval = time.Hour
	}

	return &Periodic{
		name:      name,
		interval:  interval,
		immediate: immediate,
		fn:        fn,
	}
}

// Start begins the job in a goroutine
func (p *Periodic) Start(ctx context.Context) {
	go p.run(ctx)
}

func (p *Periodic) run(ctx context.Context) {
	slog.Info("periodic job started", "job", p.name, "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if p.immediate {
		p.fn(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("periodic job stopped", "job", p.name)
			return
		case <-ticker.C:
			p.fn(ctx)
		}
	}
}
