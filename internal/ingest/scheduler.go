package ingest

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
)

// Scheduler runs ingestion in the background: once right after startup and,
// when a cron spec is configured, again on every due tick. It never blocks
// the query-serving path.
type Scheduler struct {
	Ingestor  *Ingestor
	CronSpec  string
	OnStartup bool
	Stop      chan struct{}

	logger *log.Logger
}

func (s *Scheduler) Start() {
	if s.logger == nil {
		s.logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}

	var expr *cronexpr.Expression
	if s.CronSpec != "" {
		parsed, err := cronexpr.Parse(s.CronSpec)
		if err != nil {
			s.logger.Printf("invalid refresh cron %q, scheduled refresh disabled: %v", s.CronSpec, err)
		} else {
			expr = parsed
		}
	}

	go func() {
		if s.OnStartup {
			s.run()
		}
		if expr == nil {
			return
		}
		for {
			next := expr.Next(time.Now())
			if next.IsZero() {
				return
			}
			timer := time.NewTimer(time.Until(next))
			select {
			case <-s.Stop:
				timer.Stop()
				return
			case <-timer.C:
				s.run()
			}
		}
	}()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	count, err := s.Ingestor.Run(ctx)
	if err != nil {
		s.logger.Printf("ingestion run failed: %v", err)
		return
	}
	s.logger.Printf("ingestion run finished, %d articles", count)
}
