package usecase

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pinger is a dependency the health check pings.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

type HealthUsecase interface {
	Check(ctx context.Context) map[string]string
}

type healthUsecase struct {
	pingers []Pinger
	timeout time.Duration
}

func NewHealthUsecase(pingers ...Pinger) HealthUsecase {
	return &healthUsecase{pingers: pingers, timeout: 2 * time.Second}
}

// Check pings every dependency concurrently. status is "degraded" when any
// of them fails.
func (u *healthUsecase) Check(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	results := make([]string, len(u.pingers))
	var g errgroup.Group
	for i, p := range u.pingers {
		i, p := i, p
		g.Go(func() error {
			if err := p.Ping(ctx); err != nil {
				results[i] = "down"
				return nil
			}
			results[i] = "up"
			return nil
		})
	}
	_ = g.Wait()

	report := map[string]string{"status": "ok"}
	for i, p := range u.pingers {
		report[p.Name()] = results[i]
		if results[i] != "up" {
			report["status"] = "degraded"
		}
	}
	return report
}
