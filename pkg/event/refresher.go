package event

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const reloadTimeout = 2 * time.Minute

// Refresher reloads a Loader on a cron schedule. Views that already hold a
// snapshot keep it; only views created afterwards see the new events.
type Refresher struct {
	loader *Loader
	cron   *cron.Cron
}

func NewRefresher(loader *Loader, schedule string) (*Refresher, error) {
	c := cron.New()
	r := &Refresher{loader: loader, cron: c}
	if _, err := c.AddFunc(schedule, r.reload); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *Refresher) reload() {
	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()
	if _, err := r.loader.Load(ctx); err != nil {
		log.Warnf("Scheduled reload failed, keeping previous events: %v", err)
	}
}

func (r *Refresher) Start() {
	log.Infof("Starting scheduled event refresh")
	r.cron.Start()
}

// Stop stops the schedule and waits for a running reload to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}
