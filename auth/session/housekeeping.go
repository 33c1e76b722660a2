package session

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goserg/memberportal/auth/storage"
	"github.com/goserg/memberportal/internal/metrics"
)

const DefaultHousekeepingInterval = 10 * time.Minute

// Housekeeper periodically deletes expired session rows so the store does not
// grow without bound. Validity is still checked on every Resolve.
type Housekeeper struct {
	store    storage.SessionStorage
	log      *logrus.Entry
	interval time.Duration
	now      func() time.Time
	metrics  *metrics.Metrics

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewHousekeeper(store storage.SessionStorage, l *logrus.Logger, interval time.Duration, mt *metrics.Metrics) *Housekeeper {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}
	return &Housekeeper{
		store: store,
		log: l.WithFields(map[string]interface{}{
			"from": "housekeeping",
		}),
		interval: interval,
		now:      time.Now,
		metrics:  mt,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs one sweep right away and then one every interval until Stop.
func (h *Housekeeper) Start() {
	go h.run()
	h.log.WithField("interval", h.interval).Info("housekeeping started")
}

// Stop waits for an in-flight sweep to finish.
func (h *Housekeeper) Stop() {
	close(h.stopCh)
	<-h.doneCh
	h.log.Info("housekeeping stopped")
}

func (h *Housekeeper) run() {
	defer close(h.doneCh)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.sweep()
	for {
		select {
		case <-ticker.C:
			h.sweep()
		case <-h.stopCh:
			return
		}
	}
}

func (h *Housekeeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), h.interval)
	defer cancel()

	n, err := h.store.DeleteExpiredSessions(ctx, h.now())
	if err != nil {
		h.log.WithError(err).Error("delete expired sessions")
		return
	}
	h.metrics.SessionsDeleted(n)
	h.log.WithField("deleted", n).Debug("expired sessions deleted")
}
