// Package audit records one append-only entry per audited operation and fans it out to optional sinks.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"library-service/backend/internal/audit/domain"
	auditrepo "library-service/backend/internal/audit/repository"
)

// publishTimeout bounds a single async publish. Shutdown should wait at least this long after the
// HTTP server stops so in-flight publishes can finish.
const publishTimeout = 5 * time.Second

// persistTimeout bounds the synchronous insert, which runs detached from the caller's context.
const persistTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait for in-flight publishes on shutdown.
const ShutdownDrainDuration = publishTimeout

// Publisher streams persisted records to a secondary sink. Best-effort.
type Publisher interface {
	Publish(ctx context.Context, rec *domain.Record) error
}

// Recorder persists audit records and publishes them asynchronously.
// Every failure is logged and swallowed so auditing never changes an operation's outcome.
type Recorder struct {
	repo       auditrepo.Repository
	publishers []Publisher
	log        *zap.Logger

	nowF  func() time.Time
	newID func() string
	wg    sync.WaitGroup
}

// NewRecorder returns a Recorder writing to repo. repo may be nil (records are then only published).
// log may be nil.
func NewRecorder(repo auditrepo.Repository, log *zap.Logger, publishers ...Publisher) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		repo:       repo,
		publishers: publishers,
		log:        log,
		nowF:       time.Now,
		newID:      func() string { return ksuid.New().String() },
	}
}

// Record stamps rec with an id and timestamp when missing, persists it and starts the fan-out.
func (r *Recorder) Record(ctx context.Context, rec *domain.Record) {
	if r == nil || rec == nil {
		return
	}
	if rec.ID == "" {
		rec.ID = r.newID()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = r.nowF().UTC()
	}
	if r.repo != nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		err := r.repo.Create(pctx, rec)
		cancel()
		if err != nil {
			r.log.Warn("audit: persist record failed",
				zap.String("action", rec.Action),
				zap.String("entity_type", rec.EntityType),
				zap.Error(err))
		}
	}
	for _, p := range r.publishers {
		r.publishAsync(p, rec)
	}
}

// publishAsync detaches from the request context so cancellation does not abort the publish.
func (r *Recorder) publishAsync(p Publisher, rec *domain.Record) {
	cp := *rec
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.Publish(ctx, &cp); err != nil {
			r.log.Warn("audit: publish record failed", zap.String("id", cp.ID), zap.Error(err))
		}
	}()
}

// Wait blocks until in-flight publishes finish or ctx is done.
func (r *Recorder) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
