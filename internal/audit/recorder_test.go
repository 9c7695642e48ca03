package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"library-service/backend/internal/audit/domain"
)

type memRepo struct {
	mu        sync.Mutex
	records   []*domain.Record
	createErr error
	// ctxAware fails Create with ctx.Err() once ctx is done, like database/sql.
	ctxAware bool
}

func (m *memRepo) Create(ctx context.Context, r *domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctxAware && ctx.Err() != nil {
		return ctx.Err()
	}
	if m.createErr != nil {
		return m.createErr
	}
	cp := *r
	m.records = append(m.records, &cp)
	return nil
}

func (m *memRepo) List(ctx context.Context, limit, offset int) ([]*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Record, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0; i-- {
		out = append(out, m.records[i])
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) all() []*domain.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Record(nil), m.records...)
}

type chanPublisher struct {
	got chan *domain.Record
	err error
}

func (p *chanPublisher) Publish(ctx context.Context, rec *domain.Record) error {
	p.got <- rec
	return p.err
}

func newTestRecorder(repo *memRepo, log *zap.Logger, pubs ...Publisher) *Recorder {
	r := NewRecorder(repo, log, pubs...)
	r.nowF = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	n := 0
	r.newID = func() string {
		n++
		return "rec-" + string(rune('0'+n))
	}
	return r
}

func TestRecorder_StampsAndPersists(t *testing.T) {
	repo := &memRepo{}
	r := newTestRecorder(repo, nil)

	r.Record(context.Background(), &domain.Record{Action: domain.ActionUserLogin, EntityType: domain.EntityAuth, Success: true})

	got := repo.all()
	if len(got) != 1 {
		t.Fatalf("records = %d, want 1", len(got))
	}
	if got[0].ID != "rec-1" {
		t.Errorf("ID = %q, want rec-1", got[0].ID)
	}
	if !got[0].Timestamp.Equal(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("Timestamp = %v", got[0].Timestamp)
	}
}

func TestRecorder_PersistErrorIsLoggedAndSwallowed(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	repo := &memRepo{createErr: errors.New("db down")}
	r := newTestRecorder(repo, zap.New(core))

	r.Record(context.Background(), &domain.Record{Action: domain.ActionUserLogin, EntityType: domain.EntityAuth})

	if n := logs.FilterMessage("audit: persist record failed").Len(); n != 1 {
		t.Errorf("warn logs = %d, want 1", n)
	}
}

func TestRecorder_PublishesAsync(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pub := &chanPublisher{got: make(chan *domain.Record, 1), err: errors.New("kafka down")}
	r := newTestRecorder(&memRepo{}, zap.New(core), pub)

	ctx, cancel := context.WithCancel(context.Background())
	r.Record(ctx, &domain.Record{Action: domain.ActionUserRegister, EntityType: domain.EntityUser})
	cancel()

	select {
	case rec := <-pub.got:
		if rec.ID != "rec-1" || rec.Action != domain.ActionUserRegister {
			t.Errorf("published = %+v", rec)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("publisher not called")
	}
	if err := r.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if n := logs.FilterMessage("audit: publish record failed").Len(); n != 1 {
		t.Errorf("warn logs = %d, want 1", n)
	}
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	r.Record(context.Background(), &domain.Record{})
	NewRecorder(nil, nil).Record(context.Background(), &domain.Record{Action: "X", EntityType: "Y"})
}

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry(
		Registration{Operation: "login", Action: domain.ActionUserLogin, EntityType: domain.EntityAuth},
		Registration{Operation: "register", Action: domain.ActionUserRegister, EntityType: domain.EntityUser},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if reg.Len() != 2 {
		t.Errorf("Len = %d, want 2", reg.Len())
	}
	if got, ok := reg.Lookup("login"); !ok || got.Action != domain.ActionUserLogin {
		t.Errorf("Lookup(login) = %+v, %v", got, ok)
	}
	if _, ok := reg.Lookup("me"); ok {
		t.Error("Lookup(me) should miss")
	}

	if _, err := NewRegistry(
		Registration{Operation: "login", Action: "A", EntityType: "B"},
		Registration{Operation: "login", Action: "C", EntityType: "D"},
	); err == nil {
		t.Error("duplicate registration accepted")
	}
	if _, err := NewRegistry(Registration{Operation: "login"}); err == nil {
		t.Error("incomplete registration accepted")
	}
}
