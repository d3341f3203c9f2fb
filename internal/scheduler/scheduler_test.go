package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/zapflow/internal/domain"
	"github.com/shaiso/zapflow/internal/orchestrator"
)

type memSchedules struct {
	items   []domain.Schedule
	updated []domain.Schedule
}

func (m *memSchedules) ListDue(_ context.Context, now time.Time, limit int) ([]domain.Schedule, error) {
	var out []domain.Schedule
	for _, s := range m.items {
		if s.IsDue(now) && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSchedules) Update(_ context.Context, s *domain.Schedule) error {
	m.updated = append(m.updated, *s)
	for i := range m.items {
		if m.items[i].ID == s.ID {
			m.items[i] = *s
		}
	}
	return nil
}

// fakePlayer запоминает ключи и повторяет поведение оркестратора по идемпотентности.
type fakePlayer struct {
	byKey map[string]*domain.Execution
	err   error
	plays int
}

func (p *fakePlayer) Play(_ context.Context, workflowID uuid.UUID, opts orchestrator.PlayOptions) (*domain.Execution, error) {
	p.plays++
	if p.err != nil {
		return nil, p.err
	}
	if p.byKey == nil {
		p.byKey = make(map[string]*domain.Execution)
	}
	if e, ok := p.byKey[opts.IdempotencyKey]; ok {
		return e, orchestrator.ErrDuplicateExecution
	}
	e := &domain.Execution{ID: uuid.New(), WorkflowID: &workflowID, Trigger: opts.Trigger, IdempotencyKey: opts.IdempotencyKey}
	p.byKey[opts.IdempotencyKey] = e
	return e, nil
}

func dueSchedule(due time.Time) domain.Schedule {
	return domain.Schedule{
		ID:          uuid.New(),
		WorkflowID:  uuid.New(),
		IntervalSec: 60,
		Timezone:    "UTC",
		Enabled:     true,
		NextDueAt:   &due,
	}
}

func TestTick_StartsAndAdvances(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 30, 0, time.UTC)
	due := now.Add(-30 * time.Second)
	sched := dueSchedule(due)
	notDue := dueSchedule(now.Add(time.Hour))

	store := &memSchedules{items: []domain.Schedule{sched, notDue}}
	player := &fakePlayer{}
	s := New(Config{Schedules: store, Player: player, Now: func() time.Time { return now }})

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if player.plays != 1 || len(store.updated) != 1 {
		t.Fatalf("plays %d updates %d", player.plays, len(store.updated))
	}

	got := store.updated[0]
	if !got.NextDueAt.Equal(now.Add(time.Minute)) {
		t.Errorf("next due = %v, want %v", got.NextDueAt, now.Add(time.Minute))
	}
	if got.LastExecutionID == nil {
		t.Error("last execution id not recorded")
	}

	key := IdempotencyKey(&sched)
	exec, ok := player.byKey[key]
	if !ok || exec.Trigger != domain.TriggerSchedule {
		t.Errorf("expected execution with key %s", key)
	}
}

func TestProcessSchedule_Duplicate(t *testing.T) {
	now := time.Now()
	sched := dueSchedule(now.Add(-time.Second))
	store := &memSchedules{items: []domain.Schedule{sched}}
	player := &fakePlayer{}
	s := New(Config{Schedules: store, Player: player})

	// Первый лидер успел запустить, но не обновил next_due_at.
	first, _ := player.Play(context.Background(), sched.WorkflowID, orchestrator.PlayOptions{IdempotencyKey: IdempotencyKey(&sched)})

	created, err := s.processSchedule(context.Background(), &sched, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("duplicate must not count as created")
	}
	if *store.updated[0].LastExecutionID != first.ID {
		t.Error("schedule must point to the existing execution")
	}
}

func TestProcessSchedule_InactiveWorkflowSkipped(t *testing.T) {
	now := time.Now()
	sched := dueSchedule(now.Add(-time.Second))
	store := &memSchedules{items: []domain.Schedule{sched}}
	s := New(Config{Schedules: store, Player: &fakePlayer{err: orchestrator.ErrWorkflowInactive}})

	created, err := s.processSchedule(context.Background(), &sched, now)
	if err != nil || created {
		t.Fatalf("created %v err %v", created, err)
	}
	if len(store.updated) != 1 || store.updated[0].LastExecutionID != nil {
		t.Fatalf("unexpected updates %+v", store.updated)
	}
	if !store.updated[0].NextDueAt.After(now) {
		t.Error("next due must move forward")
	}
}

func TestProcessSchedule_PlayError(t *testing.T) {
	sched := dueSchedule(time.Now())
	store := &memSchedules{}
	s := New(Config{Schedules: store, Player: &fakePlayer{err: errors.New("db down")}})

	if _, err := s.processSchedule(context.Background(), &sched, time.Now()); err == nil {
		t.Fatal("expected error")
	}
	if len(store.updated) != 0 {
		t.Error("schedule must not be updated on failure")
	}
}

type stubLeader struct {
	acquire  bool
	released bool
}

func (l *stubLeader) TryAcquire(context.Context) (bool, error) { return l.acquire, nil }
func (l *stubLeader) Release(context.Context)                 { l.released = true }

func TestRun_RequiresLeadership(t *testing.T) {
	now := time.Now()
	store := &memSchedules{items: []domain.Schedule{dueSchedule(now.Add(-time.Second))}}
	player := &fakePlayer{}
	s := New(Config{Schedules: store, Player: player})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	follower := &stubLeader{acquire: false}
	s.Run(ctx, 5*time.Millisecond, follower)
	if player.plays != 0 {
		t.Errorf("follower must not tick, plays = %d", player.plays)
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	leader := &stubLeader{acquire: true}
	s.Run(ctx2, 5*time.Millisecond, leader)
	if player.plays == 0 {
		t.Error("leader must tick")
	}
	if !leader.released {
		t.Error("leadership must be released on exit")
	}
}
