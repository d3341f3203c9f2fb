package action

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/zapflow/internal/domain"
	"github.com/shaiso/zapflow/internal/engine"
	"github.com/shaiso/zapflow/internal/mq"
)

func swapAction(node domain.NodeID) engine.Action {
	return engine.Action{
		ExecutionID: uuid.New(),
		NodeID:      node,
		Type:        domain.ActionSwapExactETHForTokens,
		Params: map[string]engine.Value{
			engine.ParamTokenFromAddress: engine.String("0xA"),
			engine.ParamTokenToAddress:   engine.String("0xB"),
			engine.ParamTokenFromAmount:  engine.Uint(5),
		},
	}
}

func TestAsyncDispatcher_DrainsOnStop(t *testing.T) {
	var handled atomic.Int32
	d := NewAsyncDispatcher(DispatcherConfig{
		Workers: 3,
		Handler: HandlerFunc(func(context.Context, engine.Action) error {
			handled.Add(1)
			return nil
		}),
	})

	// Submit до Start: действия ждут в очереди.
	for i := range 10 {
		d.Submit(swapAction(domain.NodeID(i)))
	}
	if d.Pending() != 10 {
		t.Fatalf("expected 10 pending, got %d", d.Pending())
	}

	d.Start(context.Background())
	d.Stop()

	if handled.Load() != 10 {
		t.Errorf("expected 10 handled, got %d", handled.Load())
	}
	if d.Pending() != 0 {
		t.Errorf("queue must be empty after Stop, got %d", d.Pending())
	}

	d.Submit(swapAction(99))
	if d.Pending() != 0 {
		t.Error("Submit after Stop must drop the action")
	}
}

func TestAsyncDispatcher_SubmitDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	d := NewAsyncDispatcher(DispatcherConfig{
		Workers: 1,
		Handler: HandlerFunc(func(context.Context, engine.Action) error {
			wg.Done()
			<-release
			return errors.New("ignored")
		}),
	})
	d.Start(context.Background())

	d.Submit(swapAction(1))
	wg.Wait()

	// Единственный обработчик занят, но Submit возвращается сразу.
	for i := range 100 {
		d.Submit(swapAction(domain.NodeID(i + 2)))
	}
	if d.Pending() != 100 {
		t.Errorf("expected 100 pending, got %d", d.Pending())
	}

	wg.Add(100)
	close(release)
	d.Stop()
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) PublishActionReady(context.Context, mq.ActionReadyPayload) error {
	p.calls++
	return mq.ErrClosed
}

func TestQueueHandler(t *testing.T) {
	store := &memStore{}
	pub := &failingPublisher{}
	h := &QueueHandler{Store: store, Publisher: pub}

	a := swapAction(4)
	if err := h.Handle(context.Background(), a); err != nil {
		t.Fatalf("publish failure must not fail the handler: %v", err)
	}
	if len(store.created) != 1 || pub.calls != 1 {
		t.Fatalf("created %d, published %d", len(store.created), pub.calls)
	}

	sub := store.created[0]
	if sub.Status != domain.ActionStatusQueued || sub.NodeID != 4 || *sub.ExecutionID != a.ExecutionID {
		t.Errorf("unexpected submission %+v", sub)
	}
}

func TestLocalHandler(t *testing.T) {
	store := &memStore{}
	h := &LocalHandler{
		Runner: NewRunner(RunnerConfig{Registry: NewSwapRegistry(&DryRunExecutor{})}),
		Store:  store,
	}

	if err := h.Handle(context.Background(), swapAction(2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.created) != 1 || store.created[0].Status != domain.ActionStatusSucceeded {
		t.Fatalf("unexpected store state: %+v", store.created)
	}

	noStore := &LocalHandler{Runner: NewRunner(RunnerConfig{Registry: NewSwapRegistry(&DryRunExecutor{})})}
	if err := noStore.Handle(context.Background(), swapAction(3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
