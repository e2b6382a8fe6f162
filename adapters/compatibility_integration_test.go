package adapters_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-command"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	glog "github.com/goliatone/go-logger/glog"

	onboarding "github.com/goliatone/go-onboarding"
	"github.com/goliatone/go-onboarding/adapters/gocommand"
	"github.com/goliatone/go-onboarding/adapters/gojob"
	"github.com/goliatone/go-onboarding/adapters/gologger"
	onboardingcommand "github.com/goliatone/go-onboarding/command"
	"github.com/goliatone/go-onboarding/core"
)

// The completion acknowledgment path spans three runtimes: the core flow
// fails its synchronous notify, go-job carries the retry, and the consumer
// replays it against the recovered backend.
func TestRuntimeCompatibility_CompletionAckRetryAcrossGoJob(t *testing.T) {
	ctx := context.Background()

	_, _, jobProvider, jobLogger := gologger.ResolveForJob("onboarding", nil, glog.Nop())
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job logger bridges")
	}

	backend := &flakyNotifier{failures: 1}
	ackQueue := &memoryAckQueue{}
	completionQueue := gojob.NewCompletionAckQueue(ackQueue)

	store := &memoryProgressStore{snapshots: map[string]core.WizardProgress{}}
	svc, err := onboarding.NewService(
		onboarding.DefaultConfig(),
		onboarding.WithProgressStore(store),
		onboarding.WithCompletionNotifier(backend),
		onboarding.WithCompletionQueue(completionQueue),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	progress := core.NewWizardProgress("p1", time.Now())
	progress.CurrentStep = core.StepFinish
	progress.StepFlags[core.FlagMailboxConnected] = true
	progress.StepFlags[core.FlagMessengerLinked] = true
	progress.CollectedItems = []core.CollectedItem{{ID: "cat-1", Kind: "category", Label: "Receipts"}}
	if err := store.Save(ctx, progress); err != nil {
		t.Fatalf("seed progress: %v", err)
	}

	// Synchronous notify fails once; Complete still succeeds locally and the
	// ack lands on the queue.
	if err := svc.Complete(ctx, "p1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(ackQueue.messages) != 1 {
		t.Fatalf("expected one queued acknowledgment, got %d", len(ackQueue.messages))
	}
	if ackQueue.messages[0].JobID != gojob.JobIDCompletionAck {
		t.Fatalf("unexpected queued job: %#v", ackQueue.messages[0])
	}

	consumer := gojob.NewCompletionAckConsumer(ackQueue, backend, gojob.RetryPolicy{MaxAttempts: 3})
	if err := consumer.ProcessOne(ctx, 1); err != nil {
		t.Fatalf("replay acknowledgment: %v", err)
	}
	if len(backend.notified) != 2 || backend.notified[1] != "p1" {
		t.Fatalf("expected replayed notify for p1, got %#v", backend.notified)
	}
	if !ackQueue.acked {
		t.Fatalf("expected delivery ack after successful replay")
	}
}

func TestRuntimeCompatibility_FacadeDispatchThroughGoCommand(t *testing.T) {
	store := &memoryProgressStore{snapshots: map[string]core.WizardProgress{}}
	svc, err := onboarding.NewService(
		onboarding.DefaultConfig(),
		onboarding.WithProgressStore(store),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	facade, err := onboarding.NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	cancel, err := gocommand.SubscribeFacade(adapter, facade)
	if err != nil {
		t.Fatalf("subscribe facade: %v", err)
	}
	defer cancel()
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if _, _, err := svc.LoadOrReset(context.Background(), "p1"); err != nil {
		t.Fatalf("seed flow: %v", err)
	}
	if err := gocommand.Dispatch(context.Background(), onboardingcommand.AdvanceStepMessage{
		ProfileID: "p1",
	}); err != nil {
		t.Fatalf("dispatch advance: %v", err)
	}

	saved, found, err := store.Load(context.Background(), "p1")
	if err != nil || !found {
		t.Fatalf("load after advance: found=%v err=%v", found, err)
	}
	if saved.CurrentStep != core.StepMailbox {
		t.Fatalf("expected dispatched advance to persist, got %q", saved.CurrentStep)
	}
}

type flakyNotifier struct {
	failures int
	notified []string
}

func (n *flakyNotifier) NotifyCompleted(_ context.Context, profileID string) error {
	n.notified = append(n.notified, profileID)
	if n.failures > 0 {
		n.failures--
		return fmt.Errorf("backend unavailable")
	}
	return nil
}

// memoryAckQueue is a single-slot queue doubling as enqueuer, dequeuer, and
// delivery for the test.
type memoryAckQueue struct {
	messages []*job.ExecutionMessage
	acked    bool
}

func (q *memoryAckQueue) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	q.messages = append(q.messages, msg)
	return nil
}

func (q *memoryAckQueue) Dequeue(context.Context) (queue.Delivery, error) {
	if len(q.messages) == 0 {
		return nil, fmt.Errorf("queue empty")
	}
	return &memoryAckDelivery{queue: q, msg: q.messages[0]}, nil
}

type memoryAckDelivery struct {
	queue *memoryAckQueue
	msg   *job.ExecutionMessage
}

func (d *memoryAckDelivery) Message() *job.ExecutionMessage { return d.msg }

func (d *memoryAckDelivery) Ack(context.Context) error {
	d.queue.messages = d.queue.messages[1:]
	d.queue.acked = true
	return nil
}

func (d *memoryAckDelivery) Nack(context.Context, queue.NackOptions) error {
	return nil
}

type memoryProgressStore struct {
	snapshots map[string]core.WizardProgress
}

func (s *memoryProgressStore) Save(_ context.Context, progress core.WizardProgress) error {
	s.snapshots[progress.ProfileID] = progress.Clone()
	return nil
}

func (s *memoryProgressStore) Load(_ context.Context, profileID string) (core.WizardProgress, bool, error) {
	progress, ok := s.snapshots[profileID]
	if !ok {
		return core.WizardProgress{}, false, nil
	}
	return progress.Clone(), true, nil
}

func (s *memoryProgressStore) Delete(_ context.Context, profileID string) error {
	delete(s.snapshots, profileID)
	return nil
}

func (s *memoryProgressStore) PurgeStale(_ context.Context, olderThan time.Time) (int, error) {
	purged := 0
	for id, progress := range s.snapshots {
		if progress.LastUpdated.Before(olderThan) {
			delete(s.snapshots, id)
			purged++
		}
	}
	return purged, nil
}
