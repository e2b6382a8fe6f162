package gojob

import (
	"context"
	"errors"
	"testing"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	s.last = msg
	return nil
}

type stubQueueDequeuer struct {
	delivery queue.Delivery
}

func (s *stubQueueDequeuer) Dequeue(context.Context) (queue.Delivery, error) {
	return s.delivery, nil
}

type stubQueueDelivery struct {
	msg      *job.ExecutionMessage
	acked    bool
	nacked   bool
	nackOpts queue.NackOptions
}

func (s *stubQueueDelivery) Message() *job.ExecutionMessage {
	return s.msg
}

func (s *stubQueueDelivery) Ack(context.Context) error {
	s.acked = true
	return nil
}

func (s *stubQueueDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	s.nacked = true
	s.nackOpts = opts
	return nil
}

type stubNotifier struct {
	err      error
	profiles []string
}

func (s *stubNotifier) NotifyCompleted(_ context.Context, profileID string) error {
	s.profiles = append(s.profiles, profileID)
	return s.err
}

func TestCompletionAckQueue_EnqueueCarriesProfile(t *testing.T) {
	enqueuer := &stubQueueEnqueuer{}
	q := NewCompletionAckQueue(enqueuer)

	if err := q.EnqueueCompletionAck(context.Background(), "p1"); err != nil {
		t.Fatalf("enqueue completion ack: %v", err)
	}
	if enqueuer.last == nil || enqueuer.last.JobID != JobIDCompletionAck {
		t.Fatalf("expected completion ack job, got %#v", enqueuer.last)
	}
	if enqueuer.last.Parameters[paramProfileID] != "p1" {
		t.Fatalf("expected profile parameter, got %#v", enqueuer.last.Parameters)
	}
	if enqueuer.last.IdempotencyKey != JobIDCompletionAck+"::p1" {
		t.Fatalf("unexpected idempotency key %q", enqueuer.last.IdempotencyKey)
	}
}

func TestCompletionAckQueue_RejectsEmptyProfile(t *testing.T) {
	q := NewCompletionAckQueue(&stubQueueEnqueuer{})
	if err := q.EnqueueCompletionAck(context.Background(), "  "); err == nil {
		t.Fatalf("expected empty profile rejection")
	}
}

func TestCompletionAckConsumer_AcksOnSuccess(t *testing.T) {
	delivery := &stubQueueDelivery{
		msg: &job.ExecutionMessage{
			JobID:      JobIDCompletionAck,
			Parameters: map[string]any{paramProfileID: "p1"},
		},
	}
	notifier := &stubNotifier{}
	consumer := NewCompletionAckConsumer(&stubQueueDequeuer{delivery: delivery}, notifier, RetryPolicy{})

	if err := consumer.ProcessOne(context.Background(), 1); err != nil {
		t.Fatalf("process one: %v", err)
	}
	if !delivery.acked {
		t.Fatalf("expected ack after successful notify")
	}
	if len(notifier.profiles) != 1 || notifier.profiles[0] != "p1" {
		t.Fatalf("expected notify for p1, got %#v", notifier.profiles)
	}
}

func TestCompletionAckConsumer_NacksWithBoundedRetry(t *testing.T) {
	delivery := &stubQueueDelivery{
		msg: &job.ExecutionMessage{
			JobID:      JobIDCompletionAck,
			Parameters: map[string]any{paramProfileID: "p1"},
		},
	}
	notifier := &stubNotifier{err: errors.New("backend unavailable")}
	consumer := NewCompletionAckConsumer(&stubQueueDequeuer{delivery: delivery}, notifier, RetryPolicy{
		MaxAttempts:     3,
		MaxDelay:        10 * time.Second,
		DeadLetterOnMax: true,
	})

	if err := consumer.ProcessOne(context.Background(), 1); err != nil {
		t.Fatalf("process one: %v", err)
	}
	if !delivery.nacked || !delivery.nackOpts.Requeue || delivery.nackOpts.DeadLetter {
		t.Fatalf("expected requeue nack on early attempt, got %#v", delivery.nackOpts)
	}

	delivery.nacked = false
	if err := consumer.ProcessOne(context.Background(), 3); err != nil {
		t.Fatalf("process one at max attempts: %v", err)
	}
	if !delivery.nacked || delivery.nackOpts.Requeue || !delivery.nackOpts.DeadLetter {
		t.Fatalf("expected dead letter at max attempts, got %#v", delivery.nackOpts)
	}
}

func TestCompletionAckConsumer_DeadLettersMissingProfile(t *testing.T) {
	delivery := &stubQueueDelivery{
		msg: &job.ExecutionMessage{JobID: JobIDCompletionAck},
	}
	consumer := NewCompletionAckConsumer(&stubQueueDequeuer{delivery: delivery}, &stubNotifier{}, RetryPolicy{})

	if err := consumer.ProcessOne(context.Background(), 1); err != nil {
		t.Fatalf("process one: %v", err)
	}
	if !delivery.nacked || !delivery.nackOpts.DeadLetter {
		t.Fatalf("expected dead letter for missing profile, got %#v", delivery.nackOpts)
	}
}

func TestRetryPolicy_NormalizeClampsDelay(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, MaxDelay: 10 * time.Second}

	out := policy.Normalize(queue.NackOptions{Delay: 30 * time.Second, Requeue: true}, 1)
	if out.Delay != 10*time.Second {
		t.Fatalf("expected clamped delay, got %v", out.Delay)
	}

	out = policy.Normalize(queue.NackOptions{Delay: -time.Second, Requeue: true}, 1)
	if out.Delay != 0 {
		t.Fatalf("expected negative delay floor, got %v", out.Delay)
	}

	out = policy.Normalize(queue.NackOptions{}, 1)
	if !out.Requeue {
		t.Fatalf("expected default requeue when neither disposition set")
	}
}
