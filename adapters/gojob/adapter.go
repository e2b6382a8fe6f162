package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"

	"github.com/goliatone/go-onboarding/core"
)

const (
	JobIDCompletionAck = "onboarding.completion.ack"

	paramProfileID = "profile_id"
)

// RetryPolicy bounds queue retry behavior so a dead backend cannot spin an
// acknowledgment forever.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// Normalize clamps nack options for the given attempt number.
func (p RetryPolicy) Normalize(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// CompletionAckQueue hands failed completion acknowledgments to a go-job
// queue for out-of-band retry. The idempotency key is derived from the
// profile so a profile's ack is never queued twice.
type CompletionAckQueue struct {
	enqueuer queue.Enqueuer
}

func NewCompletionAckQueue(enqueuer queue.Enqueuer) *CompletionAckQueue {
	return &CompletionAckQueue{enqueuer: enqueuer}
}

func (q *CompletionAckQueue) EnqueueCompletionAck(ctx context.Context, profileID string) error {
	if q == nil || q.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return fmt.Errorf("gojob: profile id is required")
	}
	return q.enqueuer.Enqueue(ctx, &job.ExecutionMessage{
		JobID:          JobIDCompletionAck,
		Parameters:     map[string]any{paramProfileID: profileID},
		IdempotencyKey: JobIDCompletionAck + "::" + profileID,
	})
}

// CompletionAckConsumer drains queued acknowledgments and replays them
// against the completion notifier.
type CompletionAckConsumer struct {
	dequeuer queue.Dequeuer
	notifier core.CompletionNotifier
	policy   RetryPolicy
}

func NewCompletionAckConsumer(
	dequeuer queue.Dequeuer,
	notifier core.CompletionNotifier,
	policy RetryPolicy,
) *CompletionAckConsumer {
	return &CompletionAckConsumer{
		dequeuer: dequeuer,
		notifier: notifier,
		policy:   policy,
	}
}

// ProcessOne takes a single delivery off the queue and replays it. Attempt
// numbering starts at 1 and feeds the retry policy on failure.
func (c *CompletionAckConsumer) ProcessOne(ctx context.Context, attempt int) error {
	if c == nil || c.dequeuer == nil {
		return fmt.Errorf("gojob: dequeuer is not configured")
	}
	if c.notifier == nil {
		return fmt.Errorf("gojob: completion notifier is not configured")
	}

	delivery, err := c.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}

	profileID := deliveryProfileID(delivery)
	if profileID == "" {
		// A message without a profile can never succeed; park it.
		return delivery.Nack(ctx, queue.NackOptions{
			DeadLetter: true,
			Reason:     "missing profile id",
		})
	}

	if notifyErr := c.notifier.NotifyCompleted(ctx, profileID); notifyErr != nil {
		return delivery.Nack(ctx, c.policy.Normalize(queue.NackOptions{
			Requeue: true,
			Reason:  notifyErr.Error(),
		}, attempt))
	}
	return delivery.Ack(ctx)
}

func deliveryProfileID(delivery queue.Delivery) string {
	if delivery == nil {
		return ""
	}
	msg := delivery.Message()
	if msg == nil {
		return ""
	}
	profileID, _ := msg.Parameters[paramProfileID].(string)
	return strings.TrimSpace(profileID)
}

// MetricsWorkerHook surfaces worker lifecycle events as onboarding metrics.
type MetricsWorkerHook struct {
	recorder core.MetricsRecorder
}

func NewMetricsWorkerHook(recorder core.MetricsRecorder) *MetricsWorkerHook {
	return &MetricsWorkerHook{recorder: recorder}
}

func (h *MetricsWorkerHook) OnStart(ctx context.Context, event worker.Event) {
	h.count(ctx, "onboarding.completion_ack.started", event)
}

func (h *MetricsWorkerHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.count(ctx, "onboarding.completion_ack.succeeded", event)
}

func (h *MetricsWorkerHook) OnFailure(ctx context.Context, event worker.Event) {
	h.count(ctx, "onboarding.completion_ack.failed", event)
}

func (h *MetricsWorkerHook) OnRetry(ctx context.Context, event worker.Event) {
	h.count(ctx, "onboarding.completion_ack.retried", event)
}

func (h *MetricsWorkerHook) count(ctx context.Context, name string, event worker.Event) {
	if h == nil || h.recorder == nil {
		return
	}
	tags := map[string]string{}
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	if message != nil {
		tags["job_id"] = message.JobID
	}
	h.recorder.IncCounter(ctx, name, 1, tags)
}

var (
	_ core.CompletionQueue = (*CompletionAckQueue)(nil)
	_ worker.Hook          = (*MetricsWorkerHook)(nil)
)
