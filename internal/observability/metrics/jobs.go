package metrics

import (
	"strconv"
	"time"

	"github.com/glasskite/darkroom/internal/observability/statsd"
)

// Admission outcome tags.
const (
	ResultAdmitted            = "admitted"
	ResultConcurrencyLimited  = "concurrency_limited"
	ResultInsufficientCredits = "insufficient_credits"
	ResultDispatchFailed      = "dispatch_failed"
	ResultError               = "error"
)

// EmitAdmission records the outcome of a job submission attempt.
func EmitAdmission(sink statsd.Sink, result string) {
	if sink == nil {
		return
	}
	sink.Count("job.admission", 1, map[string]string{"result": result})
}

// EmitTransition records a job status transition applied by a processing
// callback. Duplicate callbacks are tagged applied=false.
func EmitTransition(sink statsd.Sink, status string, applied bool) {
	if sink == nil {
		return
	}
	sink.Count("job.transition", 1, map[string]string{
		"status":  status,
		"applied": boolTag(applied),
	})
}

// EmitWebhookDelivery records a webhook delivery outcome and its total
// duration across attempts.
func EmitWebhookDelivery(sink statsd.Sink, delivered bool, attempts int, elapsed time.Duration) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"delivered": boolTag(delivered),
		"attempts":  strconv.Itoa(attempts),
	}
	sink.Count("webhook.delivery", 1, tags)
	if elapsed > 0 {
		sink.Timing("webhook.duration", elapsed, tags)
	}
}

func boolTag(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
