package reporting

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mamadbah2/eurocam-webhook/internal/domain/models"
)

// Tracker counts webhook activity between two reports. It is safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	since     time.Time
	events    map[models.EventCategory]int64
	decisions map[models.ReplyDecision]int64

	textSends      atomic.Int64
	templateSends  atomic.Int64
	sendFailures   atomic.Int64
	fallbacks      atomic.Int64
	failedStatuses atomic.Int64

	now func() time.Time
}

// NewTracker starts a tracker whose first window opens now.
func NewTracker() *Tracker {
	t := &Tracker{now: time.Now}
	t.since = t.now()
	t.events = make(map[models.EventCategory]int64)
	t.decisions = make(map[models.ReplyDecision]int64)
	return t
}

// RecordEvent counts one webhook event by category.
func (t *Tracker) RecordEvent(category models.EventCategory) {
	t.mu.Lock()
	t.events[category]++
	t.mu.Unlock()
}

// RecordDecision counts one reply decision.
func (t *Tracker) RecordDecision(decision models.ReplyDecision) {
	t.mu.Lock()
	t.decisions[decision]++
	t.mu.Unlock()
}

// RecordSend counts one outbound attempt. kind is "text" or "template".
func (t *Tracker) RecordSend(kind string, succeeded bool) {
	switch kind {
	case "template":
		t.templateSends.Add(1)
	default:
		t.textSends.Add(1)
	}
	if !succeeded {
		t.sendFailures.Add(1)
	}
}

// RecordFallback counts a template send that fell back to text.
func (t *Tracker) RecordFallback() { t.fallbacks.Add(1) }

// RecordFailedStatus counts a delivery receipt reporting failure.
func (t *Tracker) RecordFailedStatus() { t.failedStatuses.Add(1) }

// Flush returns the counters of the current window and opens a new one.
func (t *Tracker) Flush() models.ActivityReport {
	t.mu.Lock()
	defer t.mu.Unlock()

	end := t.now()
	report := models.ActivityReport{
		PeriodStart:    t.since,
		PeriodEnd:      end,
		Events:         t.events,
		Decisions:      t.decisions,
		TextSends:      t.textSends.Swap(0),
		TemplateSends:  t.templateSends.Swap(0),
		SendFailures:   t.sendFailures.Swap(0),
		Fallbacks:      t.fallbacks.Swap(0),
		FailedStatuses: t.failedStatuses.Swap(0),
		CreatedAt:      end,
	}

	t.since = end
	t.events = make(map[models.EventCategory]int64)
	t.decisions = make(map[models.ReplyDecision]int64)
	return report
}
