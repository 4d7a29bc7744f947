// Package pipeline runs the poll cycle: fetch new messages, filter, classify,
// redact, summarize, dispatch, and persist, then advance the checkpoint.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"secure-mail-digest-go/internal/classify"
	"secure-mail-digest-go/internal/fetcher"
	"secure-mail-digest-go/internal/metrics"
	"secure-mail-digest-go/internal/model"
	"secure-mail-digest-go/internal/notify"
	"secure-mail-digest-go/internal/redact"
	"secure-mail-digest-go/internal/store"
	"secure-mail-digest-go/internal/summarize"
)

// baselineWindow is how far back the first run looks when marking existing
// messages as already handled.
const baselineWindow = 24 * time.Hour

// Options carries the cycle settings that are not collaborators.
type Options struct {
	Folder       string
	DomainFilter string
	FetchTimeout time.Duration
	CallTimeout  time.Duration
}

// Engine orchestrates one poll cycle at a time. It owns no goroutines; the
// scheduler decides when RunCycle is called, and the store keeps every piece
// of state that must survive a restart.
type Engine struct {
	fetcher    fetcher.Fetcher
	store      store.Store
	checker    *classify.Checker
	summarizer summarize.Summarizer
	notifier   notify.Notifier
	metrics    *metrics.Metrics
	opts       Options
}

// NewEngine wires the pipeline collaborators. A nil summarizer is allowed and
// routes every summary through the local fallback.
func NewEngine(f fetcher.Fetcher, st store.Store, checker *classify.Checker, summarizer summarize.Summarizer, notifier notify.Notifier, m *metrics.Metrics, opts Options) *Engine {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 60 * time.Second
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 30 * time.Second
	}
	return &Engine{
		fetcher:    f,
		store:      st,
		checker:    checker,
		summarizer: summarizer,
		notifier:   notifier,
		metrics:    m,
		opts:       opts,
	}
}

// RunCycle executes one poll iteration. A fetch or persistence error aborts
// the cycle with the checkpoint unchanged; everything else degrades per
// message. The first cycle against an empty store only records a baseline.
func (e *Engine) RunCycle(ctx context.Context) error {
	start := time.Now()
	e.metrics.CycleCount.Inc()
	defer func() {
		e.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}()

	checkpoint, exists, err := e.store.LastCheckpoint(e.opts.Folder)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if !exists {
		return e.InitializeBaseline(ctx)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.opts.FetchTimeout)
	fetched, err := e.fetcher.FetchSince(fetchCtx, checkpoint)
	cancel()
	if err != nil {
		e.metrics.FetchFailures.Inc()
		return fmt.Errorf("failed to fetch messages: %w", err)
	}

	// The protocol search may be date-granular, so re-apply the exclusive
	// checkpoint bound here.
	var candidates []model.EmailMessage
	for _, msg := range fetched {
		if msg.ReceivedAt.After(checkpoint) {
			candidates = append(candidates, msg)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].ReceivedAt.Equal(candidates[j].ReceivedAt) {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].ReceivedAt.Before(candidates[j].ReceivedAt)
	})

	logrus.Infof("Found %d new messages in %s", len(candidates), e.opts.Folder)

	maxSeen := checkpoint
	for _, msg := range candidates {
		// A stop request finishes the in-flight message, never starts another.
		if ctx.Err() != nil {
			logrus.Info("Cycle interrupted, remaining messages wait for the next run")
			break
		}
		if err := e.processMessage(ctx, msg); err != nil {
			return err
		}
		if msg.ReceivedAt.After(maxSeen) {
			maxSeen = msg.ReceivedAt
		}
	}

	if maxSeen.After(checkpoint) {
		if err := e.store.AdvanceCheckpoint(e.opts.Folder, maxSeen); err != nil {
			return fmt.Errorf("failed to advance checkpoint: %w", err)
		}
	}
	return nil
}

// InitializeBaseline handles the very first run: messages from the recent
// past are marked processed without summaries or notifications, and the
// checkpoint starts at now. Restarts afterwards resume instead of replaying
// the whole mailbox.
func (e *Engine) InitializeBaseline(ctx context.Context) error {
	now := time.Now()

	fetchCtx, cancel := context.WithTimeout(ctx, e.opts.FetchTimeout)
	existing, err := e.fetcher.FetchSince(fetchCtx, now.Add(-baselineWindow))
	cancel()
	if err != nil {
		e.metrics.FetchFailures.Inc()
		return fmt.Errorf("failed to fetch baseline messages: %w", err)
	}

	for _, msg := range existing {
		if err := e.store.MarkProcessed(msg.ID); err != nil {
			return fmt.Errorf("failed to mark baseline message %s: %w", msg.ID, err)
		}
	}

	if err := e.store.AdvanceCheckpoint(e.opts.Folder, now); err != nil {
		return fmt.Errorf("failed to set initial checkpoint: %w", err)
	}

	logrus.Infof("First run: marked %d existing messages as processed, new messages will be handled from now on", len(existing))
	return nil
}

// processMessage handles one new message end to end. Only persistence
// failures propagate; summarization and dispatch failures degrade.
func (e *Engine) processMessage(ctx context.Context, msg model.EmailMessage) error {
	seen, err := e.store.IsProcessed(msg.ID)
	if err != nil {
		return fmt.Errorf("failed to check processed state for %s: %w", msg.ID, err)
	}
	if seen {
		logrus.Debugf("Skipping already processed message %s", msg.ID)
		return nil
	}

	if !matchesDomain(msg.Sender, e.opts.DomainFilter) {
		logrus.Infof("Skipping message %s from %s (domain filter)", msg.ID, msg.Sender)
		if err := e.store.MarkProcessed(msg.ID); err != nil {
			return fmt.Errorf("failed to mark skipped message %s: %w", msg.ID, err)
		}
		return nil
	}

	logrus.Infof("Processing message %s from %s", msg.ID, msg.Sender)

	// Classification runs on the raw text: redaction would otherwise erase
	// markers like "password" before they can be seen.
	classification := e.checker.Scan(msg.Subject, msg.Body)

	subjectRes := redact.Redact(msg.Subject)
	bodyRes := redact.Redact(msg.Body)
	counts := mergeCounts(subjectRes.Counts, bodyRes.Counts)
	redactionCount := subjectRes.Total() + bodyRes.Total()

	var summary string
	degraded := false
	if classification.Confidential {
		e.metrics.ConfidentialDetections.Inc()
		logrus.Warnf("Confidential markers %v in message %s, external summarization blocked", classification.Markers, msg.ID)
		summary = confidentialNotice(subjectRes.Text, bodyRes.Text, classification.Markers, redactionCount)
	} else {
		summary, degraded = e.summarizeWithFallback(ctx, subjectRes.Text, bodyRes.Text)
		if degraded {
			e.metrics.SummaryFallbacks.Inc()
		}
	}

	record := &model.SummaryRecord{
		MessageID:      msg.ID,
		Sender:         msg.Sender,
		Subject:        subjectRes.Text,
		Summary:        summary,
		IsConfidential: classification.Confidential,
		Degraded:       degraded,
		Markers:        strings.Join(classification.Markers, ","),
		RedactionCount: redactionCount,
	}

	// Dispatch is best-effort: a delivery failure is logged and counted, but
	// the record and the processed mark are still persisted so the message is
	// never summarized twice.
	text := composeDigest(msg.Sender, subjectRes.Text, summary, classification.Confidential, counts)
	dispatchCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	sid, err := e.notifier.Send(dispatchCtx, notify.Message{
		Subject: subjectRes.Text,
		Summary: summary,
		Text:    text,
	})
	cancel()
	if err != nil {
		e.metrics.DispatchFailures.Inc()
		logrus.Errorf("Failed to dispatch notification for %s: %v", msg.ID, err)
	} else {
		e.metrics.DispatchSuccesses.Inc()
		logrus.Infof("Dispatched notification for %s (sid %s)", msg.ID, sid)
	}

	if err := e.store.CommitSummary(record); err != nil {
		return fmt.Errorf("failed to persist summary for %s: %w", msg.ID, err)
	}

	e.metrics.MessagesProcessed.Inc()
	if count, err := e.store.CountProcessed(); err == nil {
		e.metrics.ProcessedTotal.Set(float64(count))
	}
	return nil
}

// summarizeWithFallback tries the external summarizer and degrades to the
// local fallback on any failure. The boolean reports whether the result is
// degraded.
func (e *Engine) summarizeWithFallback(ctx context.Context, subject, body string) (string, bool) {
	text := subject + "\n\n" + body

	if e.summarizer == nil {
		return summarize.Fallback(text), true
	}

	callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()

	summary, err := e.summarizer.Summarize(callCtx, text)
	if err != nil {
		logrus.Warnf("Summarization failed, using local fallback: %v", err)
		return summarize.Fallback(text), true
	}
	if summary == "" {
		return summarize.Fallback(text), true
	}
	return summary, false
}
