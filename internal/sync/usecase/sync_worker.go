package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	syncdomain "sift-backend/internal/sync/domain"
	"sift-backend/internal/sync/repository"
	"sift-backend/pkg/ai"
	"sift-backend/pkg/costs"

	"github.com/google/uuid"
)

// maxEventsPerEmail caps how many events one message may contribute. A
// newsletter listing a whole season of fixtures should not flood the
// calendar; the overage is reported, never errored.
const maxEventsPerEmail = 60

// SyncWorker drives one user's sync run end to end: calendar bootstrap,
// message retrieval, per-message extraction, per-event normalization, dedup
// and calendar write, then report assembly. Strictly sequential; one message
// and one event at a time.
type SyncWorker struct {
	userID     string
	calendarID string

	mail      MailProvider
	calendar  CalendarProvider
	extractor EventExtractor

	normalizer      *Normalizer
	processedEmails repository.ProcessedEmailRepository
	calendarEvents  repository.CalendarEventRepository
	syncCosts       repository.SyncCostRepository
	users           UserStore

	tracker *costs.Tracker
	now     func() time.Time
}

// SyncWorkerConfig carries the collaborators for one run, already bound to
// the user.
type SyncWorkerConfig struct {
	UserID          string
	CalendarID      string
	Mail            MailProvider
	Calendar        CalendarProvider
	Extractor       EventExtractor
	Normalizer      *Normalizer
	ProcessedEmails repository.ProcessedEmailRepository
	CalendarEvents  repository.CalendarEventRepository
	SyncCosts       repository.SyncCostRepository
	Users           UserStore
	Tracker         *costs.Tracker
}

func NewSyncWorker(cfg SyncWorkerConfig) *SyncWorker {
	return &SyncWorker{
		userID:          cfg.UserID,
		calendarID:      cfg.CalendarID,
		mail:            cfg.Mail,
		calendar:        cfg.Calendar,
		extractor:       cfg.Extractor,
		normalizer:      cfg.Normalizer,
		processedEmails: cfg.ProcessedEmails,
		calendarEvents:  cfg.CalendarEvents,
		syncCosts:       cfg.SyncCosts,
		users:           cfg.Users,
		tracker:         cfg.Tracker,
		now:             time.Now,
	}
}

// WithClock overrides the worker's notion of now. Used by tests.
func (w *SyncWorker) WithClock(now func() time.Time) *SyncWorker {
	w.now = now
	return w
}

// Run executes the sync and always returns a report; fatal failures surface
// as an error entry on a partial report, never as a panic or lost run.
func (w *SyncWorker) Run(ctx context.Context, opts SyncOptions, observer ProgressObserver) *SyncReport {
	report := NewSyncReport()
	log.Printf("[Sync] Starting sync for user %s", w.userID)

	notify := func(stage string, current, total int, message string) {
		if observer != nil {
			observer.Notify(ProgressEvent{Stage: stage, Current: current, Total: total, Message: message})
		}
	}
	fatal := func(format string, args ...any) *SyncReport {
		msg := fmt.Sprintf(format, args...)
		report.AddError("%s", msg)
		notify("error", 0, 1, "Error: "+msg)
		report.Costs = w.costSummary()
		log.Printf("[Sync] Fatal: %s", msg)
		return report
	}

	// setup
	notify("setup", 1, 4, "[setup] Initializing calendar... (1/4)")
	calendarID, err := w.calendar.EnsureCalendar(ctx, w.calendarID)
	w.tracker.AddCalendarCall()
	if err != nil {
		return fatal("calendar bootstrap failed: %v", err)
	}
	if calendarID != w.calendarID {
		w.calendarID = calendarID
		if err := w.users.SaveCalendarID(w.userID, calendarID); err != nil {
			return fatal("saving calendar id: %v", err)
		}
	}

	notify("setup", 2, 4, "[setup] Connecting to mailbox... (2/4)")
	notify("setup", 3, 4, "[setup] Fetching recent emails... (3/4)")
	emails, err := w.mail.GetRecentEmails(ctx, opts.LookbackDays, opts.MaxEmails)
	w.tracker.AddGmailCall()
	if err != nil {
		return fatal("fetching emails: %v", err)
	}

	if len(emails) == 0 {
		log.Printf("[Sync] No emails found to process")
		notify("complete", 1, 1, "[complete] No emails found")
		w.finalize(report)
		return report
	}

	report.MarkScanned(len(emails))
	notify("setup", 4, 4, fmt.Sprintf("[setup] Found %d emails to scan (4/4)", len(emails)))

	// processing; the dedup gate's in-run cache spans all messages of the run
	gate := newDedupGate(w.userID, w.calendarEvents)
	total := len(emails)
	for idx, email := range emails {
		notify("processing", idx+1, total,
			fmt.Sprintf("[processing] Email %d/%d: %s (%d/%d)", idx+1, total, truncateSubject(email.Subject), idx+1, total))
		w.processEmail(ctx, email, gate, report, notify)
	}

	// complete
	w.finalize(report)
	notify("complete", total, total, fmt.Sprintf("[complete] Sync complete! (%d/%d)", total, total))

	log.Printf("[Sync] Done: scanned=%d processed=%d skipped=%d added=%d duplicates=%d errors=%d",
		report.EmailsScanned, report.EmailsProcessed, report.EmailsSkipped,
		report.EventsAdded, report.DuplicatesSkipped, len(report.Errors))
	return report
}

// processEmail handles one message. Every failure inside is recorded on the
// report and swallowed; a bad message never aborts the run.
func (w *SyncWorker) processEmail(ctx context.Context, email *syncdomain.EmailMessage, gate *dedupGate, report *SyncReport, notify ai.ProgressFunc) {
	done, err := w.processedEmails.IsProcessed(w.userID, email.ID)
	if err != nil {
		report.AddError("Email %s: checking processed state: %v", email.ID, err)
		return
	}
	if done {
		log.Printf("[Sync] Skipping already processed email: %s", email.Subject)
		report.MarkSkipped()
		return
	}

	rawEvents, usage := w.extractor.ExtractEvents(ctx, ai.EmailContent{
		Subject: email.Subject,
		Sender:  email.Sender,
		Body:    email.Body,
	}, notify)
	w.tracker.AddUsage(usage.InputTokens, usage.OutputTokens)
	report.MarkProcessed()

	// Drop events that already happened before touching anything else.
	current := make([]ai.ExtractedEvent, 0, len(rawEvents))
	now := w.now()
	for _, raw := range rawEvents {
		if w.normalizer.StartsBeforeToday(raw, now) {
			log.Printf("[Sync] Dropping past event %q from %s", raw.Title, email.Subject)
			continue
		}
		current = append(current, raw)
	}

	if len(current) > maxEventsPerEmail {
		report.AddOverflow(email.ID, email.Subject, len(current), maxEventsPerEmail)
		log.Printf("[Sync] Email %q produced %d events, capping at %d", email.Subject, len(current), maxEventsPerEmail)
		current = current[:maxEventsPerEmail]
	}

	report.MarkExtracted(len(current))

	recordID := uuid.New().String()
	added := 0
	errsBefore := len(report.Errors)

	for _, raw := range current {
		event, ok := w.normalizer.Normalize(raw, email)
		if !ok {
			continue
		}

		dup, err := gate.IsDuplicate(event)
		if err != nil {
			report.AddError("Email %q, event %q: duplicate check: %v", email.Subject, event.Title, err)
			continue
		}
		if dup {
			log.Printf("[Sync] Skipping duplicate event: %s", event.Title)
			report.MarkDuplicate()
			continue
		}

		providerEventID, err := w.calendar.InsertEvent(ctx, w.calendarID, event)
		w.tracker.AddCalendarCall()
		if err != nil {
			report.AddError("Email %q, event %q: calendar write: %v", email.Subject, event.Title, err)
			continue
		}

		if err := w.calendarEvents.Create(&syncdomain.CalendarEvent{
			ID:               uuid.New().String(),
			UserID:           w.userID,
			ProcessedEmailID: recordID,
			GoogleEventID:    providerEventID,
			GoogleCalendarID: w.calendarID,
			EventTitle:       event.Title,
			StartDatetime:    event.Start,
			EndDatetime:      event.End,
			Location:         event.Location,
			Description:      event.Description,
			RSVPRequired:     event.RSVPRequired,
			RSVPLink:         event.RSVPLink,
			CreatedAt:        now,
			UpdatedAt:        now,
		}); err != nil {
			report.AddError("Email %q, event %q: recording event: %v", email.Subject, event.Title, err)
		}

		gate.Record(event)
		report.MarkAdded()
		added++
		notify("processing", added, len(current), fmt.Sprintf("[processing] Added event: %s", event.Title))
	}

	// One record per message, written whether or not every event landed, so
	// the message is never retried on a later run.
	status := syncdomain.ProcessingStatusSuccess
	errorMessage := ""
	if failed := report.Errors[errsBefore:]; len(failed) > 0 {
		status = syncdomain.ProcessingStatusError
		if added > 0 {
			status = syncdomain.ProcessingStatusPartial
		}
		errorMessage = strings.Join(failed, "; ")
	}
	if err := w.processedEmails.Create(&syncdomain.ProcessedEmail{
		ID:               recordID,
		UserID:           w.userID,
		EmailID:          email.ID,
		Subject:          email.Subject,
		Sender:           email.Sender,
		EventCreated:     added > 0,
		EventsCount:      added,
		ProcessingStatus: status,
		ErrorMessage:     errorMessage,
		ProcessedAt:      now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}); err != nil {
		report.AddError("Email %s: recording processed state: %v", email.ID, err)
	}
}

// finalize flushes the cost ledger and stamps the user's last sync time.
func (w *SyncWorker) finalize(report *SyncReport) {
	report.Costs = w.costSummary()

	if err := w.syncCosts.Create(&syncdomain.SyncCost{
		ID:               uuid.New().String(),
		UserID:           w.userID,
		Model:            w.tracker.Model(),
		EmailsProcessed:  report.EmailsProcessed,
		EventsExtracted:  report.EventsExtracted,
		InputTokens:      w.tracker.InputTokens(),
		OutputTokens:     w.tracker.OutputTokens(),
		GmailAPICalls:    w.tracker.GmailCalls(),
		CalendarAPICalls: w.tracker.CalendarCalls(),
		CostUSD:          w.tracker.Cost(),
		CreatedAt:        w.now(),
	}); err != nil {
		report.AddError("recording sync cost: %v", err)
	}
	if err := w.users.StampLastSync(w.userID, w.now()); err != nil {
		report.AddError("stamping last sync: %v", err)
	}
}

func (w *SyncWorker) costSummary() *CostSummary {
	return &CostSummary{
		Model:            w.tracker.Model(),
		InputTokens:      w.tracker.InputTokens(),
		OutputTokens:     w.tracker.OutputTokens(),
		GmailAPICalls:    w.tracker.GmailCalls(),
		CalendarAPICalls: w.tracker.CalendarCalls(),
		TotalCost:        w.tracker.Cost(),
	}
}

// TestSingleEmail runs extraction against the first recent message whose
// subject contains the given substring. Diagnostic only: it writes nothing
// and skips dedup entirely.
func (w *SyncWorker) TestSingleEmail(ctx context.Context, opts SyncOptions, subjectSubstring string) ([]ai.ExtractedEvent, error) {
	emails, err := w.mail.GetRecentEmails(ctx, opts.LookbackDays, opts.MaxEmails)
	if err != nil {
		return nil, fmt.Errorf("fetching emails: %w", err)
	}

	needle := strings.ToLower(subjectSubstring)
	for _, email := range emails {
		if !strings.Contains(strings.ToLower(email.Subject), needle) {
			continue
		}
		events, _ := w.extractor.ExtractEvents(ctx, ai.EmailContent{
			Subject: email.Subject,
			Sender:  email.Sender,
			Body:    email.Body,
		}, nil)
		return events, nil
	}

	return nil, fmt.Errorf("no recent email matches subject %q", subjectSubstring)
}

func truncateSubject(subject string) string {
	if len(subject) > 50 {
		return subject[:50] + "..."
	}
	return subject
}
