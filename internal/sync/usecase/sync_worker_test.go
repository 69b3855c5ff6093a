package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	syncdomain "sift-backend/internal/sync/domain"
	"sift-backend/pkg/ai"
	"sift-backend/pkg/costs"
)

// --- fakes ---

type fakeMail struct {
	emails []*syncdomain.EmailMessage
	err    error
}

func (f *fakeMail) GetRecentEmails(ctx context.Context, lookbackDays, maxMessages int) ([]*syncdomain.EmailMessage, error) {
	return f.emails, f.err
}

func (f *fakeMail) GetEmailByID(ctx context.Context, emailID string) (*syncdomain.EmailMessage, error) {
	for _, e := range f.emails {
		if e.ID == emailID {
			return e, nil
		}
	}
	return nil, nil
}

type fakeCalendar struct {
	calendarID string
	ensureErr  error
	inserted   []string
	failTitles map[string]bool
	nextID     int
}

func (f *fakeCalendar) EnsureCalendar(ctx context.Context, calendarID string) (string, error) {
	if f.ensureErr != nil {
		return "", f.ensureErr
	}
	if f.calendarID != "" {
		return f.calendarID, nil
	}
	return calendarID, nil
}

func (f *fakeCalendar) InsertEvent(ctx context.Context, calendarID string, event *syncdomain.Event) (string, error) {
	if f.failTitles[event.Title] {
		return "", errors.New("backend returned 503")
	}
	f.inserted = append(f.inserted, event.Title)
	f.nextID++
	return fmt.Sprintf("gcal-%d", f.nextID), nil
}

type stubExtractor struct {
	bySubject map[string][]ai.ExtractedEvent
	usage     ai.TokenUsage
}

func (s *stubExtractor) ExtractEvents(ctx context.Context, email ai.EmailContent, progress ai.ProgressFunc) ([]ai.ExtractedEvent, ai.TokenUsage) {
	return s.bySubject[email.Subject], s.usage
}

type memProcessedRepo struct {
	records []*syncdomain.ProcessedEmail
}

func (m *memProcessedRepo) IsProcessed(userID, emailID string) (bool, error) {
	for _, r := range m.records {
		if r.UserID == userID && r.EmailID == emailID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memProcessedRepo) Create(record *syncdomain.ProcessedEmail) error {
	for _, r := range m.records {
		if r.UserID == record.UserID && r.EmailID == record.EmailID {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	m.records = append(m.records, record)
	return nil
}

func (m *memProcessedRepo) ListByUser(userID string, limit int) ([]*syncdomain.ProcessedEmail, error) {
	return m.records, nil
}

type memCalendarEventRepo struct {
	events []*syncdomain.CalendarEvent
}

func (m *memCalendarEventRepo) Create(event *syncdomain.CalendarEvent) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memCalendarEventRepo) FindDuplicate(userID, title string, start time.Time) (*syncdomain.CalendarEvent, error) {
	want := strings.ToLower(strings.TrimSpace(title))
	for _, e := range m.events {
		if e.UserID == userID && !e.UserDeleted &&
			strings.ToLower(strings.TrimSpace(e.EventTitle)) == want && e.StartDatetime.Equal(start) {
			return e, nil
		}
	}
	return nil, nil
}

func (m *memCalendarEventRepo) MarkUserDeleted(userID, eventID string) error {
	for _, e := range m.events {
		if e.UserID == userID && e.ID == eventID {
			e.UserDeleted = true
			return nil
		}
	}
	return errors.New("not found")
}

func (m *memCalendarEventRepo) ListByUser(userID string, limit int) ([]*syncdomain.CalendarEvent, error) {
	return m.events, nil
}

type memCostRepo struct {
	rows []*syncdomain.SyncCost
}

func (m *memCostRepo) Create(cost *syncdomain.SyncCost) error {
	m.rows = append(m.rows, cost)
	return nil
}

func (m *memCostRepo) TotalForUser(userID string) (float64, error) {
	var total float64
	for _, r := range m.rows {
		total += r.CostUSD
	}
	return total, nil
}

type fakeUsers struct {
	calendarID string
	lastSync   time.Time
}

func (f *fakeUsers) SaveCalendarID(userID, calendarID string) error {
	f.calendarID = calendarID
	return nil
}

func (f *fakeUsers) StampLastSync(userID string, t time.Time) error {
	f.lastSync = t
	return nil
}

type recordingObserver struct {
	events []ProgressEvent
}

func (o *recordingObserver) Notify(event ProgressEvent) {
	o.events = append(o.events, event)
}

func (o *recordingObserver) stages() []string {
	var out []string
	for _, e := range o.events {
		if len(out) == 0 || out[len(out)-1] != e.Stage {
			out = append(out, e.Stage)
		}
	}
	return out
}

// --- harness ---

type workerEnv struct {
	mail      *fakeMail
	calendar  *fakeCalendar
	extractor *stubExtractor
	processed *memProcessedRepo
	events    *memCalendarEventRepo
	costRows  *memCostRepo
	users     *fakeUsers
}

func newEnv() *workerEnv {
	return &workerEnv{
		mail:      &fakeMail{},
		calendar:  &fakeCalendar{},
		extractor: &stubExtractor{bySubject: map[string][]ai.ExtractedEvent{}, usage: ai.TokenUsage{InputTokens: 100, OutputTokens: 20}},
		processed: &memProcessedRepo{},
		events:    &memCalendarEventRepo{},
		costRows:  &memCostRepo{},
		users:     &fakeUsers{calendarID: "cal-1"},
	}
}

func (e *workerEnv) worker(t *testing.T) *SyncWorker {
	t.Helper()
	n, err := NewNormalizer("America/Los_Angeles")
	if err != nil {
		t.Fatalf("NewNormalizer: %v", err)
	}
	w := NewSyncWorker(SyncWorkerConfig{
		UserID:          "user-1",
		CalendarID:      e.users.calendarID,
		Mail:            e.mail,
		Calendar:        e.calendar,
		Extractor:       e.extractor,
		Normalizer:      n,
		ProcessedEmails: e.processed,
		CalendarEvents:  e.events,
		SyncCosts:       e.costRows,
		Users:           e.users,
		Tracker:         costs.NewTracker("gemini-2.5-flash"),
	})
	loc, _ := time.LoadLocation("America/Los_Angeles")
	return w.WithClock(func() time.Time {
		return time.Date(2026, 9, 15, 8, 0, 0, 0, loc)
	})
}

func message(id, subject string) *syncdomain.EmailMessage {
	return &syncdomain.EmailMessage{ID: id, Subject: subject, Sender: "sender@example.com"}
}

func futureEvent(title, start string) ai.ExtractedEvent {
	return ai.ExtractedEvent{Title: title, StartDatetime: start, Description: "d"}
}

var defaultOpts = SyncOptions{LookbackDays: 1, MaxEmails: 25}

// --- tests ---

func TestRunHappyPath(t *testing.T) {
	env := newEnv()
	env.mail.emails = []*syncdomain.EmailMessage{message("m1", "Dinner invite")}
	env.extractor.bySubject["Dinner invite"] = []ai.ExtractedEvent{
		futureEvent("Dinner", "2026-09-20T19:00:00"),
	}

	obs := &recordingObserver{}
	report := env.worker(t).Run(context.Background(), defaultOpts, obs)

	if report.EmailsScanned != 1 || report.EmailsProcessed != 1 || report.EventsAdded != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(report.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", report.Errors)
	}
	if len(env.calendar.inserted) != 1 || env.calendar.inserted[0] != "Dinner" {
		t.Fatalf("calendar writes = %v", env.calendar.inserted)
	}
	if len(env.processed.records) != 1 || env.processed.records[0].EventsCount != 1 {
		t.Fatalf("processed records = %+v", env.processed.records)
	}
	if got := env.processed.records[0].ProcessingStatus; got != syncdomain.ProcessingStatusSuccess {
		t.Errorf("processing status = %q, want success", got)
	}
	if !env.processed.records[0].EventCreated {
		t.Error("event_created flag not set")
	}
	if env.users.lastSync.IsZero() {
		t.Error("last sync time not stamped")
	}
	if len(env.costRows.rows) != 1 {
		t.Errorf("cost rows = %d, want 1", len(env.costRows.rows))
	}
	if report.Costs == nil || report.Costs.InputTokens != 100 {
		t.Errorf("cost summary = %+v", report.Costs)
	}

	wantStages := []string{"setup", "processing", "complete"}
	got := obs.stages()
	if len(got) != len(wantStages) {
		t.Fatalf("stages = %v, want %v", got, wantStages)
	}
	for i := range wantStages {
		if got[i] != wantStages[i] {
			t.Fatalf("stages = %v, want %v", got, wantStages)
		}
	}
}

func TestRunSecondRunIsIdempotent(t *testing.T) {
	env := newEnv()
	env.mail.emails = []*syncdomain.EmailMessage{message("m1", "Dinner invite")}
	env.extractor.bySubject["Dinner invite"] = []ai.ExtractedEvent{
		futureEvent("Dinner", "2026-09-20T19:00:00"),
	}

	env.worker(t).Run(context.Background(), defaultOpts, nil)
	second := env.worker(t).Run(context.Background(), defaultOpts, nil)

	if second.EmailsProcessed != 0 || second.EmailsSkipped != 1 {
		t.Fatalf("second run report = %+v", second)
	}
	if len(env.processed.records) != 1 {
		t.Fatalf("processed records after two runs = %d, want 1", len(env.processed.records))
	}
	if len(env.events.events) != 1 {
		t.Fatalf("calendar event rows after two runs = %d, want 1", len(env.events.events))
	}
}

func TestRunDedupAcrossMessagesInOneRun(t *testing.T) {
	env := newEnv()
	env.mail.emails = []*syncdomain.EmailMessage{
		message("m1", "Invite A"),
		message("m2", "Invite B"),
	}
	env.extractor.bySubject["Invite A"] = []ai.ExtractedEvent{futureEvent("Team Dinner", "2026-09-20T19:00:00")}
	// Same event, different casing and whitespace.
	env.extractor.bySubject["Invite B"] = []ai.ExtractedEvent{futureEvent("  team dinner ", "2026-09-20T19:00:00")}

	report := env.worker(t).Run(context.Background(), defaultOpts, nil)

	if report.EventsAdded != 1 {
		t.Fatalf("events added = %d, want 1", report.EventsAdded)
	}
	if report.DuplicatesSkipped != 1 {
		t.Fatalf("duplicates skipped = %d, want 1", report.DuplicatesSkipped)
	}
	if len(env.events.events) != 1 {
		t.Fatalf("calendar event rows = %d, want 1", len(env.events.events))
	}
}

func TestRunDedupAgainstPersistedLedger(t *testing.T) {
	env := newEnv()
	loc, _ := time.LoadLocation("America/Los_Angeles")
	env.events.events = append(env.events.events, &syncdomain.CalendarEvent{
		ID:            "existing",
		UserID:        "user-1",
		EventTitle:    "Team Dinner",
		StartDatetime: time.Date(2026, 9, 20, 19, 0, 0, 0, loc),
	})
	env.mail.emails = []*syncdomain.EmailMessage{message("m1", "Invite")}
	env.extractor.bySubject["Invite"] = []ai.ExtractedEvent{futureEvent("team dinner", "2026-09-20T19:00:00")}

	report := env.worker(t).Run(context.Background(), defaultOpts, nil)

	if report.EventsAdded != 0 || report.DuplicatesSkipped != 1 {
		t.Fatalf("report = %+v", report)
	}
}

func TestRunUserDeletedEventIsRecreated(t *testing.T) {
	env := newEnv()
	loc, _ := time.LoadLocation("America/Los_Angeles")
	env.events.events = append(env.events.events, &syncdomain.CalendarEvent{
		ID:            "existing",
		UserID:        "user-1",
		EventTitle:    "Team Dinner",
		StartDatetime: time.Date(2026, 9, 20, 19, 0, 0, 0, loc),
		UserDeleted:   true,
	})
	env.mail.emails = []*syncdomain.EmailMessage{message("m1", "Invite")}
	env.extractor.bySubject["Invite"] = []ai.ExtractedEvent{futureEvent("Team Dinner", "2026-09-20T19:00:00")}

	report := env.worker(t).Run(context.Background(), defaultOpts, nil)

	if report.EventsAdded != 1 || report.DuplicatesSkipped != 0 {
		t.Fatalf("user-deleted events must not block re-creation: %+v", report)
	}
}

func TestRunPastEventExcluded(t *testing.T) {
	env := newEnv()
	env.mail.emails = []*syncdomain.EmailMessage{message("m1", "Old news")}
	env.extractor.bySubject["Old news"] = []ai.ExtractedEvent{
		futureEvent("Last week's gala", "2026-09-08T19:00:00"),
		futureEvent("Upcoming gala", "2026-09-22T19:00:00"),
	}

	report := env.worker(t).Run(context.Background(), defaultOpts, nil)

	if report.EventsExtracted != 1 {
		t.Fatalf("events extracted = %d, want 1 (past event excluded)", report.EventsExtracted)
	}
	if report.EventsAdded != 1 || env.calendar.inserted[0] != "Upcoming gala" {
		t.Fatalf("inserted = %v", env.calendar.inserted)
	}
	if len(report.Errors) != 0 {
		t.Fatalf("past events are skips, not errors: %v", report.Errors)
	}
}

func TestRunOverflowCapping(t *testing.T) {
	env := newEnv()
	env.mail.emails = []*syncdomain.EmailMessage{message("m1", "Season schedule")}

	var raws []ai.ExtractedEvent
	for i := 0; i < 75; i++ {
		raws = append(raws, futureEvent(fmt.Sprintf("Fixture %d", i), fmt.Sprintf("2026-10-01T%02d:%02d:00", i/60, i%60)))
	}
	env.extractor.bySubject["Season schedule"] = raws

	report := env.worker(t).Run(context.Background(), defaultOpts, nil)

	if report.EventsAdded != 60 {
		t.Fatalf("events added = %d, want 60", report.EventsAdded)
	}
	if len(report.LargeEmails) != 1 {
		t.Fatalf("large emails = %+v", report.LargeEmails)
	}
	entry := report.LargeEmails[0]
	if entry.Total != 75 || entry.CappedAt != 60 {
		t.Fatalf("overflow entry = %+v, want total=75 capped_at=60", entry)
	}
	if len(report.Errors) != 0 {
		t.Fatalf("overflow is never an error: %v", report.Errors)
	}
}

func TestRunMissingStartRejectedSilently(t *testing.T) {
	env := newEnv()
	env.mail.emails = []*syncdomain.EmailMessage{message("m1", "Vague invite")}
	env.extractor.bySubject["Vague invite"] = []ai.ExtractedEvent{
		{Title: "Sometime party", StartDatetime: ""},
	}

	report := env.worker(t).Run(context.Background(), defaultOpts, nil)

	if report.EventsAdded != 0 || len(env.calendar.inserted) != 0 {
		t.Fatalf("no event should be written: %+v", report)
	}
	if len(report.Errors) != 0 {
		t.Fatalf("missing start is a skip, not an error: %v", report.Errors)
	}
	if len(env.processed.records) != 1 {
		t.Fatal("message must still be recorded as processed")
	}
}

func TestRunPartialFailureIsolation(t *testing.T) {
	env := newEnv()
	env.mail.emails = []*syncdomain.EmailMessage{message("m1", "Three events")}
	env.extractor.bySubject["Three events"] = []ai.ExtractedEvent{
		futureEvent("First", "2026-09-20T09:00:00"),
		futureEvent("Second", "2026-09-20T11:00:00"),
		futureEvent("Third", "2026-09-20T13:00:00"),
	}
	env.calendar.failTitles = map[string]bool{"Second": true}

	report := env.worker(t).Run(context.Background(), defaultOpts, nil)

	if report.EventsAdded != 2 {
		t.Fatalf("events added = %d, want 2", report.EventsAdded)
	}
	if len(env.processed.records) != 1 || env.processed.records[0].EventsCount != 2 {
		t.Fatalf("processed record = %+v", env.processed.records)
	}
	record := env.processed.records[0]
	if record.ProcessingStatus != syncdomain.ProcessingStatusPartial {
		t.Errorf("processing status = %q, want partial", record.ProcessingStatus)
	}
	if !strings.Contains(record.ErrorMessage, "Second") {
		t.Errorf("error message = %q, want the failed event named", record.ErrorMessage)
	}
	if len(report.Errors) != 1 || !strings.Contains(report.Errors[0], "Second") {
		t.Fatalf("errors = %v, want exactly one naming the failed event", report.Errors)
	}
}

func TestRunNoEmailsIsSuccess(t *testing.T) {
	env := newEnv()
	obs := &recordingObserver{}

	report := env.worker(t).Run(context.Background(), defaultOpts, obs)

	if report.EmailsScanned != 0 || len(report.Errors) != 0 {
		t.Fatalf("report = %+v", report)
	}
	last := obs.events[len(obs.events)-1]
	if last.Stage != "complete" {
		t.Fatalf("final stage = %q, want complete", last.Stage)
	}
	if len(env.costRows.rows) != 1 {
		t.Error("cost ledger should still be flushed on an empty run")
	}
}

func TestRunCalendarBootstrapFailureIsFatal(t *testing.T) {
	env := newEnv()
	env.calendar.ensureErr = errors.New("insufficient permissions")
	env.mail.emails = []*syncdomain.EmailMessage{message("m1", "Dinner invite")}
	obs := &recordingObserver{}

	report := env.worker(t).Run(context.Background(), defaultOpts, obs)

	if len(report.Errors) != 1 {
		t.Fatalf("errors = %v, want one fatal entry", report.Errors)
	}
	if report.EmailsProcessed != 0 || len(env.processed.records) != 0 {
		t.Fatal("no message may be processed after a fatal setup failure")
	}
	last := obs.events[len(obs.events)-1]
	if last.Stage != "error" {
		t.Fatalf("final stage = %q, want error", last.Stage)
	}
	if report.Costs == nil {
		t.Error("partial report must still carry a cost summary")
	}
}

func TestRunMailRetrievalFailureIsFatal(t *testing.T) {
	env := newEnv()
	env.mail.err = errors.New("connection reset")

	report := env.worker(t).Run(context.Background(), defaultOpts, nil)

	if len(report.Errors) != 1 || !strings.Contains(report.Errors[0], "connection reset") {
		t.Fatalf("errors = %v", report.Errors)
	}
}

func TestRunRecreatedCalendarIDIsSaved(t *testing.T) {
	env := newEnv()
	env.calendar.calendarID = "cal-new"
	env.mail.emails = nil

	env.worker(t).Run(context.Background(), defaultOpts, nil)

	if env.users.calendarID != "cal-new" {
		t.Fatalf("saved calendar id = %q, want cal-new", env.users.calendarID)
	}
}

func TestTestSingleEmailWritesNothing(t *testing.T) {
	env := newEnv()
	env.mail.emails = []*syncdomain.EmailMessage{
		message("m1", "Lunch meetup"),
		message("m2", "Quarterly review"),
	}
	env.extractor.bySubject["Quarterly review"] = []ai.ExtractedEvent{
		futureEvent("Review", "2026-09-25T10:00:00"),
	}

	events, err := env.worker(t).TestSingleEmail(context.Background(), defaultOpts, "quarterly")
	if err != nil {
		t.Fatalf("TestSingleEmail: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Review" {
		t.Fatalf("events = %+v", events)
	}
	if len(env.processed.records) != 0 || len(env.events.events) != 0 || len(env.calendar.inserted) != 0 {
		t.Fatal("diagnostic extraction must not write anything")
	}
}

func TestTestSingleEmailNoMatch(t *testing.T) {
	env := newEnv()
	env.mail.emails = []*syncdomain.EmailMessage{message("m1", "Lunch meetup")}

	if _, err := env.worker(t).TestSingleEmail(context.Background(), defaultOpts, "quarterly"); err == nil {
		t.Fatal("expected an error for an unmatched subject")
	}
}
