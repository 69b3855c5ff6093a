package usecase

import "fmt"

// OverflowEntry records a message whose extraction output hit the per-email
// event cap.
type OverflowEntry struct {
	EmailID  string `json:"email_id"`
	Subject  string `json:"subject"`
	Total    int    `json:"total"`
	CappedAt int    `json:"capped_at"`
}

// CostSummary is the token and API-call spend of one run.
type CostSummary struct {
	Model            string  `json:"model"`
	InputTokens      int     `json:"input_tokens"`
	OutputTokens     int     `json:"output_tokens"`
	GmailAPICalls    int     `json:"gmail_api_calls"`
	CalendarAPICalls int     `json:"calendar_api_calls"`
	TotalCost        float64 `json:"total_cost"`
}

// SyncReport aggregates the outcome of one sync run. It is built through the
// accumulator methods below and returned to the caller once, partial when the
// run dies early.
type SyncReport struct {
	EmailsScanned     int             `json:"emails_scanned"`
	EmailsProcessed   int             `json:"emails_processed"`
	EmailsSkipped     int             `json:"emails_skipped"`
	EventsExtracted   int             `json:"events_extracted"`
	EventsAdded       int             `json:"events_added"`
	DuplicatesSkipped int             `json:"duplicates_skipped"`
	LargeEmails       []OverflowEntry `json:"large_emails"`
	Errors            []string        `json:"errors"`
	Costs             *CostSummary    `json:"costs"`
}

func NewSyncReport() *SyncReport {
	return &SyncReport{
		LargeEmails: []OverflowEntry{},
		Errors:      []string{},
	}
}

func (r *SyncReport) MarkScanned(n int)   { r.EmailsScanned = n }
func (r *SyncReport) MarkProcessed()      { r.EmailsProcessed++ }
func (r *SyncReport) MarkSkipped()        { r.EmailsSkipped++ }
func (r *SyncReport) MarkExtracted(n int) { r.EventsExtracted += n }
func (r *SyncReport) MarkAdded()          { r.EventsAdded++ }
func (r *SyncReport) MarkDuplicate()      { r.DuplicatesSkipped++ }

// AddError records a recoverable per-item failure.
func (r *SyncReport) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// AddOverflow records that a message exceeded the per-email event cap.
func (r *SyncReport) AddOverflow(emailID, subject string, total, cappedAt int) {
	r.LargeEmails = append(r.LargeEmails, OverflowEntry{
		EmailID:  emailID,
		Subject:  subject,
		Total:    total,
		CappedAt: cappedAt,
	})
}
