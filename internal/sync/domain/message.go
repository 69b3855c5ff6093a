package domain

// EmailMessage is a mail provider's view of one inbox message, reduced to
// the fields extraction cares about.
type EmailMessage struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Date    string `json:"date"`
	Snippet string `json:"snippet"`
	Body    string `json:"body"`
}
