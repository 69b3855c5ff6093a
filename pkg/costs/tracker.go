package costs

// Per-1K-token pricing for the models extraction can run against.
// Gmail and Calendar API calls are free at this usage level.
type modelPricing struct {
	input  float64
	output float64
}

var pricing = map[string]modelPricing{
	"gemini-2.5-flash": {input: 0.0003, output: 0.0025},
	"gemini-2.5-pro":   {input: 0.00125, output: 0.01},
	"gemini-2.0-flash": {input: 0.0001, output: 0.0004},
}

var defaultPricing = pricing["gemini-2.5-flash"]

// Tracker accumulates the token and API-call spend of one sync run.
type Tracker struct {
	model         string
	inputTokens   int
	outputTokens  int
	gmailCalls    int
	calendarCalls int
}

func NewTracker(model string) *Tracker {
	return &Tracker{model: model}
}

// AddUsage records the token usage of one extraction call.
func (t *Tracker) AddUsage(inputTokens, outputTokens int) {
	t.inputTokens += inputTokens
	t.outputTokens += outputTokens
}

func (t *Tracker) AddGmailCall()    { t.gmailCalls++ }
func (t *Tracker) AddCalendarCall() { t.calendarCalls++ }

func (t *Tracker) Model() string      { return t.model }
func (t *Tracker) InputTokens() int   { return t.inputTokens }
func (t *Tracker) OutputTokens() int  { return t.outputTokens }
func (t *Tracker) GmailCalls() int    { return t.gmailCalls }
func (t *Tracker) CalendarCalls() int { return t.calendarCalls }

// Cost estimates the dollar cost of the tokens recorded so far.
func (t *Tracker) Cost() float64 {
	p, ok := pricing[t.model]
	if !ok {
		p = defaultPricing
	}
	return float64(t.inputTokens)/1000*p.input + float64(t.outputTokens)/1000*p.output
}
