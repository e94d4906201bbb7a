package schemas

import (
	"time"
)

// -- Attempt Outcome Schemas --

// Result is the final verdict recorded for a URL.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailed  Result = "failed"
)

// Reason codes reported by a signup attempt.
const (
	ReasonConfigSelectors = "submitted_via_config_selectors"
	ReasonInputSubmit     = "submitted_via_input_submit"
	ReasonConfirmed       = "submitted_and_confirmed"
	ReasonNoEmailInput    = "no_email_input_found"
	ReasonNoConfirmation  = "submitted_but_no_confirmation"
	ReasonNavPrefix       = "nav_error: "
	ReasonExceptionPrefix = "exception: "
)

// AttemptResult is what one signup attempt against one URL produced.
type AttemptResult struct {
	Success bool
	Reason  string
}

// Outcome is the single log row written for a URL at the end of its retries.
type Outcome struct {
	URL       string
	Email     string
	Result    Result
	Reason    string
	Attempts  int
	Timestamp time.Time
}

// Summary aggregates a finished batch run.
type Summary struct {
	RunID      string
	Total      int
	Succeeded  int
	Failed     int
	FailedURLs []string
	Outcomes   []Outcome
	StartedAt  time.Time
	FinishedAt time.Time
}
