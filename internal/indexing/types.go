package indexing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Action is the notification type sent to the indexing endpoint.
type Action string

// Supported notification types.
const (
	ActionUpdated Action = "URL_UPDATED"
	ActionDeleted Action = "URL_DELETED"
)

// Valid reports whether a is one of the supported notification types.
func (a Action) Valid() bool {
	return a == ActionUpdated || a == ActionDeleted
}

// StatusCode is the HTTP status of a submission attempt. StatusError marks
// attempts that never produced an HTTP response.
type StatusCode int

// StatusError is recorded when the request failed at the transport level.
const StatusError StatusCode = 0

const statusErrorText = "ERROR"

// String renders the code as the integer, or "ERROR" for transport failures.
func (c StatusCode) String() string {
	if c == StatusError {
		return statusErrorText
	}
	return strconv.Itoa(int(c))
}

// MarshalJSON encodes the integer code, or the string "ERROR".
func (c StatusCode) MarshalJSON() ([]byte, error) {
	if c == StatusError {
		return json.Marshal(statusErrorText)
	}
	return json.Marshal(int(c))
}

// UnmarshalJSON accepts either an integer code or the string "ERROR".
func (c *StatusCode) UnmarshalJSON(data []byte) error {
	var code int
	if err := json.Unmarshal(data, &code); err == nil {
		*c = StatusCode(code)
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("decode status code: %w", err)
	}
	if text != statusErrorText {
		return fmt.Errorf("unknown status code %q", text)
	}
	*c = StatusError
	return nil
}

// Result is the immutable record of one submission attempt.
type Result struct {
	RunID      string     `json:"run_id,omitempty"`
	URL        string     `json:"url"`
	StatusCode StatusCode `json:"status_code"`
	Response   any        `json:"response"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Success reports whether the endpoint accepted the notification.
func (r Result) Success() bool {
	return r.StatusCode == http.StatusOK
}

// QuotaState is the per-day count of submission calls.
type QuotaState struct {
	Date         string `json:"date"`
	RequestsUsed int    `json:"requests_used"`
}

// DateLayout formats QuotaState.Date.
const DateLayout = "2006-01-02"

// DailySummary is the per-run report. Successful+Failed always equals TotalURLs.
type DailySummary struct {
	RunID       string    `json:"run_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Domain      string    `json:"domain"`
	TotalURLs   int       `json:"total_urls"`
	Successful  int       `json:"successful_submissions"`
	Failed      int       `json:"failed_submissions"`
	SuccessRate string    `json:"success_rate"`
}
