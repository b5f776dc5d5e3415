package retry

import (
	"encoding/json"
	"time"
)

// Attempt records one failed attempt before dead-lettering.
type Attempt struct {
	Attempt int       `json:"attempt"`
	At      time.Time `json:"attemptedAt"`
	Error   string    `json:"error"`
}

// History is the ordered list of failed attempts for a job.
type History []Attempt

// Record appends an attempt to the history.
func (h History) Record(attempt int, at time.Time, errMsg string) History {
	return append(h, Attempt{Attempt: attempt, At: at, Error: errMsg})
}

// Encode serializes the history to the text blob stored on a
// dead-letter entry. An empty history encodes to the empty string.
func (h History) Encode() string {
	if len(h) == 0 {
		return ""
	}
	data, err := json.Marshal(h)
	if err != nil {
		// []Attempt cannot fail to marshal; keep the entry writable anyway.
		return ""
	}
	return string(data)
}

// DecodeHistory parses a stored history blob. An empty blob yields an
// empty history.
func DecodeHistory(blob string) (History, error) {
	if blob == "" {
		return nil, nil
	}
	var h History
	if err := json.Unmarshal([]byte(blob), &h); err != nil {
		return nil, err
	}
	return h, nil
}
