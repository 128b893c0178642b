package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// PageNextSong marks a log event that represents a song being played.
const PageNextSong = "NextSong"

// LogEvent mirrors one line of a log_data file. Nullable JSON strings decode
// to "" and a missing length stays nil.
type LogEvent struct {
	Artist        string     `json:"artist"`
	Auth          string     `json:"auth"`
	FirstName     string     `json:"firstName"`
	Gender        string     `json:"gender"`
	ItemInSession int        `json:"itemInSession"`
	LastName      string     `json:"lastName"`
	Length        *float64   `json:"length"`
	Level         string     `json:"level"`
	Location      string     `json:"location"`
	Method        string     `json:"method"`
	Page          string     `json:"page"`
	Song          string     `json:"song"`
	Status        int        `json:"status"`
	Ts            int64      `json:"ts"`
	UserAgent     string     `json:"userAgent"`
	UserID        FlexInt    `json:"userId"`
	SessionID     FlexString `json:"sessionId"`
}

// FlexInt decodes a JSON number or a numeric JSON string. The empty string
// and null decode to zero; logged-out events carry userId "".
type FlexInt int64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		b = []byte(s)
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		// Some exports write integral ids as floats, e.g. 39.0.
		fl, ferr := strconv.ParseFloat(string(b), 64)
		if ferr != nil || fl != float64(int64(fl)) {
			return fmt.Errorf("flexint: invalid integer %q", string(b))
		}
		n = int64(fl)
	}
	*f = FlexInt(n)
	return nil
}

// FlexString decodes a JSON string or number into its textual form.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flexstring: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}
