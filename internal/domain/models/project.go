package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"projectdesk/internal/config"
)

// Project is the backend-owned project record. The client only caches it.
type Project struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id,omitempty"`
	Name        string    `json:"name"`
	Department  string    `json:"department"`
	Client      string    `json:"client"`
	Deadline    Date      `json:"deadline"`
	Description string    `json:"description"`
	CreatedAt   Timestamp `json:"date_created"`
	UpdatedAt   Timestamp `json:"date_last_updated"`
}

// Fields returns the editable part of the project, e.g. to prefill a form.
func (p *Project) Fields() ProjectFields {
	return ProjectFields{
		Name:        p.Name,
		Department:  p.Department,
		Client:      p.Client,
		Deadline:    p.Deadline,
		Description: p.Description,
	}
}

// ProjectFields is the create/update payload. Client and Description are optional.
type ProjectFields struct {
	Name        string `json:"name"`
	Department  string `json:"department"`
	Client      string `json:"client"`
	Deadline    Date   `json:"deadline"`
	Description string `json:"description"`
}

// Date is a calendar date without time of day, encoded as "2006-01-02".
// Deadlines the backend holds as free text are kept verbatim in Raw.
type Date struct {
	time.Time
	Raw string
}

// Set reports whether the date holds either a parsed value or free text.
func (d Date) Set() bool {
	return !d.IsZero() || d.Raw != ""
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(config.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{Time: t}, nil
}

// MustDate is ParseDate for literals known to be valid.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	if d.IsZero() {
		return d.Raw
	}
	return d.Format(config.DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	// The backend stores deadlines as free text; keep the date part of datetimes
	datePart := s
	if len(datePart) > len(config.DateLayout) {
		datePart = datePart[:len(config.DateLayout)]
	}
	parsed, err := ParseDate(datePart)
	if err != nil {
		*d = Date{Raw: s}
		return nil
	}
	*d = parsed
	return nil
}

// Timestamp accepts both RFC 3339 and the zone-less ISO datetimes the backend
// emits for naive UTC values.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = Timestamp{Time: parsed}
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}
