package attendance

import (
	"fmt"
	"time"
)

// DateKeyLayout is the fixed-width key attendance lists are filed under.
const DateKeyLayout = "2006-01-02"

// DateKey returns the attendance key for t in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// Status is the attendance mark of a single student.
type Status string

const (
	StatusPresent         Status = "present"
	StatusAbsentUnexcused Status = "absent_unexcused"
	StatusAbsentExcused   Status = "absent_excused"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsentUnexcused, StatusAbsentExcused:
		return true
	}
	return false
}

// Next returns the status that follows s in the toggle cycle
// present -> absent_unexcused -> absent_excused -> present.
// Unknown values restart the cycle at present.
func (s Status) Next() Status {
	switch s {
	case StatusPresent:
		return StatusAbsentUnexcused
	case StatusAbsentUnexcused:
		return StatusAbsentExcused
	default:
		return StatusPresent
	}
}

// Period is the part of the day a record covers.
type Period string

const (
	Period1      Period = "1"
	Period2      Period = "2"
	Period3      Period = "3"
	Period4      Period = "4"
	PeriodAllDay Period = "all"
)

// Periods lists every selectable period in display order.
var Periods = []Period{Period1, Period2, Period3, Period4, PeriodAllDay}

// ParsePeriod validates a raw period value.
func ParsePeriod(raw string) (Period, error) {
	for _, p := range Periods {
		if string(p) == raw {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: period %q", ErrInvalidInput, raw)
}

// Label returns the human label of the period.
func (p Period) Label() string {
	if p == PeriodAllDay {
		return "All day"
	}
	return fmt.Sprintf("Period %s", string(p))
}

// Group is a named roster of students.
type Group struct {
	Name     string   `json:"name,omitempty" validate:"required,max=128"`
	Code     string   `json:"code" validate:"max=32"`
	Students []string `json:"students" validate:"dive,required"`
}

// Recorder identifies the operator that committed a record.
type Recorder struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle,omitempty"`
}

// Label returns the best available name for the recorder.
func (r Recorder) Label() string {
	switch {
	case r.Handle != "":
		return "@" + r.Handle
	case r.DisplayName != "":
		return r.DisplayName
	default:
		return fmt.Sprintf("%d", r.ID)
	}
}

// Record is one committed attendance sheet. Records are never edited.
type Record struct {
	ID              string            `json:"id,omitempty"`
	Group           string            `json:"group"`
	Period          Period            `json:"period"`
	Present         []string          `json:"present"`
	AbsentUnexcused []string          `json:"absent_unexcused"`
	AbsentExcused   []string          `json:"absent_excused"`
	StatusMap       map[string]Status `json:"status_map"`
	RecordedBy      Recorder          `json:"recorded_by"`
	RecordedAt      time.Time         `json:"recorded_at"`
}

// Absent returns the number of students marked absent either way.
func (r Record) Absent() int {
	return len(r.AbsentUnexcused) + len(r.AbsentExcused)
}

// Settings holds the single mutable settings document.
type Settings struct {
	LogChatID *int64 `json:"log_chat_id"`
}

// Meta carries bookkeeping about the document itself.
type Meta struct {
	Created time.Time `json:"created"`
}

// Document is the persisted root.
type Document struct {
	Groups     map[string]Group    `json:"groups"`
	Attendance map[string][]Record `json:"attendance"`
	Settings   Settings            `json:"settings"`
	Meta       Meta                `json:"meta"`
}

// NewDocument returns an empty document stamped with created.
func NewDocument(created time.Time) *Document {
	return &Document{
		Groups:     map[string]Group{},
		Attendance: map[string][]Record{},
		Meta:       Meta{Created: created},
	}
}

// Stamped reports whether the document carries its creation time. Stores
// always write one, so a snapshot without it is not a document.
func (d *Document) Stamped() bool {
	return d != nil && !d.Meta.Created.IsZero()
}

// Normalize fills defaults for fields missing from older documents.
func (d *Document) Normalize() {
	if d.Groups == nil {
		d.Groups = map[string]Group{}
	}
	if d.Attendance == nil {
		d.Attendance = map[string][]Record{}
	}
	for name, g := range d.Groups {
		if g.Name != name {
			g.Name = name
			d.Groups[name] = g
		}
		if g.Students == nil {
			g.Students = []string{}
			d.Groups[name] = g
		}
	}
}

// Partition splits a status map into present and absent lists in roster order.
// Students missing from the map count as present.
func Partition(students []string, statuses map[string]Status) (present, unexcused, excused []string) {
	present = []string{}
	unexcused = []string{}
	excused = []string{}
	for _, s := range students {
		switch statuses[s] {
		case StatusAbsentUnexcused:
			unexcused = append(unexcused, s)
		case StatusAbsentExcused:
			excused = append(excused, s)
		default:
			present = append(present, s)
		}
	}
	return present, unexcused, excused
}
