package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/domain/report"
)

// Machine holds one session per operator and applies transitions to them.
//
// The map is safe for concurrent use across operators. Within one operator
// the last write wins; nothing queues or orders rapid double submissions.
// Sessions never expire: they live until completed, cancelled or replaced.
type Machine struct {
	mu       sync.Mutex
	sessions map[int64]Session
	revision uint64
	now      func() time.Time
	logger   *slog.Logger
}

// NewMachine creates an empty machine.
func NewMachine(logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Machine{
		sessions: make(map[int64]Session),
		now:      time.Now,
		logger:   logger,
	}
}

// Get returns a copy of the operator's session.
func (m *Machine) Get(operatorID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[operatorID]
	if !ok {
		return Session{}, false
	}
	return s.clone(), true
}

// Len returns the number of live sessions.
func (m *Machine) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartAttendance replaces any session of the operator with a new
// attendance entry for group.
func (m *Machine) StartAttendance(operatorID int64, group attendance.Group) Session {
	return m.replace(NewAttendance(operatorID, group))
}

// StartReport replaces any session of the operator with a new report flow.
func (m *Machine) StartReport(operatorID int64, mode report.Mode) Session {
	return m.replace(NewReport(operatorID, mode))
}

// Toggle cycles one student's mark.
func (m *Machine) Toggle(operatorID int64, student string) (Session, error) {
	return m.apply(operatorID, func(s Session) (Session, error) { return s.Toggle(student) })
}

// Bulk sets every student's mark.
func (m *Machine) Bulk(operatorID int64, status attendance.Status) (Session, error) {
	return m.apply(operatorID, func(s Session) (Session, error) { return s.Bulk(status) })
}

// ConfirmStudents moves to period selection.
func (m *Machine) ConfirmStudents(operatorID int64) (Session, error) {
	return m.apply(operatorID, Session.ConfirmStudents)
}

// BackToStudents moves from period selection back to the roster.
func (m *Machine) BackToStudents(operatorID int64) (Session, error) {
	return m.apply(operatorID, Session.BackToStudents)
}

// SelectPeriod moves to the preview.
func (m *Machine) SelectPeriod(operatorID int64, p attendance.Period) (Session, error) {
	return m.apply(operatorID, func(s Session) (Session, error) { return s.SelectPeriod(p) })
}

// BackToPeriods moves from the preview back to period selection.
func (m *Machine) BackToPeriods(operatorID int64) (Session, error) {
	return m.apply(operatorID, Session.BackToPeriods)
}

// CancelPreview moves from the preview back to the roster.
func (m *Machine) CancelPreview(operatorID int64) (Session, error) {
	return m.apply(operatorID, Session.CancelPreview)
}

// FinalConfirm returns the draft to commit. The session stays in place until
// Complete is called so a failed commit can be retried.
func (m *Machine) FinalConfirm(operatorID int64) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[operatorID]
	if !ok {
		return Draft{}, ErrNoActiveProcess
	}
	return s.Draft()
}

// Complete removes the operator's session if it is still the one the draft
// was taken from. It reports whether a session was removed.
func (m *Machine) Complete(d Draft) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[d.OperatorID]
	if !ok || s.Revision != d.Revision {
		return false
	}
	delete(m.sessions, d.OperatorID)
	return true
}

// SelectReportGroup picks the report group. A non-nil request means the
// flow is complete and the session has been cleared.
func (m *Machine) SelectReportGroup(operatorID int64, group string) (Session, *report.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[operatorID]
	if !ok {
		return Session{}, nil, ErrNoActiveProcess
	}
	next, req, err := s.SelectReportGroup(group)
	if err != nil {
		return s.clone(), nil, err
	}
	if req != nil {
		delete(m.sessions, operatorID)
		return next.clone(), req, nil
	}
	return m.storeLocked(next), nil, nil
}

// SelectMonth completes a monthly report and clears the session.
func (m *Machine) SelectMonth(operatorID int64, month time.Month) (*report.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[operatorID]
	if !ok {
		return nil, ErrNoActiveProcess
	}
	req, err := s.SelectMonth(month)
	if err != nil {
		return nil, err
	}
	delete(m.sessions, operatorID)
	return req, nil
}

// Cancel drops the operator's session and reports whether one existed.
func (m *Machine) Cancel(operatorID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[operatorID]
	delete(m.sessions, operatorID)
	return ok
}

func (m *Machine) replace(s Session) Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.sessions[s.OperatorID]; ok {
		m.logger.Debug("session replaced", "operator_id", s.OperatorID, "flow", prev.Flow, "stage", prev.Stage)
	}
	return m.storeLocked(s)
}

func (m *Machine) apply(operatorID int64, fn func(Session) (Session, error)) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[operatorID]
	if !ok {
		return Session{}, ErrNoActiveProcess
	}
	next, err := fn(s)
	if err != nil {
		return s.clone(), err
	}
	return m.storeLocked(next), nil
}

func (m *Machine) storeLocked(s Session) Session {
	m.revision++
	s.Revision = m.revision
	s.UpdatedAt = m.now()
	m.sessions[s.OperatorID] = s
	return s.clone()
}
