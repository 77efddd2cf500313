package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rpggio/rollcall/internal/repository"
)

// Service implements group, settings and attendance operations as
// read-modify-write cycles over the whole document.
//
// There is no lock around a cycle: two writers racing on the same document
// can lose an update. Callers that need stronger guarantees must serialize.
type Service struct {
	store    DocumentStore
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new attendance service.
func NewService(store DocumentStore, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		store:    store,
		logger:   logger,
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock reading.
func (s *Service) Now() time.Time {
	return s.now()
}

// Groups returns all groups sorted by name.
func (s *Service) Groups(ctx context.Context) ([]Group, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	groups := make([]Group, 0, len(doc.Groups))
	for _, g := range doc.Groups {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

// Group returns a single group by name.
func (s *Service) Group(ctx context.Context, name string) (*Group, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	g, ok := doc.Groups[name]
	if !ok {
		return nil, ErrGroupNotFound
	}
	return &g, nil
}

// AddGroup stores g, replacing any group with the same name.
func (s *Service) AddGroup(ctx context.Context, g Group) error {
	if err := s.ValidateGroup(g); err != nil {
		return err
	}
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	doc.Groups[g.Name] = cloneGroup(g)
	if err := s.save(ctx, doc); err != nil {
		return err
	}
	s.logger.Info("group added", "group", g.Name, "students", len(g.Students))
	return nil
}

// UpdateGroupRequest carries optional replacement fields.
type UpdateGroupRequest struct {
	Students []string
	Code     *string
}

// UpdateGroup replaces the given fields, creating the group when missing.
func (s *Service) UpdateGroup(ctx context.Context, name string, req UpdateGroupRequest) error {
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	g, ok := doc.Groups[name]
	if !ok {
		g = Group{Name: name, Students: []string{}}
	}
	if req.Students != nil {
		g.Students = append([]string(nil), req.Students...)
	}
	if req.Code != nil {
		g.Code = *req.Code
	}
	if err := s.ValidateGroup(g); err != nil {
		return err
	}
	doc.Groups[name] = g
	if err := s.save(ctx, doc); err != nil {
		return err
	}
	s.logger.Info("group updated", "group", name)
	return nil
}

// DeleteGroup removes a group. Recorded attendance for it is kept.
func (s *Service) DeleteGroup(ctx context.Context, name string) error {
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := doc.Groups[name]; !ok {
		return ErrGroupNotFound
	}
	delete(doc.Groups, name)
	if err := s.save(ctx, doc); err != nil {
		return err
	}
	s.logger.Info("group deleted", "group", name)
	return nil
}

// EnsureGroups adds every seed group that is not stored yet and returns the
// names it added. Existing groups are left alone.
func (s *Service) EnsureGroups(ctx context.Context, seeds []Group) ([]string, error) {
	for _, g := range seeds {
		if err := s.ValidateGroup(g); err != nil {
			return nil, fmt.Errorf("seed group %q: %w", g.Name, err)
		}
	}
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	var added []string
	for _, g := range seeds {
		if _, ok := doc.Groups[g.Name]; ok {
			continue
		}
		doc.Groups[g.Name] = cloneGroup(g)
		added = append(added, g.Name)
	}
	if len(added) == 0 {
		return nil, nil
	}
	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}
	s.logger.Info("seed groups added", "groups", added)
	return added, nil
}

// SampleGroups returns the demo rosters created by AddSampleGroups.
func SampleGroups() []Group {
	a := make([]string, 0, 20)
	for i := 1; i <= 20; i++ {
		a = append(a, fmt.Sprintf("Demo Student %d", i))
	}
	b := make([]string, 0, 15)
	for i := 1; i <= 15; i++ {
		b = append(b, fmt.Sprintf("DemoB Student %d", i))
	}
	return []Group{
		{Name: "Demo Group A", Code: "1111", Students: a},
		{Name: "Demo Group B", Code: "2222", Students: b},
	}
}

// AddSampleGroups stores the demo groups, overwriting earlier copies.
func (s *Service) AddSampleGroups(ctx context.Context) error {
	for _, g := range SampleGroups() {
		if err := s.AddGroup(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

// ValidateGroup checks field constraints and student uniqueness.
func (s *Service) ValidateGroup(g Group) error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("%w: group name is required", ErrInvalidInput)
	}
	if err := s.validate.Struct(g); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	seen := make(map[string]struct{}, len(g.Students))
	for _, st := range g.Students {
		if strings.TrimSpace(st) == "" {
			return fmt.Errorf("%w: blank student name", ErrInvalidInput)
		}
		if _, dup := seen[st]; dup {
			return fmt.Errorf("%w: duplicate student %q", ErrInvalidInput, st)
		}
		seen[st] = struct{}{}
	}
	return nil
}

// Settings returns the settings document.
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return Settings{}, err
	}
	return doc.Settings, nil
}

// SetLogChat sets the chat that receives attendance summaries.
func (s *Service) SetLogChat(ctx context.Context, chatID int64) error {
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	doc.Settings.LogChatID = &chatID
	if err := s.save(ctx, doc); err != nil {
		return err
	}
	s.logger.Info("log chat set", "chat_id", chatID)
	return nil
}

// ClearLogChat removes the summary destination.
func (s *Service) ClearLogChat(ctx context.Context) error {
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	doc.Settings.LogChatID = nil
	if err := s.save(ctx, doc); err != nil {
		return err
	}
	s.logger.Info("log chat cleared")
	return nil
}

// RecordRequest describes one attendance sheet to commit.
type RecordRequest struct {
	Group      string
	Period     Period
	Students   []string
	Statuses   map[string]Status
	RecordedBy Recorder
}

// Record appends a new record under today's date key and returns it.
func (s *Service) Record(ctx context.Context, req RecordRequest) (*Record, error) {
	if strings.TrimSpace(req.Group) == "" {
		return nil, fmt.Errorf("%w: group is required", ErrInvalidInput)
	}
	if _, err := ParsePeriod(string(req.Period)); err != nil {
		return nil, err
	}

	now := s.now()
	present, unexcused, excused := Partition(req.Students, req.Statuses)
	statusMap := make(map[string]Status, len(req.Students))
	for _, st := range req.Students {
		status := req.Statuses[st]
		if !status.Valid() {
			status = StatusPresent
		}
		statusMap[st] = status
	}

	rec := Record{
		ID:              uuid.NewString(),
		Group:           req.Group,
		Period:          req.Period,
		Present:         present,
		AbsentUnexcused: unexcused,
		AbsentExcused:   excused,
		StatusMap:       statusMap,
		RecordedBy:      req.RecordedBy,
		RecordedAt:      now,
	}

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	key := DateKey(now)
	doc.Attendance[key] = append(doc.Attendance[key], rec)
	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("attendance saved",
		"group", rec.Group,
		"date", key,
		"period", rec.Period,
		"recorded_by", rec.RecordedBy.ID,
	)
	return &rec, nil
}

// RecordsOn returns the records filed under a date key in append order.
func (s *Service) RecordsOn(ctx context.Context, dateKey string) ([]Record, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return append([]Record(nil), doc.Attendance[dateKey]...), nil
}

// RecordsInRange returns records for every day from start to end inclusive,
// walking day by day. Days without records contribute nothing.
func (s *Service) RecordsInRange(ctx context.Context, start, end time.Time) ([]Record, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []Record
	day := startOfDay(start)
	last := startOfDay(end)
	for !day.After(last) {
		out = append(out, doc.Attendance[DateKey(day)]...)
		day = day.AddDate(0, 0, 1)
	}
	return out, nil
}

// Backup snapshots the stored document.
func (s *Service) Backup(ctx context.Context) (string, error) {
	name, err := s.store.Backup(ctx)
	if err != nil {
		return "", fmt.Errorf("creating backup: %w", err)
	}
	s.logger.Info("backup created", "name", name)
	return name, nil
}

// Restore replaces the document with a named snapshot.
func (s *Service) Restore(ctx context.Context, name string) error {
	if err := s.store.Restore(ctx, name); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrBackupNotFound
		case errors.Is(err, repository.ErrInvalidInput):
			return fmt.Errorf("%w: backup name %q", ErrInvalidInput, name)
		}
		return fmt.Errorf("restoring backup: %w", err)
	}
	s.logger.Info("document restored", "name", name)
	return nil
}

// Backups lists snapshot names, newest first.
func (s *Service) Backups(ctx context.Context) ([]string, error) {
	names, err := s.store.ListBackups(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	return names, nil
}

func (s *Service) load(ctx context.Context) (*Document, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}
	doc.Normalize()
	return doc, nil
}

func (s *Service) save(ctx context.Context, doc *Document) error {
	if err := s.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

func cloneGroup(g Group) Group {
	g.Students = append([]string{}, g.Students...)
	return g
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
