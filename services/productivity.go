package services

import (
	"errors"
	"log"
	"sync"
	"time"

	"expedientes_app_go/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductivityStore manages the per-user collections layered on top of
// the case list: next actions, templates, saved filters, drafts, and
// preferences. Every mutation applies locally first, then persists in
// the background. Failed persists are logged and the local state
// stands; this best-effort policy is deliberate (responsiveness over
// strict durability for user-scoped data).
type ProductivityStore struct {
	db     *gorm.DB
	userID string

	mu          sync.Mutex
	prefs       models.UserPreferences
	nextActions map[string]models.NextAction

	wg     sync.WaitGroup
	closed bool
}

// NextActionInput carries the editable next-action fields.
type NextActionInput struct {
	Text      string `json:"text"`
	DueDate   string `json:"due_date"`
	Completed bool   `json:"completed"`
}

func NewProductivityStore(conn *gorm.DB, userID string) *ProductivityStore {
	return &ProductivityStore{
		db:          conn,
		userID:      userID,
		nextActions: make(map[string]models.NextAction),
	}
}

// DefaultPreferences synthesizes the preferences record for a user who
// has none yet.
func DefaultPreferences(userID string) models.UserPreferences {
	return models.UserPreferences{
		UserID: userID,
		NotificationToggles: models.ToggleList{
			{Key: "stale_cases", Label: "Expedientes sin movimiento", Enabled: true},
			{Key: "due_actions", Label: "Acciones próximas a vencer", Enabled: true},
			{Key: "import_results", Label: "Resultados de importación", Enabled: true},
		},
		SystemToggles: models.ToggleList{
			{Key: "auto_advance_movement", Label: "Avanzar última actuación al editar", Enabled: true},
			{Key: "confirm_delete", Label: "Confirmar antes de eliminar", Enabled: true},
		},
		Handlers:     models.StringList{},
		Templates:    models.TemplateList{},
		SavedFilters: models.FilterList{},
		Drafts:       models.DraftMap{},
	}
}

// Init loads the preferences aggregate and the next-action collection
// in parallel. A missing preferences row is synthesized from defaults
// and persisted with an idempotent upsert keyed by user id.
func (s *ProductivityStore) Init() error {
	var (
		wg         sync.WaitGroup
		prefs      models.UserPreferences
		prefsErr   error
		actions    []models.NextAction
		actionsErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		prefsErr = s.db.Where("user_id = ?", s.userID).First(&prefs).Error
	}()
	go func() {
		defer wg.Done()
		actionsErr = s.db.Where("user_id = ?", s.userID).Find(&actions).Error
	}()
	wg.Wait()

	if actionsErr != nil {
		return actionsErr
	}
	if errors.Is(prefsErr, gorm.ErrRecordNotFound) {
		prefs = DefaultPreferences(s.userID)
		if err := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&prefs).Error; err != nil {
			return err
		}
	} else if prefsErr != nil {
		return prefsErr
	}

	s.mu.Lock()
	s.prefs = prefs
	s.nextActions = make(map[string]models.NextAction, len(actions))
	for _, a := range actions {
		s.nextActions[a.CaseID] = a
	}
	s.mu.Unlock()
	return nil
}

// Flush waits for in-flight background persists. Used by tests and by
// teardown.
func (s *ProductivityStore) Flush() {
	s.wg.Wait()
}

// Close stops accepting new persists and waits for in-flight ones, so
// teardown never races a write.
func (s *ProductivityStore) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

// persistAsync runs a database write in the background. Must be called
// with s.mu held.
func (s *ProductivityStore) persistAsync(what string, op func(*gorm.DB) error) {
	if s.closed {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := op(s.db); err != nil {
			log.Printf("[WARNING] Failed to persist %s for user %s: %v (keeping local state)", what, s.userID, err)
		}
	}()
}

// --- Next actions ---

// NextActions returns a copy of the next-action map keyed by case id.
func (s *ProductivityStore) NextActions() map[string]models.NextAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]models.NextAction, len(s.nextActions))
	for k, v := range s.nextActions {
		out[k] = v
	}
	return out
}

// NextActionFor returns the action for a case, if any.
func (s *ProductivityStore) NextActionFor(caseID string) (models.NextAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.nextActions[caseID]
	return a, ok
}

// SetNextAction creates or replaces the single action for (user, case).
func (s *ProductivityStore) SetNextAction(caseID string, in NextActionInput) (*models.NextAction, error) {
	text := TruncateText(in.Text, models.MaxNextActionLength)
	if text == "" {
		return nil, validationError("text", "is required")
	}
	dueDate, err := NormalizeDateOnly(in.DueDate)
	if err != nil {
		return nil, validationError("due_date", "invalid date format: expected YYYY-MM-DD")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	action := models.NextAction{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UserID:    s.userID,
		CaseID:    caseID,
	}
	if existing, ok := s.nextActions[caseID]; ok {
		action = existing
	}
	action.Text = text
	action.DueDate = dueDate
	if in.Completed && !action.Completed {
		action.CompletedAt = &now
	} else if !in.Completed {
		action.CompletedAt = nil
	}
	action.Completed = in.Completed
	action.UpdatedAt = now
	s.nextActions[caseID] = action

	record := action
	s.persistAsync("next action", func(conn *gorm.DB) error {
		return conn.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "case_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"text", "due_date", "completed", "completed_at", "updated_at"}),
		}).Create(&record).Error
	})
	return &action, nil
}

// ToggleNextActionCompleted flips the completion flag. No-op when the
// case has no action.
func (s *ProductivityStore) ToggleNextActionCompleted(caseID string) (*models.NextAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, ok := s.nextActions[caseID]
	if !ok {
		return nil, false
	}
	now := time.Now()
	action.Completed = !action.Completed
	if action.Completed {
		action.CompletedAt = &now
	} else {
		action.CompletedAt = nil
	}
	action.UpdatedAt = now
	s.nextActions[caseID] = action

	record := action
	s.persistAsync("next action completion", func(conn *gorm.DB) error {
		return conn.Model(&models.NextAction{}).
			Where("user_id = ? AND case_id = ?", record.UserID, record.CaseID).
			Updates(map[string]interface{}{
				"completed":    record.Completed,
				"completed_at": record.CompletedAt,
				"updated_at":   record.UpdatedAt,
			}).Error
	})
	return &action, true
}

// RemoveNextAction deletes the action for a case. No-op when absent.
func (s *ProductivityStore) RemoveNextAction(caseID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nextActions[caseID]; !ok {
		return false
	}
	delete(s.nextActions, caseID)

	s.persistAsync("next action removal", func(conn *gorm.DB) error {
		return conn.Where("user_id = ? AND case_id = ?", s.userID, caseID).
			Delete(&models.NextAction{}).Error
	})
	return true
}

// Prune drops next-action entries whose case id no longer exists in
// the snapshot. Called on every snapshot change.
func (s *ProductivityStore) Prune(cases []models.Expediente) {
	valid := make(map[string]struct{}, len(cases))
	for i := range cases {
		valid[cases[i].ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for caseID := range s.nextActions {
		if _, ok := valid[caseID]; ok {
			continue
		}
		delete(s.nextActions, caseID)
		id := caseID
		s.persistAsync("orphaned next action cleanup", func(conn *gorm.DB) error {
			return conn.Where("user_id = ? AND case_id = ?", s.userID, id).
				Delete(&models.NextAction{}).Error
		})
	}
}

// --- Preferences aggregate ---

// Preferences returns a copy of the current preferences aggregate.
// The copy is deep so callers can serialize it after the lock drops.
func (s *ProductivityStore) Preferences() models.UserPreferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs.Clone()
}

// persistPreferences re-persists the whole aggregate. Saving one
// template or filter rewrites the full sub-collection; the aggregate
// is small and this keeps the remote model simple. Must be called with
// s.mu held.
func (s *ProductivityStore) persistPreferences() {
	record := s.prefs.Clone()
	record.UpdatedAt = time.Now()
	s.persistAsync("preferences", func(conn *gorm.DB) error {
		return conn.Save(&record).Error
	})
}

// UpdateProfile sets the display name and position labels.
func (s *ProductivityStore) UpdateProfile(displayName, position string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.DisplayName = TruncateText(displayName, 120)
	s.prefs.Position = TruncateText(position, 120)
	s.persistPreferences()
}

// SetNotificationToggle flips one notification toggle by key,
// appending it when unknown.
func (s *ProductivityStore) SetNotificationToggle(key string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.NotificationToggles = setToggle(s.prefs.NotificationToggles, key, enabled)
	s.persistPreferences()
}

// SetSystemToggle flips one system-behavior toggle by key.
func (s *ProductivityStore) SetSystemToggle(key string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.SystemToggles = setToggle(s.prefs.SystemToggles, key, enabled)
	s.persistPreferences()
}

func setToggle(list models.ToggleList, key string, enabled bool) models.ToggleList {
	for i := range list {
		if list[i].Key == key {
			list[i].Enabled = enabled
			return list
		}
	}
	return append(list, models.Toggle{Key: key, Label: key, Enabled: enabled})
}

// SetHandlers replaces the handler-name catalog.
func (s *ProductivityStore) SetHandlers(handlers []string) {
	cleaned := models.StringList{}
	seen := make(map[string]struct{})
	for _, h := range handlers {
		name := TruncateText(h, models.MaxHandlerLength)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		cleaned = append(cleaned, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.Handlers = cleaned
	s.persistPreferences()
}

// SaveTemplate upserts a case template. A known id replaces in place
// preserving position; an empty or unknown id prepends. The list is
// capped; oldest entries beyond the cap are dropped.
func (s *ProductivityStore) SaveTemplate(t models.CaseTemplate) (*models.CaseTemplate, error) {
	t.Name = TruncateText(t.Name, 120)
	if t.Name == "" {
		return nil, validationError("name", "is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	if t.ID != "" {
		for i := range s.prefs.Templates {
			if s.prefs.Templates[i].ID == t.ID {
				s.prefs.Templates[i] = t
				replaced = true
				break
			}
		}
	}
	if !replaced {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		s.prefs.Templates = append(models.TemplateList{t}, s.prefs.Templates...)
		if len(s.prefs.Templates) > models.MaxTemplates {
			s.prefs.Templates = s.prefs.Templates[:models.MaxTemplates]
		}
	}
	s.persistPreferences()
	return &t, nil
}

// DeleteTemplate removes a template by id.
func (s *ProductivityStore) DeleteTemplate(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.prefs.Templates {
		if s.prefs.Templates[i].ID == id {
			s.prefs.Templates = append(s.prefs.Templates[:i], s.prefs.Templates[i+1:]...)
			s.persistPreferences()
			return true
		}
	}
	return false
}

// SaveFilter upserts a saved list filter with the same semantics as
// templates.
func (s *ProductivityStore) SaveFilter(f models.SavedFilter) (*models.SavedFilter, error) {
	f.Name = TruncateText(f.Name, 120)
	if f.Name == "" {
		return nil, validationError("name", "is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	if f.ID != "" {
		for i := range s.prefs.SavedFilters {
			if s.prefs.SavedFilters[i].ID == f.ID {
				s.prefs.SavedFilters[i] = f
				replaced = true
				break
			}
		}
	}
	if !replaced {
		if f.ID == "" {
			f.ID = uuid.New().String()
		}
		s.prefs.SavedFilters = append(models.FilterList{f}, s.prefs.SavedFilters...)
		if len(s.prefs.SavedFilters) > models.MaxSavedFilters {
			s.prefs.SavedFilters = s.prefs.SavedFilters[:models.MaxSavedFilters]
		}
	}
	s.persistPreferences()
	return &f, nil
}

// DeleteFilter removes a saved filter by id.
func (s *ProductivityStore) DeleteFilter(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.prefs.SavedFilters {
		if s.prefs.SavedFilters[i].ID == id {
			s.prefs.SavedFilters = append(s.prefs.SavedFilters[:i], s.prefs.SavedFilters[i+1:]...)
			s.persistPreferences()
			return true
		}
	}
	return false
}

// SaveDraft replaces the draft for a form identity wholesale and
// stamps the save time. Debouncing is the caller's concern.
func (s *ProductivityStore) SaveDraft(formKey string, fields map[string]string) error {
	if CollapseWhitespace(formKey) == "" {
		return validationError("form_key", "is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prefs.Drafts == nil {
		s.prefs.Drafts = models.DraftMap{}
	}
	s.prefs.Drafts[formKey] = models.FormDraft{Fields: fields, SavedAt: time.Now()}
	s.persistPreferences()
	return nil
}

// Draft returns the stored draft for a form identity.
func (s *ProductivityStore) Draft(formKey string) (models.FormDraft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.prefs.Drafts[formKey]
	return d, ok
}

// ClearDraft discards the draft after a successful submit or an
// explicit discard.
func (s *ProductivityStore) ClearDraft(formKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.prefs.Drafts[formKey]; !ok {
		return
	}
	delete(s.prefs.Drafts, formKey)
	s.persistPreferences()
}
