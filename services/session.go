package services

import (
	"sync"

	"expedientes_app_go/models"

	"gorm.io/gorm"
)

// SessionRegistry owns the per-user stores for the lifetime of the
// process. Stores are constructed on first use (session start) and
// torn down together on shutdown. Handlers receive the registry by
// reference; there is no ambient global state.
type SessionRegistry struct {
	db   *gorm.DB
	repo *CaseRepository

	mu            sync.Mutex
	productivity  map[string]*ProductivityStore
	notifications map[string]*NotificationCenter
}

func NewSessionRegistry(conn *gorm.DB, repo *CaseRepository) *SessionRegistry {
	r := &SessionRegistry{
		db:            conn,
		repo:          repo,
		productivity:  make(map[string]*ProductivityStore),
		notifications: make(map[string]*NotificationCenter),
	}

	// Referential cleanup: whenever the case snapshot changes, every
	// active productivity store drops next actions whose case is gone.
	repo.OnSnapshot(func(cases []models.Expediente) {
		r.mu.Lock()
		stores := make([]*ProductivityStore, 0, len(r.productivity))
		for _, s := range r.productivity {
			stores = append(stores, s)
		}
		r.mu.Unlock()
		for _, s := range stores {
			s.Prune(cases)
		}
	})
	return r
}

// Productivity returns the user's productivity store, initializing it
// on first access.
func (r *SessionRegistry) Productivity(userID string) (*ProductivityStore, error) {
	r.mu.Lock()
	store, ok := r.productivity[userID]
	r.mu.Unlock()
	if ok {
		return store, nil
	}

	store = NewProductivityStore(r.db, userID)
	if err := store.Init(); err != nil {
		return nil, err
	}
	store.Prune(r.repo.List())

	r.mu.Lock()
	if existing, ok := r.productivity[userID]; ok {
		// Another request won the race; use theirs.
		r.mu.Unlock()
		store.Close()
		return existing, nil
	}
	r.productivity[userID] = store
	r.mu.Unlock()
	return store, nil
}

// Notifications returns the user's notification center, initializing
// it on first access.
func (r *SessionRegistry) Notifications(userID string) (*NotificationCenter, error) {
	r.mu.Lock()
	center, ok := r.notifications[userID]
	r.mu.Unlock()
	if ok {
		return center, nil
	}

	center = NewNotificationCenter(r.db, userID)
	if err := center.Init(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if existing, ok := r.notifications[userID]; ok {
		r.mu.Unlock()
		center.Close()
		return existing, nil
	}
	r.notifications[userID] = center
	r.mu.Unlock()
	return center, nil
}

// ForEachNotificationCenter runs fn for every active center.
func (r *SessionRegistry) ForEachNotificationCenter(fn func(userID string, center *NotificationCenter)) {
	r.mu.Lock()
	centers := make(map[string]*NotificationCenter, len(r.notifications))
	for id, c := range r.notifications {
		centers[id] = c
	}
	r.mu.Unlock()

	for id, c := range centers {
		fn(id, c)
	}
}

// CloseAll tears down every store, waiting for in-flight persists.
func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()
	stores := r.productivity
	centers := r.notifications
	r.productivity = make(map[string]*ProductivityStore)
	r.notifications = make(map[string]*NotificationCenter)
	r.mu.Unlock()

	for _, s := range stores {
		s.Close()
	}
	for _, c := range centers {
		c.Close()
	}
}
