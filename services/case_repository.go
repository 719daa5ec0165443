package services

import (
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"expedientes_app_go/models"

	"gorm.io/gorm"
)

// CaseRepository is the single source of truth for the case list
// visible to the session. All mutations validate first, fast-fail on
// local folio duplicates, persist, then refetch the full list so the
// snapshot always reflects the server's ground truth. The database's
// unique constraint remains the final authority on folio uniqueness.
type CaseRepository struct {
	db   *gorm.DB
	feed *ChangeFeed

	mu       sync.RWMutex
	snapshot []models.Expediente

	debouncer   *Debouncer
	unsubscribe func()
	done        chan struct{}

	// onSnapshot runs after every snapshot replacement, outside the
	// lock. Used for client-side referential cleanup (next actions).
	onSnapshot func([]models.Expediente)
}

// NewCaseRepository builds the repository and subscribes to the case
// table's change feed. Any pushed event, including changes from other
// sessions, schedules a debounced refetch.
func NewCaseRepository(conn *gorm.DB, feed *ChangeFeed) *CaseRepository {
	r := &CaseRepository{
		db:   conn,
		feed: feed,
		done: make(chan struct{}),
	}
	r.debouncer = NewDebouncer(DefaultDebounceWindow, func() {
		if err := r.Refetch(); err != nil {
			log.Printf("[WARNING] Change-feed refresh failed: %v", err)
		}
	})

	if feed != nil {
		events, cancel := feed.Subscribe(TableExpedientes)
		r.unsubscribe = cancel
		go func() {
			for range events {
				r.debouncer.Trigger()
			}
			close(r.done)
		}()
	} else {
		close(r.done)
	}
	return r
}

// OnSnapshot registers a callback invoked after every refetch with the
// fresh snapshot.
func (r *CaseRepository) OnSnapshot(fn func([]models.Expediente)) {
	r.mu.Lock()
	r.onSnapshot = fn
	r.mu.Unlock()
}

// Close tears down the change-feed subscription and any pending
// debounced refresh.
func (r *CaseRepository) Close() {
	r.debouncer.Stop()
	if r.unsubscribe != nil {
		r.unsubscribe()
		<-r.done
	}
}

// List returns a copy of the current snapshot, newest first.
func (r *CaseRepository) List() []models.Expediente {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Expediente, len(r.snapshot))
	copy(out, r.snapshot)
	return out
}

// Get returns the snapshot entry with the given id.
func (r *CaseRepository) Get(id string) (*models.Expediente, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.snapshot {
		if r.snapshot[i].ID == id {
			c := r.snapshot[i]
			return &c, true
		}
	}
	return nil, false
}

// FindByFolio looks a case up by folio, case-insensitively.
func (r *CaseRepository) FindByFolio(folio string) (*models.Expediente, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.snapshot {
		if strings.EqualFold(r.snapshot[i].Folio, folio) {
			c := r.snapshot[i]
			return &c, true
		}
	}
	return nil, false
}

// Count returns the snapshot size.
func (r *CaseRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.snapshot)
}

// Refetch performs a full reconciling read, replacing the snapshot
// atomically.
func (r *CaseRepository) Refetch() error {
	var cases []models.Expediente
	if err := r.db.Order("created_at DESC").Find(&cases).Error; err != nil {
		return err
	}

	r.mu.Lock()
	r.snapshot = cases
	fn := r.onSnapshot
	r.mu.Unlock()

	if fn != nil {
		fn(cases)
	}
	return nil
}

// Create validates the input, rejects local folio duplicates, persists
// the record, and refetches. Returns the server-assigned record.
func (r *CaseRepository) Create(in ExpedienteInput) (*models.Expediente, error) {
	record, err := ValidateNewExpediente(in)
	if err != nil {
		return nil, err
	}

	if _, exists := r.FindByFolio(record.Folio); exists {
		return nil, &ConflictError{Folio: record.Folio}
	}

	if err := r.db.Create(record).Error; err != nil {
		return nil, translateDBError(err, record.Folio)
	}
	r.publish(ChangeInsert, record.ID)

	if err := r.Refetch(); err != nil {
		return nil, err
	}
	created, ok := r.Get(record.ID)
	if !ok {
		// Refetch raced a concurrent delete; the insert itself succeeded.
		return record, nil
	}
	return created, nil
}

// Update validates a patch against the snapshot entry, persists the
// changed columns, and refetches. Ids absent from the snapshot are a
// local not-found error with no database call.
func (r *CaseRepository) Update(id string, patch ExpedientePatch) (*models.Expediente, error) {
	existing, ok := r.Get(id)
	if !ok {
		return nil, &NotFoundError{ID: id}
	}

	updates, err := ValidateExpedientePatch(existing, patch)
	if err != nil {
		return nil, err
	}

	if folio, ok := updates["folio"].(string); ok {
		if other, exists := r.FindByFolio(folio); exists && other.ID != id {
			return nil, &ConflictError{Folio: folio}
		}
	}

	if len(updates) > 0 {
		updates["updated_at"] = time.Now()
		if err := r.db.Model(&models.Expediente{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			folio := existing.Folio
			if f, ok := updates["folio"].(string); ok {
				folio = f
			}
			return nil, translateDBError(err, folio)
		}
		r.publish(ChangeUpdate, id)
	}

	if err := r.Refetch(); err != nil {
		return nil, err
	}
	updated, ok := r.Get(id)
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return updated, nil
}

// Delete hard-deletes the case and its owned children, then refetches.
func (r *CaseRepository) Delete(id string) error {
	if _, ok := r.Get(id); !ok {
		return &NotFoundError{ID: id}
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("case_id = ?", id).Delete(&models.NextAction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("case_id = ?", id).Delete(&models.CaseDocument{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Expediente{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}
	r.publish(ChangeDelete, id)

	return r.Refetch()
}

func (r *CaseRepository) publish(kind, id string) {
	if r.feed != nil {
		r.feed.Publish(ChangeEvent{Table: TableExpedientes, Kind: kind, RowID: id})
	}
}

// translateDBError maps a database unique-constraint violation onto
// the same conflict error the local pre-check produces.
func translateDBError(err error, folio string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return &ConflictError{Folio: folio}
	}
	return err
}
