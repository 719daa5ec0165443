package services

import (
	"log"
	"sort"
	"sync"
	"time"

	"expedientes_app_go/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationCenter maintains the bounded, time-ordered notification
// log for one user. Inserts and updates apply locally first and
// persist in the background; the local view keeps only the newest
// entries within the retention bound, while older remote rows are left
// in place.
type NotificationCenter struct {
	db     *gorm.DB
	userID string

	mu    sync.Mutex
	items []models.Notification

	wg     sync.WaitGroup
	closed bool
}

func NewNotificationCenter(conn *gorm.DB, userID string) *NotificationCenter {
	return &NotificationCenter{db: conn, userID: userID}
}

// Init loads the newest entries within the retention bound.
func (c *NotificationCenter) Init() error {
	var items []models.Notification
	err := c.db.Where("user_id = ?", c.userID).
		Order("created_at DESC").
		Limit(models.NotificationRetention).
		Find(&items).Error
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	return nil
}

// Flush waits for in-flight background persists.
func (c *NotificationCenter) Flush() {
	c.wg.Wait()
}

// Close stops accepting new persists and waits for in-flight ones.
func (c *NotificationCenter) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *NotificationCenter) persistAsync(what string, op func(*gorm.DB) error) {
	if c.closed {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := op(c.db); err != nil {
			log.Printf("[WARNING] Failed to persist %s for user %s: %v", what, c.userID, err)
		}
	}()
}

// sortAndTrim re-sorts newest first and enforces the retention bound.
// Must be called with c.mu held.
func (c *NotificationCenter) sortAndTrim() {
	sort.SliceStable(c.items, func(i, j int) bool {
		return c.items[i].CreatedAt.After(c.items[j].CreatedAt)
	})
	if len(c.items) > models.NotificationRetention {
		c.items = c.items[:models.NotificationRetention]
	}
}

// List returns a copy of the current log, newest first.
func (c *NotificationCenter) List() []models.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Notification, len(c.items))
	copy(out, c.items)
	return out
}

// Unread returns the number of unread entries.
func (c *NotificationCenter) Unread() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for i := range c.items {
		if !c.items[i].Read {
			n++
		}
	}
	return n
}

// Add appends an ad-hoc notification, assigning identity and the
// current timestamp.
func (c *NotificationCenter) Add(kind, title, message string, caseID *string) models.Notification {
	now := time.Now()
	n := models.Notification{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    c.userID,
		CaseID:    caseID,
		Kind:      kind,
		Title:     title,
		Message:   message,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]models.Notification{n}, c.items...)
	c.sortAndTrim()

	record := n
	c.persistAsync("notification", func(conn *gorm.DB) error {
		return conn.Create(&record).Error
	})
	return n
}

// UpsertSystem creates or refreshes a system notification identified
// by its client key. Identical content is a no-op, so repeated health
// checks do not spam the log or churn timestamps. Changed content
// updates the single entry in place, marks it unread, refreshes its
// timestamp and moves it to the front.
func (c *NotificationCenter) UpsertSystem(key, kind, title, message string) models.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ClientKey == nil || *c.items[i].ClientKey != key {
			continue
		}
		if c.items[i].SameContent(kind, title, message) && !c.items[i].Read {
			return c.items[i]
		}

		now := time.Now()
		c.items[i].Kind = kind
		c.items[i].Title = title
		c.items[i].Message = message
		c.items[i].Read = false
		c.items[i].CreatedAt = now
		c.items[i].UpdatedAt = now
		updated := c.items[i]
		c.sortAndTrim()

		c.persistAsync("system notification", func(conn *gorm.DB) error {
			return conn.Model(&models.Notification{}).
				Where("user_id = ? AND client_key = ?", c.userID, key).
				Updates(map[string]interface{}{
					"kind":       updated.Kind,
					"title":      updated.Title,
					"message":    updated.Message,
					"read":       false,
					"created_at": updated.CreatedAt,
					"updated_at": updated.UpdatedAt,
				}).Error
		})
		return updated
	}

	now := time.Now()
	clientKey := key
	n := models.Notification{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    c.userID,
		ClientKey: &clientKey,
		Kind:      kind,
		Title:     title,
		Message:   message,
	}
	c.items = append([]models.Notification{n}, c.items...)
	c.sortAndTrim()

	record := n
	c.persistAsync("system notification", func(conn *gorm.DB) error {
		return conn.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "client_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "title", "message", "read", "created_at", "updated_at"}),
		}).Create(&record).Error
	})
	return n
}

// MarkRead flags one entry as read.
func (c *NotificationCenter) MarkRead(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID != id {
			continue
		}
		if c.items[i].Read {
			return true
		}
		c.items[i].Read = true
		c.persistAsync("notification read flag", func(conn *gorm.DB) error {
			return conn.Model(&models.Notification{}).
				Where("id = ? AND user_id = ?", id, c.userID).
				Update("read", true).Error
		})
		return true
	}
	return false
}

// MarkAllRead flags every entry as read.
func (c *NotificationCenter) MarkAllRead() {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false
	for i := range c.items {
		if !c.items[i].Read {
			c.items[i].Read = true
			changed = true
		}
	}
	if !changed {
		return
	}
	c.persistAsync("notification read flags", func(conn *gorm.DB) error {
		return conn.Model(&models.Notification{}).
			Where("user_id = ? AND read = ?", c.userID, false).
			Update("read", true).Error
	})
}

// Remove deletes one entry.
func (c *NotificationCenter) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID != id {
			continue
		}
		c.items = append(c.items[:i], c.items[i+1:]...)
		c.persistAsync("notification removal", func(conn *gorm.DB) error {
			return conn.Where("id = ? AND user_id = ?", id, c.userID).
				Delete(&models.Notification{}).Error
		})
		return true
	}
	return false
}

// Clear empties the user's log.
func (c *NotificationCenter) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) == 0 {
		return
	}
	c.items = nil
	c.persistAsync("notification clear", func(conn *gorm.DB) error {
		return conn.Where("user_id = ?", c.userID).Delete(&models.Notification{}).Error
	})
}
