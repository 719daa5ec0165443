package services

import (
	"fmt"
	"testing"
	"time"

	"expedientes_app_go/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupNotificationTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&models.Notification{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestCenter(t *testing.T) *NotificationCenter {
	t.Helper()
	center := NewNotificationCenter(setupNotificationTestDB(t), "user-1")
	if err := center.Init(); err != nil {
		t.Fatalf("failed to init center: %v", err)
	}
	t.Cleanup(center.Close)
	return center
}

func TestAddPrependsNewest(t *testing.T) {
	center := newTestCenter(t)

	center.Add(models.NotificationKindInfo, "Primera", "mensaje", nil)
	center.Add(models.NotificationKindSuccess, "Segunda", "mensaje", nil)

	items := center.List()
	assert.Len(t, items, 2)
	assert.Equal(t, "Segunda", items[0].Title)
	assert.Equal(t, 2, center.Unread())

	center.Flush()
}

func TestRetentionBound(t *testing.T) {
	center := newTestCenter(t)

	for i := 0; i < models.NotificationRetention+20; i++ {
		center.Add(models.NotificationKindInfo, fmt.Sprintf("Aviso %d", i), "", nil)
	}

	items := center.List()
	assert.Len(t, items, models.NotificationRetention)
	// The newest entry survives, the oldest were trimmed
	assert.Equal(t, fmt.Sprintf("Aviso %d", models.NotificationRetention+19), items[0].Title)
}

func TestUpsertSystemIdenticalContentIsNoop(t *testing.T) {
	center := newTestCenter(t)

	first := center.UpsertSystem("stale-cases", models.NotificationKindWarning, "Expedientes rezagados", "3 sin movimiento")
	second := center.UpsertSystem("stale-cases", models.NotificationKindWarning, "Expedientes rezagados", "3 sin movimiento")

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Len(t, center.List(), 1)
	assert.Equal(t, 1, center.Unread())
}

func TestUpsertSystemChangedContentRefreshes(t *testing.T) {
	center := newTestCenter(t)

	first := center.UpsertSystem("stale-cases", models.NotificationKindWarning, "Expedientes rezagados", "3 sin movimiento")
	center.Add(models.NotificationKindInfo, "Otro aviso", "", nil)

	time.Sleep(5 * time.Millisecond)
	updated := center.UpsertSystem("stale-cases", models.NotificationKindWarning, "Expedientes rezagados", "5 sin movimiento")

	assert.Equal(t, first.ID, updated.ID)
	assert.True(t, updated.CreatedAt.After(first.CreatedAt))

	items := center.List()
	assert.Len(t, items, 2)
	// The refreshed entry moved back to the front
	assert.Equal(t, "5 sin movimiento", items[0].Message)
	assert.False(t, items[0].Read)
}

func TestUpsertSystemReviveAfterRead(t *testing.T) {
	center := newTestCenter(t)

	n := center.UpsertSystem("stale-cases", models.NotificationKindSuccess, "Sin rezago", "")
	assert.True(t, center.MarkRead(n.ID))
	assert.Equal(t, 0, center.Unread())

	// Same content but already read: surfaces again as unread
	center.UpsertSystem("stale-cases", models.NotificationKindSuccess, "Sin rezago", "")
	assert.Equal(t, 1, center.Unread())
	assert.Len(t, center.List(), 1)
}

func TestMarkReadAndClear(t *testing.T) {
	center := newTestCenter(t)

	a := center.Add(models.NotificationKindInfo, "Uno", "", nil)
	center.Add(models.NotificationKindInfo, "Dos", "", nil)

	assert.True(t, center.MarkRead(a.ID))
	assert.False(t, center.MarkRead("no-such-id"))
	assert.Equal(t, 1, center.Unread())

	center.MarkAllRead()
	assert.Equal(t, 0, center.Unread())

	assert.True(t, center.Remove(a.ID))
	assert.False(t, center.Remove(a.ID))
	assert.Len(t, center.List(), 1)

	center.Clear()
	assert.Empty(t, center.List())
}

func TestInitLoadsNewestWithinRetention(t *testing.T) {
	db := setupNotificationTestDB(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < models.NotificationRetention+10; i++ {
		db.Create(&models.Notification{
			UserID:    "user-1",
			Kind:      models.NotificationKindInfo,
			Title:     fmt.Sprintf("Aviso %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	// Another user's entries stay out of the view
	db.Create(&models.Notification{UserID: "user-2", Kind: models.NotificationKindInfo, Title: "Ajeno"})

	center := NewNotificationCenter(db, "user-1")
	assert.NoError(t, center.Init())
	t.Cleanup(center.Close)

	items := center.List()
	assert.Len(t, items, models.NotificationRetention)
	assert.Equal(t, fmt.Sprintf("Aviso %d", models.NotificationRetention+9), items[0].Title)
}
