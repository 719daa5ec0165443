package services

import (
	"fmt"
	"sync"
	"testing"

	"expedientes_app_go/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupProductivityTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&models.UserPreferences{}, &models.NextAction{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestStore(t *testing.T) *ProductivityStore {
	t.Helper()
	store := NewProductivityStore(setupProductivityTestDB(t), "user-1")
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestInitSynthesizesDefaultPreferences(t *testing.T) {
	db := setupProductivityTestDB(t)
	store := NewProductivityStore(db, "user-1")
	assert.NoError(t, store.Init())
	t.Cleanup(store.Close)

	prefs := store.Preferences()
	assert.Equal(t, "user-1", prefs.UserID)
	assert.Len(t, prefs.NotificationToggles, 3)
	assert.Len(t, prefs.SystemToggles, 2)

	// The synthesized row was persisted
	var count int64
	db.Model(&models.UserPreferences{}).Where("user_id = ?", "user-1").Count(&count)
	assert.EqualValues(t, 1, count)

	// A second store for the same user loads, not re-creates
	second := NewProductivityStore(db, "user-1")
	assert.NoError(t, second.Init())
	t.Cleanup(second.Close)
	db.Model(&models.UserPreferences{}).Where("user_id = ?", "user-1").Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestSetNextActionUpdatesInPlace(t *testing.T) {
	store := newTestStore(t)

	first, err := store.SetNextAction("case-1", NextActionInput{Text: "Solicitar informe", DueDate: "2026-02-01"})
	assert.NoError(t, err)

	second, err := store.SetNextAction("case-1", NextActionInput{Text: "Llamar al quejoso", DueDate: "2026-02-05"})
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Llamar al quejoso", second.Text)

	actions := store.NextActions()
	assert.Len(t, actions, 1)

	store.Flush()
}

func TestSetNextActionValidation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.SetNextAction("case-1", NextActionInput{Text: "   ", DueDate: "2026-02-01"})
	assert.True(t, IsValidation(err))

	_, err = store.SetNextAction("case-1", NextActionInput{Text: "Revisar", DueDate: "not a date"})
	assert.True(t, IsValidation(err))
}

func TestToggleAndRemoveNextAction(t *testing.T) {
	store := newTestStore(t)

	_, err := store.SetNextAction("case-1", NextActionInput{Text: "Revisar", DueDate: "2026-02-01"})
	assert.NoError(t, err)

	toggled, ok := store.ToggleNextActionCompleted("case-1")
	assert.True(t, ok)
	assert.True(t, toggled.Completed)
	assert.NotNil(t, toggled.CompletedAt)

	toggled, ok = store.ToggleNextActionCompleted("case-1")
	assert.True(t, ok)
	assert.False(t, toggled.Completed)
	assert.Nil(t, toggled.CompletedAt)

	// Unknown case ids are quiet no-ops
	_, ok = store.ToggleNextActionCompleted("case-unknown")
	assert.False(t, ok)
	assert.False(t, store.RemoveNextAction("case-unknown"))

	assert.True(t, store.RemoveNextAction("case-1"))
	_, ok = store.NextActionFor("case-1")
	assert.False(t, ok)
}

func TestPruneDropsOrphanedActions(t *testing.T) {
	store := newTestStore(t)

	_, err := store.SetNextAction("case-keep", NextActionInput{Text: "Revisar", DueDate: "2026-02-01"})
	assert.NoError(t, err)
	_, err = store.SetNextAction("case-gone", NextActionInput{Text: "Archivar", DueDate: "2026-02-02"})
	assert.NoError(t, err)

	store.Prune([]models.Expediente{{ID: "case-keep"}})

	_, ok := store.NextActionFor("case-keep")
	assert.True(t, ok)
	_, ok = store.NextActionFor("case-gone")
	assert.False(t, ok)
}

func TestSaveTemplateCapAndInPlaceReplace(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < models.MaxTemplates+5; i++ {
		_, err := store.SaveTemplate(models.CaseTemplate{Name: fmt.Sprintf("Plantilla %d", i)})
		assert.NoError(t, err)
	}
	templates := store.Preferences().Templates
	assert.Len(t, templates, models.MaxTemplates)
	// Newest first
	assert.Equal(t, fmt.Sprintf("Plantilla %d", models.MaxTemplates+4), templates[0].Name)

	// Replacing a known id keeps its position
	target := templates[5]
	target.Name = "Renombrada"
	_, err := store.SaveTemplate(target)
	assert.NoError(t, err)
	templates = store.Preferences().Templates
	assert.Len(t, templates, models.MaxTemplates)
	assert.Equal(t, "Renombrada", templates[5].Name)
	assert.Equal(t, target.ID, templates[5].ID)
}

func TestSaveFilterCapAndDelete(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < models.MaxSavedFilters+3; i++ {
		_, err := store.SaveFilter(models.SavedFilter{Name: fmt.Sprintf("Filtro %d", i)})
		assert.NoError(t, err)
	}
	filters := store.Preferences().SavedFilters
	assert.Len(t, filters, models.MaxSavedFilters)

	assert.True(t, store.DeleteFilter(filters[0].ID))
	assert.False(t, store.DeleteFilter("no-such-id"))
	assert.Len(t, store.Preferences().SavedFilters, models.MaxSavedFilters-1)

	_, err := store.SaveFilter(models.SavedFilter{Name: "   "})
	assert.True(t, IsValidation(err))
}

func TestDraftLifecycle(t *testing.T) {
	store := newTestStore(t)

	assert.NoError(t, store.SaveDraft("case-form:new", map[string]string{"folio": "CDH-2026-001"}))
	draft, ok := store.Draft("case-form:new")
	assert.True(t, ok)
	assert.Equal(t, "CDH-2026-001", draft.Fields["folio"])
	assert.False(t, draft.SavedAt.IsZero())

	// Wholesale replacement, not a merge
	assert.NoError(t, store.SaveDraft("case-form:new", map[string]string{"authority": "IMSS"}))
	draft, _ = store.Draft("case-form:new")
	assert.Equal(t, "IMSS", draft.Fields["authority"])
	assert.NotContains(t, draft.Fields, "folio")

	store.ClearDraft("case-form:new")
	_, ok = store.Draft("case-form:new")
	assert.False(t, ok)

	assert.True(t, IsValidation(store.SaveDraft("  ", nil)))
}

func TestTogglesAndHandlers(t *testing.T) {
	store := newTestStore(t)

	store.SetNotificationToggle("stale_cases", false)
	store.SetSystemToggle("confirm_delete", false)
	store.SetNotificationToggle("brand_new", true)

	prefs := store.Preferences()
	for _, toggle := range prefs.NotificationToggles {
		switch toggle.Key {
		case "stale_cases":
			assert.False(t, toggle.Enabled)
		case "brand_new":
			assert.True(t, toggle.Enabled)
		}
	}

	store.SetHandlers([]string{"L. Martínez", "  ", "R. Gómez", "L. Martínez"})
	assert.Equal(t, models.StringList{"L. Martínez", "R. Gómez"}, store.Preferences().Handlers)

	store.Flush()
}

func TestPreferencesSurviveReload(t *testing.T) {
	db := setupProductivityTestDB(t)
	store := NewProductivityStore(db, "user-1")
	assert.NoError(t, store.Init())

	store.UpdateProfile("Ana López", "Visitadora adjunta")
	store.Flush()
	_, err := store.SaveTemplate(models.CaseTemplate{Name: "Queja salud"})
	assert.NoError(t, err)
	store.Close()

	reloaded := NewProductivityStore(db, "user-1")
	assert.NoError(t, reloaded.Init())
	t.Cleanup(reloaded.Close)

	prefs := reloaded.Preferences()
	assert.Equal(t, "Ana López", prefs.DisplayName)
	assert.Equal(t, "Visitadora adjunta", prefs.Position)
	assert.Len(t, prefs.Templates, 1)
	assert.Equal(t, "Queja salud", prefs.Templates[0].Name)
}

func TestConcurrentDraftSavesDoNotRacePersists(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			key := fmt.Sprintf("case-form:%d", g)
			for i := 0; i < 25; i++ {
				if err := store.SaveDraft(key, map[string]string{"iteration": fmt.Sprint(i)}); err != nil {
					t.Errorf("save draft: %v", err)
				}
			}
		}(g)
	}
	wg.Wait()
	store.Flush()

	prefs := store.Preferences()
	assert.Len(t, prefs.Drafts, 4)
	assert.Equal(t, "24", prefs.Drafts["case-form:0"].Fields["iteration"])
}

func TestPreferencesCopyIsDetachedFromStore(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.SaveDraft("case-form:new", map[string]string{"folio": "CDH-2026-001"}))

	snapshot := store.Preferences()

	store.SetSystemToggle("confirm_delete", false)
	assert.NoError(t, store.SaveDraft("case-form:edit", map[string]string{"folio": "CDH-2026-002"}))
	store.ClearDraft("case-form:new")

	assert.Len(t, snapshot.Drafts, 1)
	assert.Contains(t, snapshot.Drafts, "case-form:new")
	for _, toggle := range snapshot.SystemToggles {
		if toggle.Key == "confirm_delete" {
			assert.True(t, toggle.Enabled)
		}
	}
}
