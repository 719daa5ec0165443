package services

import (
	"testing"
	"time"

	"expedientes_app_go/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&models.Expediente{}, &models.NextAction{}, &models.CaseDocument{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestRepo(t *testing.T) *CaseRepository {
	t.Helper()
	repo := NewCaseRepository(setupRepoTestDB(t), nil)
	t.Cleanup(repo.Close)
	return repo
}

func sampleInput(folio string) ExpedienteInput {
	return ExpedienteInput{
		Folio:          folio,
		FilingDate:     "2026-01-15",
		RightsCategory: "Derecho de petición",
		Authority:      "Secretaría de Salud",
		Handler:        "L. Martínez",
	}
}

func TestCreateAndReconcile(t *testing.T) {
	repo := newTestRepo(t)

	created, err := repo.Create(sampleInput("org/2026/001"))
	assert.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "ORG-2026-001", created.Folio)
	assert.Equal(t, models.StatusAdmitido, created.Status)
	assert.Equal(t, "2026-01-15", created.LastMovementDate)

	// Snapshot reflects the database after the reconciling refetch
	assert.Equal(t, 1, repo.Count())
	got, ok := repo.Get(created.ID)
	assert.True(t, ok)
	assert.Equal(t, "ORG-2026-001", got.Folio)
}

func TestCreateRejectsDuplicateFolioCaseInsensitive(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Create(sampleInput("ORG-2026-001"))
	assert.NoError(t, err)

	// Same folio in different casing and separators
	_, err = repo.Create(sampleInput("org/2026/001"))
	assert.True(t, IsConflict(err))
	assert.Contains(t, err.Error(), "ORG-2026-001")

	// The failed create leaves the snapshot untouched
	assert.Equal(t, 1, repo.Count())
}

func TestCreateRejectsFutureFilingDateBeforePersisting(t *testing.T) {
	repo := newTestRepo(t)

	in := sampleInput("ORG-2026-002")
	in.FilingDate = time.Now().AddDate(0, 0, 2).Format(DateLayout)
	_, err := repo.Create(in)
	assert.True(t, IsValidation(err))
	assert.Equal(t, 0, repo.Count())
}

func TestUpdateStatusAdvancesLastMovement(t *testing.T) {
	repo := newTestRepo(t)

	created, err := repo.Create(sampleInput("ORG-2026-003"))
	assert.NoError(t, err)

	status := models.StatusResuelto
	updated, err := repo.Update(created.ID, ExpedientePatch{Status: &status})
	assert.NoError(t, err)
	assert.Equal(t, models.StatusResuelto, updated.Status)
	assert.Equal(t, Today(), updated.LastMovementDate)
}

func TestUpdateFolioCollision(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Create(sampleInput("ORG-2026-004"))
	assert.NoError(t, err)
	second, err := repo.Create(sampleInput("ORG-2026-005"))
	assert.NoError(t, err)

	folio := "org-2026-004"
	_, err = repo.Update(second.ID, ExpedientePatch{Folio: &folio})
	assert.True(t, IsConflict(err))

	// Renaming to its own folio is fine
	own := "ORG-2026-005"
	_, err = repo.Update(second.ID, ExpedientePatch{Folio: &own})
	assert.NoError(t, err)
}

func TestUpdateUnknownIDIsLocalNotFound(t *testing.T) {
	repo := newTestRepo(t)

	status := models.StatusResuelto
	_, err := repo.Update("no-such-id", ExpedientePatch{Status: &status})
	assert.True(t, IsNotFound(err))
}

func TestDeleteRemovesOwnedChildren(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewCaseRepository(db, nil)
	t.Cleanup(repo.Close)

	created, err := repo.Create(sampleInput("ORG-2026-006"))
	assert.NoError(t, err)

	db.Create(&models.NextAction{
		UserID:  "user-1",
		CaseID:  created.ID,
		Text:    "Solicitar informe",
		DueDate: "2026-02-01",
	})
	db.Create(&models.CaseDocument{
		CaseID:     created.ID,
		FileName:   "informe.pdf",
		StorageKey: "cases/" + created.ID + "/informe.pdf",
	})

	assert.NoError(t, repo.Delete(created.ID))
	assert.Equal(t, 0, repo.Count())

	var actions, docs int64
	db.Model(&models.NextAction{}).Where("case_id = ?", created.ID).Count(&actions)
	db.Model(&models.CaseDocument{}).Where("case_id = ?", created.ID).Count(&docs)
	assert.Zero(t, actions)
	assert.Zero(t, docs)

	assert.True(t, IsNotFound(repo.Delete(created.ID)))
}

func TestChangeFeedTriggersDebouncedRefetch(t *testing.T) {
	db := setupRepoTestDB(t)
	feed := NewChangeFeed()
	repo := NewCaseRepository(db, feed)
	t.Cleanup(repo.Close)

	// Write behind the repository's back, as another session would
	record := &models.Expediente{
		Folio:             "ORG-2026-007",
		FilingDate:        "2026-01-15",
		LastMovementDate:  "2026-01-15",
		RightsCategory:    "Salud",
		Authority:         "IMSS",
		Handler:           "R. Gómez",
		Status:            models.StatusAdmitido,
		RegistrationMonth: "Enero 2026",
	}
	assert.NoError(t, db.Create(record).Error)
	assert.Equal(t, 0, repo.Count())

	feed.Publish(ChangeEvent{Table: TableExpedientes, Kind: ChangeInsert, RowID: record.ID})

	// Refetch fires once the debounce window elapses
	assert.Eventually(t, func() bool {
		return repo.Count() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestFindByFolioIsCaseInsensitive(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Create(sampleInput("ORG-2026-008"))
	assert.NoError(t, err)

	found, ok := repo.FindByFolio("org-2026-008")
	assert.True(t, ok)
	assert.Equal(t, "ORG-2026-008", found.Folio)

	_, ok = repo.FindByFolio("ORG-2026-999")
	assert.False(t, ok)
}
