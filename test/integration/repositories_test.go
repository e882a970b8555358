package integration

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/aster/internal/repositories/pendingedit"
	"github.com/Ramsey-B/aster/internal/repositories/politician"
	"github.com/Ramsey-B/aster/internal/repositories/tag"
	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

// getTestDB connects to the database named by the standard env vars and skips
// the test when none is configured.
func getTestDB(t *testing.T) database.DB {
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		t.Skip("DB_HOST not set; skipping integration tests")
	}
	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}
	dbUser := os.Getenv("DB_USER_NAME")
	dbPass := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "aster"
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", dbHost, dbPort, dbUser, dbPass, dbName)
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return database.NewDatabaseInstance(db, getTestLogger())
}

func TestTagReconcileIdempotence(t *testing.T) {
	db := getTestDB(t)
	logger := getTestLogger()
	tags := tag.NewRepository(db, logger)
	politicians := politician.NewRepository(db, tags, logger)
	ctx := context.Background()

	created, err := politicians.Create(ctx, models.PoliticianForm{
		FirstName: "Tag",
		LastName:  "Reconciler",
		Tags:      "health, budget",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = politicians.Delete(ctx, created.ID) })

	first, err := tags.Reconcile(ctx, models.EntityKindPolitician, created.ID, "health, budget")
	require.NoError(t, err)
	require.Len(t, first, 2)

	// Re-running with the same set must converge to the same rows.
	second, err := tags.Reconcile(ctx, models.EntityKindPolitician, created.ID, "budget, health")
	require.NoError(t, err)
	require.Len(t, second, 2)

	firstIDs := map[string]int64{}
	for _, tg := range first {
		firstIDs[tg.Name] = tg.ID
	}
	for _, tg := range second {
		assert.Equal(t, firstIDs[tg.Name], tg.ID, "tag %q should keep its row across reconciles", tg.Name)
	}

	// Removing a tag from the entity must not delete the global tag row.
	third, err := tags.Reconcile(ctx, models.EntityKindPolitician, created.ID, "health")
	require.NoError(t, err)
	require.Len(t, third, 1)

	listed, err := tags.ListForEntity(ctx, models.EntityKindPolitician, created.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "health", listed[0].Name)
}

func TestPoliticianRoundTrip(t *testing.T) {
	db := getTestDB(t)
	logger := getTestLogger()
	tags := tag.NewRepository(db, logger)
	politicians := politician.NewRepository(db, tags, logger)
	ctx := context.Background()

	year := 2010
	created, err := politicians.Create(ctx, models.PoliticianForm{
		FirstName:   "Jane",
		LastName:    "Rivera",
		Bio:         "Test subject",
		DateOfBirth: "1975-03-14",
		Tags:        "health",
		CareerEntries: []models.CareerEntryForm{
			{Title: "Senator", Organization: "Senate", StartYear: &year},
		},
		SocialMediaLinks: []models.SocialMediaLinkForm{
			{Platform: "twitter", URL: "https://twitter.com/jrivera"},
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = politicians.Delete(ctx, created.ID) })

	loaded, err := politicians.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", loaded.FirstName)
	require.NotNil(t, loaded.DateOfBirth)
	assert.Equal(t, "1975-03-14", models.FormatDate(loaded.DateOfBirth))
	require.Len(t, loaded.CareerEntries, 1)
	assert.Equal(t, "Senator", loaded.CareerEntries[0].Title)
	require.Len(t, loaded.SocialMediaLinks, 1)
	require.Len(t, loaded.Tags, 1)

	// Update replaces collections wholesale.
	updated, err := politicians.Update(ctx, created.ID, models.PoliticianForm{
		FirstName: "Jane",
		LastName:  "Rivera",
		Bio:       "Updated",
		Tags:      "health, reform",
	})
	require.NoError(t, err)
	assert.Equal(t, "Updated", updated.Bio)
	assert.Empty(t, updated.CareerEntries)
	assert.Len(t, updated.Tags, 2)
}

func TestPendingEditLifecycle(t *testing.T) {
	db := getTestDB(t)
	logger := getTestLogger()
	edits := pendingedit.NewRepository(db, logger)
	ctx := context.Background()

	created, err := edits.Create(ctx, models.PendingEdit{
		EntityType:   models.EntityKindParty,
		ProposedData: []byte(`{"name": "Green Alliance"}`),
		SubmitterID:  "user-integration",
		Notes:        "integration test",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PendingEditStatusPending, created.Status)

	entityID := int64(12345)
	ok, err := edits.Transition(ctx, created.ID, models.PendingEditStatusPending, models.PendingEditStatusApproved, "mod-integration", nil, &entityID)
	require.NoError(t, err)
	require.True(t, ok)

	// A second transition from pending must lose.
	ok, err = edits.Transition(ctx, created.ID, models.PendingEditStatusPending, models.PendingEditStatusDenied, "mod-integration", nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	loaded, err := edits.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PendingEditStatusApproved, loaded.Status)
	require.NotNil(t, loaded.EntityID)
	assert.Equal(t, entityID, *loaded.EntityID)

	// Terminal proposals refuse payload rewrites.
	_, err = edits.UpdateData(ctx, created.ID, []byte(`{"name": "Else"}`))
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
}
