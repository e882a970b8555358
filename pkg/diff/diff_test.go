package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/aster/pkg/models"
)

func politicianSpec(t *testing.T) models.KindSpec {
	t.Helper()
	spec, ok := models.GetKindSpec(models.EntityKindPolitician)
	require.True(t, ok)
	return spec
}

func TestRender(t *testing.T) {
	t.Run("should mark every populated field New for a new item", func(t *testing.T) {
		proposed := map[string]any{
			"firstName": "Jane",
			"lastName":  "Rivera",
			"bio":       "",
		}

		changes := Render(politicianSpec(t), proposed, nil)

		require.Len(t, changes, 2)
		assert.Equal(t, "firstName", changes[0].Key)
		assert.Equal(t, CategoryNew, changes[0].Category)
		assert.Equal(t, "Jane", changes[0].DisplayProposed)
		assert.False(t, changes[0].OriginalPresent)
		assert.Equal(t, "lastName", changes[1].Key)
	})

	t.Run("should omit unchanged fields", func(t *testing.T) {
		proposed := map[string]any{"firstName": "Jane", "bio": "Updated bio"}
		original := map[string]any{"firstName": "Jane", "bio": "Old bio"}

		changes := Render(politicianSpec(t), proposed, original)

		require.Len(t, changes, 1)
		assert.Equal(t, "bio", changes[0].Key)
		assert.Equal(t, CategoryUpdated, changes[0].Category)
		assert.Equal(t, "Updated bio", changes[0].DisplayProposed)
		assert.Equal(t, "Old bio", changes[0].DisplayOriginal)
		assert.True(t, changes[0].OriginalPresent)
	})

	t.Run("should classify cleared fields as Removed", func(t *testing.T) {
		proposed := map[string]any{"websiteUrl": ""}
		original := map[string]any{"websiteUrl": "https://example.com"}

		changes := Render(politicianSpec(t), proposed, original)

		require.Len(t, changes, 1)
		assert.Equal(t, CategoryRemoved, changes[0].Category)
		assert.Equal(t, "https://example.com", changes[0].DisplayOriginal)
	})

	t.Run("should omit denylisted fields even when they differ", func(t *testing.T) {
		proposed := map[string]any{"id": float64(9), "updatedAt": "2026-01-01", "partyName": "New Party"}
		original := map[string]any{"id": float64(1), "updatedAt": "2020-01-01", "partyName": "Old Party"}

		changes := Render(politicianSpec(t), proposed, original)

		assert.Empty(t, changes)
	})

	t.Run("should omit fields that are empty on both sides", func(t *testing.T) {
		proposed := map[string]any{"bio": "", "careerEntries": []any{}}
		original := map[string]any{"bio": "", "careerEntries": []any{}}

		assert.Empty(t, Render(politicianSpec(t), proposed, original))
	})

	t.Run("should sort output by key", func(t *testing.T) {
		proposed := map[string]any{"lastName": "Rivera", "firstName": "Jane"}

		changes := Render(politicianSpec(t), proposed, nil)

		require.Len(t, changes, 2)
		assert.Equal(t, "firstName", changes[0].Key)
		assert.Equal(t, "lastName", changes[1].Key)
	})
}

func TestClassifyField(t *testing.T) {
	spec := models.KindSpec{Kind: models.EntityKindBill, DiffDenylist: []string{"id"}}

	t.Run("should compare numbers structurally regardless of float decoding", func(t *testing.T) {
		_, ok := ClassifyField(spec, "seats", float64(42), int64(42), true)
		assert.False(t, ok)
	})

	t.Run("should compare objects by sorted-key serialization", func(t *testing.T) {
		proposed := map[string]any{"b": float64(2), "a": "x"}
		original := map[string]any{"a": "x", "b": float64(2)}
		_, ok := ClassifyField(spec, "meta", proposed, original, true)
		assert.False(t, ok)
	})

	t.Run("should treat whitespace-only strings as empty", func(t *testing.T) {
		_, ok := ClassifyField(spec, "summary", "   ", nil, false)
		assert.False(t, ok)
	})

	t.Run("should keep New proposals without original display", func(t *testing.T) {
		change, ok := ClassifyField(spec, "title", "Clean Air Act", nil, false)
		require.True(t, ok)
		assert.Equal(t, CategoryNew, change.Category)
		assert.Empty(t, change.DisplayOriginal)
	})
}

func TestDisplayValue(t *testing.T) {
	t.Run("should render tags as a normalized csv", func(t *testing.T) {
		value := []any{map[string]any{"id": float64(1), "name": "health"}, "budget"}
		assert.Equal(t, "health, budget", displayValue("tags", value))
	})

	t.Run("should reformat wire dates", func(t *testing.T) {
		assert.Equal(t, "Mar 14, 1975", displayValue("dateOfBirth", "1975-03-14"))
	})

	t.Run("should reformat RFC3339 timestamps", func(t *testing.T) {
		assert.Equal(t, "Jan 5, 2026", displayValue("startedAt", "2026-01-05T10:30:00Z"))
	})

	t.Run("should itemize collections one element per line", func(t *testing.T) {
		value := []any{
			map[string]any{"title": "Senator", "startYear": float64(2010), "description": ""},
			map[string]any{"title": "Governor", "startYear": float64(2018)},
		}
		assert.Equal(t, "startYear: 2010, title: Senator\nstartYear: 2018, title: Governor", displayValue("careerEntries", value))
	})

	t.Run("should pass plain strings through", func(t *testing.T) {
		assert.Equal(t, "A plain bio", displayValue("bio", "A plain bio"))
	})

	t.Run("should render integral numbers without decimals", func(t *testing.T) {
		assert.Equal(t, "42", displayValue("seatsWon", float64(42)))
	})
}
