package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTagCSV(t *testing.T) {
	t.Run("should split and trim comma separated names", func(t *testing.T) {
		assert.Equal(t, []string{"health", "budget", "reform"}, SplitTagCSV(" health, budget ,reform"))
	})

	t.Run("should drop empty segments", func(t *testing.T) {
		assert.Equal(t, []string{"health"}, SplitTagCSV("health,, ,"))
	})

	t.Run("should de-duplicate preserving first occurrence", func(t *testing.T) {
		assert.Equal(t, []string{"health", "budget"}, SplitTagCSV("health,budget,health"))
	})

	t.Run("should return empty slice for empty input", func(t *testing.T) {
		assert.Empty(t, SplitTagCSV(""))
		assert.Empty(t, SplitTagCSV("  ,  , "))
	})
}

func TestTagsToCSV(t *testing.T) {
	t.Run("should join tag names with comma and space", func(t *testing.T) {
		tags := []Tag{{ID: 1, Name: "health"}, {ID: 2, Name: "budget"}}
		assert.Equal(t, "health, budget", TagsToCSV(tags))
	})

	t.Run("should return empty string for no tags", func(t *testing.T) {
		assert.Equal(t, "", TagsToCSV(nil))
	})
}

func TestNormalizeTagsValue(t *testing.T) {
	t.Run("should normalize a csv string", func(t *testing.T) {
		assert.Equal(t, "health, budget", NormalizeTagsValue(" health ,budget,health"))
	})

	t.Run("should normalize an array of names", func(t *testing.T) {
		assert.Equal(t, "health, budget", NormalizeTagsValue([]any{"health", "budget"}))
	})

	t.Run("should normalize an array of tag objects", func(t *testing.T) {
		value := []any{
			map[string]any{"id": float64(1), "name": "health"},
			map[string]any{"id": float64(2), "name": "budget"},
		}
		assert.Equal(t, "health, budget", NormalizeTagsValue(value))
	})

	t.Run("should normalize mixed arrays", func(t *testing.T) {
		value := []any{"health", map[string]any{"name": "budget"}}
		assert.Equal(t, "health, budget", NormalizeTagsValue(value))
	})

	t.Run("should return empty string for nil and unknown shapes", func(t *testing.T) {
		assert.Equal(t, "", NormalizeTagsValue(nil))
		assert.Equal(t, "", NormalizeTagsValue(42))
		assert.Equal(t, "", NormalizeTagsValue(map[string]any{"name": "health"}))
	})
}
