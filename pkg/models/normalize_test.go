package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNullString(t *testing.T) {
	t.Run("should return nil for empty and whitespace strings", func(t *testing.T) {
		assert.Nil(t, NullString(""))
		assert.Nil(t, NullString("   "))
	})

	t.Run("should return trimmed value otherwise", func(t *testing.T) {
		got := NullString("  https://example.com  ")
		assert.NotNil(t, got)
		assert.Equal(t, "https://example.com", *got)
	})
}

func TestNullDate(t *testing.T) {
	t.Run("should return nil for empty input", func(t *testing.T) {
		assert.Nil(t, NullDate(""))
		assert.Nil(t, NullDate("  "))
	})

	t.Run("should parse a wire date", func(t *testing.T) {
		got := NullDate("1975-03-14")
		assert.NotNil(t, got)
		assert.Equal(t, time.Date(1975, 3, 14, 0, 0, 0, 0, time.UTC), *got)
	})

	t.Run("should return nil for malformed input", func(t *testing.T) {
		assert.Nil(t, NullDate("03/14/1975"))
	})
}

func TestFormatDate(t *testing.T) {
	t.Run("should render a stored date", func(t *testing.T) {
		d := time.Date(1975, 3, 14, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, "1975-03-14", FormatDate(&d))
	})

	t.Run("should return empty string for nil", func(t *testing.T) {
		assert.Equal(t, "", FormatDate(nil))
	})
}

func TestParseEntityKind(t *testing.T) {
	t.Run("should accept the four canonical kinds", func(t *testing.T) {
		for _, s := range []string{"politician", "party", "promise", "bill"} {
			kind, err := ParseEntityKind(s)
			assert.NoError(t, err)
			assert.Equal(t, EntityKind(s), kind)
		}
	})

	t.Run("should reject unknown kinds", func(t *testing.T) {
		_, err := ParseEntityKind("committee")
		assert.Error(t, err)
	})
}

func TestGetKindSpec(t *testing.T) {
	t.Run("should expose the diff denylist per kind", func(t *testing.T) {
		spec, ok := GetKindSpec(EntityKindPolitician)
		assert.True(t, ok)
		assert.Contains(t, spec.DiffDenylist, "updatedAt")
		assert.Contains(t, spec.DiffDenylist, "partyName")
	})

	t.Run("should report unknown kinds", func(t *testing.T) {
		_, ok := GetKindSpec(EntityKind("committee"))
		assert.False(t, ok)
	})
}
