package utils

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/aster/pkg/models"
)

func TestParseArguments(t *testing.T) {
	t.Run("should pass through a value that is already the target type", func(t *testing.T) {
		form := models.BillForm{Title: "Clean Air Act"}
		got, err := ParseArguments[models.BillForm](form)
		assert.NoError(t, err)
		assert.Equal(t, form, got)
	})

	t.Run("should unmarshal raw json directly", func(t *testing.T) {
		raw := json.RawMessage(`{"title": "Clean Air Act", "billNumber": "HB-112"}`)
		got, err := ParseArguments[models.BillForm](raw)
		assert.NoError(t, err)
		assert.Equal(t, "Clean Air Act", got.Title)
		assert.Equal(t, "HB-112", got.BillNumber)
	})

	t.Run("should round trip maps through json", func(t *testing.T) {
		got, err := ParseArguments[models.BillForm](map[string]any{"title": "Clean Air Act"})
		assert.NoError(t, err)
		assert.Equal(t, "Clean Air Act", got.Title)
	})

	t.Run("should return error for malformed raw json", func(t *testing.T) {
		_, err := ParseArguments[models.BillForm](json.RawMessage(`{"title": 12`))
		assert.Error(t, err)
	})
}

func TestValidateArguments(t *testing.T) {
	t.Run("should return 422 with field messages for missing required fields", func(t *testing.T) {
		_, err := ValidateArguments[models.BillForm](json.RawMessage(`{}`))
		require.Error(t, err)

		require.True(t, httperror.IsHTTPError(err))
		assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))

		fields, ok := httperror.ToHTTPError(err).Meta["fields"].(map[string]string)
		require.True(t, ok)
		assert.Equal(t, "is required", fields["title"])
	})

	t.Run("should reject invalid enum values", func(t *testing.T) {
		raw := json.RawMessage(`{"title": "Clean Air Act", "status": "vetoed"}`)
		_, err := ValidateArguments[models.BillForm](raw)
		require.Error(t, err)

		require.True(t, httperror.IsHTTPError(err))
		fields := httperror.ToHTTPError(err).Meta["fields"].(map[string]string)
		assert.Contains(t, fields["status"], "must be one of")
	})

	t.Run("should reject malformed urls and dates", func(t *testing.T) {
		raw := json.RawMessage(`{"title": "Clean Air Act", "fullTextUrl": "not a url", "introducedDate": "17 March"}`)
		_, err := ValidateArguments[models.BillForm](raw)
		require.Error(t, err)

		fields := httperror.ToHTTPError(err).Meta["fields"].(map[string]string)
		assert.Equal(t, "must be a valid URL", fields["fullTextUrl"])
		assert.Contains(t, fields["introducedDate"], "must be a date")
	})

	t.Run("should accept a fully valid form", func(t *testing.T) {
		raw := json.RawMessage(`{"title": "Clean Air Act", "status": "introduced", "introducedDate": "2026-02-01", "fullTextUrl": "https://example.com/bill"}`)
		form, err := ValidateArguments[models.BillForm](raw)
		assert.NoError(t, err)
		assert.Equal(t, "introduced", form.Status)
	})
}

func TestValidateValue(t *testing.T) {
	t.Run("should validate scalar values against a tag", func(t *testing.T) {
		assert.NoError(t, ValidateValue("42", "number"))
		assert.Error(t, ValidateValue("abc", "number"))
	})
}
