package diff

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/aster/pkg/models"
)

// Category labels how a proposed field differs from the live entity.
type Category string

const (
	CategoryNew     Category = "New"
	CategoryUpdated Category = "Updated"
	CategoryRemoved Category = "Removed"
)

// FieldChange is one reviewable line of a proposal diff.
type FieldChange struct {
	Key             string   `json:"key"`
	Category        Category `json:"category"`
	DisplayProposed string   `json:"displayProposed"`
	DisplayOriginal string   `json:"displayOriginal,omitempty"`
	OriginalPresent bool     `json:"originalPresent"`
}

// Render classifies every proposed field against the original entity snapshot.
// original is nil when the target entity does not exist (new-item proposals).
// Fields on the kind's denylist and unchanged fields are omitted. Output is
// sorted by key for stable rendering.
func Render(spec models.KindSpec, proposed, original map[string]any) []FieldChange {
	keys := make([]string, 0, len(proposed))
	for key := range proposed {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	changes := []FieldChange{}
	for _, key := range keys {
		originalValue, originalPresent := any(nil), false
		if original != nil {
			originalValue, originalPresent = original[key]
		}
		change, ok := ClassifyField(spec, key, proposed[key], originalValue, originalPresent)
		if !ok {
			continue
		}
		changes = append(changes, change)
	}
	return changes
}

// ClassifyField applies the classification rules for a single field. The
// boolean is false when the field should be omitted from the diff.
func ClassifyField(spec models.KindSpec, key string, proposedValue, originalValue any, originalPresent bool) (FieldChange, bool) {
	if ectolinq.Contains(spec.DiffDenylist, key) {
		return FieldChange{}, false
	}

	proposedEmpty := isEmpty(proposedValue)

	if !originalPresent {
		if proposedEmpty {
			return FieldChange{}, false
		}
		return FieldChange{
			Key:             key,
			Category:        CategoryNew,
			DisplayProposed: displayValue(key, proposedValue),
		}, true
	}

	if stringify(proposedValue) == stringify(originalValue) {
		return FieldChange{}, false
	}

	category := CategoryUpdated
	if proposedEmpty && !isEmpty(originalValue) {
		category = CategoryRemoved
	}

	return FieldChange{
		Key:             key,
		Category:        category,
		DisplayProposed: displayValue(key, proposedValue),
		DisplayOriginal: displayValue(key, originalValue),
		OriginalPresent: true,
	}, true
}

// isEmpty is the uniform emptiness predicate: nil, empty string, empty array
// and empty object all count as empty.
func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

// stringify produces the structural comparison form. json.Marshal sorts map
// keys, so two structurally equal objects stringify identically.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; render integral values without
		// the trailing ".0" so 42 compares equal to int64(42).
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case int, int32, int64, bool:
		return fmt.Sprintf("%v", v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// displayValue renders a field for human review. Tag lists become a CSV badge
// line, collections are itemized, and date-like strings are reformatted.
func displayValue(key string, value any) string {
	if value == nil {
		return ""
	}

	if strings.EqualFold(key, "tags") {
		return models.NormalizeTagsValue(value)
	}

	switch v := value.(type) {
	case string:
		if t, err := time.Parse(models.DateLayout, v); err == nil {
			return t.Format("Jan 2, 2006")
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.Format("Jan 2, 2006")
		}
		return v
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, displayItem(item))
		}
		return strings.Join(items, "\n")
	case map[string]any:
		return displayItem(v)
	default:
		return stringify(value)
	}
}

// displayItem flattens a collection element into "field: value" pairs.
func displayItem(item any) string {
	obj, ok := item.(map[string]any)
	if !ok {
		return stringify(item)
	}

	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		if isEmpty(obj[key]) {
			continue
		}
		pairs = append(pairs, fmt.Sprintf("%s: %s", key, stringify(obj[key])))
	}
	return strings.Join(pairs, ", ")
}
