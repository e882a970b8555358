package models

import (
	"strings"

	"github.com/Gobusters/ectolinq"
)

// Tag is a global, deduplicated label shared across all entity kinds.
type Tag struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// EntityTag links an entity of any kind to a tag.
type EntityTag struct {
	EntityType EntityKind `json:"entityType" db:"entity_type"`
	EntityID   int64      `json:"entityId" db:"entity_id"`
	TagID      int64      `json:"tagId" db:"tag_id"`
}

// SplitTagCSV splits a comma-separated tag string into trimmed, de-duplicated,
// non-empty names, preserving first-seen order.
func SplitTagCSV(csv string) []string {
	names := []string{}
	for _, raw := range strings.Split(csv, ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if ectolinq.Contains(names, name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

// TagsToCSV renders a tag set back into the comma-separated form the entity
// forms carry on the wire.
func TagsToCSV(tags []Tag) string {
	names := ectolinq.Map(tags, func(t Tag) string { return t.Name })
	return strings.Join(names, ", ")
}

// NormalizeTagsValue coerces the tag shapes proposals arrive with (CSV string,
// array of names, or array of {name} objects) into the CSV form the write
// handlers expect. Unknown shapes normalize to the empty string.
func NormalizeTagsValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.Join(SplitTagCSV(v), ", ")
	case []string:
		return strings.Join(SplitTagCSV(strings.Join(v, ",")), ", ")
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			switch t := item.(type) {
			case string:
				names = append(names, t)
			case map[string]any:
				if name, ok := t["name"].(string); ok {
					names = append(names, name)
				}
			}
		}
		return strings.Join(SplitTagCSV(strings.Join(names, ",")), ", ")
	default:
		return ""
	}
}
