package models

import "fmt"

// EntityKind identifies one of the four canonical directory entities.
type EntityKind string

const (
	EntityKindPolitician EntityKind = "politician"
	EntityKindParty      EntityKind = "party"
	EntityKindPromise    EntityKind = "promise"
	EntityKindBill       EntityKind = "bill"
)

// KindSpec maps an entity kind to the storage and presentation facts the
// generic subsystems (tag associations, diffing) need. Resolved once at
// startup via KindSpecs; never derived from request strings per call.
type KindSpec struct {
	Kind  EntityKind
	Table string
	Label string

	// DiffDenylist lists derived or server-stamped wire fields the diff
	// renderer must omit entirely.
	DiffDenylist []string
}

var kindSpecs = map[EntityKind]KindSpec{
	EntityKindPolitician: {
		Kind:         EntityKindPolitician,
		Table:        "politicians",
		Label:        "Politician",
		DiffDenylist: []string{"id", "createdAt", "updatedAt", "partyName", "averageRating"},
	},
	EntityKindParty: {
		Kind:         EntityKindParty,
		Table:        "parties",
		Label:        "Party",
		DiffDenylist: []string{"id", "createdAt", "updatedAt", "memberCount"},
	},
	EntityKindPromise: {
		Kind:         EntityKindPromise,
		Table:        "promises",
		Label:        "Promise",
		DiffDenylist: []string{"id", "createdAt", "updatedAt", "politicianName"},
	},
	EntityKindBill: {
		Kind:         EntityKindBill,
		Table:        "bills",
		Label:        "Bill",
		DiffDenylist: []string{"id", "createdAt", "updatedAt"},
	},
}

// KindSpecs returns the startup-resolved kind lookup table.
func KindSpecs() map[EntityKind]KindSpec {
	return kindSpecs
}

// GetKindSpec returns the spec for a kind.
func GetKindSpec(kind EntityKind) (KindSpec, bool) {
	spec, ok := kindSpecs[kind]
	return spec, ok
}

// ParseEntityKind validates a wire entity type string.
func ParseEntityKind(s string) (EntityKind, error) {
	kind := EntityKind(s)
	if _, ok := kindSpecs[kind]; !ok {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return kind, nil
}
