package domain

// Default relation type and type group.
const (
	RelationContains    = "Contains"
	RelationGroupCommon = "COMMON"
)

// Relation is a directed, typed edge between two entities.
type Relation struct {
	From      EntityRef `json:"from"`
	To        EntityRef `json:"to"`
	Type      string    `json:"type" validate:"required,max=64"`
	TypeGroup string    `json:"typeGroup,omitempty"`
}

// Targets returns the "to" side of each relation, preserving order.
func Targets(relations []Relation) []EntityRef {
	refs := make([]EntityRef, len(relations))
	for i, r := range relations {
		refs[i] = r.To
	}
	return refs
}
