package domain

import "fmt"

// EntityType classifies an entity. Only assets and devices take part in the
// hierarchy by default.
type EntityType string

const (
	EntityTypeAsset  EntityType = "ASSET"
	EntityTypeDevice EntityType = "DEVICE"
)

// ParseEntityType accepts the canonical upper-case name as well as the
// lower-case plural used in URL paths ("assets", "devices").
func ParseEntityType(s string) (EntityType, error) {
	switch s {
	case "ASSET", "asset", "assets":
		return EntityTypeAsset, nil
	case "DEVICE", "device", "devices":
		return EntityTypeDevice, nil
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// EntityRef uniquely addresses one entity.
type EntityRef struct {
	ID         string     `json:"id" validate:"required"`
	EntityType EntityType `json:"entityType" validate:"required"`
}

func (r EntityRef) String() string {
	return string(r.EntityType) + ":" + r.ID
}

// Entity is an asset or a device.
type Entity struct {
	ID        EntityRef `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Label     string    `json:"label,omitempty"`
	CreatedAt string    `json:"createdAt"`
}

// CreateEntityInput holds the data needed to create an entity.
type CreateEntityInput struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name" validate:"required,max=255"`
	Type  string `json:"type" validate:"required,max=64"`
	Label string `json:"label,omitempty" validate:"max=255"`
}

// EntityPage is a paginated list of entities.
type EntityPage struct {
	Results []*Entity
	After   string
	HasMore bool
}

// AssetHierarchyInput describes an asset to create together with the assets
// nested under it. Attributes are stored under SERVER_SCOPE.
type AssetHierarchyInput struct {
	CreateEntityInput
	Attributes map[string]any        `json:"attributes,omitempty"`
	Children   []AssetHierarchyInput `json:"children,omitempty" validate:"dive"`
}
