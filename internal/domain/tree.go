package domain

// TreeNode is one visible row in a flattened hierarchy.
type TreeNode struct {
	ID          string     `json:"id"`
	EntityType  EntityType `json:"entityType"`
	ProfileType string     `json:"profileType"`
	Label       string     `json:"label"`
	Level       int        `json:"level"`
	Expandable  bool       `json:"expandable"`
	IsLoading   bool       `json:"isLoading"`
	ParentID    string     `json:"parentId,omitempty"`
}

// Ref returns the entity reference this node was built from.
func (n TreeNode) Ref() EntityRef {
	return EntityRef{ID: n.ID, EntityType: n.EntityType}
}
