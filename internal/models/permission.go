package models

// Permission grants one (action, resource) pair. Name is a display label.
type Permission struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null;size:128" json:"name"`
	Action      string `gorm:"not null;size:64;uniqueIndex:idx_permissions_action_resource" json:"action"`
	Resource    string `gorm:"not null;size:64;uniqueIndex:idx_permissions_action_resource" json:"resource"`
	Description string `json:"description"`
}

// Matches reports whether p grants action on resource.
func (p Permission) Matches(action, resource string) bool {
	return p.Action == action && p.Resource == resource
}
