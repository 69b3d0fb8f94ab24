package permissions

import (
	"fmt"
	"strings"
)

// Actions.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Resources.
const (
	ResourceHotel      = "hotel"
	ResourceRoom       = "room"
	ResourceBooking    = "booking"
	ResourceUser       = "user"
	ResourceRole       = "role"
	ResourcePermission = "permission"
	ResourceAudit      = "audit"
)

// Definition is a built-in (action, resource) pair.
type Definition struct {
	Action      string
	Resource    string
	Description string
	// Admin marks pairs granted to the global admin role on first sync.
	Admin bool
}

// Name is the display label stored with the permission, e.g. "booking.create".
func (d Definition) Name() string {
	return Name(d.Action, d.Resource)
}

func Name(action, resource string) string {
	return strings.TrimSpace(resource) + "." + strings.TrimSpace(action)
}

var builtin = buildCatalogue()

func buildCatalogue() []Definition {
	crud := []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}
	managed := []struct {
		resource string
		admin    bool
	}{
		{ResourceHotel, true},
		{ResourceRoom, true},
		{ResourceBooking, true},
		{ResourceUser, true},
		{ResourceRole, false},
		{ResourcePermission, false},
	}

	defs := make([]Definition, 0, len(managed)*len(crud)+1)
	for _, m := range managed {
		for _, action := range crud {
			defs = append(defs, Definition{
				Action:      action,
				Resource:    m.resource,
				Description: fmt.Sprintf("%s %ss", strings.ToUpper(action[:1])+action[1:], m.resource),
				Admin:       m.admin,
			})
		}
	}
	defs = append(defs, Definition{
		Action:      ActionRead,
		Resource:    ResourceAudit,
		Description: "Read the audit trail",
		Admin:       true,
	})
	return defs
}

// Builtin returns a copy of the catalogue.
func Builtin() []Definition {
	out := make([]Definition, len(builtin))
	copy(out, builtin)
	return out
}

// Lookup finds a built-in definition.
func Lookup(action, resource string) (Definition, bool) {
	for _, def := range builtin {
		if def.Action == action && def.Resource == resource {
			return def, true
		}
	}
	return Definition{}, false
}
