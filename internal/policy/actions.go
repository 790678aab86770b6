package policy

// ActionPrefix namespaces every action.
const ActionPrefix = "dcd:actions:"

// Role names known to the policy engine.
const (
	RoleUser       = "user"
	RoleReader     = "reader"
	RoleOwner      = "owner"
	RoleSubject    = "subject"
	RolePerson     = "person"
	RoleGroupAdmin = "groupAdmin"
)

// Actions.
const (
	ActionCreate = "create"
	ActionList   = "list"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionGrant  = "grant"
	ActionRevoke = "revoke"
)

var roleActions = map[string][]string{ //nolint:gochecknoglobals
	RoleUser:       {ActionCreate, ActionList},
	RoleReader:     {ActionRead, ActionList},
	RoleOwner:      {ActionCreate, ActionList, ActionRead, ActionUpdate, ActionDelete, ActionGrant, ActionRevoke},
	RoleSubject:    {ActionCreate, ActionRead, ActionUpdate},
	RolePerson:     {ActionRead, ActionUpdate, ActionDelete},
	RoleGroupAdmin: {ActionRead, ActionUpdate, ActionDelete},
}

// Action returns the namespaced action name.
func Action(name string) string {
	return ActionPrefix + name
}

// ActionsFor returns the namespaced actions granted by role. Unknown roles grant nothing.
func ActionsFor(role string) []string {
	names := roleActions[role]

	actions := make([]string, 0, len(names))
	for _, n := range names {
		actions = append(actions, Action(n))
	}

	return actions
}
