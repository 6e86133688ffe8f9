package authz

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Action is a capability checked once per request.
type Action string

const (
	ActionOrderCreate     Action = "order.create"
	ActionOrderStatus     Action = "order.status"
	ActionOrderClose      Action = "order.close"
	ActionOrderItemStatus Action = "order.item_status"
	ActionOrderRead       Action = "order.read"
	ActionComandaClose    Action = "comanda.close"
	ActionComandaList     Action = "comanda.list"
	ActionReportDaily     Action = "report.daily"
	ActionTableRead       Action = "table.read"
	ActionTableManage     Action = "table.manage"
	ActionUserManage      Action = "user.manage"
)

var actionDescriptions = map[Action]string{
	ActionOrderCreate:     "create orders",
	ActionOrderStatus:     "change order status",
	ActionOrderClose:      "close orders",
	ActionOrderItemStatus: "change item status",
	ActionOrderRead:       "view orders",
	ActionComandaClose:    "close comandas",
	ActionComandaList:     "list closed comandas",
	ActionReportDaily:     "view the daily report",
	ActionTableRead:       "view tables",
	ActionTableManage:     "manage tables",
	ActionUserManage:      "manage users",
}

//go:embed permissions.yaml
var defaultPermissions []byte

// Permissions maps a role to the set of actions it may perform.
type Permissions struct {
	roles map[string]map[Action]struct{}
}

type permissionsFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// LoadPermissions parses a YAML permission table. Unknown actions are rejected.
func LoadPermissions(data []byte) (*Permissions, error) {
	var f permissionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse permissions: %w", err)
	}
	if len(f.Roles) == 0 {
		return nil, fmt.Errorf("parse permissions: no roles defined")
	}

	p := &Permissions{roles: make(map[string]map[Action]struct{}, len(f.Roles))}
	for role, actions := range f.Roles {
		set := make(map[Action]struct{}, len(actions))
		for _, a := range actions {
			action := Action(a)
			if _, ok := actionDescriptions[action]; !ok {
				return nil, fmt.Errorf("parse permissions: role %q: unknown action %q", role, a)
			}
			set[action] = struct{}{}
		}
		p.roles[role] = set
	}
	return p, nil
}

// DefaultPermissions returns the built-in permission table.
func DefaultPermissions() *Permissions {
	p, err := LoadPermissions(defaultPermissions)
	if err != nil {
		panic(err)
	}
	return p
}

// Allows reports whether role may perform action.
func (p *Permissions) Allows(role string, action Action) bool {
	_, ok := p.roles[role][action]
	return ok
}

// RolesFor lists the roles granted action, sorted.
func (p *Permissions) RolesFor(action Action) []string {
	var roles []string
	for role, set := range p.roles {
		if _, ok := set[action]; ok {
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)
	return roles
}

func (p *Permissions) actionsFor(role string) map[Action]struct{} {
	return p.roles[role]
}

// DenialMessage is the user-facing message for a refused action.
func DenialMessage(role string, action Action) string {
	desc, ok := actionDescriptions[action]
	if !ok {
		desc = string(action)
	}
	return fmt.Sprintf("role %q is not allowed to %s", role, desc)
}
