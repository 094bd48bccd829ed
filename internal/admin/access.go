package admin

import (
	"slices"

	"github.com/gabrielmiguelok/eventadmin/pkg/api"
	"github.com/gabrielmiguelok/eventadmin/pkg/forms"
)

// DefaultAdminRole is granted write access on new access policies.
const DefaultAdminRole = "ROLE_ADMIN"

// Access is the role selection of an access page. Write implies read.
type Access struct {
	Read  []string `msgpack:"read"`
	Write []string `msgpack:"write"`
}

func defaultAccess() Access {
	return Access{Write: []string{DefaultAdminRole}}
}

// ACL converts the selection into access control entries, one per role in
// role order.
func (a Access) ACL() []api.ACE {
	write := make(map[string]bool, len(a.Write))
	for _, r := range a.Write {
		write[r] = true
	}
	roles := slices.Concat(a.Read, a.Write)
	slices.Sort(roles)
	roles = slices.Compact(roles)

	out := make([]api.ACE, 0, len(roles))
	for _, r := range roles {
		out = append(out, api.ACE{Role: r, Read: true, Write: write[r]})
	}
	return out
}

func accessFields(a Access, env Env) []forms.Field {
	return []forms.Field{
		forms.NewField("read_roles", forms.FieldMultiSelect, "Roles that can view",
			forms.WithValue(a.Read), forms.WithOptions(roleOptions(env, a.Read...)...)),
		forms.NewField("write_roles", forms.FieldMultiSelect, "Roles that can edit",
			forms.WithValue(a.Write), forms.WithOptions(roleOptions(env, a.Write...)...),
			forms.WithHelp("At least one role must be allowed to <b>edit</b>.")),
	}
}

func bindAccess(a Access, in forms.Values) Access {
	setStrings(&a.Read, in, "read_roles")
	setStrings(&a.Write, in, "write_roles")
	return a
}

func checkAccess(a Access, errs forms.Errors) {
	if len(a.Write) == 0 {
		errs.Add("write_roles", "At least one role must be allowed to edit")
	}
}

func accessSummary(a Access) []forms.Field {
	return []forms.Field{
		readOnly("summary_read", "Can view", a.Read),
		readOnly("summary_write", "Can edit", a.Write),
	}
}
