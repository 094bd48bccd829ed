package admin

import (
	"context"

	"github.com/gabrielmiguelok/eventadmin/pkg/api"
	"github.com/gabrielmiguelok/eventadmin/pkg/forms"
	"github.com/gabrielmiguelok/eventadmin/pkg/wizard"
)

const usernamePattern = `^[A-Za-z0-9._@-]+$`

// UserSnapshot is the accumulated input of the new user wizard. Passwords
// are never written to drafts.
type UserSnapshot struct {
	Username string   `msgpack:"username"`
	Name     string   `msgpack:"name"`
	Email    string   `msgpack:"email"`
	Password string   `msgpack:"-"`
	Confirm  string   `msgpack:"-"`
	Roles    []string `msgpack:"roles"`
}

func (UserSnapshot) Kind() string { return "user" }

// UserWizard creates a user account.
type UserWizard struct{}

func (UserWizard) Title() string { return "Create user" }

func (UserWizard) Initial() UserSnapshot { return UserSnapshot{} }

func (UserWizard) Messages() Messages {
	return Messages{Context: "new-user-form", Success: "USER_ADDED", Failure: "USER_NOT_SAVED"}
}

func (d UserWizard) Pages() []wizard.Page[UserSnapshot] {
	userRule := fieldRule(d.Fields, "user", checkPasswords)
	return []wizard.Page[UserSnapshot]{
		{Name: "user", Rule: userRule},
		{Name: "roles"},
		{Name: "summary", Rule: userRule},
	}
}

func checkPasswords(s UserSnapshot, errs forms.Errors) {
	if s.Password != "" && s.Confirm != s.Password {
		errs.Add("password_confirm", "The passwords do not match")
	}
}

func (UserWizard) Load(ctx context.Context, b Backend) (Lookups, error) {
	return loadLookups(ctx, b, needRoles, "")
}

func (UserWizard) Fields(page string, s UserSnapshot, env Env) []forms.Field {
	switch page {
	case "user":
		return []forms.Field{
			forms.NewField("username", forms.FieldText, "Username", forms.WithRequired(), forms.WithValue(s.Username),
				forms.WithValidator(forms.Pattern(usernamePattern, "Only letters, digits and . _ @ - are allowed"))),
			forms.NewField("name", forms.FieldText, "Name", forms.WithRequired(), forms.WithValue(s.Name)),
			forms.NewField("email", forms.FieldEmail, "Email", forms.WithRequired(), forms.WithValue(s.Email)),
			forms.NewField("password", forms.FieldPassword, "Password", forms.WithRequired(), forms.WithValue(s.Password),
				forms.WithValidator(forms.MinLength(8))),
			forms.NewField("password_confirm", forms.FieldPassword, "Repeat password", forms.WithRequired(),
				forms.WithValue(s.Confirm)),
		}
	case "roles":
		return []forms.Field{
			forms.NewField("roles", forms.FieldMultiSelect, "Roles", forms.WithValue(s.Roles),
				forms.WithOptions(roleOptions(env, s.Roles...)...)),
		}
	case "summary":
		fields := []forms.Field{
			readOnly("summary_username", "Username", s.Username),
			readOnly("summary_name", "Name", s.Name),
			readOnly("summary_email", "Email", s.Email),
			readOnly("summary_roles", "Roles", s.Roles),
		}
		if s.Password == "" {
			fields = append(fields, readOnly("summary_password", "Password", "Not set, go back to the first page"))
		}
		return fields
	}
	return nil
}

func (UserWizard) Bind(page string, s UserSnapshot, in forms.Values, env Env) UserSnapshot {
	switch page {
	case "user":
		setString(&s.Username, in, "username")
		setString(&s.Name, in, "name")
		setString(&s.Email, in, "email")
		if in.Has("password") {
			s.Password, _ = in["password"].(string)
		}
		if in.Has("password_confirm") {
			s.Confirm, _ = in["password_confirm"].(string)
		}
	case "roles":
		setStrings(&s.Roles, in, "roles")
	}
	return s
}

func (UserWizard) Submit(ctx context.Context, b Backend, s UserSnapshot) error {
	return b.CreateUser(ctx, api.NewUser{
		Username: s.Username,
		Name:     s.Name,
		Email:    s.Email,
		Password: s.Password,
		Roles:    s.Roles,
	})
}

// GroupSnapshot is the accumulated input of the new group wizard.
type GroupSnapshot struct {
	Name        string   `msgpack:"name"`
	Description string   `msgpack:"description"`
	Roles       []string `msgpack:"roles"`
	Users       []string `msgpack:"users"`
}

func (GroupSnapshot) Kind() string { return "group" }

// GroupWizard creates a group.
type GroupWizard struct{}

func (GroupWizard) Title() string { return "Create group" }

func (GroupWizard) Initial() GroupSnapshot { return GroupSnapshot{} }

func (GroupWizard) Messages() Messages {
	return Messages{Context: "new-group-form", Success: "GROUP_ADDED", Failure: "GROUP_NOT_SAVED"}
}

func (d GroupWizard) Pages() []wizard.Page[GroupSnapshot] {
	return []wizard.Page[GroupSnapshot]{
		{Name: "metadata", Rule: fieldRule(d.Fields, "metadata")},
		{Name: "roles"},
		{Name: "users", Rule: fieldRule(d.Fields, "users")},
		{Name: "summary"},
	}
}

func (GroupWizard) Load(ctx context.Context, b Backend) (Lookups, error) {
	return loadLookups(ctx, b, needRoles, "")
}

func (GroupWizard) Fields(page string, s GroupSnapshot, env Env) []forms.Field {
	switch page {
	case "metadata":
		return []forms.Field{
			forms.NewField("name", forms.FieldText, "Name", forms.WithRequired(), forms.WithValue(s.Name)),
			forms.NewField("description", forms.FieldTextarea, "Description", forms.WithValue(s.Description)),
		}
	case "roles":
		return []forms.Field{
			forms.NewField("roles", forms.FieldMultiSelect, "Roles", forms.WithValue(s.Roles),
				forms.WithOptions(roleOptions(env, s.Roles...)...)),
		}
	case "users":
		return []forms.Field{
			forms.NewField("users", forms.FieldTextarea, "Members", forms.WithValue(s.Users),
				forms.WithHelp("Usernames separated by commas."),
				forms.WithValidator(forms.Custom(func(v any) error {
					list, _ := v.([]string)
					for _, u := range list {
						if err := forms.Pattern(usernamePattern).Validate(u); err != nil {
							return err
						}
					}
					return nil
				}, "Usernames may only contain letters, digits and . _ @ -"))),
		}
	case "summary":
		return []forms.Field{
			readOnly("summary_name", "Name", s.Name),
			readOnly("summary_roles", "Roles", s.Roles),
			readOnly("summary_users", "Members", s.Users),
		}
	}
	return nil
}

func (GroupWizard) Bind(page string, s GroupSnapshot, in forms.Values, env Env) GroupSnapshot {
	switch page {
	case "metadata":
		setString(&s.Name, in, "name")
		setString(&s.Description, in, "description")
	case "roles":
		setStrings(&s.Roles, in, "roles")
	case "users":
		setStrings(&s.Users, in, "users")
	}
	return s
}

func (GroupWizard) Submit(ctx context.Context, b Backend, s GroupSnapshot) error {
	return b.CreateGroup(ctx, api.NewGroup{
		Name:        s.Name,
		Description: s.Description,
		Roles:       s.Roles,
		Users:       s.Users,
	})
}

// ACLSnapshot is the accumulated input of the new access policy wizard.
type ACLSnapshot struct {
	Name   string `msgpack:"name"`
	Access Access `msgpack:"access"`
}

func (ACLSnapshot) Kind() string { return "acl" }

// ACLWizard creates an access policy template.
type ACLWizard struct{}

func (ACLWizard) Title() string { return "Create access policy" }

func (ACLWizard) Initial() ACLSnapshot { return ACLSnapshot{Access: defaultAccess()} }

func (ACLWizard) Messages() Messages {
	return Messages{Context: "new-acl-form", Success: "ACL_ADDED", Failure: "ACL_NOT_SAVED"}
}

func (d ACLWizard) Pages() []wizard.Page[ACLSnapshot] {
	return []wizard.Page[ACLSnapshot]{
		{Name: "metadata", Rule: fieldRule(d.Fields, "metadata")},
		{Name: "access", Rule: fieldRule(d.Fields, "access", func(s ACLSnapshot, errs forms.Errors) {
			checkAccess(s.Access, errs)
		})},
		{Name: "summary"},
	}
}

func (ACLWizard) Load(ctx context.Context, b Backend) (Lookups, error) {
	return loadLookups(ctx, b, needRoles, "")
}

func (ACLWizard) Fields(page string, s ACLSnapshot, env Env) []forms.Field {
	switch page {
	case "metadata":
		return []forms.Field{
			forms.NewField("name", forms.FieldText, "Name", forms.WithRequired(), forms.WithValue(s.Name)),
		}
	case "access":
		return accessFields(s.Access, env)
	case "summary":
		return append([]forms.Field{readOnly("summary_name", "Name", s.Name)}, accessSummary(s.Access)...)
	}
	return nil
}

func (ACLWizard) Bind(page string, s ACLSnapshot, in forms.Values, env Env) ACLSnapshot {
	switch page {
	case "metadata":
		setString(&s.Name, in, "name")
	case "access":
		s.Access = bindAccess(s.Access, in)
	}
	return s
}

func (ACLWizard) Submit(ctx context.Context, b Backend, s ACLSnapshot) error {
	_, err := b.CreateACL(ctx, api.NewACL{Name: s.Name, ACL: s.Access.ACL()})
	return err
}
