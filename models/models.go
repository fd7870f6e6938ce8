// Package models declares the application's entities and binds them to a database.
package models

import (
	"github.com/joe-ervin05/rolebase/data"
	"github.com/joe-ervin05/rolebase/dialect"
	"github.com/joe-ervin05/rolebase/tools"
)

// RolesEntity describes the roles table.
func RolesEntity() data.Entity {
	return data.Entity{
		Table:    "roles",
		Includes: []string{"id", "name"},
	}
}

// UsersEntity describes the users table with its role joined in. The role name
// is projected and filtered as "role".
func UsersEntity() data.Entity {
	return data.Entity{
		Table: "users",
		Includes: []string{
			"id", "roleId", "username", "email", "name",
			"phone", "address", "nik", "status",
		},
		Writable: []string{"password"},
		Associations: []data.Association{{
			Table:      "roles",
			ForeignKey: "users.roleId",
			References: "roles.id",
			Includes:   []string{"name"},
			Alias:      map[string]string{"name": "role"},
			JoinType:   data.LeftJoin,
		}},
	}
}

// Models is the set of entity models served by the API.
type Models struct {
	Roles *data.Model
	Users *data.Model
}

// New builds every model for d on db.
func New(d dialect.Dialect, db data.Executor, tr *tools.Translator) (*Models, error) {
	roles, err := data.NewQueryBuilder(d, RolesEntity())
	if err != nil {
		return nil, err
	}
	users, err := data.NewQueryBuilder(d, UsersEntity())
	if err != nil {
		return nil, err
	}
	return &Models{
		Roles: data.NewModel(roles, db, tr),
		Users: data.NewModel(users, db, tr),
	}, nil
}
