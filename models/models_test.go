package models

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joe-ervin05/rolebase/data"
	"github.com/joe-ervin05/rolebase/dialect"
	"github.com/joe-ervin05/rolebase/migrations"
	"github.com/joe-ervin05/rolebase/seeders"
	"github.com/joe-ervin05/rolebase/tools"
)

func TestUsersProjection(t *testing.T) {
	qb, err := data.NewQueryBuilder(dialect.MySQL{}, UsersEntity())
	require.NoError(t, err)

	plan, err := qb.ReadByPK(data.BodyOf("id", 7))
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT users.id, users.roleId, users.username, users.email, users.name, users.phone, users.address, users.nik, users.status, roles.name AS role "+
			"FROM users LEFT JOIN roles ON users.roleId = roles.id WHERE users.id = ?",
		plan.Query)
	assert.NotContains(t, plan.Query, "password")
}

func setup(t *testing.T) (*Models, *sql.DB) {
	t.Helper()
	d := dialect.SQLite{}
	db, err := sql.Open(d.Driver(dialect.ConnConfig{}), d.DSN(dialect.ConnConfig{}))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, migrations.NewMigrator(d, db, nil).Migrate(ctx, migrations.Tables()))
	require.NoError(t, seeders.NewSeeder(d, db, nil).Run(ctx, seeders.Defaults()))

	m, err := New(d, db, tools.NewTranslator(d))
	require.NoError(t, err)
	return m, db
}

func TestModelsAgainstSQLite(t *testing.T) {
	m, _ := setup(t)
	ctx := context.Background()

	roles, err := m.Roles.Read(ctx, nil, true)
	require.NoError(t, err)
	require.Len(t, roles, 3)

	admin, err := m.Roles.Read(ctx, data.BodyOf("name", "Admin"), false)
	require.NoError(t, err)
	require.Len(t, admin, 1)
	adminID := admin[0]["id"]

	res, err := m.Users.Create(ctx, data.BodyOf(
		"roleId", adminID,
		"username", "jdoe",
		"email", "jdoe@example.com",
		"password", "$2a$10$hash",
		"name", "J Doe",
	))
	require.NoError(t, err)
	require.Equal(t, int64(1), res.AffectedRows)
	require.NotZero(t, res.InsertID)

	users, err := m.Users.Read(ctx, data.BodyOf("id", res.InsertID), true)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Admin", users[0]["role"])
	assert.Equal(t, "active", users[0]["status"])
	assert.NotContains(t, users[0], "password")

	t.Run("filter by joined alias", func(t *testing.T) {
		rows, err := m.Users.Read(ctx, data.BodyOf("role", "admin"), true)
		require.NoError(t, err)
		assert.Len(t, rows, 1)

		_, err = m.Users.Read(ctx, data.BodyOf("role", "admin"), false)
		require.ErrorIs(t, err, tools.ErrNotFound)
	})

	t.Run("update", func(t *testing.T) {
		_, err := m.Users.Update(ctx, data.BodyOf("id", res.InsertID, "status", "inactive"))
		require.NoError(t, err)

		rows, err := m.Users.Read(ctx, data.BodyOf("status", "inactive"), false)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := m.Users.Create(ctx, data.BodyOf(
			"roleId", adminID,
			"username", "jdoe",
			"email", "other@example.com",
			"password", "x",
			"name", "Other",
		))
		require.ErrorIs(t, err, tools.ErrDupEntry)
	})

	t.Run("referenced role cannot be deleted", func(t *testing.T) {
		_, err := m.Roles.Delete(ctx, data.BodyOf("id", adminID))
		require.Error(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		_, err := m.Users.Delete(ctx, data.BodyOf("id", res.InsertID))
		require.NoError(t, err)

		_, err = m.Users.Delete(ctx, data.BodyOf("id", res.InsertID))
		require.ErrorIs(t, err, tools.ErrNotFound)
	})
}

func TestTruncateAllSQLite(t *testing.T) {
	m, db := setup(t)
	ctx := context.Background()

	require.NoError(t, data.TruncateAll(ctx, db, dialect.SQLite{}, nil))

	_, err := m.Roles.Read(ctx, nil, true)
	require.ErrorIs(t, err, tools.ErrNotFound)
}
