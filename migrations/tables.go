package migrations

// Tables returns the base schema: roles, then users referencing it.
func Tables() []TableSpec {
	return []TableSpec{
		{
			TableName: "roles",
			Columns: []ColumnSpec{
				{Name: "id", DataType: "INT", AutoIncrement: true},
				{Name: "name", DataType: "VARCHAR(50)", Unique: true},
			},
		},
		{
			TableName: "users",
			Columns: []ColumnSpec{
				{Name: "id", DataType: "INT", AutoIncrement: true},
				{Name: "roleId", DataType: "INT", References: &Reference{Table: "roles", Key: "id"}},
				{Name: "username", DataType: "VARCHAR(50)", Unique: true},
				{Name: "email", DataType: "VARCHAR(100)", Unique: true},
				{Name: "password", DataType: "VARCHAR(255)"},
				{Name: "name", DataType: "VARCHAR(100)"},
				{Name: "phone", DataType: "VARCHAR(20)", Nullable: true},
				{Name: "address", DataType: "VARCHAR(255)", Nullable: true},
				{Name: "nik", DataType: "VARCHAR(20)", Nullable: true},
				{Name: "status", DataType: "ENUM('active','inactive')", Default: "'active'"},
			},
			Timestamp: true,
		},
	}
}
