package dialect

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

// MySQL is the MySQL/MariaDB dialect.
type MySQL struct{}

// mysqlCodes maps server error numbers to taxonomy codes.
var mysqlCodes = map[uint16]string{
	1007: "ER_DB_CREATE_EXISTS",
	1040: "ER_CON_COUNT_ERROR",
	1045: "ER_ACCESS_DENIED_ERROR",
	1049: "ER_BAD_DB_ERROR",
	1050: "ER_TABLE_EXISTS_ERROR",
	1054: "ER_BAD_FIELD_ERROR",
	1062: "ER_DUP_ENTRY",
	1064: "ER_PARSE_ERROR",
	1146: "ER_NO_SUCH_TABLE",
	1205: "ER_LOCK_WAIT_TIMEOUT",
	1292: "ER_TRUNCATED_WRONG_VALUE",
	1366: "ER_TRUNCATED_WRONG_VALUE",
	1406: "ER_DATA_TOO_LONG",
	1451: "ER_ROW_IS_REFERENCED_2",
	1452: "ER_NO_REFERENCED_ROW_2",
	1835: "ER_MALFORMED_PACKET",
}

func (MySQL) Kind() Kind { return KindMySQL }

func (MySQL) Driver(ConnConfig) string { return "mysql" }

// DSN reports matched rather than changed rows, so an UPDATE that rewrites
// identical values still counts the row.
func (MySQL) DSN(c ConnConfig) string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	port := c.Port
	if port == 0 {
		port = 3306
	}
	cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(port))
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	return cfg.FormatDSN()
}

func (MySQL) Placeholder(int) string { return "?" }

func (MySQL) Like() string { return "LIKE" }

// CaseSensitive casts to BINARY so the column's case-insensitive collation is bypassed.
func (MySQL) CaseSensitive(column string) string { return "BINARY " + column }

func (MySQL) AutoIncrement() (string, bool) { return "AUTO_INCREMENT PRIMARY KEY", false }

func (MySQL) EnumType(_, _ string, values []string) string {
	return fmt.Sprintf("ENUM(%s)", quoteValues(values))
}

func (MySQL) CreateEnumType(string, string, []string) string { return "" }

func (MySQL) DeferredForeignKeys() bool { return false }

func (MySQL) Timestamps() (string, string) {
	return "createdAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP",
		"updatedAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP"
}

func (MySQL) ListTables() string { return "SHOW TABLES" }

func (MySQL) ForeignKeyChecks() (string, string) {
	return "SET FOREIGN_KEY_CHECKS = 0", "SET FOREIGN_KEY_CHECKS = 1"
}

func (MySQL) Truncate(tables []string) []string {
	stmts := make([]string, len(tables))
	for i, t := range tables {
		stmts[i] = "TRUNCATE TABLE " + t
	}
	return stmts
}

// ErrorCode maps *mysql.MySQLError server numbers.
func (MySQL) ErrorCode(err error) (string, bool) {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return "", false
	}
	code, ok := mysqlCodes[myErr.Number]
	return code, ok
}
