package config

import (
	"database/sql"
	"strings"
	"sync"

	sqlite3 "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// sqliteDriverName is go-sqlite3 with a Unicode-aware LOWER. The built-in
// LOWER folds ASCII only.
const sqliteDriverName = "sqlite3_unicode"

var sqliteDriverOnce sync.Once

// SQLite returns a gorm dialector for dsn on the Unicode-aware driver.
func SQLite(dsn string) gorm.Dialector {
	sqliteDriverOnce.Do(func() {
		sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("lower", unicodeLower, true)
			},
		})
	})
	return &sqlite.Dialector{DriverName: sqliteDriverName, DSN: dsn}
}

func unicodeLower(v interface{}) interface{} {
	switch s := v.(type) {
	case string:
		return strings.ToLower(s)
	case []byte:
		return strings.ToLower(string(s))
	default:
		return v
	}
}
