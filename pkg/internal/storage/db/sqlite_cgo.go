//go:build !no_sqlite && cgo

package db

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/studiovault/pkg/configs"
)

// createSQLiteDialector 使用 mattn/go-sqlite3，DSN 中的 _pragma 参数先改写为 mattn 的形式.
func createSQLiteDialector(dsn string) gorm.Dialector {
	return sqlite.Open(pragmasToMattn(dsn))
}

func init() {
	RegisterDialectorFactory(configs.SQLite, createSQLiteDialector)
}
