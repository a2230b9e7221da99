//go:build !no_sqlite

package db

import (
	"net/url"
	"strings"
)

// pragmasToMattn 把 DSN 中 modernc 风格的 _pragma=name(value) 改写为 mattn/go-sqlite3 识别的 _name=value.
// 账本 CAS 依赖 busy_timeout 等待写锁，mattn 会静默忽略 _pragma，必须改写. 已显式配置的同名参数优先.
func pragmasToMattn(dsn string) string {
	base, rawQuery, ok := strings.Cut(dsn, "?")
	if !ok {
		return dsn
	}

	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return dsn
	}

	pragmas := q["_pragma"]
	if len(pragmas) == 0 {
		return dsn
	}

	q.Del("_pragma")

	for _, p := range pragmas {
		name, value, ok := strings.Cut(p, "(")
		if !ok {
			continue
		}

		key := "_" + strings.ToLower(strings.TrimSpace(name))
		if q.Has(key) {
			continue
		}

		q.Set(key, strings.TrimSuffix(value, ")"))
	}

	return base + "?" + q.Encode()
}
