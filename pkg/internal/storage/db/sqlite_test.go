//go:build !no_sqlite

package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/studiovault/pkg/configs"
)

func TestPragmasToMattn(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"file:studio.db", "file:studio.db"},
		{"file:studio.db?cache=shared", "file:studio.db?cache=shared"},
		{
			"file:studio.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
			"file:studio.db?_busy_timeout=5000&_journal_mode=WAL",
		},
		{
			"file:studio.db?_busy_timeout=100&_pragma=busy_timeout(5000)",
			"file:studio.db?_busy_timeout=100",
		},
		{
			"file::memory:?cache=shared&_pragma=foreign_keys(1)",
			"file::memory:?_foreign_keys=1&cache=shared",
		},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, pragmasToMattn(tc.in), tc.in)
	}
}

func TestSQLiteAppliesBusyTimeout(t *testing.T) {
	cfg := &configs.DBConfig{
		Type:         configs.SQLite,
		Database:     filepath.Join(t.TempDir(), "ledger"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
	}

	client, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	var timeout int
	require.NoError(t, client.Raw("PRAGMA busy_timeout").Scan(&timeout).Error)
	assert.Equal(t, 5000, timeout)

	require.NoError(t, client.Migrate(context.Background()))
}
