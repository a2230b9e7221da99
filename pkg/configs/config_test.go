package configs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/studiovault/pkg/configs"
)

func TestParseByteSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"1024", 1024},
		{"1KB", 1024},
		{"500MB", 500 << 20},
		{"5GB", 5 << 30},
	}

	for _, tc := range cases {
		got, err := configs.ParseByteSize(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := configs.ParseByteSize("five gigs")
	require.Error(t, err)
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "5.0 GB", configs.HumanBytes(5<<30))
	assert.Equal(t, "-3.0 MB", configs.HumanBytes(-(3 << 20)))
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := configs.Defaults()
	require.NoError(t, configs.Validate(&cfg))

	limit, err := cfg.Ledger.StorageLimitBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(5<<30), limit)
	assert.Equal(t, int64(configs.DefaultLedgerUploadOpsDaily), cfg.Ledger.UploadOpsDailyLimit)
	assert.Equal(t, configs.LedgerStoreDB, cfg.Ledger.Store)
	assert.Zero(t, cfg.Ledger.StatusCacheTTL)

	drift, err := cfg.Ledger.DriftAlertBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), drift)
}

func TestValidateRejectsUnknownLedgerStore(t *testing.T) {
	cfg := configs.Defaults()
	cfg.Ledger.Store = "etcd"

	require.ErrorIs(t, configs.Validate(&cfg), configs.ErrInvalidConfig)
}

func TestInitConfigFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	body := []byte("ledger:\n  store: memory\n  storage_limit: 2GB\n  status_cache_ttl: 5s\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), body, 0o600))

	t.Setenv("STUDIOVAULT_LEDGER_UPLOAD_OPS_DAILY_LIMIT", "42")

	require.NoError(t, configs.InitConfig(dir))

	cfg := configs.GetConfig()
	assert.Equal(t, configs.LedgerStoreMemory, cfg.Ledger.Store)
	assert.Equal(t, "2GB", cfg.Ledger.StorageLimit)
	assert.Equal(t, 5*time.Second, cfg.Ledger.StatusCacheTTL)
	assert.Equal(t, int64(42), cfg.Ledger.UploadOpsDailyLimit)
}
