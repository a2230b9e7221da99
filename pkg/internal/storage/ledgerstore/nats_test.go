package ledgerstore_test

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/internal/ledger"
	"github.com/yeisme/studiovault/pkg/internal/storage/ledgerstore"
)

// 需要开启 JetStream 的 NATS 服务，例如 nats-server -js
func TestNATSStore(t *testing.T) {
	url := os.Getenv("STUDIOVAULT_TEST_NATS_URL")
	if url == "" {
		t.Skip("STUDIOVAULT_TEST_NATS_URL not set")
	}

	cfg := &configs.LedgerConfig{
		Store:      configs.LedgerStoreNATS,
		RecordID:   "contract-" + strconv.FormatInt(time.Now().UnixNano(), 36),
		MaxRetries: 100,
		NATS:       configs.LedgerNATSConfig{URL: url, Bucket: "studiovault-ledger-test"},
	}

	store, err := ledgerstore.New(context.Background(), cfg, ledgerstore.Deps{})
	require.NoError(t, err)

	ns := store.(*ledgerstore.NATSStore)
	t.Cleanup(func() { _ = ns.Close() })

	_, err = ns.Load(context.Background())
	require.ErrorIs(t, err, ledger.ErrSnapshotNotFound)

	runStoreContract(t, store)
}
