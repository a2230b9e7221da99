package kv_test

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	mrand "math/rand"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/internal/storage/kv"
)

func runKVContract(t *testing.T, store kv.KVStore) {
	t.Helper()

	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, kv.ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "ledger:status", []byte(`{"totalBytes":1}`), 0))
	require.NoError(t, store.Set(ctx, "ledger:other", []byte("x"), time.Minute))
	require.NoError(t, store.Set(ctx, "session", []byte("y"), 0))

	got, err := store.Get(ctx, "ledger:status")
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalBytes":1}`, string(got))

	ok, err := store.Exists(ctx, "ledger:other")
	require.NoError(t, err)
	assert.True(t, ok)

	keys, err := store.Keys(ctx, "ledger:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ledger:status", "ledger:other"}, keys)

	require.NoError(t, store.Delete(ctx, "ledger:status"))

	ok, err = store.Exists(ctx, "ledger:status")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryKV(t *testing.T) {
	store, err := kv.NewKVClient(context.Background(), &configs.KVConfig{Type: configs.KVTypeMemory})
	require.NoError(t, err)
	assert.Equal(t, kv.KVTypeMemory, store.Type())

	runKVContract(t, store)
}

func TestMemoryKVExpiry(t *testing.T) {
	ctx := context.Background()
	store, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "short", []byte("v"), 200*time.Millisecond))

	got, err := store.Get(ctx, "short")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	assert.Eventually(t, func() bool {
		_, err := store.Get(ctx, "short")

		return errors.Is(err, kv.ErrKeyNotFound)
	}, 2*time.Second, 20*time.Millisecond)

	// 过期后再次写入同一个键，旧条目的惰性删除不能影响新值
	require.NoError(t, store.Set(ctx, "short", []byte("v2"), 0))
	got, err = store.Get(ctx, "short")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
	require.NoError(t, store.Delete(ctx, "short"))

	keys, err := store.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestGroupcacheKV(t *testing.T) {
	cfg := &configs.GroupcacheKVConfig{Name: "test-groupcache-contract", CacheBytes: 1 << 20}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeGroupcache, cfg)
	require.NoError(t, err)

	runKVContract(t, store)
}

func TestRedisKV(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := kv.NewKVClient(context.Background(), &configs.KVConfig{
		Type:  configs.KVTypeRedis,
		Redis: configs.RedisKVConfig{Addr: mr.Addr()},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	runKVContract(t, store)

	require.NoError(t, store.Set(context.Background(), "ttl", []byte("v"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err = store.Get(context.Background(), "ttl")
	require.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func TestUnsupportedKV(t *testing.T) {
	_, err := kv.NewKVStore(context.Background(), "etcd", nil)
	require.Error(t, err)
}

func BenchmarkMemoryKV(b *testing.B) {
	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	if err != nil {
		b.Fatalf("create memory kv: %v", err)
	}

	benchKV(b, "memory", store)
	benchKVParallel(b, "memory", store)
	_ = store.Close()
}

func BenchmarkGroupcacheKV(b *testing.B) {
	cfg := &configs.GroupcacheKVConfig{
		Name:       "bench-groupcache",
		CacheBytes: 32 * 1024 * 1024, // 32MB
		Peers:      []string{},
		Self:       "http://127.0.0.1:0",
	}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeGroupcache, cfg)
	if err != nil {
		b.Fatalf("create groupcache kv: %v", err)
	}

	benchKV(b, "groupcache", store)
	benchKVParallel(b, "groupcache", store)
	_ = store.Close()
}

// Optional: enable with ENABLE_REDIS_BENCH=1 and REDIS_ADDR set (default 127.0.0.1:6379).
func BenchmarkRedisKV(b *testing.B) {
	if os.Getenv("ENABLE_REDIS_BENCH") == "" {
		b.Skip("set ENABLE_REDIS_BENCH=1 to enable")
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}

	cfg := &configs.RedisKVConfig{Addr: addr, Password: "", DB: 0}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeRedis, cfg)
	if err != nil {
		b.Skipf("redis not available: %v", err)
		return
	}

	benchKV(b, "redis", store)
	benchKVParallel(b, "redis", store)
	_ = store.Close()
}

// Optional: enable with ENABLE_NATS_BENCH=1 and NATS_URL set (default nats://127.0.0.1:4222)
func BenchmarkNATSKV(b *testing.B) {
	if os.Getenv("ENABLE_NATS_BENCH") == "" {
		b.Skip("set ENABLE_NATS_BENCH=1 to enable")
	}

	url := os.Getenv("NATS_URL")
	if url == "" {
		url = "nats://127.0.0.1:4222"
	}

	bucket := os.Getenv("NATS_BUCKET")
	if bucket == "" {
		bucket = "bench-kv"
	}

	cfg := &configs.NATSKVConfig{URL: url, User: "", Password: "", Bucket: bucket}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeNATS, cfg)
	if err != nil {
		b.Skipf("nats not available: %v", err)
		return
	}

	benchKV(b, "nats", store)
	benchKVParallel(b, "nats", store)
	_ = store.Close()
}

// randBytes returns n random bytes, seeded reproducibly for bench.
func randBytes(n int) []byte {
	b := make([]byte, n)
	// Try crypto/rand; if it fails (unlikely in tests), fallback to deterministic PRNG.
	if _, err := crand.Read(b); err != nil {
		mr := mrand.New(mrand.NewSource(42))
		for i := range b {
			b[i] = byte(mr.Intn(256))
		}
	}

	return b
}

// benchKV 执行基本的 Set/Get/Delete 基准测试.
func benchKV(b *testing.B, name string, store kv.KVStore) {
	ctx := context.Background()
	sizes := []int{32, 1024, 64 * 1024}
	ttls := []time.Duration{0, 5 * time.Second}

	for _, size := range sizes {
		payload := randBytes(size)
		for _, ttl := range ttls {
			b.Run(fmt.Sprintf("%s/size=%d/ttl=%s", name, size, ttl), func(b *testing.B) {
				// ensure clean
				b.ReportAllocs()

				for i := 0; b.Loop(); i++ {
					// Use hyphens to ensure keys are valid for NATS KV
					key := fmt.Sprintf("bench-%s-%d", name, i)
					if err := store.Set(ctx, key, payload, ttl); err != nil {
						b.Fatalf("set failed: %v", err)
					}

					if _, err := store.Get(ctx, key); err != nil {
						b.Fatalf("get failed: %v", err)
					}

					if err := store.Delete(ctx, key); err != nil {
						b.Fatalf("delete failed: %v", err)
					}
				}
			})
		}
	}
}

// benchKVParallel 执行并行的 Set/Get/Delete 基准测试.
func benchKVParallel(b *testing.B, name string, store kv.KVStore) {
	ctx := context.Background()
	size := 1024
	payload := randBytes(size)

	var ctr uint64

	b.Run(fmt.Sprintf("%s/parallel", name), func(b *testing.B) {
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				i := atomic.AddUint64(&ctr, 1)

				// Use hyphens to ensure keys are valid for NATS KV
				key := fmt.Sprintf("bench-%s-p-%d", name, i)
				if err := store.Set(ctx, key, payload, 0); err != nil {
					b.Fatalf("set failed: %v", err)
				}

				if _, err := store.Get(ctx, key); err != nil {
					b.Fatalf("get failed: %v", err)
				}

				if err := store.Delete(ctx, key); err != nil {
					b.Fatalf("delete failed: %v", err)
				}
			}
		})
	})
}
