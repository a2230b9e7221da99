package handle_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/studiovault/pkg/api"
	appcache "github.com/yeisme/studiovault/pkg/cache"
	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/internal/ledger"
	"github.com/yeisme/studiovault/pkg/internal/router"
	"github.com/yeisme/studiovault/pkg/internal/storage"
	"github.com/yeisme/studiovault/pkg/internal/storage/kv"
	"github.com/yeisme/studiovault/pkg/internal/storage/object"
	"github.com/yeisme/studiovault/pkg/internal/types"
	"github.com/yeisme/studiovault/pkg/middleware"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func pngOf(size int) []byte {
	b := make([]byte, size)
	copy(b, pngHeader)

	return b
}

type fixture struct {
	engine  *gin.Engine
	objects *object.MemoryStore
	ledger  *ledger.Ledger
}

type fixtureOpts struct {
	limits   ledger.Limits
	role     middleware.Role
	cache    bool
	cacheTTL time.Duration
}

func newFixture(t *testing.T, o fixtureOpts) *fixture {
	t.Helper()

	gin.SetMode(gin.TestMode)
	configs.SetConfig(configs.Defaults())

	if o.role == 0 {
		o.role = middleware.RoleAdmin
	}

	objects := object.NewMemoryStore("http://objects.local/media")
	led := ledger.New(ledger.NewMemoryStore(), objects, o.limits)

	opts := router.Options{}
	if o.cache {
		store, err := kv.NewMemoryKV(context.Background(), nil)
		require.NoError(t, err)

		opts.StatusCache = appcache.NewCache(store, appcache.WithPrefix("status:"))
		opts.StatusCacheTTL = time.Minute
		if o.cacheTTL > 0 {
			opts.StatusCacheTTL = o.cacheTTL
		}
	}

	engine := gin.New()
	engine.Use(
		middleware.RoleMiddleware(o.role),
		middleware.StorageMiddleware(&storage.Manager{Objects: objects}),
		middleware.LedgerMiddleware(led, nil),
	)
	api.RegisterGroup(engine, opts)

	return &fixture{engine: engine, objects: objects, ledger: led}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	return w
}

func (f *fixture) upload(t *testing.T, kind, folder, name string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("kind", kind))
	require.NoError(t, mw.WriteField("folder", folder))

	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)

	_, err = fw.Write(body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return f.do(req)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &v), w.Body.String())

	return v
}

func TestStorageStatusSeedsFromObjects(t *testing.T) {
	f := newFixture(t, fixtureOpts{limits: ledger.Limits{StorageBytes: 1000, UploadOpsDaily: 20}})

	_, err := f.objects.PutObject(context.Background(), "gallery/a.png", bytes.NewReader(pngOf(40)), 40, "image/png")
	require.NoError(t, err)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/storage/status", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode[map[string]map[string]any](t, w)
	assert.EqualValues(t, 40, body["snapshot"]["totalBytes"])
	assert.EqualValues(t, 1, body["snapshot"]["totalFiles"])
	assert.EqualValues(t, 1000, body["limits"]["storageBytes"])
	assert.EqualValues(t, 20, body["limits"]["uploadOpsDaily"])
}

func TestUploadAndDelete(t *testing.T) {
	f := newFixture(t, fixtureOpts{limits: ledger.Limits{StorageBytes: 1000, UploadOpsDaily: 20}})

	w := f.upload(t, "gallery", "weddings", "kiss.png", pngOf(64))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	up := decode[types.UploadMediaResponse](t, w)
	assert.EqualValues(t, 64, up.Size)
	assert.NotEmpty(t, up.URL)

	snap, err := f.ledger.GetSnapshot(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 64, snap.TotalBytes)
	assert.EqualValues(t, 1, snap.UploadOpsToday)

	w = f.do(httptest.NewRequest(http.MethodDelete, "/api/v1/media?key="+url.QueryEscape(up.ObjectKey), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	del := decode[types.DeleteMediaResponse](t, w)
	assert.True(t, del.LedgerUpdated)
	assert.EqualValues(t, 64, del.Size)

	snap, err = f.ledger.GetSnapshot(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snap.TotalBytes)
	assert.Zero(t, snap.TotalFiles)
	assert.EqualValues(t, 1, snap.UploadOpsToday)
}

func TestUploadQuotaStatusCodes(t *testing.T) {
	t.Run("storage", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{limits: ledger.Limits{StorageBytes: 100}})

		w := f.upload(t, "photo", "", "big.png", pngOf(150))
		require.Equal(t, http.StatusInsufficientStorage, w.Code, w.Body.String())

		body := decode[map[string]any](t, w)
		assert.Equal(t, "storage_bytes", body["kind"])
		assert.Equal(t, ledger.ErrStorageLimitExceeded.Error(), body["error"])
		assert.Zero(t, f.objects.Len())
	})

	t.Run("daily uploads", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{limits: ledger.Limits{UploadOpsDaily: 1}})

		require.Equal(t, http.StatusCreated, f.upload(t, "photo", "", "one.png", pngOf(10)).Code)

		w := f.upload(t, "photo", "", "two.png", pngOf(10))
		require.Equal(t, http.StatusTooManyRequests, w.Code, w.Body.String())

		body := decode[map[string]any](t, w)
		assert.Equal(t, "upload_ops_daily", body["kind"])
		assert.Equal(t, 1, f.objects.Len())
	})
}

func TestUploadValidation(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	assert.Equal(t, http.StatusBadRequest, f.upload(t, "poster", "", "a.png", pngOf(10)).Code)
	assert.Equal(t, http.StatusBadRequest, f.upload(t, "gallery", "", "notes.txt", []byte("plain text body")).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media/upload", bytes.NewBufferString("kind=gallery"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, f.do(req).Code)
}

func TestMediaURL(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/media/url?key=missing.png", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/media/url", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"key"`)

	up := decode[types.UploadMediaResponse](t, f.upload(t, "about", "", "team.png", pngOf(12)))

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/media/url?expiry=soon&key="+url.QueryEscape(up.ObjectKey), nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/media/url?expiry=15m&key="+url.QueryEscape(up.ObjectKey), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[types.MediaURLResponse](t, w)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), resp.ExpiresAt, time.Minute)
}

func TestReconcileReplacesSnapshot(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	up := decode[types.UploadMediaResponse](t, f.upload(t, "film", "", "reel.png", pngOf(30)))

	// 绕过流水线直接写入，制造偏差
	_, err := f.objects.PutObject(context.Background(), "film/extra.png", bytes.NewReader(pngOf(70)), 70, "image/png")
	require.NoError(t, err)

	w := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/storage/reconcile", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode[map[string]map[string]any](t, w)
	assert.EqualValues(t, 100, body["snapshot"]["totalBytes"])
	assert.EqualValues(t, 2, body["snapshot"]["totalFiles"])
	assert.NotEmpty(t, body["snapshot"]["lastReconciledAt"])
	assert.NotEmpty(t, up.ObjectKey)
}

func TestRoleEnforcement(t *testing.T) {
	f := newFixture(t, fixtureOpts{role: middleware.RoleViewer})

	assert.Equal(t, http.StatusOK, f.do(httptest.NewRequest(http.MethodGet, "/api/v1/storage/status", nil)).Code)
	assert.Equal(t, http.StatusForbidden, f.upload(t, "gallery", "", "a.png", pngOf(10)).Code)
	assert.Equal(t, http.StatusForbidden, f.do(httptest.NewRequest(http.MethodPost, "/api/v1/storage/reconcile", nil)).Code)
	assert.Equal(t, http.StatusForbidden, f.do(httptest.NewRequest(http.MethodGet, "/api/v1/scheduler/jobs", nil)).Code)
	assert.Zero(t, f.objects.Len())
}

func TestStatusCachePurgedAfterUpload(t *testing.T) {
	f := newFixture(t, fixtureOpts{cache: true})

	status := func() (*httptest.ResponseRecorder, int64) {
		w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/storage/status", nil))
		require.Equal(t, http.StatusOK, w.Code)

		body := decode[map[string]map[string]any](t, w)

		return w, int64(body["snapshot"]["totalBytes"].(float64))
	}

	w, total := status()
	assert.Empty(t, w.Header().Get("X-Cache"))
	assert.Zero(t, total)

	w, _ = status()
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	require.Equal(t, http.StatusCreated, f.upload(t, "gallery", "", "a.png", pngOf(25)).Code)

	w, total = status()
	assert.Empty(t, w.Header().Get("X-Cache"))
	assert.EqualValues(t, 25, total)
}

func TestSchedulerRoutesWithoutScheduler(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/scheduler/jobs", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusCacheEntryExpires(t *testing.T) {
	f := newFixture(t, fixtureOpts{cache: true, cacheTTL: 50 * time.Millisecond})

	get := func() *httptest.ResponseRecorder {
		return f.do(httptest.NewRequest(http.MethodGet, "/api/v1/storage/status", nil))
	}

	require.Equal(t, http.StatusOK, get().Code)

	w := get()
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	// 直接记账，不经过会清缓存的路由
	_, err := f.ledger.RecordSuccessfulUpload(context.Background(), 33)
	require.NoError(t, err)

	time.Sleep(120 * time.Millisecond)

	w = get()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, w.Header().Get("X-Cache"))

	body := decode[map[string]map[string]any](t, w)
	assert.EqualValues(t, 33, body["snapshot"]["totalBytes"])
}
