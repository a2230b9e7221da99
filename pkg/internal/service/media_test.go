package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/studiovault/pkg/internal/ledger"
	"github.com/yeisme/studiovault/pkg/internal/model"
	"github.com/yeisme/studiovault/pkg/internal/service"
	"github.com/yeisme/studiovault/pkg/internal/storage/object"
	"github.com/yeisme/studiovault/pkg/queue"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func pngOf(size int) []byte {
	b := make([]byte, size)
	copy(b, pngHeader)

	return b
}

func upload(kind model.AssetKind, folder, name string, body []byte) service.UploadInput {
	return service.UploadInput{
		Kind:   kind,
		Folder: folder,
		Source: service.Source{FileName: name, Body: bytes.NewReader(body)},
	}
}

// recordingEvents 记录发布的媒体事件.
type recordingEvents struct {
	mu      sync.Mutex
	stored  []queue.MediaStoredPayload
	deleted []queue.MediaDeletedPayload
}

func (r *recordingEvents) MediaStored(_ context.Context, p queue.MediaStoredPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, p)
}

func (r *recordingEvents) MediaDeleted(_ context.Context, p queue.MediaDeletedPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, p)
}

// flakyLedger 包装真实账本，可注入记账失败.
type flakyLedger struct {
	*ledger.Ledger
	recordErr   error
	deletionErr error
}

func (f *flakyLedger) RecordSuccessfulUpload(ctx context.Context, n int64) (ledger.Snapshot, error) {
	if f.recordErr != nil {
		return ledger.Snapshot{}, f.recordErr
	}

	return f.Ledger.RecordSuccessfulUpload(ctx, n)
}

func (f *flakyLedger) RecordDeletion(ctx context.Context, n, files int64) (ledger.Snapshot, error) {
	if f.deletionErr != nil {
		return ledger.Snapshot{}, f.deletionErr
	}

	return f.Ledger.RecordDeletion(ctx, n, files)
}

// failingPut 写入时先落下部分数据再失败，模拟传输中断.
type failingPut struct {
	*object.MemoryStore
}

func (f failingPut) PutObject(ctx context.Context, p string, r io.Reader, _ int64, ct string) (object.Ref, error) {
	_, _ = f.MemoryStore.PutObject(ctx, p, io.LimitReader(r, 4), -1, ct)

	return object.Ref{}, errors.New("connection reset by peer")
}

type fixture struct {
	objects *object.MemoryStore
	store   *ledger.MemoryStore
	ledger  *flakyLedger
	events  *recordingEvents
	db      *gorm.DB
	svc     *service.MediaService
}

func newFixture(t *testing.T, limits ledger.Limits, opts ...service.MediaOption) *fixture {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "assets.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(model.All()...))

	f := &fixture{
		objects: object.NewMemoryStore("http://objects.test/studio"),
		store:   ledger.NewMemoryStore(),
		events:  &recordingEvents{},
		db:      db,
	}
	f.ledger = &flakyLedger{Ledger: ledger.New(f.store, f.objects, limits)}

	opts = append([]service.MediaOption{
		service.WithAssetDB(db),
		service.WithMediaEvents(f.events),
		service.WithTranscoder(service.PassthroughTranscoder{MaxBytes: 1 << 20}),
	}, opts...)
	f.svc = service.NewMediaServiceWith(f.objects, f.ledger, opts...)

	return f
}

func (f *fixture) snapshot(t *testing.T) ledger.Snapshot {
	t.Helper()

	snap, err := f.store.Load(context.Background())
	require.NoError(t, err)

	return snap
}

func (f *fixture) assetCount(t *testing.T) int64 {
	t.Helper()

	var n int64
	require.NoError(t, f.db.Model(&model.Asset{}).Count(&n).Error)

	return n
}

func TestUploadRecordsObjectAndLedger(t *testing.T) {
	f := newFixture(t, ledger.Limits{StorageBytes: 1000, UploadOpsDaily: 10}, service.WithKeyPrefix("/studio/"))

	resp, err := f.svc.Upload(context.Background(), upload(model.AssetGallery, "weddings/../2026 spring", "first dance.png", pngOf(120)))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.ObjectKey, "studio/gallery/2026 spring/"), resp.ObjectKey)
	assert.True(t, strings.HasSuffix(resp.ObjectKey, "-first_dance.png"), resp.ObjectKey)
	assert.Equal(t, int64(120), resp.Size)
	assert.Equal(t, "image/png", resp.ContentType)
	assert.NotEmpty(t, resp.URL)
	assert.NotZero(t, resp.ID)

	snap := f.snapshot(t)
	assert.Equal(t, int64(120), snap.TotalBytes)
	assert.Equal(t, int64(1), snap.TotalFiles)
	assert.Equal(t, int64(1), snap.UploadOpsToday)

	assert.Equal(t, 1, f.objects.Len())
	assert.Equal(t, int64(1), f.assetCount(t))

	require.Len(t, f.events.stored, 1)
	assert.Equal(t, resp.ObjectKey, f.events.stored[0].Object.ObjectKey)
	assert.Equal(t, "gallery", f.events.stored[0].Kind)
}

func TestUploadGuardRejectsBeforeWriting(t *testing.T) {
	f := newFixture(t, ledger.Limits{StorageBytes: 100, UploadOpsDaily: 10})

	_, err := f.svc.Upload(context.Background(), upload(model.AssetPhoto, "", "big.png", pngOf(150)))
	require.ErrorIs(t, err, ledger.ErrStorageLimitExceeded)

	assert.Equal(t, 0, f.objects.Len())
	assert.Equal(t, int64(0), f.assetCount(t))
	assert.Empty(t, f.events.stored)
}

func TestUploadRemovesOrphanWhenRecordFails(t *testing.T) {
	f := newFixture(t, ledger.Limits{StorageBytes: 1000, UploadOpsDaily: 10})
	f.ledger.recordErr = &ledger.LimitError{Kind: ledger.ErrUploadOpsLimitExceeded, Current: 10, Requested: 1, Limit: 10}

	_, err := f.svc.Upload(context.Background(), upload(model.AssetPhoto, "", "a.png", pngOf(50)))
	require.ErrorIs(t, err, ledger.ErrUploadOpsLimitExceeded)

	assert.Equal(t, 0, f.objects.Len())
	assert.Equal(t, int64(0), f.assetCount(t))

	snap := f.snapshot(t)
	assert.Equal(t, int64(0), snap.TotalBytes)
	assert.Equal(t, int64(0), snap.UploadOpsToday)
}

func TestUploadPutFailureLeavesLedgerUntouched(t *testing.T) {
	f := newFixture(t, ledger.Limits{StorageBytes: 1000, UploadOpsDaily: 10})
	svc := service.NewMediaServiceWith(failingPut{f.objects}, f.ledger)

	_, err := svc.Upload(context.Background(), upload(model.AssetPhoto, "", "a.png", pngOf(50)))
	require.Error(t, err)

	assert.Equal(t, 0, f.objects.Len(), "partial bytes are cleaned up")

	snap := f.snapshot(t)
	assert.Equal(t, int64(0), snap.TotalBytes)
	assert.Equal(t, int64(0), snap.TotalFiles)
}

func TestConcurrentUploadsNeverOvershoot(t *testing.T) {
	f := newFixture(t, ledger.Limits{StorageBytes: 100, UploadOpsDaily: 10})
	_, err := f.ledger.Reconcile(context.Background())
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)

	for i := range errs {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, errs[i] = f.svc.Upload(context.Background(), upload(model.AssetFilm, "", "clip.png", pngOf(60)))
		}()
	}

	wg.Wait()

	failed := 0

	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, ledger.ErrStorageLimitExceeded)

			failed++
		}
	}

	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, f.objects.Len())
	assert.Equal(t, int64(60), f.snapshot(t).TotalBytes)
}

func TestUploadRejectsInvalidInput(t *testing.T) {
	f := newFixture(t, ledger.Limits{})

	tests := []struct {
		name string
		in   service.UploadInput
		want error
	}{
		{"unknown kind", upload("poster", "", "a.png", pngOf(10)), service.ErrInvalidKind},
		{"not media", upload(model.AssetAbout, "", "notes.txt", []byte("hello studio")), service.ErrUnsupportedMedia},
		{"empty", upload(model.AssetAbout, "", "empty.png", nil), service.ErrEmptyFile},
		{"too large", upload(model.AssetAbout, "", "huge.png", pngOf(1<<20+1)), service.ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Upload(context.Background(), tt.in)
			require.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, 0, f.objects.Len())
}

func TestDeleteProceedsWhenLedgerFails(t *testing.T) {
	f := newFixture(t, ledger.Limits{})

	resp, err := f.svc.Upload(context.Background(), upload(model.AssetProfile, "", "me.png", pngOf(80)))
	require.NoError(t, err)

	f.ledger.deletionErr = errors.New("ledger store unavailable")

	del, err := f.svc.Delete(context.Background(), resp.ObjectKey)
	require.NoError(t, err)
	assert.False(t, del.LedgerUpdated)
	assert.Equal(t, int64(80), del.Size)

	assert.Equal(t, 0, f.objects.Len())
	assert.Equal(t, int64(0), f.assetCount(t))
	// 扣减失败时账本偏高，等待对账修正
	assert.Equal(t, int64(80), f.snapshot(t).TotalBytes)

	require.Len(t, f.events.deleted, 1)
	assert.False(t, f.events.deleted[0].LedgerUpdated)
}

func TestDeleteMissingObject(t *testing.T) {
	f := newFixture(t, ledger.Limits{})

	_, err := f.svc.Delete(context.Background(), "photo/none.png")
	require.ErrorIs(t, err, object.ErrNotFound)

	_, err = f.svc.Delete(context.Background(), "  ")
	require.ErrorIs(t, err, service.ErrInvalidPath)
}

func TestDeleteFolder(t *testing.T) {
	f := newFixture(t, ledger.Limits{})
	ctx := context.Background()

	for _, in := range []service.UploadInput{
		upload(model.AssetGallery, "smith", "1.png", pngOf(10)),
		upload(model.AssetGallery, "smith/raw", "2.png", pngOf(20)),
		upload(model.AssetGallery, "smithson", "3.png", pngOf(30)),
	} {
		_, err := f.svc.Upload(ctx, in)
		require.NoError(t, err)
	}

	resp, err := f.svc.DeleteFolder(ctx, "/gallery/smith/")
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Deleted)
	assert.Equal(t, int64(30), resp.Bytes)
	assert.True(t, resp.LedgerUpdated)

	snap := f.snapshot(t)
	assert.Equal(t, int64(30), snap.TotalBytes)
	assert.Equal(t, int64(1), snap.TotalFiles)
	assert.Equal(t, 1, f.objects.Len())
	assert.Equal(t, int64(1), f.assetCount(t))

	_, err = f.svc.DeleteFolder(ctx, "/")
	require.ErrorIs(t, err, service.ErrInvalidPath)
}

func TestReadURL(t *testing.T) {
	f := newFixture(t, ledger.Limits{})
	ctx := context.Background()

	up, err := f.svc.Upload(ctx, upload(model.AssetTestimonial, "", "quote.png", pngOf(10)))
	require.NoError(t, err)

	resp, err := f.svc.ReadURL(ctx, up.ObjectKey, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Contains(t, resp.URL, "http://objects.test/studio/")
	assert.WithinDuration(t, time.Now().Add(service.MaxReadURLExpiry), resp.ExpiresAt, time.Minute)

	_, err = f.svc.ReadURL(ctx, "testimonial/missing.png", 0)
	require.ErrorIs(t, err, object.ErrNotFound)
}

func TestPassthroughTranscoderFixesExtension(t *testing.T) {
	jpeg := append([]byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"), make([]byte, 32)...)

	tests := []struct {
		name string
		want string
	}{
		{"portrait.jpg", "portrait.jpg"},
		{"portrait.JPEG", "portrait.JPEG"},
		{"portrait", "portrait.jpg"},
		{"portrait.png", "portrait.png.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := service.PassthroughTranscoder{}.Transcode(context.Background(),
				service.Source{FileName: tt.name, Body: bytes.NewReader(jpeg)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.FileName)
			assert.Equal(t, "image/jpeg", m.ContentType)
			assert.Equal(t, int64(len(jpeg)), m.Size)
		})
	}
}
