package service

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/yeisme/studiovault/pkg/configs"
	ctxPkg "github.com/yeisme/studiovault/pkg/context"
	"github.com/yeisme/studiovault/pkg/internal/ledger"
	"github.com/yeisme/studiovault/pkg/internal/model"
	"github.com/yeisme/studiovault/pkg/internal/storage/object"
	"github.com/yeisme/studiovault/pkg/internal/types"
	nlog "github.com/yeisme/studiovault/pkg/log"
	"github.com/yeisme/studiovault/pkg/queue"
)

const (
	// DefaultReadURLExpiry 默认预签名读取链接有效期.
	DefaultReadURLExpiry = time.Hour
	// MaxReadURLExpiry S3 预签名链接的最长有效期.
	MaxReadURLExpiry = 7 * 24 * time.Hour

	listPageSize    = 1000
	deleteBatchSize = 500
)

var (
	// ErrInvalidKind 未知的媒体用途.
	ErrInvalidKind = errors.New("invalid media kind")
	// ErrInvalidPath 对象键或前缀为空或非法.
	ErrInvalidPath = errors.New("invalid object path")
	// ErrNotConfigured 服务依赖未注入.
	ErrNotConfigured = errors.New("media service not configured")
)

// 单调 ULID 熵源不是并发安全的，生成时加锁.
var (
	ulidMu      sync.Mutex
	ulidEntropy = ulid.Monotonic(crand.Reader, 0)
)

// Ledger 上传/删除流水线使用的账本操作，*ledger.Ledger 实现了它.
type Ledger interface {
	EnsureCapacity(ctx context.Context, requiredBytes, requiredUploadOps int64) error
	RecordSuccessfulUpload(ctx context.Context, bytes int64) (ledger.Snapshot, error)
	RecordDeletion(ctx context.Context, bytes, filesDeleted int64) (ledger.Snapshot, error)
}

// MediaEvents 媒体事件的发布者，*queue.Notifier 实现了它.
type MediaEvents interface {
	MediaStored(ctx context.Context, payload queue.MediaStoredPayload)
	MediaDeleted(ctx context.Context, payload queue.MediaDeletedPayload)
}

// MediaService 媒体上传与删除流水线.
//
// 上传：转码 -> 容量预检 -> 写入对象 -> 账本记账 -> 写资源记录 -> 发布事件.
// 记账失败时删除刚写入的孤儿对象再返回错误.
// 删除：删除对象 -> 账本扣减（失败不影响删除结果）-> 删除资源记录 -> 发布事件.
type MediaService struct {
	objects    object.Store
	ledger     Ledger
	db         *gorm.DB
	events     MediaEvents
	transcoder Transcoder
	keyPrefix  string
	urlExpiry  time.Duration
	logger     *zerolog.Logger
	now        func() time.Time
}

// MediaOption 配置 MediaService.
type MediaOption func(*MediaService)

// WithAssetDB 资源记录写入的数据库，为 nil 时不记录.
func WithAssetDB(db *gorm.DB) MediaOption {
	return func(s *MediaService) { s.db = db }
}

// WithMediaEvents 设置事件发布者.
func WithMediaEvents(ev MediaEvents) MediaOption {
	return func(s *MediaService) {
		if ev != nil {
			s.events = ev
		}
	}
}

// WithTranscoder 替换转码器.
func WithTranscoder(t Transcoder) MediaOption {
	return func(s *MediaService) {
		if t != nil {
			s.transcoder = t
		}
	}
}

// WithKeyPrefix 所有对象键的公共前缀.
func WithKeyPrefix(prefix string) MediaOption {
	return func(s *MediaService) { s.keyPrefix = strings.Trim(prefix, "/") }
}

// WithReadURLExpiry 默认读取链接有效期.
func WithReadURLExpiry(d time.Duration) MediaOption {
	return func(s *MediaService) {
		if d > 0 {
			s.urlExpiry = d
		}
	}
}

// NewMediaServiceWith 使用显式依赖创建服务.
func NewMediaServiceWith(objects object.Store, led Ledger, opts ...MediaOption) *MediaService {
	s := &MediaService{
		objects:    objects,
		ledger:     led,
		events:     noopEvents{},
		transcoder: PassthroughTranscoder{},
		urlExpiry:  DefaultReadURLExpiry,
		logger:     nlog.Logger(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewMediaService 从请求上下文中取出对象存储、账本、数据库与事件通知器.
func NewMediaService(c context.Context) *MediaService {
	cfg := configs.GetConfig().Media

	maxBytes, err := cfg.MaxUploadBytes()
	if err != nil {
		nlog.Logger().Warn().Err(err).Str("max_upload", cfg.MaxUpload).Msg("invalid media.max_upload, upload size is unlimited")
	}

	opts := []MediaOption{
		WithMediaEvents(ctxPkg.GetNotifier(c)),
		WithTranscoder(PassthroughTranscoder{MaxBytes: maxBytes}),
		WithKeyPrefix(cfg.KeyPrefix),
		WithReadURLExpiry(cfg.ReadURLExpiry),
	}
	if dbc := ctxPkg.GetDBClient(c); dbc != nil {
		opts = append(opts, WithAssetDB(dbc.DB))
	}

	var led Ledger
	if l := ctxPkg.GetLedger(c); l != nil {
		led = l
	}

	return NewMediaServiceWith(ctxPkg.GetObjectStore(c), led, opts...)
}

// UploadInput 一次上传.
type UploadInput struct {
	Kind   model.AssetKind
	Folder string
	Source
}

// Upload 执行完整的上传流水线.
func (s *MediaService) Upload(ctx context.Context, in UploadInput) (*types.UploadMediaResponse, error) {
	if s.objects == nil || s.ledger == nil {
		return nil, ErrNotConfigured
	}

	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, in.Kind)
	}

	folder := cleanFolder(in.Folder)

	media, err := s.transcoder.Transcode(ctx, in.Source)
	if err != nil {
		return nil, err
	}

	// 预检失败时还没有任何写入
	if err := s.ledger.EnsureCapacity(ctx, media.Size, 1); err != nil {
		return nil, err
	}

	fileName := cleanFileName(media.FileName)
	key := s.objectKey(in.Kind, folder, fileName)

	ref, err := s.objects.PutObject(ctx, key, media.Body, media.Size, media.ContentType)
	if err != nil {
		// 传输中途失败时可能已有部分数据落盘
		if rmErr := s.removeOrphan(ctx, key); rmErr != nil {
			return nil, errors.Join(fmt.Errorf("store object: %w", err), rmErr)
		}

		return nil, fmt.Errorf("store object: %w", err)
	}

	size := ref.SizeBytes
	if size <= 0 {
		size = media.Size
	}

	if _, err := s.ledger.RecordSuccessfulUpload(ctx, size); err != nil {
		if rmErr := s.removeOrphan(ctx, key); rmErr != nil {
			return nil, errors.Join(err, rmErr)
		}

		return nil, err
	}

	asset := model.Asset{
		ObjectKey:   key,
		Kind:        in.Kind,
		Folder:      folder,
		FileName:    fileName,
		Size:        size,
		ContentType: media.ContentType,
		ETag:        ref.ETag,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.createAsset(ctx, &asset); err != nil {
		s.rollbackUpload(ctx, key, size)

		return nil, err
	}

	var assetID string
	if asset.ID != 0 {
		assetID = strconv.FormatUint(uint64(asset.ID), 10)
	}

	s.events.MediaStored(ctx, queue.MediaStoredPayload{
		Object: queue.ObjectRef{
			ObjectKey:   key,
			ETag:        ref.ETag,
			Size:        size,
			ContentType: media.ContentType,
		},
		AssetID:  assetID,
		Kind:     string(in.Kind),
		Folder:   folder,
		FileName: fileName,
	})

	resp := &types.UploadMediaResponse{
		ID:          asset.ID,
		ObjectKey:   key,
		Kind:        string(in.Kind),
		Folder:      folder,
		FileName:    fileName,
		Size:        size,
		ContentType: media.ContentType,
		ETag:        ref.ETag,
		CreatedAt:   asset.CreatedAt,
	}

	if u, err := s.objects.ReadURL(ctx, key, s.urlExpiry); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("generate read url failed")
	} else {
		resp.URL = u
	}

	return resp, nil
}

// Delete 删除单个对象；账本扣减与资源记录删除失败只记日志.
func (s *MediaService) Delete(ctx context.Context, key string) (*types.DeleteMediaResponse, error) {
	if s.objects == nil {
		return nil, ErrNotConfigured
	}

	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return nil, ErrInvalidPath
	}

	info, err := s.objects.StatObject(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := s.objects.RemoveObject(ctx, key); err != nil {
		return nil, err
	}

	// 对象已删除，后续步骤不再受请求取消影响
	ctx = context.WithoutCancel(ctx)

	resp := &types.DeleteMediaResponse{ObjectKey: key, Size: info.SizeBytes}
	resp.LedgerUpdated = s.recordDeletion(ctx, info.SizeBytes, 1)

	s.deleteAssets(ctx, []string{key})

	s.events.MediaDeleted(ctx, queue.MediaDeletedPayload{
		Object:        queue.ObjectRef{ObjectKey: key, Size: info.SizeBytes},
		LedgerUpdated: resp.LedgerUpdated,
	})

	return resp, nil
}

// DeleteFolder 删除前缀下的全部对象，账本一次性扣减实际删除的字节数与文件数.
// 中途删除失败时已删除的部分照常记账，并返回错误.
func (s *MediaService) DeleteFolder(ctx context.Context, prefix string) (*types.DeleteFolderResponse, error) {
	if s.objects == nil {
		return nil, ErrNotConfigured
	}

	prefix = cleanFolder(prefix)
	if prefix == "" {
		return nil, ErrInvalidPath
	}

	prefix += "/"

	items, err := s.listAll(ctx, prefix)
	if err != nil {
		return nil, err
	}

	resp := &types.DeleteFolderResponse{Prefix: prefix}
	removed := make([]string, 0, len(items))

	var removeErr error

	for _, it := range items {
		if err := s.objects.RemoveObject(ctx, it.Path); err != nil {
			removeErr = err

			break
		}

		removed = append(removed, it.Path)
		resp.Deleted++
		resp.Bytes += it.SizeBytes
	}

	if resp.Deleted == 0 {
		return resp, removeErr
	}

	ctx = context.WithoutCancel(ctx)

	resp.LedgerUpdated = s.recordDeletion(ctx, resp.Bytes, resp.Deleted)
	s.deleteAssets(ctx, removed)

	for _, it := range items[:len(removed)] {
		s.events.MediaDeleted(ctx, queue.MediaDeletedPayload{
			Object:        queue.ObjectRef{ObjectKey: it.Path, Size: it.SizeBytes},
			LedgerUpdated: resp.LedgerUpdated,
		})
	}

	if removeErr != nil {
		return resp, fmt.Errorf("delete folder %s after %d objects: %w", prefix, resp.Deleted, removeErr)
	}

	return resp, nil
}

// ReadURL 生成读取链接；expiry 不大于 0 时使用默认值，超过 7 天时截断.
func (s *MediaService) ReadURL(ctx context.Context, key string, expiry time.Duration) (*types.MediaURLResponse, error) {
	if s.objects == nil {
		return nil, ErrNotConfigured
	}

	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return nil, ErrInvalidPath
	}

	switch {
	case expiry <= 0:
		expiry = s.urlExpiry
	case expiry > MaxReadURLExpiry:
		expiry = MaxReadURLExpiry
	}

	if _, err := s.objects.StatObject(ctx, key); err != nil {
		return nil, err
	}

	u, err := s.objects.ReadURL(ctx, key, expiry)
	if err != nil {
		return nil, err
	}

	return &types.MediaURLResponse{
		ObjectKey: key,
		URL:       u,
		ExpiresAt: s.now().UTC().Add(expiry),
	}, nil
}

func (s *MediaService) objectKey(kind model.AssetKind, folder, fileName string) string {
	ulidMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(s.now().UTC()), ulidEntropy)
	ulidMu.Unlock()

	parts := make([]string, 0, 4)
	if s.keyPrefix != "" {
		parts = append(parts, s.keyPrefix)
	}

	parts = append(parts, string(kind))
	if folder != "" {
		parts = append(parts, folder)
	}

	parts = append(parts, strings.ToLower(id.String())+"-"+fileName)

	return strings.Join(parts, "/")
}

func (s *MediaService) removeOrphan(ctx context.Context, key string) error {
	if err := s.objects.RemoveObject(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("remove orphaned object failed, ledger will drift until reconcile")

		return fmt.Errorf("remove orphaned object %s: %w", key, err)
	}

	s.logger.Info().Str("key", key).Msg("orphaned object removed")

	return nil
}

// rollbackUpload 撤销已记账的上传：删除对象并扣减账本.
func (s *MediaService) rollbackUpload(ctx context.Context, key string, size int64) {
	if err := s.removeOrphan(ctx, key); err != nil {
		return
	}

	s.recordDeletion(context.WithoutCancel(ctx), size, 1)
}

func (s *MediaService) recordDeletion(ctx context.Context, bytes, files int64) bool {
	if s.ledger == nil {
		return false
	}

	if _, err := s.ledger.RecordDeletion(ctx, bytes, files); err != nil {
		s.logger.Warn().Err(err).Int64("bytes", bytes).Int64("files", files).
			Msg("ledger deletion failed, usage stays overcounted until reconcile")

		return false
	}

	return true
}

func (s *MediaService) createAsset(ctx context.Context, asset *model.Asset) error {
	if s.db == nil {
		return nil
	}

	if err := s.db.WithContext(ctx).Create(asset).Error; err != nil {
		return fmt.Errorf("create asset record: %w", err)
	}

	return nil
}

func (s *MediaService) deleteAssets(ctx context.Context, keys []string) {
	if s.db == nil || len(keys) == 0 {
		return
	}

	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))

		err := s.db.WithContext(ctx).Where("object_key IN ?", keys[start:end]).Delete(&model.Asset{}).Error
		if err != nil {
			s.logger.Warn().Err(err).Int("count", end-start).Msg("delete asset records failed")
		}
	}
}

func (s *MediaService) listAll(ctx context.Context, prefix string) ([]object.Info, error) {
	var (
		items []object.Info
		token string
	)

	for {
		page, err := s.objects.ListObjects(ctx, prefix, token, listPageSize)
		if err != nil {
			return nil, err
		}

		items = append(items, page.Items...)

		if page.NextPageToken == "" {
			return items, nil
		}

		if page.NextPageToken == token {
			return nil, fmt.Errorf("list objects under %s: page token did not advance", prefix)
		}

		token = page.NextPageToken
	}
}

// cleanFolder 规范化目录：去掉首尾斜杠与 ".."，"." 视为空.
func cleanFolder(folder string) string {
	folder = strings.ReplaceAll(strings.TrimSpace(folder), "\\", "/")
	if folder == "" {
		return ""
	}

	folder = strings.Trim(path.Clean("/"+folder), "/")
	if folder == "." {
		return ""
	}

	return folder
}

func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}

	return strings.ReplaceAll(name, " ", "_")
}

type noopEvents struct{}

func (noopEvents) MediaStored(context.Context, queue.MediaStoredPayload)   {}
func (noopEvents) MediaDeleted(context.Context, queue.MediaDeletedPayload) {}
