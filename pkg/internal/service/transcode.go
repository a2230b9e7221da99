package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrFileTooLarge 单个文件超过 media.max_upload.
	ErrFileTooLarge = errors.New("file exceeds the upload size limit")
	// ErrUnsupportedMedia 文件内容既不是图片也不是视频.
	ErrUnsupportedMedia = errors.New("unsupported media type")
	// ErrEmptyFile 空文件.
	ErrEmptyFile = errors.New("empty file")
)

// Source 待转码的原始上传.
type Source struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

// Media 转码结果；Size 在写入对象存储之前即已确定，用于容量预检.
type Media struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Transcoder 把上传内容转换为最终落盘的格式.
type Transcoder interface {
	Transcode(ctx context.Context, src Source) (Media, error)
}

// PassthroughTranscoder 不改变内容，只做大小限制与内容嗅探.
type PassthroughTranscoder struct {
	// MaxBytes 单文件上限，0 表示不限制
	MaxBytes int64
}

var _ Transcoder = PassthroughTranscoder{}

// Transcode 读入全部内容，以嗅探结果为准设置 Content-Type，并按实际类型修正文件扩展名.
func (t PassthroughTranscoder) Transcode(ctx context.Context, src Source) (Media, error) {
	r := src.Body
	if t.MaxBytes > 0 {
		r = io.LimitReader(src.Body, t.MaxBytes+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Media{}, fmt.Errorf("read upload: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return Media{}, err
	}

	if len(data) == 0 {
		return Media{}, ErrEmptyFile
	}

	if t.MaxBytes > 0 && int64(len(data)) > t.MaxBytes {
		return Media{}, fmt.Errorf("%w (%d bytes)", ErrFileTooLarge, t.MaxBytes)
	}

	mt := mimetype.Detect(data)
	if !isMedia(mt) {
		return Media{}, fmt.Errorf("%w: %s", ErrUnsupportedMedia, mt.String())
	}

	return Media{
		FileName:    fixExtension(src.FileName, mt.Extension()),
		ContentType: mt.String(),
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	}, nil
}

func isMedia(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		s := m.String()
		if strings.HasPrefix(s, "image/") || strings.HasPrefix(s, "video/") {
			return true
		}
	}

	return false
}

// fixExtension 扩展名与嗅探结果不一致时追加正确的扩展名；jpg/jpeg 这类别名视为一致.
func fixExtension(name, ext string) string {
	if ext == "" {
		return name
	}

	cur := strings.ToLower(path.Ext(name))
	if cur == ext || (cur == ".jpg" && ext == ".jpeg") || (cur == ".jpeg" && ext == ".jpg") {
		return name
	}

	return name + ext
}
