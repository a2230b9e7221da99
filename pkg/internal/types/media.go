package types

import "time"

// UploadMediaRequest multipart 表单上传参数，文件本身通过 file 字段传输.
type UploadMediaRequest struct {
	Kind   string `form:"kind"   rule:"required"`
	Folder string `form:"folder" rule:"max=512"`
}

// DeleteMediaRequest 删除单个对象.
type DeleteMediaRequest struct {
	Key string `form:"key" rule:"required,max=1024"`
}

// DeleteFolderRequest 按前缀删除.
type DeleteFolderRequest struct {
	Prefix string `form:"prefix" rule:"required,max=1024"`
}

// MediaURLRequest 获取读取链接，Expiry 为 Go duration 字符串（如 15m）.
type MediaURLRequest struct {
	Key    string `form:"key"    rule:"required,max=1024"`
	Expiry string `form:"expiry"`
}

// UploadMediaResponse 上传成功后的资源信息.
type UploadMediaResponse struct {
	ID          uint      `json:"id,omitempty"`
	ObjectKey   string    `json:"object_key"`
	Kind        string    `json:"kind"`
	Folder      string    `json:"folder,omitempty"`
	FileName    string    `json:"file_name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	ETag        string    `json:"etag,omitempty"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// DeleteMediaResponse 删除单个对象的结果.
type DeleteMediaResponse struct {
	ObjectKey string `json:"object_key"`
	Size      int64  `json:"size"`
	// LedgerUpdated 为 false 表示账本扣减失败，等待下一次对账修正
	LedgerUpdated bool `json:"ledger_updated"`
}

// DeleteFolderResponse 按前缀批量删除的结果.
type DeleteFolderResponse struct {
	Prefix        string `json:"prefix"`
	Deleted       int64  `json:"deleted"`
	Bytes         int64  `json:"bytes"`
	LedgerUpdated bool   `json:"ledger_updated"`
}

// MediaURLResponse 预签名读取链接.
type MediaURLResponse struct {
	ObjectKey string    `json:"object_key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// QuotaErrorResponse 配额不足（507 / 429）时的响应体.
type QuotaErrorResponse struct {
	Error string `json:"error"`
	// Kind storage_bytes 或 upload_ops_daily
	Kind      string `json:"kind"`
	Current   int64  `json:"current"`
	Requested int64  `json:"requested"`
	Limit     int64  `json:"limit"`
}
