package model

import (
	"time"
)

// AssetKind 媒体用途.
type AssetKind string

const (
	AssetProfile     AssetKind = "profile"
	AssetGallery     AssetKind = "gallery"
	AssetPhoto       AssetKind = "photo"
	AssetFilm        AssetKind = "film"
	AssetTestimonial AssetKind = "testimonial"
	AssetAbout       AssetKind = "about"
)

// Valid 是否为已知用途.
func (k AssetKind) Valid() bool {
	switch k {
	case AssetProfile, AssetGallery, AssetPhoto, AssetFilm, AssetTestimonial, AssetAbout:
		return true
	default:
		return false
	}
}

// Asset 已上传的媒体对象，对象键唯一.
type Asset struct {
	ID          uint      `gorm:"primaryKey"                 json:"id"`
	ObjectKey   string    `gorm:"size:512;uniqueIndex"       json:"object_key"`
	Kind        AssetKind `gorm:"size:32;index"              json:"kind"`
	Folder      string    `gorm:"size:512;index"             json:"folder"`
	FileName    string    `gorm:"size:512"                   json:"file_name"`
	Size        int64     `json:"size"`
	ContentType string    `gorm:"size:255"                   json:"content_type"`
	ETag        string    `gorm:"size:64"                    json:"etag"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
