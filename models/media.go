package models

import "time"

// Media file kinds derived from the declared content type.
const (
	MediaTypeImage = "image"
	MediaTypeAudio = "audio"
	MediaTypeVideo = "video"
)

// Media records an object held by the storage service. Rows are immutable
// except for deletion.
type Media struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FileName   string    `gorm:"size:255;not null" json:"file_name"`
	FileSize   int64     `gorm:"not null" json:"file_size"`
	FileType   string    `gorm:"size:16;not null" json:"file_type"`
	StorageKey string    `gorm:"size:512;not null;uniqueIndex" json:"storage_key"`
	URL        string    `gorm:"size:1024" json:"url"`
	PostID     *uint     `gorm:"index" json:"post_id,omitempty"`
	CommentID  *uint     `gorm:"index" json:"comment_id,omitempty"`
	UploadedBy string    `gorm:"size:64;index;not null" json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Media) TableName() string {
	return "media"
}
