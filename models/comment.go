package models

import "time"

// CommentStatus defines the moderation state of a comment.
type CommentStatus string

const (
	CommentStatusPending  CommentStatus = "pending"
	CommentStatusApproved CommentStatus = "approved"
	CommentStatusSpam     CommentStatus = "spam"
)

// Comment is attached to exactly one container, a post or a wall, and may reply
// to another comment in the same container.
type Comment struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	Content         string        `gorm:"type:text;not null" json:"content"`
	AuthorID        *string       `gorm:"size:64;index" json:"author_id"`
	AuthorName      string        `gorm:"size:64;not null" json:"author_name"`
	PostID          *uint         `gorm:"index" json:"post_id,omitempty"`
	WallID          *uint         `gorm:"index" json:"wall_id,omitempty"`
	ParentCommentID *uint         `gorm:"index" json:"parent_comment_id,omitempty"`
	Status          CommentStatus `gorm:"size:16;index;not null;default:'pending'" json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`

	Post   *Post    `gorm:"foreignKey:PostID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Wall   *Wall    `gorm:"foreignKey:WallID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Parent *Comment `gorm:"foreignKey:ParentCommentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// CommentWithReplies is a top-level wall comment annotated with its reply count.
type CommentWithReplies struct {
	Comment
	ReplyCount int64 `json:"reply_count"`
}
