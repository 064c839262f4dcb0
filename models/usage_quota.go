package models

import "time"

// UsageQuota accumulates upload usage per user. Counters only grow.
type UsageQuota struct {
	UserID         string    `gorm:"primaryKey;size:64" json:"user_id"`
	TotalBytesUsed int64     `gorm:"not null;default:0" json:"total_bytes_used"`
	TotalFiles     int64     `gorm:"not null;default:0" json:"total_files"`
	ResetDate      time.Time `json:"reset_date"`
}

// TableName specifies the table name for GORM.
func (UsageQuota) TableName() string {
	return "usage_quota"
}

// All lists every model the service migrates, in dependency order.
func All() []interface{} {
	return []interface{}{&User{}, &Post{}, &Wall{}, &Comment{}, &Media{}, &UsageQuota{}}
}
