package models

import "time"

// Report is a submitted leak pending moderation. Attachments are owned
// exclusively by their report and are removed together with it.
type Report struct {
	ID          uint64       `gorm:"primaryKey" json:"id"`
	Content     string       `gorm:"type:text;not null" json:"content"`
	Audited     bool         `gorm:"not null;default:false;index" json:"audited"`
	Attachments []Attachment `gorm:"constraint:OnDelete:CASCADE" json:"attachments"`
	CreatedAt   time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Attachment is one stored file belonging to a report. Reference is the
// storage name handed out by the blob store, unique per file.
type Attachment struct {
	ID          uint64    `gorm:"primaryKey" json:"-"`
	ReportID    uint64    `gorm:"not null;index" json:"-"`
	Reference   string    `gorm:"size:255;not null;uniqueIndex" json:"reference"`
	FileName    string    `gorm:"size:255" json:"file_name"`
	ContentType string    `gorm:"size:255" json:"content_type"`
	Size        int64     `gorm:"default:0" json:"size"`
	SHA256      string    `gorm:"size:64" json:"sha256"`
	SortOrder   int       `gorm:"default:0" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
