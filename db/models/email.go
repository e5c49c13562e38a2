package models

import "time"

// EmailLog records an export-notification email sent to a user once a
// background export finishes.
type EmailLog struct {
	ID             string    `gorm:"column:id;primaryKey" json:"id"`
	Recipient      string    `gorm:"column:recipient" json:"recipient"`
	Subject        string    `gorm:"column:subject" json:"subject"`
	Message        string    `gorm:"column:message" json:"message"`
	SentAt         time.Time `gorm:"column:sent_at" json:"sent_at"`
	Active         *bool     `gorm:"column:active" json:"active"`
	AttachmentPath string    `gorm:"column:attachment_path" json:"attachment_path"`
}
