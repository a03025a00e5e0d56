package domain

import "time"

// ContactMessage is a contact form submission.
type ContactMessage struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	Email     string    `gorm:"type:text;not null" json:"email"`
	Subject   string    `gorm:"type:text" json:"subject"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Timestamp time.Time `gorm:"autoCreateTime" json:"timestamp"`
}

// TableName returns the database table name for ContactMessage.
func (ContactMessage) TableName() string {
	return "contacts"
}
