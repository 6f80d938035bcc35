package domain

import "time"

// Email is one stored message. It is created exactly once per
// (user, provider id) pair; re-ingestion of a known message is a no-op,
// child rows included.
type Email struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	ProviderID         string    `json:"provider_id" gorm:"index:idx_emails_user_provider,unique;not null"`
	UserID             uint      `json:"user_id" gorm:"index:idx_emails_user_provider,unique;not null"`
	Subject            string    `json:"subject"`
	Body               string    `json:"body"`
	BodyPlainText      string    `json:"body_plain_text"`
	ReceivedTimestamp  time.Time `json:"received_timestamp" gorm:"index;not null"`
	SenderName         string    `json:"sender_name"`
	SenderEmailAddress string    `json:"sender_email_address"`
	CreatedAt          time.Time `json:"created_at"`

	Recipients  []EmailRecipient  `json:"recipients,omitempty" gorm:"foreignKey:EmailID"`
	Attachments []EmailAttachment `json:"attachments,omitempty" gorm:"foreignKey:EmailID"`
}

// Recipient types.
const (
	RecipientTo = "to"
	RecipientCc = "cc"
)

// EmailRecipient is one to/cc entry of an email.
type EmailRecipient struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	EmailID      uint   `json:"email_id" gorm:"index;not null"`
	EmailAddress string `json:"email_address"`
	Name         string `json:"name"`
	Type         string `json:"type" gorm:"not null"`
}

// EmailAttachment is attachment metadata; contents stay with the
// provider.
type EmailAttachment struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	EmailID  uint   `json:"email_id" gorm:"index;not null"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
}

// Folder is a provider folder or label owned by a user. Upserted on
// every ingestion cycle, matching by provider id first, then by name.
type Folder struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	ProviderID string    `json:"provider_id" gorm:"index"`
	Name       string    `json:"name" gorm:"index;not null"`
	Type       string    `json:"type"`
	UserID     uint      `json:"user_id" gorm:"index;not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EmailFolder links an email to a folder. Associations are written
// once, when the email row is first created.
type EmailFolder struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	EmailID  uint `json:"email_id" gorm:"index:idx_email_folder,unique;not null"`
	FolderID uint `json:"folder_id" gorm:"index:idx_email_folder,unique;not null"`
}
