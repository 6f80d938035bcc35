package database

import (
	"gorm.io/gorm"

	emaildomain "mailflow/internal/email/domain"
	userdomain "mailflow/internal/user/domain"
	workflowdomain "mailflow/internal/workflow/domain"
)

// Migrate creates or updates the schema for every stored model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&userdomain.User{},
		&emaildomain.Email{},
		&emaildomain.EmailRecipient{},
		&emaildomain.EmailAttachment{},
		&emaildomain.Folder{},
		&emaildomain.EmailFolder{},
		&emaildomain.FetchSession{},
		&workflowdomain.Workflow{},
		&workflowdomain.Run{},
		&workflowdomain.RunActivity{},
	)
}
