package cli

import (
	"fmt"
	"io"

	emailrepo "mailflow/internal/email/repository"
	"mailflow/internal/provider"
	userrepo "mailflow/internal/user/repository"
	workflowrepo "mailflow/internal/workflow/repository"
	"mailflow/pkg/config"
	"mailflow/pkg/database"
	"mailflow/pkg/gmail"
	"mailflow/pkg/imapclient"
)

// app wires the configured provider, store and repositories for one
// command invocation.
type app struct {
	client    provider.EmailClient
	users     userrepo.UserRepository
	emails    emailrepo.EmailRepository
	folders   emailrepo.FolderRepository
	sessions  emailrepo.FetchSessionRepository
	workflows workflowrepo.WorkflowRepository
}

func newApp() (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	store := database.NewStore(db)
	return &app{
		client:    newEmailClient(cfg),
		users:     userrepo.NewUserRepository(store),
		emails:    emailrepo.NewEmailRepository(store),
		folders:   emailrepo.NewFolderRepository(store),
		sessions:  emailrepo.NewFetchSessionRepository(store),
		workflows: workflowrepo.NewWorkflowRepository(store),
	}, nil
}

func newEmailClient(cfg *config.Config) provider.EmailClient {
	if cfg.Provider == "imap" {
		return imapclient.NewClient(cfg.IMAPHost, cfg.IMAPPort, cfg.IMAPUsername, cfg.IMAPPassword, cfg.IMAPTLS)
	}
	return gmail.NewClient(cfg.GoogleCredentialsPath, cfg.GoogleTokenPath)
}

func (a *app) close() {
	if closer, ok := a.client.(io.Closer); ok {
		_ = closer.Close()
	}
}
