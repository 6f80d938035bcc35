// Package gmail implements the provider.EmailClient capability against
// the Gmail API with an installed-app OAuth flow.
package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mailflow/internal/provider"
	"mailflow/pkg/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Labels that flag message state rather than placement. They are not
// folders and are never synced as such.
var messageStatusLabels = map[string]bool{
	"SENT":      true,
	"STARRED":   true,
	"UNREAD":    true,
	"IMPORTANT": true,
}

type Client struct {
	credentialsPath string
	tokenPath       string
	svc             *gmail.Service
}

func NewClient(credentialsPath, tokenPath string) *Client {
	return &Client{
		credentialsPath: credentialsPath,
		tokenPath:       tokenPath,
	}
}

// Authenticate builds the Gmail service from the cached token file,
// running the installed-app authorization flow when no token exists,
// and returns the authenticated account's address.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	credBytes, err := os.ReadFile(c.credentialsPath)
	if err != nil {
		return "", fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(credBytes, gmail.GmailModifyScope)
	if err != nil {
		return "", fmt.Errorf("unable to parse credentials file: %w", err)
	}

	token, err := c.loadToken()
	if err != nil {
		token, err = c.tokenFromWeb(ctx, config)
		if err != nil {
			return "", err
		}
	}

	if err := c.saveToken(token); err != nil {
		return "", err
	}

	svc, err := gmail.NewService(ctx, option.WithTokenSource(config.TokenSource(ctx, token)))
	if err != nil {
		return "", fmt.Errorf("unable to create Gmail service: %w", err)
	}
	c.svc = svc

	profile, err := svc.Users.GetProfile("me").Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve profile: %w", err)
	}
	return profile.EmailAddress, nil
}

// GetFolders lists Gmail labels that behave as folders.
func (c *Client) GetFolders(ctx context.Context) ([]provider.Folder, error) {
	if c.svc == nil {
		return nil, provider.ErrNotAuthenticated
	}

	resp, err := c.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve labels: %w", err)
	}

	folders := make([]provider.Folder, 0, len(resp.Labels))
	for _, label := range resp.Labels {
		if !isFolder(label.Name) {
			continue
		}
		folders = append(folders, provider.Folder{
			ID:   label.Id,
			Name: label.Name,
			Type: label.Type,
		})
	}
	return folders, nil
}

// ForEachMessageBatch pages through messages matching opts using the
// Gmail list pageToken, resolving each page to full messages before
// handing it to fn.
func (c *Client) ForEachMessageBatch(ctx context.Context, opts provider.FetchOptions, fn func(batch []provider.Message) error) error {
	if c.svc == nil {
		return provider.ErrNotAuthenticated
	}

	query := buildQuery(opts.Folder, opts.Filters)
	pageToken := ""
	for {
		logger.Debug("fetching message page", "query", query, "page_token", pageToken, "batch_size", opts.BatchSize)

		call := c.svc.Users.Messages.List("me").Context(ctx).MaxResults(int64(opts.BatchSize))
		if query != "" {
			call = call.Q(query)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return fmt.Errorf("unable to list messages: %w", err)
		}

		batch := make([]provider.Message, 0, len(resp.Messages))
		for _, ref := range resp.Messages {
			full, err := c.svc.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
			if err != nil {
				logger.Error("failed to fetch message details", "message_id", ref.Id, "error", err)
				continue
			}
			batch = append(batch, convertMessage(full))
		}

		if err := fn(batch); err != nil {
			return err
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return nil
		}
	}
}

// MarkAsRead removes the UNREAD label.
func (c *Client) MarkAsRead(ctx context.Context, messageID string) error {
	if c.svc == nil {
		return provider.ErrNotAuthenticated
	}

	_, err := c.svc.Users.Messages.Modify("me", messageID, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to mark message as read: %w", err)
	}
	return nil
}

// MoveToFolder replaces the message's current folder labels with the
// target folder's label.
func (c *Client) MoveToFolder(ctx context.Context, messageID, folder string) error {
	if c.svc == nil {
		return provider.ErrNotAuthenticated
	}

	msg, err := c.svc.Users.Messages.Get("me", messageID).Format("minimal").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to retrieve message: %w", err)
	}

	var current []string
	for _, label := range msg.LabelIds {
		if isFolder(label) {
			current = append(current, label)
		}
	}

	targetID, err := c.resolveLabelID(ctx, folder)
	if err != nil {
		return err
	}

	_, err = c.svc.Users.Messages.Modify("me", messageID, &gmail.ModifyMessageRequest{
		AddLabelIds:    []string{targetID},
		RemoveLabelIds: current,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to move message: %w", err)
	}
	return nil
}

// resolveLabelID maps a folder name to its label id. System labels use
// their name as id, so the raw value is the fallback.
func (c *Client) resolveLabelID(ctx context.Context, folder string) (string, error) {
	resp, err := c.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve labels: %w", err)
	}
	for _, label := range resp.Labels {
		if strings.EqualFold(label.Name, folder) || label.Id == folder {
			return label.Id, nil
		}
	}
	return folder, nil
}

func (c *Client) loadToken() (*oauth2.Token, error) {
	f, err := os.Open(c.tokenPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}

func (c *Client) saveToken(token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(c.tokenPath), 0o700); err != nil {
		return fmt.Errorf("unable to create token directory: %w", err)
	}
	f, err := os.OpenFile(c.tokenPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

func (c *Client) tokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the authorization code:\n%v\n", authURL)

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("unable to exchange authorization code: %w", err)
	}
	return token, nil
}

func isFolder(label string) bool {
	return !messageStatusLabels[label] && !strings.HasPrefix(label, "CATEGORY_")
}
