// Package imapclient implements the provider.EmailClient capability
// against a generic IMAP server using go-imap v2.
package imapclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mailflow/internal/provider"
	"mailflow/pkg/logger"
	"mailflow/pkg/mailparse"

	"github.com/emersion/go-imap/v2"
	goimapclient "github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
)

type Client struct {
	host     string
	port     string
	username string
	password string
	tls      bool

	conn *goimapclient.Client
}

func NewClient(host, port, username, password string, tls bool) *Client {
	return &Client{
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      tls,
	}
}

// Authenticate dials the server, logs in and returns the account
// address. The connection is kept for subsequent operations.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	addr := c.host + ":" + c.port

	var conn *goimapclient.Client
	var err error
	if c.tls {
		conn, err = goimapclient.DialTLS(addr, nil)
	} else {
		conn, err = goimapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return "", fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := conn.Login(c.username, c.password).Wait(); err != nil {
		_ = conn.Logout().Wait()
		return "", fmt.Errorf("%w: login failed for %s: %v", provider.ErrNotAuthenticated, c.username, err)
	}

	c.conn = conn
	return c.username, nil
}

// Close logs out the kept connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Logout().Wait()
	c.conn = nil
	return err
}

// GetFolders lists the account's mailboxes.
func (c *Client) GetFolders(_ context.Context) ([]provider.Folder, error) {
	if c.conn == nil {
		return nil, provider.ErrNotAuthenticated
	}

	mailboxes, err := c.conn.List("", "*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("listing mailboxes: %w", err)
	}

	folders := make([]provider.Folder, 0, len(mailboxes))
	for _, mbox := range mailboxes {
		folderType := "user"
		if strings.EqualFold(mbox.Mailbox, "INBOX") {
			folderType = "system"
		}
		folders = append(folders, provider.Folder{
			ID:   mbox.Mailbox,
			Name: mbox.Mailbox,
			Type: folderType,
		})
	}
	return folders, nil
}

// ForEachMessageBatch searches the selected mailbox with the given
// bounds and fetches full messages in UID batches of opts.BatchSize.
func (c *Client) ForEachMessageBatch(_ context.Context, opts provider.FetchOptions, fn func(batch []provider.Message) error) error {
	if c.conn == nil {
		return provider.ErrNotAuthenticated
	}

	mailbox := opts.Folder
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if opts.Filters.In != "" {
		mailbox = opts.Filters.In
	}

	if _, err := c.conn.Select(mailbox, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", mailbox, err)
	}

	criteria := &imap.SearchCriteria{}
	if opts.Filters.After != nil {
		criteria.Since = *opts.Filters.After
	}
	if opts.Filters.Before != nil {
		criteria.Before = *opts.Filters.Before
	}

	searchData, err := c.conn.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	for start := 0; start < len(uids); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(uids) {
			end = len(uids)
		}

		batch, err := c.fetchBatch(mailbox, uids[start:end])
		if err != nil {
			return err
		}
		if err := fn(batch); err != nil {
			return err
		}
	}

	// Callers expect at least one (possibly empty) batch per pass.
	if len(uids) == 0 {
		return fn(nil)
	}
	return nil
}

func (c *Client) fetchBatch(mailbox string, uids []imap.UID) ([]provider.Message, error) {
	uidSet := imap.UIDSetNum(uids...)
	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := c.conn.Fetch(uidSet, &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})

	var batch []provider.Message
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			logger.Error("failed to collect message", "mailbox", mailbox, "error", err)
			continue
		}

		batch = append(batch, convertBuffer(mailbox, buf, bodySection))
	}

	if err := fetchCmd.Close(); err != nil {
		return batch, fmt.Errorf("fetching messages: %w", err)
	}
	return batch, nil
}

// MarkAsRead adds the \Seen flag.
func (c *Client) MarkAsRead(_ context.Context, messageID string) error {
	if c.conn == nil {
		return provider.ErrNotAuthenticated
	}

	uid, err := parseUID(messageID)
	if err != nil {
		return err
	}

	storeCmd := c.conn.Store(imap.UIDSetNum(uid), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	return storeCmd.Close()
}

// MoveToFolder moves the message to the named mailbox.
func (c *Client) MoveToFolder(_ context.Context, messageID, folder string) error {
	if c.conn == nil {
		return provider.ErrNotAuthenticated
	}

	uid, err := parseUID(messageID)
	if err != nil {
		return err
	}

	if _, err := c.conn.Move(imap.UIDSetNum(uid), folder).Wait(); err != nil {
		return fmt.Errorf("moving message to %s: %w", folder, err)
	}
	return nil
}

func parseUID(messageID string) (imap.UID, error) {
	n, err := strconv.ParseUint(messageID, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid IMAP message id %q: %w", messageID, err)
	}
	return imap.UID(n), nil
}

func convertBuffer(mailbox string, buf *goimapclient.FetchMessageBuffer, section *imap.FetchItemBodySection) provider.Message {
	msg := provider.Message{
		ID:      strconv.FormatUint(uint64(buf.UID), 10),
		Folders: []string{mailbox},
	}

	if env := buf.Envelope; env != nil {
		msg.Subject = env.Subject
		msg.ReceivedTimestamp = env.Date.UTC().UnixMilli()
		if len(env.From) > 0 {
			msg.From = mailparse.Address{Name: env.From[0].Name, Email: env.From[0].Addr()}
		}
		for _, to := range env.To {
			msg.To = append(msg.To, mailparse.Address{Name: to.Name, Email: to.Addr()})
		}
		for _, cc := range env.Cc {
			msg.Cc = append(msg.Cc, mailparse.Address{Name: cc.Name, Email: cc.Addr()})
		}
	}

	if raw := buf.FindBodySection(section); raw != nil {
		plain, html, attachments := parseMIMEBody(raw)
		msg.BodyPlainText = plain
		msg.Body = html
		if msg.Body == "" {
			msg.Body = plain
		}
		if msg.BodyPlainText == "" && html != "" {
			msg.BodyPlainText = mailparse.PlainText(html)
		}
		msg.Attachments = attachments
	}

	return msg
}

// parseMIMEBody extracts the text/plain body, text/html body and
// attachment metadata from a raw RFC 5322 message.
func parseMIMEBody(raw []byte) (string, string, []provider.Attachment) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw), "", nil
	}
	defer mr.Close()

	var plainBody, htmlBody string
	var attachments []provider.Attachment

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				plainBody = string(body)
			case strings.HasPrefix(contentType, "text/html"):
				htmlBody = string(body)
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			attachments = append(attachments, provider.Attachment{
				Filename: filename,
				MimeType: contentType,
			})
		}
	}

	return plainBody, htmlBody, attachments
}
