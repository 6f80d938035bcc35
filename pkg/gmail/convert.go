package gmail

import (
	"encoding/base64"
	"fmt"

	"mailflow/internal/provider"
	"mailflow/pkg/mailparse"

	"google.golang.org/api/gmail/v1"
)

// buildQuery renders fetch filters as a Gmail search expression.
// Before/After bounds are epoch seconds, which the search API treats as
// exclusive timestamp bounds.
func buildQuery(folder string, f provider.Filters) string {
	q := ""
	appendTerm := func(key, value string) {
		if value == "" {
			return
		}
		if q != "" {
			q += " "
		}
		q += key + ":" + value
	}

	in := f.In
	if folder != "" {
		in = folder
	}
	appendTerm("in", in)
	appendTerm("from", f.From)
	appendTerm("to", f.To)
	appendTerm("subject", f.Subject)
	if f.Before != nil {
		appendTerm("before", fmt.Sprintf("%d", f.Before.Unix()))
	}
	if f.After != nil {
		appendTerm("after", fmt.Sprintf("%d", f.After.Unix()))
	}
	return q
}

// convertMessage maps a full Gmail message onto the provider-neutral
// message shape.
func convertMessage(msg *gmail.Message) provider.Message {
	htmlBody, plainBody := extractBodies(msg.Payload)
	if plainBody == "" && htmlBody != "" {
		plainBody = mailparse.PlainText(htmlBody)
	}
	if htmlBody == "" {
		htmlBody = plainBody
	}

	var folders []string
	for _, label := range msg.LabelIds {
		if isFolder(label) {
			folders = append(folders, label)
		}
	}

	return provider.Message{
		ID:                msg.Id,
		Subject:           getHeader(msg.Payload, "Subject"),
		From:              mailparse.ParseAddress(getHeader(msg.Payload, "From")),
		To:                mailparse.ParseAddressList(getHeader(msg.Payload, "To")),
		Cc:                mailparse.ParseAddressList(getHeader(msg.Payload, "Cc")),
		ReceivedTimestamp: msg.InternalDate,
		Body:              htmlBody,
		BodyPlainText:     plainBody,
		Folders:           folders,
		Attachments:       extractAttachments(msg.Payload),
	}
}

func getHeader(payload *gmail.MessagePart, name string) string {
	if payload == nil {
		return ""
	}
	for _, header := range payload.Headers {
		if header.Name == name {
			return header.Value
		}
	}
	return ""
}

// extractBodies walks the MIME tree and returns the HTML and plain-text
// bodies, either of which may be empty.
func extractBodies(payload *gmail.MessagePart) (string, string) {
	if payload == nil {
		return "", ""
	}

	var htmlBody, plainBody string

	if payload.Body != nil && payload.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			if payload.MimeType == "text/plain" {
				plainBody = string(data)
			} else {
				htmlBody = string(data)
			}
		}
	}

	var walk func(parts []*gmail.MessagePart)
	walk = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.Body != nil && part.Body.Data != "" {
				data, err := base64.URLEncoding.DecodeString(part.Body.Data)
				if err == nil {
					switch part.MimeType {
					case "text/html":
						htmlBody = string(data)
					case "text/plain":
						plainBody = string(data)
					}
				}
			}
			if len(part.Parts) > 0 {
				walk(part.Parts)
			}
		}
	}
	walk(payload.Parts)

	return htmlBody, plainBody
}

func extractAttachments(payload *gmail.MessagePart) []provider.Attachment {
	if payload == nil {
		return nil
	}

	var attachments []provider.Attachment
	var walk func(parts []*gmail.MessagePart)
	walk = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.Filename != "" {
				attachments = append(attachments, provider.Attachment{
					Filename: part.Filename,
					MimeType: part.MimeType,
				})
			}
			if len(part.Parts) > 0 {
				walk(part.Parts)
			}
		}
	}
	walk(payload.Parts)
	return attachments
}
