// Package mailparse extracts structured data from raw message header
// values and HTML bodies.
package mailparse

import (
	"regexp"
	"strings"

	"github.com/k3a/html2text"
)

// Address is a parsed mailbox. Either part may be empty when the raw
// header carried only a display name or only an address.
type Address struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

var (
	nameAddrRe = regexp.MustCompile(`^(.*?)\s*<([^>]+)>`)
	bareAddrRe = regexp.MustCompile(`^[^@\s<>]+@[^@\s<>]+\.[^@\s<>]+$`)
)

// ParseAddress extracts name and email from a single address field,
// accepting "Name <addr>", "<addr>", "addr" and bare "Name" forms.
// Surrounding whitespace is trimmed from both parts.
func ParseAddress(raw string) Address {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Address{}
	}

	if m := nameAddrRe.FindStringSubmatch(raw); m != nil {
		name := strings.TrimSpace(m[1])
		name = strings.Trim(name, `"`)
		return Address{
			Name:  name,
			Email: strings.TrimSpace(m[2]),
		}
	}
	if bareAddrRe.MatchString(raw) {
		return Address{Email: raw}
	}
	return Address{Name: raw}
}

// ParseAddressList splits a comma-separated address header and parses
// each entry. An empty header yields nil.
func ParseAddressList(raw string) []Address {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	addresses := make([]Address, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		addresses = append(addresses, ParseAddress(part))
	}
	return addresses
}

// PlainText strips markup from an HTML body for the plain-text column.
func PlainText(html string) string {
	if html == "" {
		return ""
	}
	return html2text.HTML2Text(html)
}
