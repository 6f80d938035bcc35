package mailparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Address
	}{
		{
			name: "name and address",
			raw:  "Jane Doe <jane@example.com>",
			want: Address{Name: "Jane Doe", Email: "jane@example.com"},
		},
		{
			name: "quoted name",
			raw:  `"Doe, Jane" <jane@example.com>`,
			want: Address{Name: "Doe, Jane", Email: "jane@example.com"},
		},
		{
			name: "angle brackets only",
			raw:  "<jane@example.com>",
			want: Address{Email: "jane@example.com"},
		},
		{
			name: "bare address",
			raw:  "jane@example.com",
			want: Address{Email: "jane@example.com"},
		},
		{
			name: "bare name",
			raw:  "Mail Delivery Subsystem",
			want: Address{Name: "Mail Delivery Subsystem"},
		},
		{
			name: "empty",
			raw:  "",
			want: Address{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAddress(tt.raw))
		})
	}
}

func TestParseAddressList(t *testing.T) {
	got := ParseAddressList("Jane Doe <jane@example.com>, bob@example.com")
	assert.Len(t, got, 2)
	assert.Equal(t, "jane@example.com", got[0].Email)
	assert.Equal(t, "bob@example.com", got[1].Email)
}

func TestParseAddressListEmpty(t *testing.T) {
	assert.Empty(t, ParseAddressList(""))
}

func TestPlainText(t *testing.T) {
	got := PlainText("<html><body><p>Hello <b>world</b></p></body></html>")
	assert.Contains(t, got, "Hello")
	assert.Contains(t, got, "world")
	assert.NotContains(t, got, "<b>")
}
