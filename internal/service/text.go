package service

import (
	"strings"

	"github.com/yaca-chat/yaca/internal/domain"
	"golang.org/x/text/unicode/norm"
)

// normalizeText trims and NFC-normalizes user supplied text so equal strings
// compare equal regardless of how the client composed them.
func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func normalizeContent(c domain.Content) domain.Content {
	if c.Type == domain.ContentText {
		c.Data = normalizeText(c.Data)
	} else {
		c.Data = strings.TrimSpace(c.Data)
	}
	return c
}
