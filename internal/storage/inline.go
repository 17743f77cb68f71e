package storage

import (
	"context"
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/joseph-ayodele/docflow/internal/common"
)

// InlineFetcher decodes content carried in the reference itself: data URLs
// and "base64:" payloads.
type InlineFetcher struct{}

func (InlineFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	if payload, ok := cutPrefixFold(ref, "base64:"); ok {
		return decodeBase64(payload)
	}

	rest, ok := cutPrefixFold(ref, "data:")
	if !ok {
		return nil, common.NewValidationError("not an inline reference", nil)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, common.NewValidationError("malformed data URL", nil)
	}
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		return decodeBase64(payload)
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, common.NewValidationError("malformed data URL payload", err)
	}
	return []byte(text), nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if data, err := enc.DecodeString(s); err == nil {
			return data, nil
		}
	}
	return nil, common.NewValidationError("invalid base64 payload", nil)
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
