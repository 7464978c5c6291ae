// Package qr classifies scanned QR payloads and renders QR images.
package qr

import (
	"errors"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const AccessCodePrefix = "LOCKER_ACCESS_"

var ErrEmptyPayload = errors.New("qr payload is empty")

type Kind string

const (
	KindAccessCode Kind = "access_code"
	KindUser       Kind = "user"
	KindAdmin      Kind = "admin"
	KindGuest      Kind = "guest"
	KindURL        Kind = "url"
	KindUnknown    Kind = "unknown"
)

// Classification is the outcome of inspecting a scanned payload.
type Classification struct {
	Type  Kind `json:"type"`
	Valid bool `json:"valid"`
}

var prefixes = []struct {
	prefix string
	kind   Kind
}{
	{AccessCodePrefix, KindAccessCode},
	{"USER_", KindUser},
	{"ADMIN_", KindAdmin},
	{"GUEST_", KindGuest},
}

// Classify maps a payload to its kind. Only locker payloads are valid.
func Classify(data string) Classification {
	data = strings.TrimSpace(data)
	for _, p := range prefixes {
		if strings.HasPrefix(data, p.prefix) {
			return Classification{Type: p.kind, Valid: true}
		}
	}
	if strings.HasPrefix(data, "http://") || strings.HasPrefix(data, "https://") {
		return Classification{Type: KindURL}
	}
	return Classification{Type: KindUnknown}
}

// AccessCode wraps a signed token into a scannable payload.
func AccessCode(token string) string {
	return AccessCodePrefix + token
}

// AccessToken extracts the token from an access code payload.
func AccessToken(data string) (string, bool) {
	token, ok := strings.CutPrefix(strings.TrimSpace(data), AccessCodePrefix)
	return token, ok && token != ""
}

// Encode renders data as a PNG of size x size pixels.
func Encode(data string, size int) ([]byte, error) {
	if data == "" {
		return nil, ErrEmptyPayload
	}
	png, err := qrcode.Encode(data, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}

// ASCII renders data for terminals.
func ASCII(data string) (string, error) {
	if data == "" {
		return "", ErrEmptyPayload
	}
	q, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR code: %w", err)
	}
	return q.ToSmallString(false), nil
}
