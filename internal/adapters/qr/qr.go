// Package qr derives an event's stable public URL and renders it as a QR
// code PNG. The URL is a pure function of the event ID; the PNG is stored
// once at event creation.
package qr

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const pngSize = 512

// PublicURL returns the guest-facing page URL for an event. Stable for the
// event's lifetime.
func PublicURL(baseURL, eventID string) string {
	return fmt.Sprintf("%s/wedding/%s", strings.TrimSuffix(baseURL, "/"), eventID)
}

// RenderPNG encodes url as a QR code PNG.
func RenderPNG(url string) ([]byte, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, pngSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
