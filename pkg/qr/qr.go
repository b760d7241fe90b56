// Package qr renders strings as scannable QR images embeddable in HTML.
package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const pngSize = 256

// DataURI encodes payload as a PNG QR code and returns it as a base64
// data URI suitable for an <img src> attribute. The same payload always
// yields the same image.
func DataURI(payload string) (string, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, pngSize)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR payload: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
