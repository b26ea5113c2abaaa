// Copyright (c) 2026 JadeWellness. All rights reserved.

package twofactor

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/pquerna/otp"
)

// QRRenderer turns an otpauth:// URI into an image the SPA can display.
type QRRenderer interface {
	Render(uri string) (string, error)
}

// qrSize is the rendered edge length in pixels.
const qrSize = 200

// PNGRenderer renders provisioning URIs as base64 PNG data URIs.
type PNGRenderer struct{}

// Render implements [QRRenderer].
func (PNGRenderer) Render(uri string) (string, error) {
	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return "", fmt.Errorf("twofactor_qr_parse_failed: %w", err)
	}

	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return "", fmt.Errorf("twofactor_qr_render_failed: %w", err)
	}

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		return "", fmt.Errorf("twofactor_qr_encode_failed: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buffer.Bytes()), nil
}
