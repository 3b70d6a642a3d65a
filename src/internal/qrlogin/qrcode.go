package qrlogin

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Payload is the opaque structure encoded into the scannable code.
type Payload struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action"`
	ExpiresAt int64  `json:"expires_at"`
}

const actionLogin = "login"

// Encode serializes the payload into the qr_data string.
func (p Payload) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode qr payload: %w", err)
	}
	return string(data), nil
}

// Renderer turns qr_data into a scannable image. The state machine
// only produces the data string; rendering is a collaborator.
type Renderer interface {
	Render(data string) (string, error)
}

type pngRenderer struct {
	size int
}

// NewPNGRenderer renders QR codes as PNG data URIs at the given pixel size.
func NewPNGRenderer(size int) Renderer {
	return &pngRenderer{size: size}
}

func (r *pngRenderer) Render(data string) (string, error) {
	png, err := qrcode.Encode(data, qrcode.Medium, r.size)
	if err != nil {
		return "", fmt.Errorf("render qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
