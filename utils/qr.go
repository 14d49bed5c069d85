package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

// GenerateQRImage encodes payload as JSON into a QR PNG, stores it in R2 (or
// the local uploads dir when R2 is not configured) and returns the public URL.
func GenerateQRImage(payload map[string]any, prefix string) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR payload: %w", err)
	}

	png, err := qrcode.Encode(string(data), qrcode.Medium, 512)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR code: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.png", prefix, uuid.NewString())

	if R2Enabled() {
		return UploadBytesToR2(png, "qrcodes/"+filename, "image/png")
	}

	dir := filepath.Join("uploads", "qrcodes")
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, filename), png, 0o644); err != nil {
		return "", err
	}
	return "/uploads/qrcodes/" + filename, nil
}
