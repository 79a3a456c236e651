package artifact

import (
	"path"
	"strings"
)

// QRKey returns the storage key of a token's QR image
func QRKey(token string) string {
	return "qr/" + token + ".png"
}

// cleanKey rejects keys that are absolute or contain parent references
func cleanKey(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, "\\\x00") || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
