// Package qrcode renders PNG QR codes for request URLs.
package qrcode

import (
	"errors"
	"fmt"

	qr "github.com/skip2/go-qrcode"
)

// MinSize is the smallest edge length that still fits a version 1 code
const MinSize = 21

// ErrEmptyContent is returned when there is nothing to encode
var ErrEmptyContent = errors.New("qrcode: empty content")

// Encoder produces square PNG images at a fixed size and recovery level
type Encoder struct {
	size  int
	level qr.RecoveryLevel
}

// NewEncoder creates an encoder for size x size PNGs with medium error recovery
func NewEncoder(size int) *Encoder {
	if size < MinSize {
		size = MinSize
	}
	return &Encoder{size: size, level: qr.Medium}
}

// Size returns the PNG edge length in pixels
func (e *Encoder) Size() int {
	return e.size
}

// EncodePNG encodes content as a PNG image
func (e *Encoder) EncodePNG(content string) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	png, err := qr.Encode(content, e.level, e.size)
	if err != nil {
		return nil, fmt.Errorf("qrcode: encode: %w", err)
	}
	return png, nil
}
