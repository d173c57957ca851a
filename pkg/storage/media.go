package storage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

// NormalizeAvatar decodes an uploaded image, centre-crops it to a square and
// re-encodes it as PNG with the requested edge length.
func NormalizeAvatar(r io.Reader, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode avatar: %w", err)
	}
	thumb := imaging.Fill(src, size, size, imaging.Center, imaging.Lanczos)
	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, thumb, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}

// DetectMIME sniffs the content type of a seekable upload and rewinds it.
func DetectMIME(r io.ReadSeeker) (mimeType string, extension string, err error) {
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return "", "", fmt.Errorf("detect mime: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", "", fmt.Errorf("rewind upload: %w", err)
	}
	// strip parameters such as "; charset=utf-8"
	base := mt.String()
	for i := 0; i < len(base); i++ {
		if base[i] == ';' {
			base = base[:i]
			break
		}
	}
	return base, mt.Extension(), nil
}
