// Package attachments stores the design images customers attach to a reservation.
package attachments

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// UploadFailedPlaceholder is recorded instead of a link when storing the image failed.
const UploadFailedPlaceholder = "画像のアップロードに失敗しました。"

var (
	ErrEmpty           = errors.New("attachments: empty file")
	ErrTooLarge        = errors.New("attachments: file too large")
	ErrUnsupportedType = errors.New("attachments: unsupported mime type")
	ErrInvalidEncoding = errors.New("attachments: invalid base64 payload")
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// Attachment is a decoded upload.
type Attachment struct {
	FileName     string
	MimeType     string
	Data         []byte
	CustomerName string
	UploadedAt   time.Time
}

// Store persists an attachment and returns a link staff can open.
type Store interface {
	Put(ctx context.Context, a Attachment) (string, error)
}

// Decode validates and decodes a base64 payload, accepting an optional
// data-URL prefix. maxBytes <= 0 disables the size check.
func Decode(payload, mimeType, fileName string, maxBytes int) (*Attachment, error) {
	payload = strings.TrimSpace(payload)
	if i := strings.Index(payload, ";base64,"); strings.HasPrefix(payload, "data:") && i > 0 {
		if mimeType == "" {
			mimeType = strings.TrimPrefix(payload[:i], "data:")
		}
		payload = payload[i+len(";base64,"):]
	}
	if payload == "" {
		return nil, ErrEmpty
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if _, ok := allowedTypes[mimeType]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, mimeType)
	}
	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+2 {
		return nil, ErrTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return nil, ErrTooLarge
	}
	return &Attachment{FileName: cleanFileName(fileName, mimeType), MimeType: mimeType, Data: data}, nil
}

// ObjectName is the stored file name: 予約_<customer>_<timestamp>_<file>.
func ObjectName(a Attachment) string {
	ts := a.UploadedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return fmt.Sprintf("予約_%s_%s_%s", cleanSegment(a.CustomerName), ts.UTC().Format("20060102T150405Z"), a.FileName)
}

func cleanFileName(name, mimeType string) string {
	name = cleanSegment(path.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "_" {
		name = "design"
	}
	if path.Ext(name) == "" {
		name += allowedTypes[mimeType]
	}
	return name
}

func cleanSegment(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == '/', r == '\\', r == ':', r == '*', r == '?', r == '"', r == '<', r == '>', r == '|':
			return '_'
		case r == ' ':
			return '_'
		}
		return r
	}, s)
}
