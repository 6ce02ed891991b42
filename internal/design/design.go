// Package design inspects optional design files uploaded with a generation request.
package design

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrUnsupportedType = errors.New("unsupported design file type")
	ErrTooLarge        = errors.New("design file is too large")
	ErrEmpty           = errors.New("design file is empty")
)

// AcceptedExtensions mirrors the upload form's accept list.
var AcceptedExtensions = []string{".json", ".fig", ".png", ".jpg", ".jpeg"}

// Asset describes an accepted upload.
type Asset struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
	PreviewURL  string `json:"previewUrl,omitempty"` // data: URL, images only
}

// Inspect checks the extension against AcceptedExtensions and that the sniffed content
// agrees with it. Figma files are accepted as opaque binaries.
func Inspect(filename string, data []byte, maxBytes int64) (*Asset, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	mt := mimetype.Detect(data)

	asset := &Asset{Filename: filepath.Base(filename), ContentType: mt.String(), Size: len(data)}

	switch ext {
	case ".png":
		if !mt.Is("image/png") {
			return nil, fmt.Errorf("%w: %s content is %s", ErrUnsupportedType, ext, mt.String())
		}
	case ".jpg", ".jpeg":
		if !mt.Is("image/jpeg") {
			return nil, fmt.Errorf("%w: %s content is %s", ErrUnsupportedType, ext, mt.String())
		}
	case ".json":
		if !mt.Is("application/json") {
			return nil, fmt.Errorf("%w: %s content is %s", ErrUnsupportedType, ext, mt.String())
		}
		return asset, nil
	case ".fig":
		return asset, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	asset.PreviewURL = "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(data)
	return asset, nil
}
