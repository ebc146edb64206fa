package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

const fallbackMimeType = "image/jpeg"

// Image is an encoded raster image together with its MIME type.
type Image struct {
	MimeType string
	Data     []byte
}

func (img Image) Empty() bool {
	return len(img.Data) == 0
}

// DataURL encodes the image for direct display, e.g. "data:image/png;base64,...".
func (img Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", img.MimeType, base64.StdEncoding.EncodeToString(img.Data))
}

func (img Image) Base64() string {
	return base64.StdEncoding.EncodeToString(img.Data)
}

// Extension returns a file extension for the image MIME type, ".jpg" when unknown.
func (img Image) Extension() string {
	switch img.MimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	}
	if exts, _ := mime.ExtensionsByType(img.MimeType); len(exts) > 0 {
		return exts[0]
	}
	return ".jpg"
}

// ParseDataURL decodes a base64 data URL. A bare base64 string is accepted and
// treated as JPEG.
func ParseDataURL(value string) (Image, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Image{}, errors.New("empty data url")
	}

	const prefix = "data:"
	mimeType := fallbackMimeType
	payload := value
	if strings.HasPrefix(value, prefix) {
		parts := strings.SplitN(value, ",", 2)
		if len(parts) != 2 {
			return Image{}, errors.New("invalid data url")
		}
		meta := strings.TrimPrefix(parts[0], prefix)
		if mt := strings.TrimSpace(strings.Split(meta, ";")[0]); mt != "" {
			mimeType = mt
		}
		payload = parts[1]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("decode base64: %w", err)
	}
	if len(data) == 0 {
		return Image{}, errors.New("empty image payload")
	}
	return Image{MimeType: mimeType, Data: data}, nil
}

// DetectMimeType resolves the MIME type of an image payload: the declared
// header wins, then content sniffing, then JPEG.
func DetectMimeType(declared string, data []byte) string {
	mimeType := stripParams(declared)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = stripParams(http.DetectContentType(data))
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = fallbackMimeType
	}
	return mimeType
}

// IsImage reports whether the MIME type names an image.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(stripParams(mimeType), "image/")
}

func stripParams(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if strings.Contains(mimeType, ";") {
		mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	}
	return strings.ToLower(mimeType)
}
