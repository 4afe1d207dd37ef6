package domain

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

const DefaultMIMEType = "image/png"

// Image is raw encoded image bytes plus their MIME type.
// Data marshals to base64 in JSON.
type Image struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mimeType"`
}

func NewImage(data []byte, mimeType string) Image {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = sniffMIME(data)
	}
	return Image{Data: data, MIMEType: mimeType}
}

func (i Image) Empty() bool {
	return len(i.Data) == 0
}

func (i Image) Clone() Image {
	return Image{Data: append([]byte(nil), i.Data...), MIMEType: i.MIMEType}
}

func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

func (i Image) DataURL() string {
	mimeType := i.MIMEType
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, i.Base64())
}

// Digest is a stable content hash used as a cache key.
func (i Image) Digest() string {
	sum := sha256.Sum256(i.Data)
	return hex.EncodeToString(sum[:])
}

var dataURLRegex = regexp.MustCompile(`^data:([^;,]+)(;base64)?,`)

// ParseDataURL decodes a data URL. Bare base64 is accepted and sniffed.
func ParseDataURL(value string) (Image, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Image{}, errors.New("empty data url")
	}

	mimeType := ""
	payload := value
	if strings.HasPrefix(value, "data:") {
		matches := dataURLRegex.FindStringSubmatch(value)
		if len(matches) < 2 {
			return Image{}, errors.New("invalid data url")
		}
		mimeType = matches[1]
		payload = value[len(matches[0]):]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("decode base64: %w", err)
	}
	return NewImage(data, mimeType), nil
}

func sniffMIME(data []byte) string {
	mimeType := http.DetectContentType(data)
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return DefaultMIMEType
	}
	return mimeType
}
