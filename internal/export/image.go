package export

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/coastal-clean/siteplanner/internal/models"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	// ErrImageDecode means the background image could not be decoded.
	ErrImageDecode = errors.New("background image could not be decoded")
	// ErrCanvasUnavailable means no drawing surface could be created.
	ErrCanvasUnavailable = errors.New("canvas unavailable")
)

// MaxBackgroundPixels caps the decoded size of a background image,
// independent of its compressed byte size.
const MaxBackgroundPixels = 40_000_000

func checkDimensions(cfg image.Config) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: empty image", ErrImageDecode)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxBackgroundPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageDecode, cfg.Width, cfg.Height, MaxBackgroundPixels)
	}
	return nil
}

// EncodeDataURL checks that data is a decodable image and returns it as an
// inline data URL together with its metadata.
func EncodeDataURL(name string, data []byte) (string, models.BackgroundInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", models.BackgroundInfo{}, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if err := checkDimensions(cfg); err != nil {
		return "", models.BackgroundInfo{}, err
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return "", models.BackgroundInfo{}, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	info := models.BackgroundInfo{
		Name:       name,
		Size:       int64(len(data)),
		Format:     format,
		Width:      cfg.Width,
		Height:     cfg.Height,
		UploadedAt: time.Now(),
	}
	url := "data:image/" + format + ";base64," + base64.StdEncoding.EncodeToString(data)
	return url, info, nil
}

// DecodeDataURL decodes a base64 data URL into an image.
func DecodeDataURL(url string) (image.Image, string, error) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return nil, "", fmt.Errorf("%w: not a data URL", ErrImageDecode)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, "", fmt.Errorf("%w: data URL is not base64", ErrImageDecode)
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if err := checkDimensions(cfg); err != nil {
		return nil, "", err
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	return img, format, nil
}
