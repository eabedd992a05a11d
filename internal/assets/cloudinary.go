// Package assets uploads product images to Cloudinary.
package assets

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"cafe-pos-service/internal/errx"
	"cafe-pos-service/internal/logx"
)

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

// Config holds the unsigned upload settings. APIURL overrides the upload
// host, mostly for tests.
type Config struct {
	CloudName    string
	UploadPreset string
	APIURL       string
	Timeout      time.Duration
}

// Cloudinary uploads through the unsigned upload API.
type Cloudinary struct {
	cld     *cloudinary.Cloudinary
	preset  string
	timeout time.Duration
}

// NewCloudinary builds an uploader for config.CloudName. Unsigned uploads
// need no API key.
func NewCloudinary(config Config) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(config.CloudName, "", "")
	if err != nil {
		return nil, fmt.Errorf("configure cloudinary: %w", err)
	}
	if config.APIURL != "" {
		cld.Config.API.UploadPrefix = strings.TrimRight(config.APIURL, "/")
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Cloudinary{cld: cld, preset: config.UploadPreset, timeout: timeout}, nil
}

// Upload sends data with the upload preset and returns the secure_url of
// the stored image. Only image content is accepted.
func (c *Cloudinary) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errx.WithMessage(errx.ErrUploadInvalid, "the image file is empty")
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return "", errx.ErrUploadInvalid
	}
	if filename == "" {
		filename = "upload"
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.cld.Upload.UnsignedUpload(ctx, bytes.NewReader(data), c.preset, uploader.UploadParams{
		ResourceType:     "image",
		FilenameOverride: filepath.Base(filename),
	})
	if err != nil {
		return "", errx.Wrap(errx.ErrUpload, err)
	}
	if result.Error.Message != "" || result.SecureURL == "" {
		reason := result.Error.Message
		if reason == "" {
			reason = "no secure_url in the upload response"
		}
		logx.Warn().Str("reason", reason).Msg("image upload rejected")
		return "", errx.Wrap(errx.ErrUpload, fmt.Errorf("upload rejected: %s", reason))
	}

	logx.Debug().Str("url", result.SecureURL).Str("public_id", result.PublicID).Int("bytes", len(data)).Msg("image uploaded")
	return result.SecureURL, nil
}

// Disabled is the Uploader used when no cloud is configured.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, []byte) (string, error) {
	return "", errx.WithMessage(errx.ErrUpload, "image uploads are not configured")
}
