package tickets

import (
	"bytes"
	"encoding/base64"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	pkgerrors "github.com/yardtrackpro/yardtrack-backend/pkg/errors"
)

// ImageOptions bounds the image forwarded to the vision service.
type ImageOptions struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
	MaxBytes  int
}

// DefaultImageOptions matches the vision service's preferred long edge.
func DefaultImageOptions() ImageOptions {
	return ImageOptions{MaxWidth: 1568, MaxHeight: 1568, Quality: 85, MaxBytes: 10 << 20}
}

var supportedMediaTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// preparedImage is the decoded upload ready for the vision call.
type preparedImage struct {
	MediaType string
	Data      []byte
	Resized   bool
}

// decodeUpload accepts a data URL or bare base64 string.
func decodeUpload(raw string) ([]byte, error) {
	payload := strings.TrimSpace(raw)
	if payload == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "No image provided")
	}
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ";base64,")
		if idx < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "image must be base64 encoded")
		}
		payload = payload[idx+len(";base64,"):]
	}
	payload = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, payload)

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image is not valid base64")
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "No image provided")
	}
	return data, nil
}

// prepareImage sniffs the content type and downscales images larger than the
// configured bounds, re-encoding them as JPEG.
func prepareImage(data []byte, opts ImageOptions) (*preparedImage, error) {
	if opts.MaxBytes > 0 && len(data) > opts.MaxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image is too large")
	}

	mt := mimetype.Detect(data)
	mediaType := ""
	for _, candidate := range supportedMediaTypes {
		if mt.Is(candidate) {
			mediaType = candidate
			break
		}
	}
	if mediaType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported image type").
			WithDetails(map[string]any{"mediaType": mt.String()})
	}

	// webp has no decoder registered; it is forwarded as uploaded.
	if mediaType == "image/webp" || opts.MaxWidth <= 0 || opts.MaxHeight <= 0 {
		return &preparedImage{MediaType: mediaType, Data: data}, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image could not be decoded")
	}
	if cfg.Width <= opts.MaxWidth && cfg.Height <= opts.MaxHeight {
		return &preparedImage{MediaType: mediaType, Data: data}, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image could not be decoded")
	}
	resized := imaging.Fit(img, opts.MaxWidth, opts.MaxHeight, imaging.Lanczos)

	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "re-encode image")
	}
	return &preparedImage{MediaType: "image/jpeg", Data: buf.Bytes(), Resized: true}, nil
}
