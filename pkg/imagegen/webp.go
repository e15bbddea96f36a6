package imagegen

import (
	"bytes"
	"cmp"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/gen2brain/webp"
)

// maxInlineBytes bounds how much of a remote image is read before transcoding.
const maxInlineBytes = 20 << 20

// EncodeWebP re-encodes any decodable image as a high quality WebP.
func EncodeWebP(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, webp.Options{Lossless: false, Quality: 100}); err != nil {
		return nil, fmt.Errorf("failed to encode webp: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL embeds data in a data: URL.
func DataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Inliner downloads finished illustrations so clients never load them from
// the provider directly.
type Inliner struct {
	client *http.Client
}

func NewInliner(timeout time.Duration) *Inliner {
	return &Inliner{client: &http.Client{Timeout: cmp.Or(timeout, 30*time.Second)}}
}

// Inline fetches url and returns it as a WebP data URL.
func (i *Inliner) Inline(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxInlineBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	encoded, err := EncodeWebP(data)
	if err != nil {
		return "", err
	}
	return DataURL("image/webp", encoded), nil
}
