package resource

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
)

// MapImage is a decoded background map.
type MapImage struct {
	img    image.Image
	format string
}

func (m *MapImage) Image() image.Image { return m.img }

func (m *MapImage) Format() string { return m.format }

func DecodeImage(data []byte) (*MapImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return &MapImage{img: img, format: format}, nil
}

// LoadImage fetches and decodes an image; both failures are UnavailableError.
func LoadImage(ctx context.Context, p Provider, url string) (*MapImage, error) {
	data, err := p.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	img, err := DecodeImage(data)
	if err != nil {
		return nil, &UnavailableError{URL: url, Err: err}
	}
	return img, nil
}
