// ABOUTME: Image codec capability used by the decode worker
// ABOUTME: StdCodec decodes PNG, JPEG, GIF and WebP payloads into image.Image

package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	// Register decoders for standard formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Codec decodes an encoded image payload into pixels.
type Codec interface {
	Decode(data []byte) (image.Image, error)
}

// CodecFunc adapts a function to the Codec interface.
type CodecFunc func(data []byte) (image.Image, error)

// Decode calls f(data).
func (f CodecFunc) Decode(data []byte) (image.Image, error) { return f(data) }

// StdCodec decodes any format registered with the image package.
type StdCodec struct{}

// Decode implements Codec.
func (StdCodec) Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("decoding image: empty %s bounds", format)
	}
	return img, nil
}
