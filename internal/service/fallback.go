package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"

	"storefront/internal/model"
)

var (
	fallbackPNG  []byte
	fallbackOnce sync.Once
)

// FallbackImage is the static placeholder shown when an image cannot be
// fetched: a grey square with a diagonal cross.
func FallbackImage() model.Image {
	fallbackOnce.Do(func() {
		const size = 64
		img := image.NewGray(image.Rect(0, 0, size, size))
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				c := color.Gray{Y: 0xcc}
				if x == y || x == size-1-y {
					c = color.Gray{Y: 0x55}
				}
				img.SetGray(x, y, c)
			}
		}
		var buf bytes.Buffer
		_ = png.Encode(&buf, img)
		fallbackPNG = buf.Bytes()
	})
	return model.Image{
		Filename:    "unplugged.png",
		ContentType: "image/png",
		Data:        fallbackPNG,
		Fallback:    true,
	}
}
