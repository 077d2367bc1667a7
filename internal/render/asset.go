package render

import (
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"fivem/resonance/internal/errors"
)

// Asset is a background image loaded once in its own goroutine. Ready is
// closed when loading has finished, whether or not an image was produced; a
// missing or unreadable file leaves Image nil and the renderer falls back to
// the background color.
type Asset struct {
	ready chan struct{}
	img   image.Image
	err   error
}

// LoadAsset starts loading path. An empty path yields an asset that is
// immediately ready with no image.
func LoadAsset(path string) *Asset {
	a := &Asset{ready: make(chan struct{})}
	if path == "" {
		close(a.ready)
		return a
	}
	go func() {
		defer close(a.ready)
		a.img, a.err = DecodeImageFile(path)
	}()
	return a
}

// StaticAsset wraps an image that is already in memory. img may be nil.
func StaticAsset(img image.Image) *Asset {
	a := &Asset{ready: make(chan struct{}), img: img}
	close(a.ready)
	return a
}

func (a *Asset) Ready() <-chan struct{} { return a.ready }

// Wait blocks until the asset is ready or ctx is done and returns the image,
// which is nil when there is none.
func (a *Asset) Wait(ctx context.Context) (image.Image, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-a.ready:
		return a.img, nil
	}
}

// Err returns the loading error once the asset is ready.
func (a *Asset) Err() error {
	select {
	case <-a.ready:
		return a.err
	default:
		return nil
	}
}

// DecodeImageFile reads a PNG or JPEG file.
func DecodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Mark(errors.Wrapf(err, "background %s", path), errors.ErrNotFound)
		}
		return nil, errors.Wrapf(err, "opening background %s", path)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding background %s", path)
	}
	return img, nil
}
