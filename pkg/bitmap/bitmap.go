// Package bitmap provides the image values that flow through sprite pipelines:
// single [Bitmap] frames, multi-frame [Animation] values, and the in-place
// [Filter] operations transform steps apply to them.
//
// Decoding supports PNG, GIF and JPEG from the standard library plus BMP and
// TIFF from golang.org/x/image.
package bitmap

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Bitmap is a single frame of non-premultiplied RGBA pixels.
type Bitmap struct {
	Name string
	Pix  *image.NRGBA
}

// New returns a transparent bitmap of the given size.
func New(name string, width, height int) *Bitmap {
	return &Bitmap{Name: name, Pix: image.NewNRGBA(image.Rect(0, 0, width, height))}
}

// FromImage copies img into a new bitmap anchored at the origin.
func FromImage(name string, img image.Image) *Bitmap {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &Bitmap{Name: name, Pix: dst}
}

// Decode reads a single image in any registered format.
func Decode(name string, r io.Reader) (*Bitmap, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return FromImage(name, img), nil
}

// Load reads an image file. The bitmap is named after the file without its
// extension.
func Load(path string) (*Bitmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(baseName(path), f)
}

// Clone returns a deep copy.
func (b *Bitmap) Clone() *Bitmap {
	if b == nil {
		return nil
	}
	pix := image.NewNRGBA(b.Pix.Rect)
	copy(pix.Pix, b.Pix.Pix)
	return &Bitmap{Name: b.Name, Pix: pix}
}

func (b *Bitmap) Bounds() image.Rectangle { return b.Pix.Bounds() }
func (b *Bitmap) Width() int              { return b.Pix.Rect.Dx() }
func (b *Bitmap) Height() int             { return b.Pix.Rect.Dy() }

// At returns the pixel at (x, y) relative to the bitmap origin.
func (b *Bitmap) At(x, y int) color.NRGBA {
	return b.Pix.NRGBAAt(b.Pix.Rect.Min.X+x, b.Pix.Rect.Min.Y+y)
}

// Set writes the pixel at (x, y) relative to the bitmap origin.
func (b *Bitmap) Set(x, y int, c color.NRGBA) {
	b.Pix.SetNRGBA(b.Pix.Rect.Min.X+x, b.Pix.Rect.Min.Y+y, c)
}

func (b *Bitmap) String() string {
	return fmt.Sprintf("%s (%dx%d)", b.Name, b.Width(), b.Height())
}

// Animation is an ordered list of frames shown for FrameDuration each.
type Animation struct {
	Name          string
	Frames        []*Bitmap
	FrameDuration time.Duration
}

// DefaultFrameDuration is used when an animation does not specify one.
const DefaultFrameDuration = 100 * time.Millisecond

// NewAnimation builds an animation from frames.
func NewAnimation(name string, frameDuration time.Duration, frames ...*Bitmap) *Animation {
	if frameDuration <= 0 {
		frameDuration = DefaultFrameDuration
	}
	return &Animation{Name: name, Frames: frames, FrameDuration: frameDuration}
}

// LoadAnimation reads an animation from files. A single GIF file yields all its
// frames; any other list of paths yields one frame per file, in order.
func LoadAnimation(name string, frameDuration time.Duration, paths ...string) (*Animation, error) {
	if len(paths) == 1 && strings.EqualFold(filepath.Ext(paths[0]), ".gif") {
		f, err := os.Open(paths[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return DecodeGIF(name, f)
	}

	frames := make([]*Bitmap, 0, len(paths))
	for _, p := range paths {
		b, err := Load(p)
		if err != nil {
			return nil, err
		}
		frames = append(frames, b)
	}
	return NewAnimation(name, frameDuration, frames...), nil
}

// DecodeGIF decodes every frame of an animated GIF. Frames are composited onto
// the logical screen so each one is a complete image; the first frame's delay
// becomes the frame duration.
func DecodeGIF(name string, r io.Reader) (*Animation, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	screen := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if screen.Empty() && len(g.Image) > 0 {
		screen = g.Image[0].Bounds()
	}
	canvas := image.NewNRGBA(screen)

	frames := make([]*Bitmap, 0, len(g.Image))
	for i, frame := range g.Image {
		var previous *image.NRGBA
		disposal := byte(0)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			previous = image.NewNRGBA(screen)
			copy(previous.Pix, canvas.Pix)
		}

		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		frames = append(frames, FromImage(fmt.Sprintf("%s_%02d", name, i), canvas))

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}

	duration := DefaultFrameDuration
	if len(g.Delay) > 0 && g.Delay[0] > 0 {
		duration = time.Duration(g.Delay[0]) * 10 * time.Millisecond
	}
	return NewAnimation(name, duration, frames...), nil
}

// Clone returns a deep copy with cloned frames.
func (a *Animation) Clone() *Animation {
	if a == nil {
		return nil
	}
	frames := make([]*Bitmap, len(a.Frames))
	for i, f := range a.Frames {
		frames[i] = f.Clone()
	}
	return &Animation{Name: a.Name, Frames: frames, FrameDuration: a.FrameDuration}
}

// Len returns the number of frames.
func (a *Animation) Len() int { return len(a.Frames) }

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
