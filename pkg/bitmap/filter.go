package bitmap

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// ErrUnknownFilter is returned by ParseFilter for unrecognized names.
var ErrUnknownFilter = errors.New("unknown filter")

// Filter mutates a bitmap in place.
type Filter interface {
	ApplyTo(b *Bitmap) error
}

// FilterFunc adapts a function to [Filter].
type FilterFunc func(b *Bitmap) error

func (f FilterFunc) ApplyTo(b *Bitmap) error { return f(b) }

// ApplyToAnimation applies f to every frame of a.
func ApplyToAnimation(f Filter, a *Animation) error {
	for i, frame := range a.Frames {
		if err := f.ApplyTo(frame); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

// Grayscale converts every pixel to its luminance.
type Grayscale struct{}

func (Grayscale) ApplyTo(b *Bitmap) error {
	eachPixel(b, func(c color.NRGBA) color.NRGBA {
		y := uint8((299*uint32(c.R) + 587*uint32(c.G) + 114*uint32(c.B) + 500) / 1000)
		return color.NRGBA{R: y, G: y, B: y, A: c.A}
	})
	return nil
}

func (Grayscale) String() string { return "grayscale" }

// Invert inverts the color channels and keeps alpha.
type Invert struct{}

func (Invert) ApplyTo(b *Bitmap) error {
	eachPixel(b, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: 255 - c.R, G: 255 - c.G, B: 255 - c.B, A: c.A}
	})
	return nil
}

func (Invert) String() string { return "invert" }

// Opacity multiplies alpha by Alpha, clamped to [0, 1].
type Opacity struct{ Alpha float64 }

func (o Opacity) ApplyTo(b *Bitmap) error {
	a := math.Max(0, math.Min(1, o.Alpha))
	eachPixel(b, func(c color.NRGBA) color.NRGBA {
		c.A = uint8(math.Round(float64(c.A) * a))
		return c
	})
	return nil
}

func (o Opacity) String() string { return fmt.Sprintf("opacity:%g", o.Alpha) }

// FlipHorizontal mirrors the bitmap left to right.
type FlipHorizontal struct{}

func (FlipHorizontal) ApplyTo(b *Bitmap) error {
	w, h := b.Width(), b.Height()
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			l, r := b.At(x, y), b.At(w-1-x, y)
			b.Set(x, y, r)
			b.Set(w-1-x, y, l)
		}
	}
	return nil
}

func (FlipHorizontal) String() string { return "flip-h" }

// FlipVertical mirrors the bitmap top to bottom.
type FlipVertical struct{}

func (FlipVertical) ApplyTo(b *Bitmap) error {
	w, h := b.Width(), b.Height()
	for y := 0; y < h/2; y++ {
		for x := 0; x < w; x++ {
			t, d := b.At(x, y), b.At(x, h-1-y)
			b.Set(x, y, d)
			b.Set(x, h-1-y, t)
		}
	}
	return nil
}

func (FlipVertical) String() string { return "flip-v" }

// Scale resizes the bitmap by Factor using Catmull-Rom resampling. The result is
// at least one pixel in each dimension.
type Scale struct{ Factor float64 }

func (s Scale) ApplyTo(b *Bitmap) error {
	if s.Factor <= 0 || math.IsInf(s.Factor, 0) || math.IsNaN(s.Factor) {
		return fmt.Errorf("scale factor must be positive, got %g", s.Factor)
	}
	w := max(1, int(math.Round(float64(b.Width())*s.Factor)))
	h := max(1, int(math.Round(float64(b.Height())*s.Factor)))
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), b.Pix, b.Pix.Bounds(), xdraw.Src, nil)
	b.Pix = dst
	return nil
}

func (s Scale) String() string { return fmt.Sprintf("scale:%g", s.Factor) }

// Chain applies filters in order and stops at the first error.
type Chain []Filter

func (c Chain) ApplyTo(b *Bitmap) error {
	for _, f := range c {
		if err := f.ApplyTo(b); err != nil {
			return err
		}
	}
	return nil
}

func (c Chain) String() string {
	names := make([]string, len(c))
	for i, f := range c {
		names[i] = fmt.Sprint(f)
	}
	return strings.Join(names, ",")
}

// ParseFilter parses a filter description such as "grayscale", "opacity:0.5" or
// "scale:2". Several filters separated by commas yield a [Chain].
func ParseFilter(spec string) (Filter, error) {
	if strings.Contains(spec, ",") {
		var chain Chain
		for _, part := range strings.Split(spec, ",") {
			f, err := ParseFilter(part)
			if err != nil {
				return nil, err
			}
			chain = append(chain, f)
		}
		return chain, nil
	}

	name, arg, hasArg := strings.Cut(strings.TrimSpace(spec), ":")
	number := func() (float64, error) {
		if !hasArg {
			return 0, fmt.Errorf("filter %q needs an argument", name)
		}
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return 0, fmt.Errorf("filter %q: %w", name, err)
		}
		return v, nil
	}

	switch strings.ToLower(name) {
	case "grayscale", "greyscale":
		return Grayscale{}, nil
	case "invert":
		return Invert{}, nil
	case "flip-h":
		return FlipHorizontal{}, nil
	case "flip-v":
		return FlipVertical{}, nil
	case "opacity":
		v, err := number()
		if err != nil {
			return nil, err
		}
		return Opacity{Alpha: v}, nil
	case "scale":
		v, err := number()
		if err != nil {
			return nil, err
		}
		if v <= 0 {
			return nil, fmt.Errorf("filter %q: factor must be positive", name)
		}
		return Scale{Factor: v}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
	}
}

func eachPixel(b *Bitmap, fn func(color.NRGBA) color.NRGBA) {
	w, h := b.Width(), b.Height()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b.Set(x, y, fn(b.At(x, y)))
		}
	}
}
