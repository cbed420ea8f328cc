package bitmap

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/image/bmp"
)

func checker(name string) *Bitmap {
	b := New(name, 2, 2)
	b.Set(0, 0, color.NRGBA{R: 255, A: 255})
	b.Set(1, 0, color.NRGBA{G: 255, A: 255})
	b.Set(0, 1, color.NRGBA{B: 255, A: 255})
	b.Set(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 128})
	return b
}

func TestFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		x, y   int
		want   color.NRGBA
	}{
		{"Invert", Invert{}, 0, 0, color.NRGBA{G: 255, B: 255, A: 255}},
		{"InvertKeepsAlpha", Invert{}, 1, 1, color.NRGBA{R: 245, G: 235, B: 225, A: 128}},
		{"Grayscale", Grayscale{}, 1, 0, color.NRGBA{R: 150, G: 150, B: 150, A: 255}},
		{"FlipHorizontal", FlipHorizontal{}, 0, 0, color.NRGBA{G: 255, A: 255}},
		{"FlipVertical", FlipVertical{}, 0, 0, color.NRGBA{B: 255, A: 255}},
		{"Opacity", Opacity{Alpha: 0.5}, 0, 0, color.NRGBA{R: 255, A: 128}},
		{"OpacityClamped", Opacity{Alpha: 3}, 1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 128}},
		{"Chain", Chain{FlipHorizontal{}, Invert{}}, 0, 0, color.NRGBA{R: 255, B: 255, A: 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := checker("c")
			if err := tt.filter.ApplyTo(b); err != nil {
				t.Fatal(err)
			}
			if got := b.At(tt.x, tt.y); got != tt.want {
				t.Errorf("At(%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestScale(t *testing.T) {
	b := New("s", 10, 4)
	if err := (Scale{Factor: 0.5}).ApplyTo(b); err != nil {
		t.Fatal(err)
	}
	if b.Width() != 5 || b.Height() != 2 {
		t.Errorf("size = %dx%d, want 5x2", b.Width(), b.Height())
	}

	tiny := New("t", 1, 1)
	_ = Scale{Factor: 0.1}.ApplyTo(tiny)
	if tiny.Width() != 1 || tiny.Height() != 1 {
		t.Errorf("size = %dx%d, want 1x1", tiny.Width(), tiny.Height())
	}

	if err := (Scale{Factor: 0}).ApplyTo(b); err == nil {
		t.Error("expected error for zero factor")
	}
}

func TestClone(t *testing.T) {
	b := checker("c")
	c := b.Clone()
	Invert{}.ApplyTo(c)
	if b.At(0, 0) != (color.NRGBA{R: 255, A: 255}) {
		t.Error("filtering a clone changed the original")
	}

	a := NewAnimation("walk", 0, checker("f0"), checker("f1"))
	if a.FrameDuration != DefaultFrameDuration {
		t.Errorf("FrameDuration = %v, want %v", a.FrameDuration, DefaultFrameDuration)
	}
	ac := a.Clone()
	if err := ApplyToAnimation(Invert{}, ac); err != nil {
		t.Fatal(err)
	}
	if a.Frames[1].At(0, 0) != (color.NRGBA{R: 255, A: 255}) {
		t.Error("filtering a cloned animation changed the original")
	}
	if ac.Frames[1].At(0, 0) != (color.NRGBA{G: 255, B: 255, A: 255}) {
		t.Errorf("cloned frame = %v", ac.Frames[1].At(0, 0))
	}
}

func TestDecode(t *testing.T) {
	src := checker("c")

	var pngBuf, bmpBuf bytes.Buffer
	if err := png.Encode(&pngBuf, src.Pix); err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(&bmpBuf, src.Pix); err != nil {
		t.Fatal(err)
	}

	for name, buf := range map[string]*bytes.Buffer{"png": &pngBuf, "bmp": &bmpBuf} {
		t.Run(name, func(t *testing.T) {
			b, err := Decode(name, buf)
			if err != nil {
				t.Fatal(err)
			}
			if b.Width() != 2 || b.Height() != 2 {
				t.Errorf("size = %dx%d", b.Width(), b.Height())
			}
			if got := b.At(1, 0); got != (color.NRGBA{G: 255, A: 255}) {
				t.Errorf("At(1,0) = %v", got)
			}
		})
	}

	if _, err := Decode("junk", bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("expected error for junk input")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hero_idle.png")
	var buf bytes.Buffer
	_ = png.Encode(&buf, checker("c").Pix)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	b, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if b.Name != "hero_idle" {
		t.Errorf("Name = %q, want hero_idle", b.Name)
	}

	a, err := LoadAnimation("idle", 50*time.Millisecond, path, path)
	if err != nil {
		t.Fatal(err)
	}
	if a.Len() != 2 || a.FrameDuration != 50*time.Millisecond {
		t.Errorf("animation = %d frames, %v", a.Len(), a.FrameDuration)
	}
}

func TestDecodeGIF(t *testing.T) {
	pal := color.Palette{color.Transparent, color.NRGBA{R: 255, A: 255}, color.NRGBA{B: 255, A: 255}}
	f0 := image.NewPaletted(image.Rect(0, 0, 2, 2), pal)
	f0.SetColorIndex(0, 0, 1)
	f1 := image.NewPaletted(image.Rect(1, 1, 2, 2), pal)
	f1.SetColorIndex(1, 1, 2)

	var buf bytes.Buffer
	err := gif.EncodeAll(&buf, &gif.GIF{
		Image:  []*image.Paletted{f0, f1},
		Delay:  []int{5, 5},
		Config: image.Config{ColorModel: pal, Width: 2, Height: 2},
	})
	if err != nil {
		t.Fatal(err)
	}

	a, err := DecodeGIF("blink", &buf)
	if err != nil {
		t.Fatal(err)
	}
	if a.Len() != 2 {
		t.Fatalf("frames = %d, want 2", a.Len())
	}
	if a.FrameDuration != 50*time.Millisecond {
		t.Errorf("FrameDuration = %v, want 50ms", a.FrameDuration)
	}
	// The second frame only covers one pixel; the first frame shows through.
	if got := a.Frames[1].At(0, 0); got != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("frame 1 At(0,0) = %v", got)
	}
	if got := a.Frames[1].At(1, 1); got != (color.NRGBA{B: 255, A: 255}) {
		t.Errorf("frame 1 At(1,1) = %v", got)
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		spec    string
		want    string
		wantErr bool
	}{
		{"grayscale", "grayscale", false},
		{"Invert", "invert", false},
		{"flip-h", "flip-h", false},
		{"opacity:0.25", "opacity:0.25", false},
		{"scale:2", "scale:2", false},
		{"flip-v, scale:0.5", "flip-v,scale:0.5", false},
		{"scale", "", true},
		{"scale:-1", "", true},
		{"opacity:abc", "", true},
		{"blur", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			f, err := ParseFilter(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFilter(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if err == nil {
				if got := f.(interface{ String() string }).String(); got != tt.want {
					t.Errorf("String() = %q, want %q", got, tt.want)
				}
			}
		})
	}

	if _, err := ParseFilter("blur"); !errors.Is(err, ErrUnknownFilter) {
		t.Errorf("err = %v, want %v", err, ErrUnknownFilter)
	}
}
