package sheet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/matzehuels/spritepipe/pkg/bitmap"
)

func solid(name string, w, h int, c color.NRGBA) *bitmap.Bitmap {
	b := bitmap.New(name, w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b.Set(x, y, c)
		}
	}
	return b
}

func TestSettingsValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     Settings
		wantErr  bool
	}{
		{"Defaults", Settings{}, Settings{Name: DefaultName, Format: FormatPNG}, false},
		{"Explicit", Settings{Name: "hero", Columns: 4, Padding: 2, Format: FormatTIFF},
			Settings{Name: "hero", Columns: 4, Padding: 2, Format: FormatTIFF}, false},
		{"BadFormat", Settings{Format: "jpeg"}, Settings{}, true},
		{"NegativeColumns", Settings{Columns: -1}, Settings{}, true},
		{"NegativePadding", Settings{Padding: -1}, Settings{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.settings
			err := s.ValidateAndSetDefaults()
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && s != tt.want {
				t.Errorf("settings = %+v, want %+v", s, tt.want)
			}
		})
	}
}

func TestGridExporterLayout(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	job := Job{
		Sheet: Settings{Name: "hero", Padding: 1},
		Sprites: []*bitmap.Bitmap{
			solid("f0", 4, 4, red),
			solid("f1", 4, 2, red),
			solid("f2", 3, 4, red),
		},
		Duration: 80 * time.Millisecond,
	}

	art, err := NewGridExporter(nil).ExportSheet(context.Background(), job)
	if err != nil {
		t.Fatal(err)
	}

	// Three frames pick two columns and two rows of 4x4 cells.
	if art.Atlas.Columns != 2 || art.Atlas.Rows != 2 {
		t.Errorf("grid = %dx%d, want 2x2", art.Atlas.Columns, art.Atlas.Rows)
	}
	if art.Atlas.Width != 11 || art.Atlas.Height != 11 {
		t.Errorf("sheet = %dx%d, want 11x11", art.Atlas.Width, art.Atlas.Height)
	}
	wantRects := []Rect{{1, 1, 4, 4}, {6, 1, 4, 2}, {1, 6, 3, 4}}
	for i, want := range wantRects {
		if got := art.Atlas.Frames[i].Rect; got != want {
			t.Errorf("frame %d rect = %+v, want %+v", i, got, want)
		}
	}
	if art.Atlas.DurationMS != 80 {
		t.Errorf("DurationMS = %d, want 80", art.Atlas.DurationMS)
	}

	img, format, err := image.Decode(bytes.NewReader(art.Image))
	if err != nil {
		t.Fatal(err)
	}
	if format != "png" || img.Bounds().Dx() != 11 {
		t.Errorf("decoded %s %v", format, img.Bounds())
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Error("padding should be transparent")
	}
	if r, _, _, _ := img.At(1, 1).RGBA(); r != 0xffff {
		t.Error("first frame not drawn at (1,1)")
	}

	var atlas Atlas
	if err := json.Unmarshal(art.AtlasJSON, &atlas); err != nil {
		t.Fatal(err)
	}
	if atlas.Image != "hero.png" || len(atlas.Frames) != 3 {
		t.Errorf("atlas = %+v", atlas)
	}

	files := art.Files()
	if _, ok := files["hero.png"]; !ok {
		t.Errorf("Files() missing hero.png: %v", files)
	}
	if _, ok := files["hero.json"]; !ok {
		t.Errorf("Files() missing hero.json: %v", files)
	}
}

func TestGridExporterFixedColumns(t *testing.T) {
	frames := make([]*bitmap.Bitmap, 5)
	for i := range frames {
		frames[i] = bitmap.New("f", 2, 2)
	}
	art, err := NewGridExporter(nil).ExportSheet(context.Background(), Job{
		Sheet:   Settings{Columns: 8},
		Sprites: frames,
	})
	if err != nil {
		t.Fatal(err)
	}
	if art.Atlas.Columns != 5 || art.Atlas.Rows != 1 {
		t.Errorf("grid = %dx%d, want 5x1", art.Atlas.Columns, art.Atlas.Rows)
	}
}

func TestGridExporterFormats(t *testing.T) {
	for _, format := range []string{FormatBMP, FormatTIFF} {
		t.Run(format, func(t *testing.T) {
			art, err := NewGridExporter(nil).ExportSheet(context.Background(), Job{
				Sheet:   Settings{Format: format},
				Sprites: []*bitmap.Bitmap{solid("f", 3, 2, color.NRGBA{G: 255, A: 255})},
			})
			if err != nil {
				t.Fatal(err)
			}
			_, got, err := image.Decode(bytes.NewReader(art.Image))
			if err != nil || got != format {
				t.Errorf("decoded format = %q, %v", got, err)
			}
			if art.ImageKey() != "sheet."+format {
				t.Errorf("ImageKey() = %q", art.ImageKey())
			}
		})
	}
}

func TestGridExporterErrors(t *testing.T) {
	exp := NewGridExporter(nil)

	if _, err := exp.ExportSheet(context.Background(), Job{}); !errors.Is(err, ErrNoFrames) {
		t.Errorf("empty job: err = %v, want %v", err, ErrNoFrames)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job := Job{Sprites: []*bitmap.Bitmap{bitmap.New("f", 1, 1)}}
	if _, err := exp.ExportSheet(ctx, job); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: err = %v, want %v", err, context.Canceled)
	}

	if _, err := exp.ExportSheet(context.Background(), Job{Sheet: Settings{Format: "gif"}, Sprites: job.Sprites}); err == nil {
		t.Error("expected error for unsupported format")
	}
}
