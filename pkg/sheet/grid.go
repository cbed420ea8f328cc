package sheet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/draw"
	"image/png"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/matzehuels/spritepipe/pkg/bitmap"
	"github.com/matzehuels/spritepipe/pkg/observability"
)

// ErrNoFrames is returned when a provider supplies no frames.
var ErrNoFrames = errors.New("no frames to pack")

// GridExporter packs frames row by row into equally sized cells. The cell size
// is the largest frame width and height; smaller frames are anchored top-left.
type GridExporter struct {
	Logger *log.Logger
}

// NewGridExporter creates a grid exporter. A nil logger discards output.
func NewGridExporter(logger *log.Logger) *GridExporter {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &GridExporter{Logger: logger}
}

// ExportSheet packs and encodes the provider's frames. It checks ctx before each
// frame and before encoding.
func (e *GridExporter) ExportSheet(ctx context.Context, p Provider) (art *Artifact, err error) {
	settings := p.Settings()
	if err := settings.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	frames := p.Frames()

	start := time.Now()
	observability.Pipeline().OnSheetStart(ctx, settings.Name, len(frames))
	defer func() {
		size := 0
		if art != nil {
			size = art.Size()
		}
		observability.Pipeline().OnSheetComplete(ctx, settings.Name, size, time.Since(start), err)
	}()

	if len(frames) == 0 {
		return nil, ErrNoFrames
	}

	cellW, cellH := 0, 0
	for _, f := range frames {
		cellW = max(cellW, f.Width())
		cellH = max(cellH, f.Height())
	}
	cols := settings.Columns
	if cols == 0 {
		cols = int(math.Ceil(math.Sqrt(float64(len(frames)))))
	}
	cols = min(cols, len(frames))
	rows := (len(frames) + cols - 1) / cols
	pad := settings.Padding

	width := cols*cellW + (cols+1)*pad
	height := rows*cellH + (rows+1)*pad
	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))

	atlas := Atlas{
		Image:   settings.Name + "." + settings.Format,
		Width:   width,
		Height:  height,
		Columns: cols,
		Rows:    rows,
		Frames:  make([]Frame, 0, len(frames)),
	}
	if d, ok := p.(interface{ FrameDuration() time.Duration }); ok {
		atlas.DurationMS = d.FrameDuration().Milliseconds()
	}

	for i, f := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		x := pad + (i%cols)*(cellW+pad)
		y := pad + (i/cols)*(cellH+pad)
		dst := image.Rect(x, y, x+f.Width(), y+f.Height())
		draw.Draw(canvas, dst, f.Pix, f.Pix.Bounds().Min, draw.Src)
		atlas.Frames = append(atlas.Frames, Frame{
			Name:  f.Name,
			Index: i,
			Rect:  Rect{X: x, Y: y, W: f.Width(), H: f.Height()},
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := Encode(canvas, settings.Format)
	if err != nil {
		return nil, err
	}
	atlasJSON, err := json.MarshalIndent(atlas, "", "  ")
	if err != nil {
		return nil, err
	}

	e.Logger.Debug("sheet packed", "name", settings.Name, "frames", len(frames), "size", len(img))
	return &Artifact{
		Name:      settings.Name,
		Format:    settings.Format,
		Image:     img,
		Atlas:     atlas,
		AtlasJSON: atlasJSON,
	}, nil
}

// Encode writes img in the given format.
func Encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatPNG:
		err = png.Encode(&buf, img)
	case FormatBMP:
		err = bmp.Encode(&buf, img)
	case FormatTIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		err = ValidateFormat(format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeBitmap encodes a single bitmap.
func EncodeBitmap(b *bitmap.Bitmap, format string) ([]byte, error) {
	return Encode(b.Pix, format)
}

var _ Exporter = (*GridExporter)(nil)
