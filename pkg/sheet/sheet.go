// Package sheet packs animation frames into sprite sheets.
//
// The pipeline depends only on the [Exporter] contract: given a [Provider] that
// supplies frames and [Settings], produce an [Artifact]. [GridExporter] is the
// built-in implementation; it lays frames out in a fixed grid and emits the
// encoded image plus a JSON atlas describing each frame's rectangle.
package sheet

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/spritepipe/pkg/bitmap"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	DefaultName    = "sheet"
	DefaultFormat  = FormatPNG
	DefaultPadding = 0
)

// Format constants for encoded sheets.
const (
	FormatPNG  = "png"
	FormatBMP  = "bmp"
	FormatTIFF = "tiff"
)

// ValidFormats is the set of supported sheet formats.
var ValidFormats = map[string]bool{
	FormatPNG:  true,
	FormatBMP:  true,
	FormatTIFF: true,
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: png, bmp, tiff)", format)
	}
	return nil
}

// =============================================================================
// Settings
// =============================================================================

// Settings controls how a sheet is packed and encoded.
type Settings struct {
	Name    string `toml:"name" json:"name"`
	Columns int    `toml:"columns" json:"columns,omitempty"` // 0 picks a near-square grid
	Padding int    `toml:"padding" json:"padding,omitempty"` // pixels between and around cells
	Format  string `toml:"format" json:"format,omitempty"`
}

// ValidateAndSetDefaults checks the settings and fills in defaults. It is
// idempotent.
func (s *Settings) ValidateAndSetDefaults() error {
	if s.Name == "" {
		s.Name = DefaultName
	}
	if s.Format == "" {
		s.Format = DefaultFormat
	}
	if s.Columns < 0 {
		return fmt.Errorf("columns must not be negative, got %d", s.Columns)
	}
	if s.Padding < 0 {
		return fmt.Errorf("padding must not be negative, got %d", s.Padding)
	}
	return ValidateFormat(s.Format)
}

// =============================================================================
// Collaborator Contracts
// =============================================================================

// Provider supplies the inputs for one sheet.
type Provider interface {
	Settings() Settings
	Frames() []*bitmap.Bitmap
}

// Exporter builds a sheet. Implementations must honour ctx cancellation.
type Exporter interface {
	ExportSheet(ctx context.Context, p Provider) (*Artifact, error)
}

// ExporterFunc adapts a function to [Exporter].
type ExporterFunc func(ctx context.Context, p Provider) (*Artifact, error)

func (f ExporterFunc) ExportSheet(ctx context.Context, p Provider) (*Artifact, error) {
	return f(ctx, p)
}

// Job is a plain [Provider].
type Job struct {
	Sheet    Settings
	Sprites  []*bitmap.Bitmap
	Duration time.Duration
}

func (j Job) Settings() Settings       { return j.Sheet }
func (j Job) Frames() []*bitmap.Bitmap { return j.Sprites }

// FrameDuration reports the animation timing recorded in the atlas.
func (j Job) FrameDuration() time.Duration { return j.Duration }

// =============================================================================
// Artifact
// =============================================================================

// Rect is a frame's placement inside the sheet.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Frame describes one packed frame.
type Frame struct {
	Name  string `json:"name"`
	Rect  Rect   `json:"rect"`
	Index int    `json:"index"`
}

// Atlas is the JSON description written next to the image.
type Atlas struct {
	Image      string  `json:"image"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Columns    int     `json:"columns"`
	Rows       int     `json:"rows"`
	DurationMS int64   `json:"duration_ms,omitempty"`
	Frames     []Frame `json:"frames"`
}

// Artifact is an encoded sheet plus its atlas.
type Artifact struct {
	Name   string
	Format string
	Image  []byte
	Atlas  Atlas
	// AtlasJSON is the encoded atlas.
	AtlasJSON []byte
}

// ImageKey is the storage key of the encoded image.
func (a *Artifact) ImageKey() string { return a.Name + "." + a.Format }

// AtlasKey is the storage key of the atlas.
func (a *Artifact) AtlasKey() string { return a.Name + ".json" }

// Files returns every file the artifact consists of, keyed by name.
func (a *Artifact) Files() map[string][]byte {
	files := map[string][]byte{a.ImageKey(): a.Image}
	if a.AtlasJSON != nil {
		files[a.AtlasKey()] = a.AtlasJSON
	}
	return files
}

// Size is the total number of encoded bytes.
func (a *Artifact) Size() int { return len(a.Image) + len(a.AtlasJSON) }
