package services

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"unicode"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"

	"github.com/autonoma/autonoma-backend/internal/logger"
)

// IconSizes lists every icon the packaged artifact ships, keyed by the
// path inside the zip.
var IconSizes = map[string]int{
	"icons/icon16.png":  16,
	"icons/icon32.png":  32,
	"icons/icon48.png":  48,
	"icons/icon128.png": 128,
}

// IconService renders the icon set for a generated extension. The same
// extension name always produces the same icons.
type IconService interface {
	GenerateSet(name string) (map[string][]byte, error)
}

type iconService struct {
	log      *logger.Logger
	fontFace font.Face

	palette []color.NRGBA
}

// NewIconService loads the glyph font from ICON_FONT_PATH when set.
// Without a font the icons fall back to a geometric mark, which keeps
// generation working on hosts with no font files installed.
func NewIconService(baseLog *logger.Logger) IconService {
	serviceLog := baseLog.With("service", "IconService")

	var face font.Face
	fontPath := strings.TrimSpace(os.Getenv("ICON_FONT_PATH"))
	if fontPath != "" {
		loaded, err := loadFontFace(fontPath, 72)
		if err != nil {
			serviceLog.Warn("Failed to load icon font, using geometric mark", "path", fontPath, "error", err.Error())
		} else {
			face = loaded
		}
	}

	return &iconService{
		log:      serviceLog,
		fontFace: face,
		palette: []color.NRGBA{
			{R: 0x25, G: 0x63, B: 0xeb, A: 0xff},
			{R: 0x7c, G: 0x3a, B: 0xed, A: 0xff},
			{R: 0x05, G: 0x96, B: 0x69, A: 0xff},
			{R: 0xdc, G: 0x26, B: 0x26, A: 0xff},
			{R: 0xd9, G: 0x77, B: 0x06, A: 0xff},
			{R: 0x0e, G: 0x74, B: 0x90, A: 0xff},
			{R: 0xbe, G: 0x18, B: 0x5d, A: 0xff},
		},
	}
}

func (s *iconService) GenerateSet(name string) (map[string][]byte, error) {
	base, err := s.drawBase(name)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(IconSizes))
	for path, size := range IconSizes {
		img := base
		if size != baseIconSize {
			scaled := image.NewRGBA(image.Rect(0, 0, size, size))
			draw.CatmullRom.Scale(scaled, scaled.Bounds(), base, base.Bounds(), draw.Over, nil)
			img = scaled
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", path, err)
		}
		out[path] = buf.Bytes()
	}
	return out, nil
}

const baseIconSize = 128

func (s *iconService) drawBase(name string) (image.Image, error) {
	dc := gg.NewContext(baseIconSize, baseIconSize)

	bg := s.pickColor(name)

	// Rounded tile
	dc.SetColor(bg)
	dc.DrawRoundedRectangle(0, 0, baseIconSize, baseIconSize, 24)
	dc.Fill()

	// Soft highlight in the upper half
	dc.SetRGBA(1, 1, 1, 0.18)
	dc.DrawCircle(baseIconSize*0.3, baseIconSize*0.2, baseIconSize*0.55)
	dc.Fill()

	glyph := iconGlyph(name)
	if s.fontFace != nil && glyph != "" {
		dc.SetFontFace(s.fontFace)
		tw, th := dc.MeasureString(glyph)
		cx, cy := float64(baseIconSize)/2, float64(baseIconSize)/2
		dc.SetColor(color.White)
		dc.DrawString(glyph, cx-(tw/2), cy+(th/2)-8)
	} else {
		// Geometric mark: a white ring with a bar, readable at 16px.
		dc.SetColor(color.White)
		dc.SetLineWidth(10)
		dc.DrawCircle(baseIconSize/2, baseIconSize/2, baseIconSize*0.28)
		dc.Stroke()
		dc.DrawRectangle(baseIconSize*0.44, baseIconSize*0.3, baseIconSize*0.12, baseIconSize*0.4)
		dc.Fill()
	}

	return dc.Image(), nil
}

func (s *iconService) pickColor(name string) color.NRGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(name))))
	return s.palette[int(h.Sum32())%len(s.palette)]
}

// iconGlyph is the first letter of the first word of the name.
func iconGlyph(name string) string {
	for _, field := range strings.Fields(name) {
		for _, r := range field {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return strings.ToUpper(string(r))
			}
		}
	}
	return ""
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	face := truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	return face, nil
}
