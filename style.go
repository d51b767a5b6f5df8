package goslides

import "strings"

// Color represents an ARGB color.
type Color struct {
	ARGB string // 8-character hex string, e.g. "FF000000" for black
}

// Predefined colors.
var (
	ColorBlack  = Color{ARGB: "FF000000"}
	ColorWhite  = Color{ARGB: "FFFFFFFF"}
	ColorYellow = Color{ARGB: "FFFFFF00"}
	ColorBlue   = Color{ARGB: "FF0000FF"}
)

// NewColor creates a Color from an ARGB hex string. Accepts 6-char RGB
// (e.g. "FF0000") or 8-char ARGB (e.g. "FFFF0000"). A leading "#" is
// stripped automatically. Invalid input falls back to black.
func NewColor(argb string) Color {
	argb = strings.TrimPrefix(argb, "#")
	if len(argb) == 6 {
		argb = "FF" + argb
	}
	argb = strings.ToUpper(argb)
	if !isValidARGB(argb) {
		return ColorBlack
	}
	return Color{ARGB: argb}
}

// RGB returns the 6-character RRGGBB portion of the color.
func (c Color) RGB() string {
	if len(c.ARGB) == 8 {
		return c.ARGB[2:]
	}
	return c.ARGB
}

// GetRed returns the red component (0-255).
func (c Color) GetRed() uint8 { return parseHexByte(c.ARGB, 2) }

// GetGreen returns the green component (0-255).
func (c Color) GetGreen() uint8 { return parseHexByte(c.ARGB, 4) }

// GetBlue returns the blue component (0-255).
func (c Color) GetBlue() uint8 { return parseHexByte(c.ARGB, 6) }

// GetAlpha returns the alpha component (0-255).
func (c Color) GetAlpha() uint8 { return parseHexByte(c.ARGB, 0) }

// isValidARGB checks that s is exactly 8 hex characters.
func isValidARGB(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// parseHexByte parses two hex characters at offset into a uint8.
// Returns 0 on any error (out of range, invalid chars).
func parseHexByte(s string, offset int) uint8 {
	if offset+2 > len(s) {
		return 0
	}
	h := hexVal(s[offset])
	l := hexVal(s[offset+1])
	if h < 0 || l < 0 {
		return 0
	}
	return uint8(h<<4 | l)
}

func hexVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return -1
	}
}

// FillKind discriminates fill variants.
type FillKind int

const (
	FillNone FillKind = iota
	FillSolid
	FillPicture
)

// Fill is an immutable fill value: a solid color, a picture keyed into the
// media pool, or no fill. Compared by structural equality.
type Fill struct {
	Kind     FillKind
	Color    Color
	MediaKey string // pool key for FillPicture
}

// SolidFill returns a solid color fill.
func SolidFill(c Color) Fill { return Fill{Kind: FillSolid, Color: c} }

// PictureFill returns a picture fill referencing a media pool key.
func PictureFill(key string) Fill { return Fill{Kind: FillPicture, MediaKey: key} }

// Font holds text run formatting. Value type compared by ==.
type Font struct {
	Name      string
	Size      int // in points
	Bold      bool
	Italic    bool
	Underline bool
	Color     Color
}

// DefaultFont returns the default run font.
func DefaultFont() Font {
	return Font{Name: "Calibri", Size: 18, Color: ColorBlack}
}

// DashStyle represents the line dash pattern.
type DashStyle string

const (
	DashSolid DashStyle = "solid"
	DashDash  DashStyle = "dash"
	DashDot   DashStyle = "dot"
)

// LineStyle describes an outline or connector stroke.
type LineStyle struct {
	Color Color
	Width int64 // in EMU
	Dash  DashStyle
}

// Background describes a slide background.
type Background struct {
	Fill Fill
}

// ShapeStyle carries the optional style references shared by all shape
// variants. Nil members mean "not set / inherited".
type ShapeStyle struct {
	Fill       *Fill
	Line       *LineStyle
	Background *Fill
}

func (s *ShapeStyle) clone() ShapeStyle {
	var out ShapeStyle
	if s.Fill != nil {
		f := *s.Fill
		out.Fill = &f
	}
	if s.Line != nil {
		l := *s.Line
		out.Line = &l
	}
	if s.Background != nil {
		b := *s.Background
		out.Background = &b
	}
	return out
}

// StyleArg is the payload of a SetStyle closure. Only non-nil fields are
// applied, so two closures setting disjoint fields both take effect and a
// later closure overrides only the fields it sets.
type StyleArg struct {
	FillColor *Color
	LineColor *Color
	LineWidth *int64
	FontName  *string
	FontSize  *int // points
	Bold      *bool
	Italic    *bool
	Underline *bool
	FontColor *Color
}

// merge returns a StyleArg where o's set fields override s's.
func (s StyleArg) merge(o StyleArg) StyleArg {
	if o.FillColor != nil {
		s.FillColor = o.FillColor
	}
	if o.LineColor != nil {
		s.LineColor = o.LineColor
	}
	if o.LineWidth != nil {
		s.LineWidth = o.LineWidth
	}
	if o.FontName != nil {
		s.FontName = o.FontName
	}
	if o.FontSize != nil {
		s.FontSize = o.FontSize
	}
	if o.Bold != nil {
		s.Bold = o.Bold
	}
	if o.Italic != nil {
		s.Italic = o.Italic
	}
	if o.Underline != nil {
		s.Underline = o.Underline
	}
	if o.FontColor != nil {
		s.FontColor = o.FontColor
	}
	return s
}

// isZero reports whether no field is set.
func (s StyleArg) isZero() bool {
	return s.FillColor == nil && s.LineColor == nil && s.LineWidth == nil &&
		s.FontName == nil && s.FontSize == nil && s.Bold == nil &&
		s.Italic == nil && s.Underline == nil && s.FontColor == nil
}

// applyToFont applies the font-related fields of the arg to f.
func (s StyleArg) applyToFont(f *Font) {
	if s.FontName != nil {
		f.Name = *s.FontName
	}
	if s.FontSize != nil {
		f.Size = *s.FontSize
	}
	if s.Bold != nil {
		f.Bold = *s.Bold
	}
	if s.Italic != nil {
		f.Italic = *s.Italic
	}
	if s.Underline != nil {
		f.Underline = *s.Underline
	}
	if s.FontColor != nil {
		f.Color = *s.FontColor
	}
}

// applyToShape applies the shape-level fields of the arg to st.
func (s StyleArg) applyToShape(st *ShapeStyle) {
	if s.FillColor != nil {
		f := SolidFill(*s.FillColor)
		st.Fill = &f
	}
	if s.LineColor != nil || s.LineWidth != nil {
		if st.Line == nil {
			st.Line = &LineStyle{Color: ColorBlack, Width: Point(1), Dash: DashSolid}
		}
		if s.LineColor != nil {
			st.Line.Color = *s.LineColor
		}
		if s.LineWidth != nil {
			st.Line.Width = *s.LineWidth
		}
	}
}
