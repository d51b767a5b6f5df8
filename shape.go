package goslides

// ShapeKind discriminates the closed set of shape variants.
type ShapeKind int

const (
	KindTextBox ShapeKind = iota
	KindPicture
	KindSemanticPicture
	KindLine
	KindFreeShape
	KindGroup
	KindPlaceholder
	KindUnsupported
)

// String returns the kind's display name.
func (k ShapeKind) String() string {
	switch k {
	case KindTextBox:
		return "TextBox"
	case KindPicture:
		return "Picture"
	case KindSemanticPicture:
		return "SemanticPicture"
	case KindLine:
		return "Line"
	case KindFreeShape:
		return "FreeShape"
	case KindGroup:
		return "Group"
	case KindPlaceholder:
		return "Placeholder"
	default:
		return "Unsupported"
	}
}

// ShapeIdentity identifies a shape within its slide. The id is unique per
// slide; ZOrder is the dense, slide-local stacking position.
type ShapeIdentity struct {
	ID     int
	Name   string
	ZOrder int
}

// ShapeElement is the contract shared by all shape variants.
type ShapeElement interface {
	Identity() ShapeIdentity
	Box() BoundingBox
	Rotation() int
	Kind() ShapeKind
	Style() *ShapeStyle
	// SlideIndex is the non-owning back-reference to the owning slide,
	// resolved through the Presentation.
	SlideIndex() int
	// clone returns a deep copy, used for copy-on-replay.
	clone() ShapeElement
	// base returns the underlying BaseShape (internal use only).
	base() *BaseShape
}

// BaseShape contains the fields common to every variant.
type BaseShape struct {
	identity   ShapeIdentity
	box        BoundingBox // absolute slide coordinates after normalization
	rotation   int         // in degrees
	style      ShapeStyle
	slideIndex int
	// raw holds the shape's original XML bytes from the source package.
	// Untouched shapes are re-emitted from raw verbatim at save time.
	// Nil for shapes that were never parsed from a package.
	raw []byte
}

func (b *BaseShape) Identity() ShapeIdentity { return b.identity }
func (b *BaseShape) Box() BoundingBox        { return b.box }
func (b *BaseShape) Rotation() int           { return b.rotation }
func (b *BaseShape) Style() *ShapeStyle      { return &b.style }
func (b *BaseShape) SlideIndex() int         { return b.slideIndex }
func (b *BaseShape) base() *BaseShape        { return b }

func (b *BaseShape) cloneBase() BaseShape {
	out := *b
	out.style = b.style.clone()
	// raw is immutable once parsed, sharing is safe
	return out
}

// TextBox is a text-bearing frame.
type TextBox struct {
	BaseShape
	Frame TextFrame
}

func (t *TextBox) Kind() ShapeKind { return KindTextBox }

func (t *TextBox) clone() ShapeElement {
	return &TextBox{BaseShape: t.cloneBase(), Frame: t.Frame.clone()}
}

// Picture references an extracted image resource in the media pool.
type Picture struct {
	BaseShape
	MediaKey   string // non-owning lookup key into the presentation's pool
	SourceExt  string // original encoding before any conversion, lowercase
	IntrinsicW int64  // intrinsic pixel width, 0 if unknown
	IntrinsicH int64
	AltText    string
}

func (p *Picture) Kind() ShapeKind { return KindPicture }

func (p *Picture) clone() ShapeElement {
	out := *p
	out.BaseShape = p.cloneBase()
	return &out
}

// SemanticPicture is a Picture that carries a derived semantic caption.
type SemanticPicture struct {
	Picture
	Caption string
}

func (p *SemanticPicture) Kind() ShapeKind { return KindSemanticPicture }

func (p *SemanticPicture) clone() ShapeElement {
	out := *p
	out.BaseShape = p.cloneBase()
	return &out
}

// LineShape is a line or connector.
type LineShape struct {
	BaseShape
	ConnectorType string // prstGeom value: "line", "straightConnector1", ...
}

func (l *LineShape) Kind() ShapeKind { return KindLine }

func (l *LineShape) clone() ShapeElement {
	out := *l
	out.BaseShape = l.cloneBase()
	return &out
}

// FreeShape is a preset or freeform vector shape, optionally text-bearing.
type FreeShape struct {
	BaseShape
	Geometry string // prstGeom preset name, or "custom" for custGeom
	Frame    *TextFrame
}

func (f *FreeShape) Kind() ShapeKind { return KindFreeShape }

func (f *FreeShape) clone() ShapeElement {
	out := *f
	out.BaseShape = f.cloneBase()
	if f.Frame != nil {
		fr := f.Frame.clone()
		out.Frame = &fr
	}
	return &out
}

// GroupShape is a container whose children were declared in a local
// coordinate frame and reprojected to absolute slide coordinates at
// construction time. Thereafter children behave as ordinary shapes.
type GroupShape struct {
	BaseShape
	Children []ShapeElement
}

func (g *GroupShape) Kind() ShapeKind { return KindGroup }

func (g *GroupShape) clone() ShapeElement {
	out := &GroupShape{BaseShape: g.cloneBase()}
	out.Children = make([]ShapeElement, len(g.Children))
	for i, c := range g.Children {
		out.Children[i] = c.clone()
	}
	return out
}

// Placeholder is an index into the slide layout's placeholder inventory,
// with a text frame whose unset style falls back to the layout chain.
type Placeholder struct {
	BaseShape
	PhType  string // "title", "body", "ctrTitle", ...
	PhIndex int
	Frame   TextFrame
}

func (p *Placeholder) Kind() ShapeKind { return KindPlaceholder }

func (p *Placeholder) clone() ShapeElement {
	out := *p
	out.BaseShape = p.cloneBase()
	out.Frame = p.Frame.clone()
	return &out
}

// UnsupportedShape is an opaque passthrough. It retains identity and
// geometry so the source element round-trips unmodified, but exposes no
// editable content.
type UnsupportedShape struct {
	BaseShape
	ElementName string // source element local name, e.g. "graphicFrame"
}

func (u *UnsupportedShape) Kind() ShapeKind { return KindUnsupported }

func (u *UnsupportedShape) clone() ShapeElement {
	out := *u
	out.BaseShape = u.cloneBase()
	return &out
}

// textFrameOf returns the editable text frame of a shape, or nil for
// variants without text content.
func textFrameOf(s ShapeElement) *TextFrame {
	switch sh := s.(type) {
	case *TextBox:
		return &sh.Frame
	case *Placeholder:
		return &sh.Frame
	case *FreeShape:
		return sh.Frame
	}
	return nil
}

// walkShapes visits each shape in the forest depth-first, groups before
// their children. The walk stops early when fn returns false.
func walkShapes(shapes []ShapeElement, fn func(ShapeElement) bool) bool {
	for _, s := range shapes {
		if !fn(s) {
			return false
		}
		if g, ok := s.(*GroupShape); ok {
			if !walkShapes(g.Children, fn) {
				return false
			}
		}
	}
	return true
}

// findShape returns the shape with the given id, searching recursively into
// groups. Returns nil if absent.
func findShape(shapes []ShapeElement, id int) ShapeElement {
	var found ShapeElement
	walkShapes(shapes, func(s ShapeElement) bool {
		if s.Identity().ID == id {
			found = s
			return false
		}
		return true
	})
	return found
}
