package goslides

import "strings"

// SlidePage is one parsed slide: its typed shape forest, its closure log,
// and the raw chunks needed to re-emit untouched content verbatim.
//
// A slide that failed to parse is still present in the deck with Err set and
// an empty forest, so slide indices always line up with the source.
type SlidePage struct {
	Index     int // 0-based position in the deck
	Shapes    []ShapeElement
	Closures  []Closure
	LayoutRef string // layout part name, "" if unresolved
	// Err records why this slide could not be parsed; nil for healthy slides.
	Err error

	partName string
	raw      *rawSlide
}

// Failed reports whether the slide was recorded as unparseable.
func (s *SlidePage) Failed() bool { return s.Err != nil }

// ShapeCount returns the number of shapes including nested group children.
func (s *SlidePage) ShapeCount() int {
	n := 0
	walkShapes(s.Shapes, func(ShapeElement) bool {
		n++
		return true
	})
	return n
}

// FindShape returns the shape with the given id, searching nested groups,
// or nil if the slide has no such shape.
func (s *SlidePage) FindShape(id int) ShapeElement {
	return findShape(s.Shapes, id)
}

// Walk visits every shape depth-first in paint order. Returning false from
// fn stops the walk.
func (s *SlidePage) Walk(fn func(ShapeElement) bool) {
	walkShapes(s.Shapes, fn)
}

// AppendClosure validates the closure's target against the current forest
// and appends it to the log. A target already deleted by a logged closure
// is still valid: the new closure will simply be a no-op at replay.
func (s *SlidePage) AppendClosure(c Closure) error {
	if s.Failed() {
		return &UnknownTargetError{SlideIndex: s.Index, ShapeID: c.TargetID}
	}
	if findShape(s.Shapes, c.TargetID) == nil {
		return &UnknownTargetError{SlideIndex: s.Index, ShapeID: c.TargetID}
	}
	s.Closures = append(s.Closures, c)
	return nil
}

// ExtractText returns the slide's visible text in paint order, one line per
// paragraph, with semantic picture captions included.
func (s *SlidePage) ExtractText() string {
	var lines []string
	walkShapes(s.Shapes, func(sh ShapeElement) bool {
		if frame := textFrameOf(sh); frame != nil {
			for _, p := range frame.Paragraphs {
				if t := p.Text(); strings.TrimSpace(t) != "" {
					lines = append(lines, t)
				}
			}
		}
		if sp, ok := sh.(*SemanticPicture); ok && sp.Caption != "" {
			lines = append(lines, sp.Caption)
		}
		return true
	})
	return strings.Join(lines, "\n")
}

// clone returns a deep copy suitable for replaying the closure log without
// touching the parsed original. The closure log itself is not copied; the
// clone starts with an empty log.
func (s *SlidePage) clone() *SlidePage {
	out := &SlidePage{
		Index:     s.Index,
		LayoutRef: s.LayoutRef,
		Err:       s.Err,
		partName:  s.partName,
		raw:       s.raw, // raw chunks are immutable once parsed
	}
	out.Shapes = make([]ShapeElement, len(s.Shapes))
	for i, sh := range s.Shapes {
		out.Shapes[i] = sh.clone()
	}
	return out
}

// applied returns a clone with the closure log replayed onto it.
func (s *SlidePage) applied(pool *MediaPool, opts replayOptions) (*SlidePage, error) {
	out := s.clone()
	out.Closures = s.Closures
	if err := out.replay(pool, opts); err != nil {
		return nil, err
	}
	out.Closures = nil
	return out, nil
}
