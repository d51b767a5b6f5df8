package goslides

import "fmt"

// ClosureKind identifies a deferred mutation operation.
type ClosureKind int

const (
	ClosureReplaceText ClosureKind = iota
	ClosureSetStyle
	ClosureDelete
	ClosureReorder
	ClosureSetGeometry
	ClosureReplaceImage
)

func (k ClosureKind) String() string {
	switch k {
	case ClosureReplaceText:
		return "replace-text"
	case ClosureSetStyle:
		return "set-style"
	case ClosureDelete:
		return "delete"
	case ClosureReorder:
		return "reorder"
	case ClosureSetGeometry:
		return "set-geometry"
	case ClosureReplaceImage:
		return "replace-image"
	default:
		return fmt.Sprintf("closure(%d)", int(k))
	}
}

// Closure is one recorded mutation against a shape. Closures are appended to
// a slide's log and applied in append order only when the presentation is
// serialized or rendered; the parsed model itself stays read-only.
type Closure struct {
	Kind     ClosureKind
	TargetID int

	// ReplaceText
	Text string
	// ParagraphIndex selects one paragraph, or -1 for the whole frame.
	ParagraphIndex int

	// SetStyle
	Style StyleArg

	// Reorder
	ZOrder int

	// SetGeometry
	Box *BoundingBox

	// ReplaceImage
	MediaKey string
}

// ReplaceText records replacing the full text of the target's frame. The
// dominant run of each surviving paragraph absorbs the new text, so the
// frame keeps its formatting.
func ReplaceText(targetID int, text string) Closure {
	return Closure{Kind: ClosureReplaceText, TargetID: targetID, Text: text, ParagraphIndex: -1}
}

// ReplaceParagraphText records replacing the text of one paragraph.
func ReplaceParagraphText(targetID, paragraph int, text string) Closure {
	return Closure{Kind: ClosureReplaceText, TargetID: targetID, Text: text, ParagraphIndex: paragraph}
}

// SetStyle records a field-level style merge: only the fields set in arg
// change, everything else keeps its current value.
func SetStyle(targetID int, arg StyleArg) Closure {
	return Closure{Kind: ClosureSetStyle, TargetID: targetID, Style: arg}
}

// Delete records removal of the target shape. Later closures against the
// same target become no-ops rather than errors.
func Delete(targetID int) Closure {
	return Closure{Kind: ClosureDelete, TargetID: targetID}
}

// Reorder records moving the target to a new z-order position among its
// siblings. Geometry is unaffected.
func Reorder(targetID, zOrder int) Closure {
	return Closure{Kind: ClosureReorder, TargetID: targetID, ZOrder: zOrder}
}

// SetGeometry records replacing the target's absolute bounding box.
func SetGeometry(targetID int, box BoundingBox) Closure {
	return Closure{Kind: ClosureSetGeometry, TargetID: targetID, Box: &box}
}

// ReplaceImage records swapping the target picture's media to another pool
// entry. The key is validated against the pool at replay time.
func ReplaceImage(targetID int, mediaKey string) Closure {
	return Closure{Kind: ClosureReplaceImage, TargetID: targetID, MediaKey: mediaKey}
}

// layoutOnly reports whether the closure touches geometry or structure but
// not content.
func (c Closure) layoutOnly() bool {
	switch c.Kind {
	case ClosureDelete, ClosureReorder, ClosureSetGeometry:
		return true
	}
	return false
}

// replayOptions narrows which closures take effect during a replay.
type replayOptions struct {
	layoutOnly bool
}

// replay applies the slide's closure log, in append order, to the slide's
// shape forest. The caller replays onto a clone; the parsed original is
// never mutated. Closures aimed at a shape deleted by an earlier closure
// are skipped; deleting a group deletes its whole subtree, so closures on
// its children become no-ops too.
func (s *SlidePage) replay(pool *MediaPool, opts replayOptions) error {
	deleted := make(map[int]bool)
	for _, c := range s.Closures {
		if deleted[c.TargetID] {
			continue
		}
		if opts.layoutOnly && !c.layoutOnly() {
			continue
		}
		if c.Kind == ClosureDelete {
			markDeleted(findShape(s.Shapes, c.TargetID), c.TargetID, deleted)
		}
		if err := s.apply(c, pool); err != nil {
			return err
		}
	}
	s.renumber()
	return nil
}

// markDeleted records the target and, when it is a group, every shape in its
// subtree, so later closures on any of them degrade to no-ops.
func markDeleted(target ShapeElement, targetID int, deleted map[int]bool) {
	deleted[targetID] = true
	if target == nil {
		return
	}
	walkShapes([]ShapeElement{target}, func(sh ShapeElement) bool {
		deleted[sh.Identity().ID] = true
		return true
	})
}

func (s *SlidePage) apply(c Closure, pool *MediaPool) error {
	target := findShape(s.Shapes, c.TargetID)
	if target == nil {
		// Append-time validation covers this; reaching it means the log
		// references a shape the source never had.
		return &UnknownTargetError{SlideIndex: s.Index, ShapeID: c.TargetID}
	}

	switch c.Kind {
	case ClosureReplaceText:
		frame := textFrameOf(target)
		if frame == nil {
			return fmt.Errorf("shape %d carries no text frame", c.TargetID)
		}
		return replaceFrameText(frame, c.ParagraphIndex, c.Text)

	case ClosureSetStyle:
		st := &target.base().style
		c.Style.applyToShape(st)
		if frame := textFrameOf(target); frame != nil {
			for _, p := range frame.Paragraphs {
				for _, r := range p.Runs {
					c.Style.applyToFont(&r.Font)
				}
			}
		}
		return nil

	case ClosureDelete:
		if !removeShape(&s.Shapes, c.TargetID) {
			return &UnknownTargetError{SlideIndex: s.Index, ShapeID: c.TargetID}
		}
		return nil

	case ClosureReorder:
		return reorderShape(&s.Shapes, c.TargetID, c.ZOrder)

	case ClosureSetGeometry:
		if c.Box == nil {
			return fmt.Errorf("set-geometry closure for shape %d carries no box", c.TargetID)
		}
		target.base().box = *c.Box
		return nil

	case ClosureReplaceImage:
		pic := pictureOf(target)
		if pic == nil {
			return fmt.Errorf("shape %d is not a picture", c.TargetID)
		}
		if pool != nil && !pool.Has(c.MediaKey) {
			return fmt.Errorf("media key %q not present in pool", c.MediaKey)
		}
		pic.MediaKey = c.MediaKey
		return nil

	default:
		return fmt.Errorf("unknown closure kind %d", int(c.Kind))
	}
}

// replaceFrameText rewrites frame text while keeping run formatting. With
// index -1 the first paragraph's dominant run absorbs the whole string and
// the remaining paragraphs are emptied.
func replaceFrameText(frame *TextFrame, index int, text string) error {
	if len(frame.Paragraphs) == 0 {
		frame.Paragraphs = []*Paragraph{{Runs: []*Run{{Text: text, Font: DefaultFont()}}}}
		return nil
	}
	if index >= 0 {
		if index >= len(frame.Paragraphs) {
			return fmt.Errorf("paragraph %d out of range (frame has %d)", index, len(frame.Paragraphs))
		}
		setParagraphText(frame.Paragraphs[index], text)
		return nil
	}
	setParagraphText(frame.Paragraphs[0], text)
	for _, p := range frame.Paragraphs[1:] {
		setParagraphText(p, "")
	}
	return nil
}

func setParagraphText(p *Paragraph, text string) {
	if r := p.mergeRuns(); r != nil {
		r.Text = text
		return
	}
	if text != "" {
		p.Runs = []*Run{{Text: text, Font: DefaultFont()}}
	}
}

// pictureOf unwraps the Picture embedded in picture variants.
func pictureOf(s ShapeElement) *Picture {
	switch v := s.(type) {
	case *Picture:
		return v
	case *SemanticPicture:
		return &v.Picture
	}
	return nil
}

// removeShape deletes the shape with the given id from the forest,
// searching nested groups. Reports whether anything was removed.
func removeShape(shapes *[]ShapeElement, id int) bool {
	for i, s := range *shapes {
		if s.Identity().ID == id {
			*shapes = append((*shapes)[:i], (*shapes)[i+1:]...)
			return true
		}
		if g, ok := s.(*GroupShape); ok {
			if removeShape(&g.Children, id) {
				return true
			}
		}
	}
	return false
}

// reorderShape moves the target to position z among its siblings. The move
// stays within the sibling list that contains the shape.
func reorderShape(shapes *[]ShapeElement, id, z int) error {
	siblings := siblingListOf(shapes, id)
	if siblings == nil {
		return fmt.Errorf("shape %d not found for reorder", id)
	}
	idx := -1
	for i, s := range *siblings {
		if s.Identity().ID == id {
			idx = i
			break
		}
	}
	target := (*siblings)[idx]
	*siblings = append((*siblings)[:idx], (*siblings)[idx+1:]...)
	if z < 0 {
		z = 0
	}
	if z > len(*siblings) {
		z = len(*siblings)
	}
	*siblings = append((*siblings)[:z], append([]ShapeElement{target}, (*siblings)[z:]...)...)
	return nil
}

func siblingListOf(shapes *[]ShapeElement, id int) *[]ShapeElement {
	for _, s := range *shapes {
		if s.Identity().ID == id {
			return shapes
		}
	}
	for _, s := range *shapes {
		if g, ok := s.(*GroupShape); ok {
			if l := siblingListOf(&g.Children, id); l != nil {
				return l
			}
		}
	}
	return nil
}

// renumber reassigns dense z-order in paint order after structural edits.
func (s *SlidePage) renumber() {
	z := 0
	walkShapes(s.Shapes, func(sh ShapeElement) bool {
		sh.base().identity.ZOrder = z
		z++
		return true
	})
}
