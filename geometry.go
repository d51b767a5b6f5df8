package goslides

import "math"

// BoundingBox is an axis-aligned rectangle in EMU. It is an immutable value
// type: methods return new boxes. Width and Height are never negative in a
// well-formed box.
type BoundingBox struct {
	Left   int64
	Top    int64
	Width  int64
	Height int64
}

// Right returns the right edge coordinate.
func (b BoundingBox) Right() int64 { return b.Left + b.Width }

// Bottom returns the bottom edge coordinate.
func (b BoundingBox) Bottom() int64 { return b.Top + b.Height }

// IsZero reports whether the box is the zero value.
func (b BoundingBox) IsZero() bool {
	return b.Left == 0 && b.Top == 0 && b.Width == 0 && b.Height == 0
}

// Union returns the smallest box enclosing both b and o.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	left := min64(b.Left, o.Left)
	top := min64(b.Top, o.Top)
	right := max64(b.Right(), o.Right())
	bottom := max64(b.Bottom(), o.Bottom())
	return BoundingBox{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// boundsUnion returns the tight bounding union of all boxes. Empty input
// yields the zero box.
func boundsUnion(boxes []BoundingBox) BoundingBox {
	if len(boxes) == 0 {
		return BoundingBox{}
	}
	u := boxes[0]
	for _, b := range boxes[1:] {
		u = u.Union(b)
	}
	return u
}

// projectChild maps a child's local box into absolute coordinates, given the
// group's absolute box and the group's local bounds (the tight union of the
// children's local boxes):
//
//	scale   = groupAbs.extent / groupLocal.extent
//	abs.pos = (local.pos - groupLocal.pos) * scale + groupAbs.pos
//	abs.ext = local.ext * scale
//
// The caller must have rejected a degenerate groupLocal first.
func projectChild(groupAbs, groupLocal, childLocal BoundingBox) BoundingBox {
	scaleX := float64(groupAbs.Width) / float64(groupLocal.Width)
	scaleY := float64(groupAbs.Height) / float64(groupLocal.Height)
	return BoundingBox{
		Left:   roundEMU(float64(childLocal.Left-groupLocal.Left)*scaleX) + groupAbs.Left,
		Top:    roundEMU(float64(childLocal.Top-groupLocal.Top)*scaleY) + groupAbs.Top,
		Width:  roundEMU(float64(childLocal.Width) * scaleX),
		Height: roundEMU(float64(childLocal.Height) * scaleY),
	}
}

// NormalizeGroup projects each child local box into absolute coordinates.
// The group's declared frame is ignored in favor of the tight union of the
// children, because authoring tools may declare a frame that does not match
// the children's actual extents. Returns a DegenerateGroupGeometryError when
// the union has zero width or height.
func NormalizeGroup(groupAbs BoundingBox, childLocals []BoundingBox) ([]BoundingBox, error) {
	if len(childLocals) == 0 {
		return nil, nil
	}
	local := boundsUnion(childLocals)
	if local.Width == 0 || local.Height == 0 {
		return nil, &DegenerateGroupGeometryError{}
	}
	abs := make([]BoundingBox, len(childLocals))
	for i, c := range childLocals {
		abs[i] = projectChild(groupAbs, local, c)
	}
	return abs, nil
}

// unprojectChild is the inverse of projectChild: it maps an absolute box
// back into a group's local frame. Used at save time when a geometry edit
// targets a shape nested inside a group, whose stored coordinates are local.
// The caller must have rejected a degenerate groupAbs first.
func unprojectChild(groupAbs, groupLocal, childAbs BoundingBox) BoundingBox {
	scaleX := float64(groupAbs.Width) / float64(groupLocal.Width)
	scaleY := float64(groupAbs.Height) / float64(groupLocal.Height)
	return BoundingBox{
		Left:   roundEMU(float64(childAbs.Left-groupAbs.Left)/scaleX) + groupLocal.Left,
		Top:    roundEMU(float64(childAbs.Top-groupAbs.Top)/scaleY) + groupLocal.Top,
		Width:  roundEMU(float64(childAbs.Width) / scaleX),
		Height: roundEMU(float64(childAbs.Height) / scaleY),
	}
}

func roundEMU(v float64) int64 {
	return int64(math.Round(v))
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
