package goslides

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
)

// SaveOptions controls which closures take effect during serialization.
type SaveOptions struct {
	// LayoutOnly applies only geometry, order and delete closures; content
	// edits (text, style, image swaps) are held back.
	LayoutOnly bool
}

// Save writes the presentation to path with the full closure log applied.
// Parts untouched by any closure are copied byte-for-byte from the source
// package; failed slides are copied as-is.
func (p *Presentation) Save(path string) error {
	return p.SaveAs(path, SaveOptions{})
}

// SaveAs is Save with options.
func (p *Presentation) SaveAs(path string, opts SaveOptions) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	writeErr := p.WriteTo(f, opts)
	closeErr := f.Close()
	if writeErr != nil {
		os.Remove(path)
		return writeErr
	}
	return closeErr
}

// WriteTo serializes the presentation to w.
func (p *Presentation) WriteTo(w io.Writer, opts SaveOptions) error {
	replaced := make(map[string][]byte) // part name -> new bytes
	var added []mediaAddition

	for _, s := range p.slides {
		if s.Failed() || len(s.Closures) == 0 {
			continue
		}
		data, slideMedia, err := p.emitSlide(s, opts)
		if err != nil {
			return err
		}
		replaced[s.partName] = data
		if len(slideMedia) > 0 {
			relsData, err := p.patchSlideRels(s.partName, slideMedia)
			if err != nil {
				return &SerializationError{SlideIndex: s.Index, Err: err}
			}
			replaced[relsName(s.partName)] = relsData
			added = append(added, slideMedia...)
		}
	}

	if len(added) > 0 {
		ct, err := p.patchContentTypes(added)
		if err != nil {
			return &SerializationError{Err: err}
		}
		replaced["[Content_Types].xml"] = ct
	}

	zw := zip.NewWriter(w)
	for _, name := range p.pkg.order {
		data := p.pkg.parts[name]
		if patched, ok := replaced[name]; ok {
			data = patched
		}
		fw, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("failed to create zip entry %s: %w", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("failed to write zip entry %s: %w", name, err)
		}
	}
	for _, m := range added {
		if _, exists := p.pkg.parts[m.partName]; exists {
			continue
		}
		fw, err := zw.Create(m.partName)
		if err != nil {
			return fmt.Errorf("failed to create zip entry %s: %w", m.partName, err)
		}
		if _, err := fw.Write(m.data); err != nil {
			return fmt.Errorf("failed to write zip entry %s: %w", m.partName, err)
		}
	}
	return zw.Close()
}

// mediaAddition is one image part the save introduces, plus the
// relationship id it is wired to on its slide.
type mediaAddition struct {
	relID    string
	partName string
	ext      string
	data     []byte
}

// slidePatchPlan is the per-shape digest of a closure log: which shapes
// need which byte edits. Closures aimed at already-deleted shapes are
// dropped here with the same semantics the replay uses.
type slidePatchPlan struct {
	textTouched map[int]bool
	styleOf     map[int]StyleArg
	boxOf       map[int]*BoundingBox
	mediaOf     map[int]string // pool key
}

func buildPlan(s *SlidePage, pool *MediaPool, opts SaveOptions) (slidePatchPlan, error) {
	plan := slidePatchPlan{
		textTouched: make(map[int]bool),
		styleOf:     make(map[int]StyleArg),
		boxOf:       make(map[int]*BoundingBox),
		mediaOf:     make(map[int]string),
	}
	deleted := make(map[int]bool)
	for _, c := range s.Closures {
		if deleted[c.TargetID] {
			continue
		}
		if opts.LayoutOnly && !c.layoutOnly() {
			continue
		}
		switch c.Kind {
		case ClosureReplaceText:
			plan.textTouched[c.TargetID] = true
		case ClosureSetStyle:
			plan.styleOf[c.TargetID] = plan.styleOf[c.TargetID].merge(c.Style)
		case ClosureDelete:
			markDeleted(findShape(s.Shapes, c.TargetID), c.TargetID, deleted)
		case ClosureSetGeometry:
			box := *c.Box
			plan.boxOf[c.TargetID] = &box
		case ClosureReplaceImage:
			if !pool.Has(c.MediaKey) {
				return plan, &SerializationError{
					SlideIndex: s.Index,
					ShapeID:    c.TargetID,
					MediaKey:   c.MediaKey,
					Err:        fmt.Errorf("media key not in pool"),
				}
			}
			plan.mediaOf[c.TargetID] = c.MediaKey
		}
	}
	return plan, nil
}

// groupFrame carries the coordinate mapping of the enclosing group while
// emitting its children; nil for top-level shapes, whose raw coordinates
// are already absolute.
type groupFrame struct {
	abs   BoundingBox
	local BoundingBox
}

// emitSlide produces the patched slide part. The closure log is replayed
// onto a clone to settle final order, deletions and content, then each
// surviving shape's original chunk is spliced to match.
func (p *Presentation) emitSlide(s *SlidePage, opts SaveOptions) ([]byte, []mediaAddition, error) {
	plan, err := buildPlan(s, p.pool, opts)
	if err != nil {
		return nil, nil, err
	}
	applied, err := s.applied(p.pool, replayOptions{layoutOnly: opts.LayoutOnly})
	if err != nil {
		if _, ok := err.(*SerializationError); ok {
			return nil, nil, err
		}
		return nil, nil, &SerializationError{SlideIndex: s.Index, Err: err}
	}

	em := &slideEmitter{
		pres:      p,
		slide:     s,
		plan:      plan,
		nextRelID: p.maxRelID(relsName(s.partName)) + 1,
	}

	var buf bytes.Buffer
	buf.Write(s.raw.header)
	for _, sh := range applied.Shapes {
		chunk, err := em.emitShape(sh, nil)
		if err != nil {
			return nil, nil, &SerializationError{SlideIndex: s.Index, ShapeID: sh.Identity().ID, Err: err}
		}
		buf.Write(chunk)
	}
	buf.Write(s.raw.trailer)
	return buf.Bytes(), em.media, nil
}

type slideEmitter struct {
	pres      *Presentation
	slide     *SlidePage
	plan      slidePatchPlan
	media     []mediaAddition
	nextRelID int
}

func (em *slideEmitter) emitShape(sh ShapeElement, frame *groupFrame) ([]byte, error) {
	if g, ok := sh.(*GroupShape); ok {
		return em.emitGroup(g, frame)
	}

	id := sh.Identity().ID
	chunk := sh.base().raw

	if em.plan.textTouched[id] {
		if tf := textFrameOf(sh); tf != nil {
			chunk = patchTexts(chunk, tf)
		}
	}
	if arg, ok := em.plan.styleOf[id]; ok && !arg.isZero() {
		chunk = patchRunStyle(chunk, arg)
		if arg.FillColor != nil {
			chunk = patchShapeFill(chunk, *arg.FillColor)
		}
		if arg.LineColor != nil || arg.LineWidth != nil {
			chunk = patchLineStyle(chunk, arg.LineColor, arg.LineWidth)
		}
	}
	if box := em.plan.boxOf[id]; box != nil {
		target := *box
		if frame != nil {
			target = unprojectChild(frame.abs, frame.local, target)
		}
		chunk = patchXfrmBox(chunk, target)
	}
	if key, ok := em.plan.mediaOf[id]; ok {
		relID, err := em.relForKey(key)
		if err != nil {
			return nil, err
		}
		chunk = patchEmbed(chunk, relID)
	}
	return chunk, nil
}

// emitGroup rebuilds a group chunk from its surviving children in their
// final order. Child chunks keep group-local coordinates; geometry edits
// are unprojected back into the local frame before splicing.
func (em *slideEmitter) emitGroup(g *GroupShape, parent *groupFrame) ([]byte, error) {
	raw, err := splitShapeChunks(g.base().raw, "grpSp")
	if err != nil {
		return nil, fmt.Errorf("group %d: %w", g.Identity().ID, err)
	}

	// The local frame is the tight union of the raw children, matching the
	// projection used at parse time.
	rawByID := make(map[int][]byte, len(raw.shapes))
	var locals []BoundingBox
	for _, rc := range raw.shapes {
		rawByID[extractCNvPr(rc.data).ID] = rc.data
		locals = append(locals, extractXfrm(rc.data).box())
	}

	groupAbs := g.Box()
	if box := em.plan.boxOf[g.Identity().ID]; box != nil {
		groupAbs = *box
	}

	header := raw.header
	if box := em.plan.boxOf[g.Identity().ID]; box != nil {
		target := *box
		if parent != nil {
			target = unprojectChild(parent.abs, parent.local, target)
		}
		header = patchXfrmBox(header, target)
	}

	inner := &groupFrame{abs: groupAbs, local: boundsUnion(locals)}

	var buf bytes.Buffer
	buf.Write(header)
	for _, child := range g.Children {
		src, ok := rawByID[child.Identity().ID]
		if !ok {
			return nil, fmt.Errorf("group %d: child %d has no source chunk", g.Identity().ID, child.Identity().ID)
		}
		// reuse emitShape against a shallow stand-in sharing the child's
		// state but the raw sub-chunk
		child.base().raw = src
		chunk, err := em.emitShape(child, inner)
		if err != nil {
			return nil, err
		}
		buf.Write(chunk)
	}
	buf.Write(raw.trailer)
	return buf.Bytes(), nil
}

// relForKey wires a pool entry into the slide's relationships, returning
// the relationship id. One entry per distinct key.
func (em *slideEmitter) relForKey(key string) (string, error) {
	for _, m := range em.media {
		if m.partName == "ppt/media/"+key {
			return m.relID, nil
		}
	}
	data, err := em.pres.pool.Get(key)
	if err != nil {
		return "", err
	}
	relID := "rId" + strconv.Itoa(em.nextRelID)
	em.nextRelID++
	em.media = append(em.media, mediaAddition{
		relID:    relID,
		partName: "ppt/media/" + key,
		ext:      em.pres.pool.Ext(key),
		data:     data,
	})
	return relID, nil
}

func relsName(partName string) string {
	return path.Join(path.Dir(partName), "_rels", path.Base(partName)+".rels")
}

var relIDPattern = regexp.MustCompile(`Id="rId(\d+)"`)

// maxRelID returns the highest numeric rId in a rels part, 0 when absent.
func (p *Presentation) maxRelID(relsPart string) int {
	data, ok := p.pkg.parts[relsPart]
	if !ok {
		return 0
	}
	maxID := 0
	for _, m := range relIDPattern.FindAllSubmatch(data, -1) {
		if n, err := strconv.Atoi(string(m[1])); err == nil && n > maxID {
			maxID = n
		}
	}
	return maxID
}

// patchSlideRels inserts relationship entries for the slide's new media.
func (p *Presentation) patchSlideRels(slidePart string, media []mediaAddition) ([]byte, error) {
	name := relsName(slidePart)
	data, ok := p.pkg.parts[name]
	if !ok {
		var buf bytes.Buffer
		buf.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
		buf.WriteString("\n")
		buf.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`)
		data = buf.Bytes()
	}
	closeIdx := bytes.LastIndex(data, []byte("</Relationships>"))
	if closeIdx < 0 {
		return nil, fmt.Errorf("malformed relationships part %s", name)
	}
	var ins bytes.Buffer
	for _, m := range media {
		fmt.Fprintf(&ins, `<Relationship Id="%s" Type="%s" Target="../media/%s"/>`,
			m.relID, relTypeImage, path.Base(m.partName))
	}
	out := make([]byte, 0, len(data)+ins.Len())
	out = append(out, data[:closeIdx]...)
	out = append(out, ins.Bytes()...)
	out = append(out, data[closeIdx:]...)
	return out, nil
}

var contentTypeByExt = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"webp": "image/webp",
	"pgm":  "image/x-portable-graymap",
	"ppm":  "image/x-portable-pixmap",
}

// patchContentTypes ensures every new media extension has a Default entry.
func (p *Presentation) patchContentTypes(media []mediaAddition) ([]byte, error) {
	const ctPart = "[Content_Types].xml"
	data, ok := p.pkg.parts[ctPart]
	if !ok {
		return nil, fmt.Errorf("package has no %s", ctPart)
	}
	closeIdx := bytes.LastIndex(data, []byte("</Types>"))
	if closeIdx < 0 {
		return nil, fmt.Errorf("malformed %s", ctPart)
	}
	var ins bytes.Buffer
	seen := make(map[string]bool)
	for _, m := range media {
		if seen[m.ext] {
			continue
		}
		seen[m.ext] = true
		if bytes.Contains(data, []byte(`Extension="`+m.ext+`"`)) {
			continue
		}
		ct, ok := contentTypeByExt[m.ext]
		if !ok {
			ct = "application/octet-stream"
		}
		fmt.Fprintf(&ins, `<Default Extension="%s" ContentType="%s"/>`, m.ext, ct)
	}
	if ins.Len() == 0 {
		return data, nil
	}
	out := make([]byte, 0, len(data)+ins.Len())
	out = append(out, data[:closeIdx]...)
	out = append(out, ins.Bytes()...)
	out = append(out, data[closeIdx:]...)
	return out, nil
}
