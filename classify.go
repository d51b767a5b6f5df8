package goslides

import (
	"context"
	"encoding/xml"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// classifier turns raw shape chunks into typed ShapeElements. It is total
// over element kinds: anything it does not recognize becomes an
// UnsupportedShape, never an error. Errors arise only from content that must
// be interpreted and cannot be (media extraction, conversion).
type classifier struct {
	ctx        context.Context
	slideIndex int
	slidePart  string
	pkg        *pkgReader
	pool       *MediaPool
	conv       Converter
	logger     *slog.Logger
}

// classifySlide builds the shape forest for one slide: every chunk is
// classified, group children are reprojected outside-in into absolute
// coordinates, and z-order is assigned densely in paint order.
func (c *classifier) classifySlide(raw *rawSlide) ([]ShapeElement, error) {
	shapes := make([]ShapeElement, 0, len(raw.shapes))
	for _, chunk := range raw.shapes {
		s, err := c.classify(chunk)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, s)
	}

	// Top-level boxes are already absolute; project group children now that
	// each group's own frame is final.
	for _, s := range shapes {
		if g, ok := s.(*GroupShape); ok {
			if err := c.normalizeGroupTree(g); err != nil {
				return nil, err
			}
		}
	}

	z := 0
	walkShapes(shapes, func(s ShapeElement) bool {
		s.base().identity.ZOrder = z
		z++
		return true
	})
	return shapes, nil
}

// classify dispatches one chunk to exactly one variant. Within an sp element
// the priority is placeholder attribute, text-bearing frame, line geometry,
// freeform path; anything unrecognized passes through opaquely.
func (c *classifier) classify(chunk rawShape) (ShapeElement, error) {
	switch chunk.name {
	case "grpSp":
		return c.classifyGroup(chunk)
	case "sp":
		return c.classifySp(chunk)
	case "pic":
		return c.classifyPic(chunk)
	case "cxnSp":
		return c.classifyCxn(chunk)
	default:
		cnv := extractCNvPr(chunk.data)
		u := &UnsupportedShape{ElementName: chunk.name}
		u.identity = ShapeIdentity{ID: cnv.ID, Name: cnv.Name}
		u.box = extractXfrm(chunk.data).box()
		u.rotation = extractXfrm(chunk.data).degrees()
		u.slideIndex = c.slideIndex
		u.raw = chunk.data
		return u, nil
	}
}

func (c *classifier) baseFrom(cnv rawCNvPr, spPr *rawSpPr, chunk rawShape) BaseShape {
	b := BaseShape{
		identity:   ShapeIdentity{ID: cnv.ID, Name: cnv.Name},
		slideIndex: c.slideIndex,
		raw:        chunk.data,
	}
	if spPr != nil {
		b.box = spPr.Xfrm.box()
		b.rotation = spPr.Xfrm.degrees()
		if col, ok := spPr.SolidFill.color(); ok {
			f := SolidFill(col)
			b.style.Fill = &f
		}
		if spPr.Ln != nil {
			line := &LineStyle{Color: ColorBlack, Width: spPr.Ln.W, Dash: DashSolid}
			if col, ok := spPr.Ln.SolidFill.color(); ok {
				line.Color = col
			}
			if spPr.Ln.PrstDash != nil {
				switch spPr.Ln.PrstDash.Val {
				case "dash", "lgDash", "sysDash":
					line.Dash = DashDash
				case "dot", "sysDot":
					line.Dash = DashDot
				}
			}
			b.style.Line = line
		}
	}
	return b
}

func (c *classifier) classifySp(chunk rawShape) (ShapeElement, error) {
	var sp rawSp
	if err := xml.Unmarshal(chunk.data, &sp); err != nil {
		// Not interpretable as a shape; preserve it opaquely.
		cnv := extractCNvPr(chunk.data)
		u := &UnsupportedShape{ElementName: chunk.name}
		u.identity = ShapeIdentity{ID: cnv.ID, Name: cnv.Name}
		u.slideIndex = c.slideIndex
		u.raw = chunk.data
		return u, nil
	}

	base := c.baseFrom(sp.NvSpPr.CNvPr, &sp.SpPr, chunk)

	if ph := sp.NvSpPr.NvPr.Ph; ph != nil {
		phType := ph.Type
		if phType == "" {
			phType = "body"
		}
		p := &Placeholder{PhType: phType, PhIndex: ph.Idx}
		p.BaseShape = base
		p.Frame = buildTextFrame(sp.TxBody)
		return p, nil
	}

	if sp.TxBody != nil && hasText(sp.TxBody) {
		t := &TextBox{Frame: buildTextFrame(sp.TxBody)}
		t.BaseShape = base
		return t, nil
	}

	prst := ""
	if sp.SpPr.PrstGeom != nil {
		prst = sp.SpPr.PrstGeom.Prst
	}
	if isLineGeometry(prst) {
		l := &LineShape{ConnectorType: prst}
		l.BaseShape = base
		return l, nil
	}

	f := &FreeShape{Geometry: prst}
	if sp.SpPr.CustGeom != nil {
		f.Geometry = "custom"
	}
	if f.Geometry == "" {
		f.Geometry = "rect"
	}
	f.BaseShape = base
	if sp.TxBody != nil {
		frame := buildTextFrame(sp.TxBody)
		f.Frame = &frame
	}
	return f, nil
}

func (c *classifier) classifyCxn(chunk rawShape) (ShapeElement, error) {
	var cxn rawCxnSp
	if err := xml.Unmarshal(chunk.data, &cxn); err != nil {
		cnv := extractCNvPr(chunk.data)
		u := &UnsupportedShape{ElementName: chunk.name}
		u.identity = ShapeIdentity{ID: cnv.ID, Name: cnv.Name}
		u.slideIndex = c.slideIndex
		u.raw = chunk.data
		return u, nil
	}
	l := &LineShape{ConnectorType: "line"}
	if cxn.SpPr.PrstGeom != nil {
		l.ConnectorType = cxn.SpPr.PrstGeom.Prst
	}
	l.BaseShape = c.baseFrom(cxn.NvCxnSpPr.CNvPr, &cxn.SpPr, chunk)
	return l, nil
}

// classifyPic extracts the referenced image into the media pool, converting
// vector encodings through the external converter first. A picture with a
// usable description is promoted to a SemanticPicture.
func (c *classifier) classifyPic(chunk rawShape) (ShapeElement, error) {
	var pic rawPic
	if err := xml.Unmarshal(chunk.data, &pic); err != nil {
		cnv := extractCNvPr(chunk.data)
		u := &UnsupportedShape{ElementName: chunk.name}
		u.identity = ShapeIdentity{ID: cnv.ID, Name: cnv.Name}
		u.slideIndex = c.slideIndex
		u.raw = chunk.data
		return u, nil
	}

	base := c.baseFrom(pic.NvPicPr.CNvPr, &pic.SpPr, chunk)

	key, srcExt, err := c.extractMedia(pic.BlipFill.Blip.Embed)
	if err != nil {
		return nil, err
	}

	p := Picture{MediaKey: key, SourceExt: srcExt, AltText: pic.NvPicPr.CNvPr.Descr}
	p.BaseShape = base

	if caption := deriveCaption(pic.NvPicPr.CNvPr.Descr); caption != "" {
		return &SemanticPicture{Picture: p, Caption: caption}, nil
	}
	return &p, nil
}

// extractMedia resolves the relationship, converts non-raster encodings and
// stores the result in the pool. Extraction is idempotent: identical content
// maps to one pool entry and the second store is a no-op.
func (c *classifier) extractMedia(relID string) (key, srcExt string, err error) {
	data, ext, err := c.pkg.media(c.slidePart, relID)
	if err != nil {
		return "", "", err
	}
	srcExt = ext
	if !isRasterExt(ext) {
		switch ext {
		case "wmf", "emf":
			converted, err := c.conv.Convert(c.ctx, data, ext, "jpg")
			if err != nil {
				return "", "", err
			}
			data, ext = converted, "jpg"
		default:
			return "", "", &UnsupportedFormatError{Format: ext}
		}
	}
	key, err = c.pool.Put(data, ext)
	if err != nil {
		return "", "", err
	}
	return key, srcExt, nil
}

func (c *classifier) classifyGroup(chunk rawShape) (ShapeElement, error) {
	var grp rawGrpSp
	if err := xml.Unmarshal(chunk.data, &grp); err != nil {
		cnv := extractCNvPr(chunk.data)
		u := &UnsupportedShape{ElementName: chunk.name}
		u.identity = ShapeIdentity{ID: cnv.ID, Name: cnv.Name}
		u.slideIndex = c.slideIndex
		u.raw = chunk.data
		return u, nil
	}

	g := &GroupShape{}
	g.identity = ShapeIdentity{ID: grp.NvGrpSpPr.CNvPr.ID, Name: grp.NvGrpSpPr.CNvPr.Name}
	g.box = grp.GrpSpPr.Xfrm.box()
	g.rotation = grp.GrpSpPr.Xfrm.degrees()
	g.slideIndex = c.slideIndex
	g.raw = chunk.data

	children, err := splitGroupChildren(chunk.data)
	if err != nil {
		return nil, err
	}
	for _, childChunk := range children {
		// Children keep their local-frame boxes here; projection happens
		// outside-in once the group's own absolute box is final.
		child, err := c.classify(childChunk)
		if err != nil {
			return nil, err
		}
		g.Children = append(g.Children, child)
	}
	return g, nil
}

// normalizeGroupTree projects g's children from the group-local frame into
// absolute coordinates, then recurses into nested groups using each nested
// group's freshly computed absolute box.
func (c *classifier) normalizeGroupTree(g *GroupShape) error {
	if len(g.Children) == 0 {
		return nil
	}
	locals := make([]BoundingBox, len(g.Children))
	for i, ch := range g.Children {
		locals[i] = ch.Box()
	}
	abs, err := NormalizeGroup(g.Box(), locals)
	if err != nil {
		if dg, ok := err.(*DegenerateGroupGeometryError); ok {
			dg.SlideIndex = c.slideIndex
			dg.ShapeID = g.identity.ID
			dg.GroupName = g.identity.Name
		}
		return err
	}
	for i, ch := range g.Children {
		ch.base().box = abs[i]
		if sub, ok := ch.(*GroupShape); ok {
			if err := c.normalizeGroupTree(sub); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- text frame construction ---

func buildTextFrame(tx *rawTxBody) TextFrame {
	var tf TextFrame
	if tx == nil {
		return tf
	}
	for _, rp := range tx.Paragraphs {
		p := &Paragraph{Alignment: ""}
		if rp.PPr != nil {
			p.Alignment = rp.PPr.Algn
			p.Level = rp.PPr.Lvl
			p.Bullet = rp.PPr.BuChar != nil || rp.PPr.BuAutoNum != nil
		}
		for _, rr := range rp.allRuns() {
			p.Runs = append(p.Runs, &Run{Text: rr.T, Font: buildFont(rr.RPr)})
		}
		tf.Paragraphs = append(tf.Paragraphs, p)
	}
	return tf
}

func buildFont(rpr *rawRPr) Font {
	f := DefaultFont()
	if rpr == nil {
		return f
	}
	if rpr.Sz > 0 {
		f.Size = rpr.Sz / 100
	}
	f.Bold = rpr.B
	f.Italic = rpr.I
	f.Underline = rpr.U != "" && rpr.U != "none"
	if col, ok := rpr.SolidFill.color(); ok {
		f.Color = col
	}
	if rpr.Latin != nil && rpr.Latin.Typeface != "" {
		f.Name = rpr.Latin.Typeface
	}
	return f
}

func hasText(tx *rawTxBody) bool {
	for _, p := range tx.Paragraphs {
		if strings.TrimSpace(p.text()) != "" {
			return true
		}
	}
	return false
}

// isLineGeometry reports whether a preset geometry renders as a line or
// connector rather than a filled shape.
func isLineGeometry(prst string) bool {
	if prst == "line" {
		return true
	}
	return strings.Contains(prst, "Connector")
}

var captionCaser = cases.Title(language.Und)

// deriveCaption normalizes alt-text metadata into a semantic caption:
// whitespace collapses, generic auto-generated names are rejected, and
// single-word labels get title-cased.
func deriveCaption(descr string) string {
	caption := strings.Join(strings.Fields(descr), " ")
	if caption == "" {
		return ""
	}
	// Auto-generated names like "Picture 3" carry no semantics.
	lower := strings.ToLower(caption)
	for _, generic := range []string{"picture", "image", "graphic", "screenshot"} {
		rest := strings.TrimPrefix(lower, generic)
		if rest != lower && strings.TrimLeft(rest, " 0123456789") == "" {
			return ""
		}
	}
	if !strings.Contains(caption, " ") {
		return captionCaser.String(caption)
	}
	return caption
}
