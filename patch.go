package goslides

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Serialization never regenerates shape XML from the model. Shapes the
// closure log touched are edited in place with byte splices against their
// original chunk; everything else is re-emitted verbatim. This keeps
// namespaces, extension lists and vendor attributes intact round-trip.

// splice replaces data[start:end) with repl.
type splice struct {
	start, end int64
	repl       []byte
}

// applySplices builds a new byte slice with all splices applied. Splices
// must not overlap.
func applySplices(data []byte, splices []splice) []byte {
	if len(splices) == 0 {
		return data
	}
	sort.Slice(splices, func(i, j int) bool { return splices[i].start < splices[j].start })
	var out bytes.Buffer
	out.Grow(len(data))
	var at int64
	for _, sp := range splices {
		out.Write(data[at:sp.start])
		out.Write(sp.repl)
		at = sp.end
	}
	out.Write(data[at:])
	return out.Bytes()
}

// elemRange is the byte extent of one element occurrence.
type elemRange struct {
	start   int64 // '<' of the open tag
	openEnd int64 // first byte after the open tag
	end     int64 // first byte after the whole element
}

// innerStart/innerEnd bound the element content. For an empty or
// self-closing element the content range is empty.
func (e elemRange) innerStart() int64 { return e.openEnd }

// elementRanges returns the byte extents of every element with the given
// local name, in document order (outer elements before their descendants).
func elementRanges(data []byte, local string) []elemRange {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []elemRange
	var stack []int // indices into out for unclosed matches
	// depth of every open element so end tags can be matched positionally
	var open []string
	for {
		prev := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			open = append(open, t.Name.Local)
			if t.Name.Local == local {
				out = append(out, elemRange{start: prev, openEnd: dec.InputOffset()})
				stack = append(stack, len(out)-1)
			}
		case xml.EndElement:
			if len(open) > 0 && open[len(open)-1] == local && len(stack) > 0 {
				out[stack[len(stack)-1]].end = dec.InputOffset()
				stack = stack[:len(stack)-1]
			}
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
		}
	}
	return out
}

// contentEnd returns the offset of the close tag, i.e. where content ends.
func contentEnd(data []byte, e elemRange) int64 {
	if e.end <= e.openEnd {
		return e.openEnd
	}
	// self-closing tags have no separate close tag
	if data[e.end-2] == '/' {
		return e.openEnd
	}
	idx := bytes.LastIndex(data[e.openEnd:e.end], []byte("</"))
	if idx < 0 {
		return e.openEnd
	}
	return e.openEnd + int64(idx)
}

func selfClosing(data []byte, e elemRange) bool {
	return e.end == e.openEnd && data[e.openEnd-2] == '/'
}

// attrSplice returns a splice that sets attr=value on the open tag at e,
// replacing an existing attribute or inserting a new one before the tag
// terminator. attr is matched as written, prefix included.
func attrSplice(data []byte, e elemRange, attr, value string) splice {
	tag := data[e.start:e.openEnd]
	needle := []byte(attr + `="`)
	for from := 0; ; {
		idx := bytes.Index(tag[from:], needle)
		if idx < 0 {
			break
		}
		at := from + idx
		// must be preceded by whitespace to be a whole attribute name
		if at > 0 && (tag[at-1] == ' ' || tag[at-1] == '\t' || tag[at-1] == '\n' || tag[at-1] == '\r') {
			vstart := at + len(needle)
			vend := bytes.IndexByte(tag[vstart:], '"')
			if vend < 0 {
				break
			}
			return splice{
				start: e.start + int64(vstart),
				end:   e.start + int64(vstart+vend),
				repl:  []byte(escapeAttr(value)),
			}
		}
		from = at + len(needle)
	}
	// insert before "/>" or ">"
	ins := e.openEnd - 1
	if tag[len(tag)-2] == '/' {
		ins = e.openEnd - 2
	}
	return splice{start: ins, end: ins, repl: []byte(fmt.Sprintf(` %s="%s"`, attr, escapeAttr(value)))}
}

func escapeAttr(s string) string {
	var sb strings.Builder
	if err := xml.EscapeText(&sb, []byte(s)); err != nil {
		return s
	}
	return sb.String()
}

func escapeText(s string) string {
	return escapeAttr(s)
}

// insertSplice returns a splice that inserts markup inside e, right after
// its open tag, expanding a self-closing tag when necessary.
func insertSplice(data []byte, e elemRange, closeName, markup string) splice {
	if selfClosing(data, e) {
		// <a:rPr .../> -> <a:rPr ...>markup</a:rPr>
		return splice{
			start: e.openEnd - 2,
			end:   e.openEnd,
			repl:  []byte(">" + markup + "</" + closeName + ">"),
		}
	}
	return splice{start: e.openEnd, end: e.openEnd, repl: []byte(markup)}
}

// within reports whether inner lies inside outer.
func within(inner, outer elemRange) bool {
	return inner.start >= outer.openEnd && elemEnd(inner) <= elemEnd(outer)
}

func elemEnd(e elemRange) int64 {
	if e.end > 0 {
		return e.end
	}
	return e.openEnd
}

// --- geometry ---

// patchXfrmBox rewrites the first xfrm's off/ext to the given box, leaving
// rotation and child-frame declarations alone.
func patchXfrmBox(chunk []byte, box BoundingBox) []byte {
	xfrms := elementRanges(chunk, "xfrm")
	if len(xfrms) == 0 {
		return chunk
	}
	xfrm := xfrms[0]
	var splices []splice
	for _, off := range elementRanges(chunk, "off") {
		if within(off, xfrm) {
			splices = append(splices,
				attrSplice(chunk, off, "x", strconv.FormatInt(box.Left, 10)),
				attrSplice(chunk, off, "y", strconv.FormatInt(box.Top, 10)))
			break
		}
	}
	for _, ext := range elementRanges(chunk, "ext") {
		if within(ext, xfrm) {
			splices = append(splices,
				attrSplice(chunk, ext, "cx", strconv.FormatInt(box.Width, 10)),
				attrSplice(chunk, ext, "cy", strconv.FormatInt(box.Height, 10)))
			break
		}
	}
	return applySplices(chunk, splices)
}

// --- text ---

// patchTexts rewrites the chunk's run text to match the frame. Paragraphs
// pair up positionally; within a paragraph the run with the longest original
// text receives the full paragraph text and the rest are emptied, mirroring
// how replayed frames collapse runs into the dominant one.
func patchTexts(chunk []byte, frame *TextFrame) []byte {
	paras := elementRanges(chunk, "p")
	texts := elementRanges(chunk, "t")
	var splices []splice
	for i, pr := range paras {
		if i >= len(frame.Paragraphs) {
			break
		}
		want := frame.Paragraphs[i].Text()
		var inPara []elemRange
		for _, tr := range texts {
			if within(tr, pr) {
				inPara = append(inPara, tr)
			}
		}
		if len(inPara) == 0 {
			if want != "" {
				at := contentEnd(chunk, pr)
				if at > pr.openEnd || !selfClosing(chunk, pr) {
					splices = append(splices, splice{
						start: at, end: at,
						repl: []byte("<a:r><a:t>" + escapeText(want) + "</a:t></a:r>"),
					})
				}
			}
			continue
		}
		// The dominant run is the one with the longest original content,
		// first on ties, the same rule run merging uses on replay.
		dom := 0
		for j, tr := range inPara {
			if contentEnd(chunk, tr)-tr.innerStart() > contentEnd(chunk, inPara[dom])-inPara[dom].innerStart() {
				dom = j
			}
		}
		for j, tr := range inPara {
			text := ""
			if j == dom {
				text = want
			}
			splices = append(splices, splice{
				start: tr.innerStart(),
				end:   contentEnd(chunk, tr),
				repl:  []byte(escapeText(text)),
			})
		}
	}
	return applySplices(chunk, splices)
}

// --- media ---

// patchEmbed rewrites the first blip's r:embed relationship id.
func patchEmbed(chunk []byte, relID string) []byte {
	blips := elementRanges(chunk, "blip")
	if len(blips) == 0 {
		return chunk
	}
	return applySplices(chunk, []splice{attrSplice(chunk, blips[0], "r:embed", relID)})
}

// --- style ---

// patchRunStyle applies the font fields of arg to every run property
// element in the chunk, adding attributes and child elements that the
// source omitted.
func patchRunStyle(chunk []byte, arg StyleArg) []byte {
	// runs with no rPr of their own first get one synthesized, so the
	// second pass sees every run
	if markup := buildRPrMarkup(arg); markup != "" {
		var inserts []splice
		rprs := elementRanges(chunk, "rPr")
		for _, run := range elementRanges(chunk, "r") {
			hasRPr := false
			for _, rpr := range rprs {
				if within(rpr, run) {
					hasRPr = true
					break
				}
			}
			if !hasRPr && !selfClosing(chunk, run) {
				inserts = append(inserts, splice{start: run.openEnd, end: run.openEnd, repl: []byte(markup)})
			}
		}
		chunk = applySplices(chunk, inserts)
	}

	rprs := elementRanges(chunk, "rPr")
	var splices []splice
	for _, rpr := range rprs {
		if arg.FontSize != nil {
			splices = append(splices, attrSplice(chunk, rpr, "sz", strconv.Itoa(*arg.FontSize*100)))
		}
		if arg.Bold != nil {
			splices = append(splices, attrSplice(chunk, rpr, "b", boolAttr(*arg.Bold)))
		}
		if arg.Italic != nil {
			splices = append(splices, attrSplice(chunk, rpr, "i", boolAttr(*arg.Italic)))
		}
		if arg.Underline != nil {
			u := "none"
			if *arg.Underline {
				u = "sng"
			}
			splices = append(splices, attrSplice(chunk, rpr, "u", u))
		}
		if arg.FontColor != nil {
			if sp, ok := colorChildSplice(chunk, rpr, *arg.FontColor); ok {
				splices = append(splices, sp)
			}
		}
		if arg.FontName != nil {
			if sp, ok := latinChildSplice(chunk, rpr, *arg.FontName); ok {
				splices = append(splices, sp)
			}
		}
	}
	return applySplices(chunk, splices)
}

// buildRPrMarkup renders arg's font fields as a complete rPr element, or
// "" when no font field is set.
func buildRPrMarkup(arg StyleArg) string {
	if arg.FontSize == nil && arg.Bold == nil && arg.Italic == nil &&
		arg.Underline == nil && arg.FontColor == nil && arg.FontName == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("<a:rPr")
	if arg.FontSize != nil {
		fmt.Fprintf(&sb, ` sz="%d"`, *arg.FontSize*100)
	}
	if arg.Bold != nil {
		fmt.Fprintf(&sb, ` b="%s"`, boolAttr(*arg.Bold))
	}
	if arg.Italic != nil {
		fmt.Fprintf(&sb, ` i="%s"`, boolAttr(*arg.Italic))
	}
	if arg.Underline != nil {
		u := "none"
		if *arg.Underline {
			u = "sng"
		}
		fmt.Fprintf(&sb, ` u="%s"`, u)
	}
	var children strings.Builder
	if arg.FontColor != nil {
		children.WriteString(`<a:solidFill><a:srgbClr val="` + arg.FontColor.RGB() + `"/></a:solidFill>`)
	}
	if arg.FontName != nil {
		children.WriteString(`<a:latin typeface="` + escapeAttr(*arg.FontName) + `"/>`)
	}
	if children.Len() == 0 {
		sb.WriteString("/>")
	} else {
		sb.WriteString(">" + children.String() + "</a:rPr>")
	}
	return sb.String()
}

// colorChildSplice patches the srgbClr inside parent, or inserts a fresh
// solidFill when parent has none of its own.
func colorChildSplice(chunk []byte, parent elemRange, c Color) (splice, bool) {
	for _, clr := range elementRanges(chunk, "srgbClr") {
		if within(clr, parent) {
			return attrSplice(chunk, clr, "val", c.RGB()), true
		}
	}
	markup := `<a:solidFill><a:srgbClr val="` + c.RGB() + `"/></a:solidFill>`
	name := localWithPrefix(chunk, parent)
	if name == "" {
		return splice{}, false
	}
	return insertSplice(chunk, parent, name, markup), true
}

func latinChildSplice(chunk []byte, rpr elemRange, typeface string) (splice, bool) {
	for _, lat := range elementRanges(chunk, "latin") {
		if within(lat, rpr) {
			return attrSplice(chunk, lat, "typeface", typeface), true
		}
	}
	name := localWithPrefix(chunk, rpr)
	if name == "" {
		return splice{}, false
	}
	return insertSplice(chunk, rpr, name, `<a:latin typeface="`+escapeAttr(typeface)+`"/>`), true
}

// localWithPrefix returns the tag name as written in the source, prefix
// included, e.g. "a:rPr".
func localWithPrefix(chunk []byte, e elemRange) string {
	tag := chunk[e.start:e.openEnd]
	if len(tag) < 2 || tag[0] != '<' {
		return ""
	}
	end := 1
	for end < len(tag) && tag[end] != ' ' && tag[end] != '>' && tag[end] != '/' {
		end++
	}
	return string(tag[1:end])
}

// patchShapeFill patches the shape-level solid fill, skipping fills that
// belong to the outline or to text runs.
func patchShapeFill(chunk []byte, c Color) []byte {
	spPrs := elementRanges(chunk, "spPr")
	if len(spPrs) == 0 {
		spPrs = elementRanges(chunk, "grpSpPr")
	}
	if len(spPrs) == 0 {
		return chunk
	}
	spPr := spPrs[0]
	excluded := elementRanges(chunk, "ln")
	for _, fill := range elementRanges(chunk, "solidFill") {
		if !within(fill, spPr) {
			continue
		}
		inLn := false
		for _, ln := range excluded {
			if within(fill, ln) {
				inLn = true
				break
			}
		}
		if inLn {
			continue
		}
		for _, clr := range elementRanges(chunk, "srgbClr") {
			if within(clr, fill) {
				return applySplices(chunk, []splice{attrSplice(chunk, clr, "val", c.RGB())})
			}
		}
	}
	// no direct fill: insert one after the geometry declaration so the
	// schema's child order is preserved
	markup := `<a:solidFill><a:srgbClr val="` + c.RGB() + `"/></a:solidFill>`
	at := spPr.openEnd
	for _, name := range []string{"custGeom", "prstGeom", "xfrm"} {
		found := false
		for _, g := range elementRanges(chunk, name) {
			if within(g, spPr) {
				at = elemEnd(g)
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	return applySplices(chunk, []splice{{start: at, end: at, repl: []byte(markup)}})
}

// patchLineStyle patches outline color and width inside the first ln
// element, creating the element when the source has none.
func patchLineStyle(chunk []byte, color *Color, width *int64) []byte {
	spPrs := elementRanges(chunk, "spPr")
	if len(spPrs) == 0 {
		return chunk
	}
	spPr := spPrs[0]
	var ln *elemRange
	for _, l := range elementRanges(chunk, "ln") {
		if within(l, spPr) {
			lc := l
			ln = &lc
			break
		}
	}
	if ln == nil {
		var sb strings.Builder
		sb.WriteString("<a:ln")
		if width != nil {
			fmt.Fprintf(&sb, ` w="%d"`, *width)
		}
		sb.WriteString(">")
		if color != nil {
			sb.WriteString(`<a:solidFill><a:srgbClr val="` + color.RGB() + `"/></a:solidFill>`)
		}
		sb.WriteString("</a:ln>")
		at := contentEnd(chunk, spPr)
		return applySplices(chunk, []splice{{start: at, end: at, repl: []byte(sb.String())}})
	}
	var splices []splice
	if width != nil {
		splices = append(splices, attrSplice(chunk, *ln, "w", strconv.FormatInt(*width, 10)))
	}
	if color != nil {
		if sp, ok := colorChildSplice(chunk, *ln, *color); ok {
			splices = append(splices, sp)
		}
	}
	return applySplices(chunk, splices)
}

func boolAttr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
