package goslides

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// Raw slide handling. A slide part's shape tree is split into ordered byte
// chunks, one per top-level shape element, with the surrounding XML kept as
// header and trailer. Untouched chunks are re-emitted verbatim at save time,
// which is what preserves round-trip fidelity for content no closure ever
// touched.

// rawShape is one shape element of a shape tree, as raw bytes.
type rawShape struct {
	name string // local element name: "sp", "pic", "cxnSp", "grpSp", ...
	data []byte // complete element bytes, from '<' to '>'
}

// rawSlide is a slide part split at shape granularity.
type rawSlide struct {
	header  []byte // everything before the first shape chunk
	shapes  []rawShape
	trailer []byte // everything after the last shape chunk
}

// shapeElementNames are the spTree children that are shapes. Anything else
// at shape level (nvGrpSpPr, grpSpPr, extLst) belongs to header/trailer.
var shapeElementNames = map[string]bool{
	"sp":           true,
	"pic":          true,
	"cxnSp":        true,
	"grpSp":        true,
	"graphicFrame": true,
	"contentPart":  true,
}

// parseRawSlide splits a slide part into header, shape chunks and trailer.
func parseRawSlide(data []byte) (*rawSlide, error) {
	return splitShapeChunks(data, "spTree")
}

// splitShapeChunks locates the first container element with the given local
// name and splits its shape children into byte chunks using decoder offsets.
func splitShapeChunks(data []byte, containerLocal string) (*rawSlide, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		inContainer    bool
		containerDepth int
		depth          int
		chunks         []rawShape
		firstStart     int64 = -1
		lastEnd        int64 = -1
		containerEnd   int64 = -1
	)

	prev := dec.InputOffset()
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if !inContainer && t.Name.Local == containerLocal {
				inContainer = true
				containerDepth = depth
				prev = dec.InputOffset()
				continue
			}
			if inContainer && depth == containerDepth+1 && shapeElementNames[t.Name.Local] {
				start := prev
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("unbalanced %s element: %w", t.Name.Local, err)
				}
				depth--
				end := dec.InputOffset()
				chunks = append(chunks, rawShape{name: t.Name.Local, data: data[start:end]})
				if firstStart < 0 {
					firstStart = start
				}
				lastEnd = end
			}
		case xml.EndElement:
			if inContainer && depth == containerDepth && t.Name.Local == containerLocal {
				containerEnd = prev
				inContainer = false
			}
			depth--
		}
		prev = dec.InputOffset()
	}

	if containerEnd < 0 {
		return nil, fmt.Errorf("no %s element found", containerLocal)
	}
	rs := &rawSlide{shapes: chunks}
	if firstStart < 0 {
		rs.header = data[:containerEnd]
		rs.trailer = data[containerEnd:]
	} else {
		rs.header = data[:firstStart]
		rs.trailer = data[lastEnd:]
	}
	return rs, nil
}

// splitGroupChildren splits a grpSp chunk into its child shape chunks.
func splitGroupChildren(group []byte) ([]rawShape, error) {
	rs, err := splitShapeChunks(group, "grpSp")
	if err != nil {
		return nil, err
	}
	return rs.shapes, nil
}

// --- Typed views over a shape chunk ---

type rawPoint struct {
	X int64 `xml:"x,attr"`
	Y int64 `xml:"y,attr"`
}

type rawExtent struct {
	CX int64 `xml:"cx,attr"`
	CY int64 `xml:"cy,attr"`
}

type rawXfrm struct {
	Rot   int        `xml:"rot,attr"` // 60000ths of a degree
	Off   *rawPoint  `xml:"off"`
	Ext   *rawExtent `xml:"ext"`
	ChOff *rawPoint  `xml:"chOff"`
	ChExt *rawExtent `xml:"chExt"`
}

// box returns the declared frame as a BoundingBox, zero when absent.
func (x *rawXfrm) box() BoundingBox {
	if x == nil || x.Off == nil || x.Ext == nil {
		return BoundingBox{}
	}
	return BoundingBox{Left: x.Off.X, Top: x.Off.Y, Width: x.Ext.CX, Height: x.Ext.CY}
}

// degrees converts the rot attribute to whole degrees.
func (x *rawXfrm) degrees() int {
	if x == nil {
		return 0
	}
	return x.Rot / 60000
}

type rawCNvPr struct {
	ID    int    `xml:"id,attr"`
	Name  string `xml:"name,attr"`
	Descr string `xml:"descr,attr"`
}

type rawHexColor struct {
	Val string `xml:"val,attr"`
}

type rawSolidFill struct {
	Srgb *rawHexColor `xml:"srgbClr"`
}

func (f *rawSolidFill) color() (Color, bool) {
	if f == nil || f.Srgb == nil {
		return Color{}, false
	}
	return NewColor(f.Srgb.Val), true
}

type rawLn struct {
	W         int64         `xml:"w,attr"`
	SolidFill *rawSolidFill `xml:"solidFill"`
	PrstDash  *struct {
		Val string `xml:"val,attr"`
	} `xml:"prstDash"`
}

type rawPrstGeom struct {
	Prst string `xml:"prst,attr"`
}

type rawSpPr struct {
	Xfrm      *rawXfrm      `xml:"xfrm"`
	PrstGeom  *rawPrstGeom  `xml:"prstGeom"`
	CustGeom  *struct{}     `xml:"custGeom"`
	SolidFill *rawSolidFill `xml:"solidFill"`
	Ln        *rawLn        `xml:"ln"`
}

type rawRPr struct {
	Sz        int           `xml:"sz,attr"` // hundredths of a point
	B         bool          `xml:"b,attr"`
	I         bool          `xml:"i,attr"`
	U         string        `xml:"u,attr"`
	SolidFill *rawSolidFill `xml:"solidFill"`
	Latin     *struct {
		Typeface string `xml:"typeface,attr"`
	} `xml:"latin"`
}

type rawRun struct {
	RPr *rawRPr `xml:"rPr"`
	T   string  `xml:"t"`
}

type rawPPr struct {
	Algn      string    `xml:"algn,attr"`
	Lvl       int       `xml:"lvl,attr"`
	BuNone    *struct{} `xml:"buNone"`
	BuChar    *struct{} `xml:"buChar"`
	BuAutoNum *struct{} `xml:"buAutoNum"`
}

type rawParagraph struct {
	PPr  *rawPPr  `xml:"pPr"`
	Runs []rawRun `xml:"r"`
	// Field codes (slide numbers, dates) carry text the same way runs do.
	Fields []rawRun `xml:"fld"`
}

type rawTxBody struct {
	Paragraphs []rawParagraph `xml:"p"`
}

type rawPh struct {
	Type string `xml:"type,attr"`
	Idx  int    `xml:"idx,attr"`
}

// rawSp is a p:sp element.
type rawSp struct {
	NvSpPr struct {
		CNvPr rawCNvPr `xml:"cNvPr"`
		NvPr  struct {
			Ph *rawPh `xml:"ph"`
		} `xml:"nvPr"`
	} `xml:"nvSpPr"`
	SpPr   rawSpPr    `xml:"spPr"`
	TxBody *rawTxBody `xml:"txBody"`
}

// rawPic is a p:pic element.
type rawPic struct {
	NvPicPr struct {
		CNvPr rawCNvPr `xml:"cNvPr"`
	} `xml:"nvPicPr"`
	BlipFill struct {
		Blip struct {
			Embed string `xml:"embed,attr"`
		} `xml:"blip"`
	} `xml:"blipFill"`
	SpPr rawSpPr `xml:"spPr"`
}

// rawCxnSp is a p:cxnSp element.
type rawCxnSp struct {
	NvCxnSpPr struct {
		CNvPr rawCNvPr `xml:"cNvPr"`
	} `xml:"nvCxnSpPr"`
	SpPr rawSpPr `xml:"spPr"`
}

// rawGrpSp is the group's own properties; its children are re-chunked with
// splitGroupChildren.
type rawGrpSp struct {
	NvGrpSpPr struct {
		CNvPr rawCNvPr `xml:"cNvPr"`
	} `xml:"nvGrpSpPr"`
	GrpSpPr struct {
		Xfrm *rawXfrm `xml:"xfrm"`
	} `xml:"grpSpPr"`
}

// extractCNvPr scans a chunk of any element kind for its first cNvPr, which
// is where every OOXML shape keeps id, name and description.
func extractCNvPr(chunk []byte) rawCNvPr {
	dec := xml.NewDecoder(bytes.NewReader(chunk))
	for {
		tok, err := dec.Token()
		if err != nil {
			return rawCNvPr{}
		}
		if t, ok := tok.(xml.StartElement); ok && t.Name.Local == "cNvPr" {
			var c rawCNvPr
			for _, a := range t.Attr {
				switch a.Name.Local {
				case "id":
					fmt.Sscanf(a.Value, "%d", &c.ID)
				case "name":
					c.Name = a.Value
				case "descr":
					c.Descr = a.Value
				}
			}
			return c
		}
	}
}

// extractXfrm scans a chunk for its first xfrm element and decodes it.
// Returns nil when the chunk declares no transform.
func extractXfrm(chunk []byte) *rawXfrm {
	dec := xml.NewDecoder(bytes.NewReader(chunk))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		if t, ok := tok.(xml.StartElement); ok && t.Name.Local == "xfrm" {
			var x rawXfrm
			if err := dec.DecodeElement(&x, &t); err != nil {
				return nil
			}
			return &x
		}
	}
}

// paragraphText joins a raw paragraph's run and field text in the flattened
// order the classifier uses.
func (p *rawParagraph) allRuns() []rawRun {
	if len(p.Fields) == 0 {
		return p.Runs
	}
	return append(append([]rawRun{}, p.Runs...), p.Fields...)
}

func (p *rawParagraph) text() string {
	var sb strings.Builder
	for _, r := range p.allRuns() {
		sb.WriteString(r.T)
	}
	return sb.String()
}
