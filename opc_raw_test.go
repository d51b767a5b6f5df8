package goslides

import (
	"bytes"
	"testing"
)

const testSlideXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/><p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:cNvSpPr/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:spPr><a:xfrm><a:off x="100" y="200"/><a:ext cx="300" cy="400"/></a:xfrm></p:spPr><p:txBody><a:bodyPr/><a:p><a:r><a:rPr lang="en-US" sz="4400"/><a:t>Hello</a:t></a:r></a:p></p:txBody></p:sp><p:pic><p:nvPicPr><p:cNvPr id="3" name="Picture 2" descr="sales chart"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr><p:blipFill><a:blip r:embed="rId2"/></p:blipFill><p:spPr><a:xfrm><a:off x="500" y="600"/><a:ext cx="700" cy="800"/></a:xfrm></p:spPr></p:pic></p:spTree></p:cSld></p:sld>`

func TestParseRawSlideSplitsChunks(t *testing.T) {
	raw, err := parseRawSlide([]byte(testSlideXML))
	if err != nil {
		t.Fatalf("parseRawSlide failed: %v", err)
	}
	if len(raw.shapes) != 2 {
		t.Fatalf("got %d chunks, want 2", len(raw.shapes))
	}
	if raw.shapes[0].name != "sp" || raw.shapes[1].name != "pic" {
		t.Errorf("chunk names = %s, %s", raw.shapes[0].name, raw.shapes[1].name)
	}
	if !bytes.HasPrefix(raw.shapes[0].data, []byte("<p:sp>")) {
		t.Errorf("sp chunk starts with %q", raw.shapes[0].data[:10])
	}
	if !bytes.HasSuffix(raw.shapes[1].data, []byte("</p:pic>")) {
		t.Errorf("pic chunk ends with %q", raw.shapes[1].data[len(raw.shapes[1].data)-10:])
	}
}

func TestRawSlideReassemblesVerbatim(t *testing.T) {
	src := []byte(testSlideXML)
	raw, err := parseRawSlide(src)
	if err != nil {
		t.Fatalf("parseRawSlide failed: %v", err)
	}
	var buf bytes.Buffer
	buf.Write(raw.header)
	for _, c := range raw.shapes {
		buf.Write(c.data)
	}
	buf.Write(raw.trailer)
	if !bytes.Equal(buf.Bytes(), src) {
		t.Error("header + chunks + trailer does not reproduce the source bytes")
	}
}

func TestParseRawSlideNoShapes(t *testing.T) {
	src := []byte(`<p:sld><p:cSld><p:spTree><p:nvGrpSpPr/><p:grpSpPr/></p:spTree></p:cSld></p:sld>`)
	raw, err := parseRawSlide(src)
	if err != nil {
		t.Fatalf("parseRawSlide failed: %v", err)
	}
	if len(raw.shapes) != 0 {
		t.Errorf("got %d chunks, want 0", len(raw.shapes))
	}
	var buf bytes.Buffer
	buf.Write(raw.header)
	buf.Write(raw.trailer)
	if !bytes.Equal(buf.Bytes(), src) {
		t.Error("empty split does not reproduce the source bytes")
	}
}

func TestParseRawSlideMissingTree(t *testing.T) {
	if _, err := parseRawSlide([]byte(`<p:sld></p:sld>`)); err == nil {
		t.Error("expected error for slide without spTree")
	}
}

func TestExtractHelpers(t *testing.T) {
	raw, err := parseRawSlide([]byte(testSlideXML))
	if err != nil {
		t.Fatalf("parseRawSlide failed: %v", err)
	}
	cnv := extractCNvPr(raw.shapes[1].data)
	if cnv.ID != 3 || cnv.Name != "Picture 2" || cnv.Descr != "sales chart" {
		t.Errorf("extractCNvPr = %+v", cnv)
	}
	box := extractXfrm(raw.shapes[0].data).box()
	want := BoundingBox{Left: 100, Top: 200, Width: 300, Height: 400}
	if box != want {
		t.Errorf("extractXfrm box = %+v, want %+v", box, want)
	}
}

func TestSplitGroupChildren(t *testing.T) {
	group := []byte(`<p:grpSp><p:nvGrpSpPr><p:cNvPr id="10" name="Group 1"/></p:nvGrpSpPr><p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="1000" cy="1000"/></a:xfrm></p:grpSpPr><p:sp><p:nvSpPr><p:cNvPr id="11" name="a"/></p:nvSpPr><p:spPr/></p:sp><p:grpSp><p:nvGrpSpPr><p:cNvPr id="12" name="nested"/></p:nvGrpSpPr><p:grpSpPr/><p:sp><p:nvSpPr><p:cNvPr id="13" name="b"/></p:nvSpPr><p:spPr/></p:sp></p:grpSp></p:grpSp>`)
	children, err := splitGroupChildren(group)
	if err != nil {
		t.Fatalf("splitGroupChildren failed: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("got %d children, want 2", len(children))
	}
	if children[0].name != "sp" || children[1].name != "grpSp" {
		t.Errorf("child names = %s, %s", children[0].name, children[1].name)
	}
	// the nested group's own children stay inside its chunk
	if !bytes.Contains(children[1].data, []byte(`id="13"`)) {
		t.Error("nested group chunk lost its child")
	}
}
