package goslides

import (
	"archive/zip"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

const testContentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Default Extension="png" ContentType="image/png"/><Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/><Override PartName="/ppt/slides/slide1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/></Types>`

const testLayoutXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldLayout xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/></p:spTree></p:cSld></p:sldLayout>`

// writeDeck builds a minimal but complete .pptx on disk: one slide holding a
// title placeholder and a picture, the referenced layout and media parts, and
// optionally a second slide with truncated XML.
func writeDeck(t *testing.T, withBadSlide bool) string {
	t.Helper()
	return writeDeckSlide(t, testSlideXML, withBadSlide)
}

// writeDeckSlide is writeDeck with a caller-supplied slide1 part.
func writeDeckSlide(t *testing.T, slideXML string, withBadSlide bool) string {
	t.Helper()

	slideRels := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="` + relTypeSlideLayout + `" Target="../slideLayouts/slideLayout1.xml"/><Relationship Id="rId2" Type="` + relTypeImage + `" Target="../media/image1.png"/></Relationships>`

	sldIDs := `<p:sldId r:id="rId1"/>`
	presRels := `<Relationship Id="rId1" Type="` + relTypeSlide + `" Target="slides/slide1.xml"/>`
	if withBadSlide {
		sldIDs += `<p:sldId r:id="rId2"/>`
		presRels += `<Relationship Id="rId2" Type="` + relTypeSlide + `" Target="slides/slide2.xml"/>`
	}

	parts := []struct {
		name string
		data string
	}{
		{"[Content_Types].xml", testContentTypesXML},
		{"_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/></Relationships>`},
		{"ppt/presentation.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:sldIdLst>` + sldIDs + `</p:sldIdLst><p:sldSz cx="12192000" cy="6858000"/></p:presentation>`},
		{"ppt/_rels/presentation.xml.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` + presRels + `</Relationships>`},
		{"ppt/slides/slide1.xml", slideXML},
		{"ppt/slides/_rels/slide1.xml.rels", slideRels},
		{"ppt/slideLayouts/slideLayout1.xml", testLayoutXML},
		{"ppt/media/image1.png", "png-bytes"},
	}
	if withBadSlide {
		parts = append(parts, struct {
			name string
			data string
		}{"ppt/slides/slide2.xml", `<p:sld xmlns:p="x"><p:cSld><p:spTree>`})
	}

	path := filepath.Join(t.TempDir(), "deck.pptx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(part.data)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func quietConfig(t *testing.T) *Config {
	t.Helper()
	cfg := NewConfig(filepath.Join(t.TempDir(), "run"))
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cfg
}

func TestParseFile(t *testing.T) {
	p, err := ParseFile(writeDeck(t, false), quietConfig(t))
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}

	if p.SlideCount() != 1 {
		t.Fatalf("SlideCount = %d, want 1", p.SlideCount())
	}
	w, h := p.SlideSize()
	if w != 12192000 || h != 6858000 {
		t.Errorf("SlideSize = %d x %d", w, h)
	}

	slide, err := p.Slide(0)
	if err != nil {
		t.Fatal(err)
	}
	if slide.Failed() {
		t.Fatalf("slide failed: %v", slide.Err)
	}
	if slide.LayoutRef != "ppt/slideLayouts/slideLayout1.xml" {
		t.Errorf("LayoutRef = %q", slide.LayoutRef)
	}

	ph, ok := slide.FindShape(2).(*Placeholder)
	if !ok {
		t.Fatalf("shape 2 = %T, want *Placeholder", slide.FindShape(2))
	}
	if ph.PhType != "title" || ph.Frame.Text() != "Hello" {
		t.Errorf("placeholder = %q %q", ph.PhType, ph.Frame.Text())
	}
	if ph.Box() != (BoundingBox{Left: 100, Top: 200, Width: 300, Height: 400}) {
		t.Errorf("box = %+v", ph.Box())
	}

	pic, ok := slide.FindShape(3).(*SemanticPicture)
	if !ok {
		t.Fatalf("shape 3 = %T, want *SemanticPicture", slide.FindShape(3))
	}
	if pic.Caption != "sales chart" {
		t.Errorf("Caption = %q", pic.Caption)
	}
	if got, err := p.MediaPool().Get(pic.MediaKey); err != nil || string(got) != "png-bytes" {
		t.Errorf("media not extracted into pool: %q %v", got, err)
	}

	if got := p.ExtractText(); got != "Hello\nsales chart" {
		t.Errorf("ExtractText = %q", got)
	}
	if issues := p.Validate(); len(issues) != 0 {
		t.Errorf("Validate = %v", issues)
	}
}

func TestParseFileRejectsExtension(t *testing.T) {
	_, err := ParseFile("deck.ppt", quietConfig(t))
	var uf *UnsupportedFormatError
	if !errors.As(err, &uf) {
		t.Fatalf("error = %v, want *UnsupportedFormatError", err)
	}
	if uf.Format != "ppt" {
		t.Errorf("Format = %q", uf.Format)
	}
}

func TestParseFileMissingFile(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "absent.pptx"), quietConfig(t))
	var ms *MalformedSourceError
	if !errors.As(err, &ms) {
		t.Fatalf("error = %v, want *MalformedSourceError", err)
	}
}

func TestParseFileRecordsFailedSlide(t *testing.T) {
	p, err := ParseFile(writeDeck(t, true), quietConfig(t))
	if err != nil {
		t.Fatalf("one bad slide must not abort the deck parse: %v", err)
	}
	if p.SlideCount() != 2 {
		t.Fatalf("SlideCount = %d, want 2", p.SlideCount())
	}

	good, _ := p.Slide(0)
	if good.Failed() {
		t.Errorf("healthy slide marked failed: %v", good.Err)
	}
	bad, _ := p.Slide(1)
	if !bad.Failed() {
		t.Fatal("truncated slide not marked failed")
	}
	var ms *MalformedSourceError
	if !errors.As(bad.Err, &ms) {
		t.Errorf("slide error = %v, want *MalformedSourceError", bad.Err)
	}

	// failed slides reject closures
	if err := bad.AppendClosure(ReplaceText(2, "x")); err == nil {
		t.Error("closure accepted on a failed slide")
	}
	// and surface in validation
	if issues := p.Validate(); len(issues) != 1 {
		t.Errorf("Validate = %v, want one issue", issues)
	}
	// but the deck's text comes from the healthy slides
	if got := p.ExtractText(); got != "Hello\nsales chart" {
		t.Errorf("ExtractText = %q", got)
	}
}

func TestValidateMissingMediaKey(t *testing.T) {
	p, err := ParseFile(writeDeck(t, false), quietConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.AppendClosure(0, ReplaceImage(3, "feedface.png")); err != nil {
		t.Fatal(err)
	}
	issues := p.Validate()
	if len(issues) != 1 {
		t.Fatalf("Validate = %v, want one issue", issues)
	}
	var se *SerializationError
	if !errors.As(issues[0], &se) || se.MediaKey != "feedface.png" {
		t.Errorf("issue = %v", issues[0])
	}
}
