package goslides

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
)

// stubConverter records calls and returns canned output.
type stubConverter struct {
	out   []byte
	err   error
	calls int
}

func (s *stubConverter) Convert(ctx context.Context, data []byte, srcExt, dstExt string) ([]byte, error) {
	s.calls++
	return s.out, s.err
}

func testClassifier(t *testing.T, parts map[string][]byte, conv Converter) *classifier {
	t.Helper()
	if conv == nil {
		conv = &stubConverter{out: []byte("converted")}
	}
	return &classifier{
		ctx:        context.Background(),
		slideIndex: 0,
		slidePart:  "ppt/slides/slide1.xml",
		pkg:        &pkgReader{parts: parts},
		pool:       newMediaPool(t.TempDir()),
		conv:       conv,
		logger:     slog.Default(),
	}
}

func spChunk(id int, extra string) rawShape {
	data := fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Shape %d"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>%s</p:sp>`, id, id, extra)
	return rawShape{name: "sp", data: []byte(data)}
}

func TestClassifyTextBox(t *testing.T) {
	c := testClassifier(t, nil, nil)
	chunk := spChunk(2, `<p:spPr><a:xfrm><a:off x="100" y="200"/><a:ext cx="300" cy="400"/></a:xfrm><a:prstGeom prst="rect"/></p:spPr><p:txBody><a:bodyPr/><a:p><a:r><a:rPr sz="2400" b="1"/><a:t>Hello</a:t></a:r></a:p></p:txBody>`)

	s, err := c.classify(chunk)
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	tb, ok := s.(*TextBox)
	if !ok {
		t.Fatalf("got %T, want *TextBox", s)
	}
	if tb.Identity().ID != 2 {
		t.Errorf("id = %d", tb.Identity().ID)
	}
	if tb.Box() != (BoundingBox{Left: 100, Top: 200, Width: 300, Height: 400}) {
		t.Errorf("box = %+v", tb.Box())
	}
	run := tb.Frame.Paragraphs[0].Runs[0]
	if run.Text != "Hello" || run.Font.Size != 24 || !run.Font.Bold {
		t.Errorf("run = %q font %+v", run.Text, run.Font)
	}
}

func TestClassifyPlaceholder(t *testing.T) {
	c := testClassifier(t, nil, nil)
	chunk := rawShape{name: "sp", data: []byte(`<p:sp><p:nvSpPr><p:cNvPr id="5" name="Title 1"/><p:cNvSpPr/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:p><a:r><a:t>Heading</a:t></a:r></a:p></p:txBody></p:sp>`)}

	s, err := c.classify(chunk)
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	ph, ok := s.(*Placeholder)
	if !ok {
		t.Fatalf("got %T, want *Placeholder", s)
	}
	if ph.PhType != "title" {
		t.Errorf("PhType = %q", ph.PhType)
	}
	if ph.Frame.Text() != "Heading" {
		t.Errorf("text = %q", ph.Frame.Text())
	}
}

func TestClassifyLineShapes(t *testing.T) {
	c := testClassifier(t, nil, nil)

	cxn := rawShape{name: "cxnSp", data: []byte(`<p:cxnSp><p:nvCxnSpPr><p:cNvPr id="7" name="Connector 1"/></p:nvCxnSpPr><p:spPr><a:prstGeom prst="straightConnector1"/></p:spPr></p:cxnSp>`)}
	s, err := c.classify(cxn)
	if err != nil {
		t.Fatalf("classify cxnSp failed: %v", err)
	}
	if l, ok := s.(*LineShape); !ok || l.ConnectorType != "straightConnector1" {
		t.Errorf("cxnSp -> %T %+v", s, s)
	}

	lineSp := spChunk(8, `<p:spPr><a:prstGeom prst="line"/></p:spPr>`)
	s, err = c.classify(lineSp)
	if err != nil {
		t.Fatalf("classify line sp failed: %v", err)
	}
	if _, ok := s.(*LineShape); !ok {
		t.Errorf("line sp -> %T, want *LineShape", s)
	}
}

func TestClassifyTextBeatsLineGeometry(t *testing.T) {
	c := testClassifier(t, nil, nil)

	// a text-bearing frame outranks line geometry; the text must survive
	chunk := spChunk(8, `<p:spPr><a:prstGeom prst="line"/></p:spPr><p:txBody><a:p><a:r><a:t>label</a:t></a:r></a:p></p:txBody>`)
	s, err := c.classify(chunk)
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	tb, ok := s.(*TextBox)
	if !ok {
		t.Fatalf("got %T, want *TextBox", s)
	}
	if tb.Frame.Text() != "label" {
		t.Errorf("text = %q", tb.Frame.Text())
	}

	// an empty text body does not outrank the geometry
	empty := spChunk(9, `<p:spPr><a:prstGeom prst="bentConnector3"/></p:spPr><p:txBody><a:p/></p:txBody>`)
	s, err = c.classify(empty)
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if _, ok := s.(*LineShape); !ok {
		t.Errorf("empty-text connector sp -> %T, want *LineShape", s)
	}
}

func TestClassifyFreeShape(t *testing.T) {
	c := testClassifier(t, nil, nil)
	chunk := spChunk(9, `<p:spPr><a:prstGeom prst="ellipse"/><a:solidFill><a:srgbClr val="FF0000"/></a:solidFill></p:spPr>`)

	s, err := c.classify(chunk)
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	fs, ok := s.(*FreeShape)
	if !ok {
		t.Fatalf("got %T, want *FreeShape", s)
	}
	if fs.Geometry != "ellipse" {
		t.Errorf("Geometry = %q", fs.Geometry)
	}
	if fs.Style().Fill == nil || fs.Style().Fill.Color.RGB() != "FF0000" {
		t.Errorf("fill = %+v", fs.Style().Fill)
	}
}

func TestClassifyUnknownElementIsTotal(t *testing.T) {
	c := testClassifier(t, nil, nil)
	chunk := rawShape{name: "graphicFrame", data: []byte(`<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="12" name="Table 1"/></p:nvGraphicFramePr></p:graphicFrame>`)}

	s, err := c.classify(chunk)
	if err != nil {
		t.Fatalf("classifier must be total over element kinds, got error: %v", err)
	}
	u, ok := s.(*UnsupportedShape)
	if !ok {
		t.Fatalf("got %T, want *UnsupportedShape", s)
	}
	if u.ElementName != "graphicFrame" {
		t.Errorf("ElementName = %q", u.ElementName)
	}
	if u.Identity().ID != 12 {
		t.Errorf("id = %d", u.Identity().ID)
	}
}

func picParts(ext string, data []byte) map[string][]byte {
	return map[string][]byte{
		"ppt/slides/_rels/slide1.xml.rels": []byte(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/image1.` + ext + `"/></Relationships>`),
		"ppt/media/image1." + ext:          data,
	}
}

func picChunk(descr string) rawShape {
	attr := ""
	if descr != "" {
		attr = ` descr="` + descr + `"`
	}
	return rawShape{name: "pic", data: []byte(`<p:pic><p:nvPicPr><p:cNvPr id="3" name="Picture 2"` + attr + `/></p:nvPicPr><p:blipFill><a:blip r:embed="rId2"/></p:blipFill><p:spPr/></p:pic>`)}
}

func TestClassifyPicture(t *testing.T) {
	c := testClassifier(t, picParts("png", []byte("png-bytes")), nil)

	s, err := c.classify(picChunk(""))
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	pic, ok := s.(*Picture)
	if !ok {
		t.Fatalf("got %T, want *Picture", s)
	}
	if pic.SourceExt != "png" {
		t.Errorf("SourceExt = %q", pic.SourceExt)
	}
	if !c.pool.Has(pic.MediaKey) {
		t.Error("extracted media not in pool")
	}
	if got, _ := c.pool.Get(pic.MediaKey); string(got) != "png-bytes" {
		t.Errorf("pool content = %q", got)
	}
}

func TestClassifySemanticPicture(t *testing.T) {
	c := testClassifier(t, picParts("png", []byte("png-bytes")), nil)

	s, err := c.classify(picChunk("quarterly sales chart"))
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	sp, ok := s.(*SemanticPicture)
	if !ok {
		t.Fatalf("got %T, want *SemanticPicture", s)
	}
	if sp.Caption != "quarterly sales chart" {
		t.Errorf("Caption = %q", sp.Caption)
	}

	// auto-generated alt text carries no semantics and must not promote
	s, err = c.classify(picChunk("Picture 3"))
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if _, ok := s.(*SemanticPicture); ok {
		t.Error("generic alt text promoted to SemanticPicture")
	}
}

func TestClassifyPictureUnsupportedFormat(t *testing.T) {
	c := testClassifier(t, picParts("gif", []byte("gif-bytes")), nil)

	_, err := c.classify(picChunk(""))
	var uf *UnsupportedFormatError
	if !errors.As(err, &uf) {
		t.Fatalf("error = %v, want *UnsupportedFormatError", err)
	}
	if uf.Format != "gif" {
		t.Errorf("Format = %q", uf.Format)
	}
}

func TestClassifyPictureConvertsVector(t *testing.T) {
	conv := &stubConverter{out: []byte("jpg-bytes")}
	c := testClassifier(t, picParts("wmf", []byte("wmf-bytes")), conv)

	s, err := c.classify(picChunk(""))
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	pic := s.(*Picture)
	if conv.calls != 1 {
		t.Errorf("converter called %d times, want 1", conv.calls)
	}
	if pic.SourceExt != "wmf" {
		t.Errorf("SourceExt = %q, want the pre-conversion encoding", pic.SourceExt)
	}
	if c.pool.Ext(pic.MediaKey) != "jpg" {
		t.Errorf("pool ext = %q, want jpg", c.pool.Ext(pic.MediaKey))
	}
	if got, _ := c.pool.Get(pic.MediaKey); string(got) != "jpg-bytes" {
		t.Errorf("pool content = %q, want converted bytes", got)
	}
}

func TestClassifyPictureConversionFails(t *testing.T) {
	wantErr := &ConversionFailedError{SourceFormat: "wmf", TargetFormat: "jpg", Attempts: 5}
	conv := &stubConverter{err: wantErr}
	c := testClassifier(t, picParts("wmf", []byte("wmf-bytes")), conv)

	_, err := c.classify(picChunk(""))
	var cf *ConversionFailedError
	if !errors.As(err, &cf) {
		t.Fatalf("error = %v, want *ConversionFailedError", err)
	}
}

func TestClassifySlideGroupNormalization(t *testing.T) {
	group := rawShape{name: "grpSp", data: []byte(`<p:grpSp><p:nvGrpSpPr><p:cNvPr id="10" name="Group 1"/></p:nvGrpSpPr><p:grpSpPr><a:xfrm><a:off x="10" y="10"/><a:ext cx="400" cy="100"/></a:xfrm></p:grpSpPr>` +
		`<p:sp><p:nvSpPr><p:cNvPr id="11" name="a"/><p:nvPr/></p:nvSpPr><p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="100" cy="50"/></a:xfrm></p:spPr></p:sp>` +
		`<p:sp><p:nvSpPr><p:cNvPr id="12" name="b"/><p:nvPr/></p:nvSpPr><p:spPr><a:xfrm><a:off x="100" y="0"/><a:ext cx="100" cy="50"/></a:xfrm></p:spPr></p:sp>` +
		`</p:grpSp>`)}

	c := testClassifier(t, nil, nil)
	shapes, err := c.classifySlide(&rawSlide{shapes: []rawShape{group}})
	if err != nil {
		t.Fatalf("classifySlide failed: %v", err)
	}
	g := shapes[0].(*GroupShape)
	want := []BoundingBox{
		{Left: 10, Top: 10, Width: 200, Height: 100},
		{Left: 210, Top: 10, Width: 200, Height: 100},
	}
	for i, ch := range g.Children {
		if ch.Box() != want[i] {
			t.Errorf("child %d box = %+v, want %+v", i, ch.Box(), want[i])
		}
	}
}

func TestClassifySlideDegenerateGroup(t *testing.T) {
	group := rawShape{name: "grpSp", data: []byte(`<p:grpSp><p:nvGrpSpPr><p:cNvPr id="10" name="Flat"/></p:nvGrpSpPr><p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="100" cy="100"/></a:xfrm></p:grpSpPr>` +
		`<p:sp><p:nvSpPr><p:cNvPr id="11" name="a"/><p:nvPr/></p:nvSpPr><p:spPr><a:xfrm><a:off x="0" y="5"/><a:ext cx="100" cy="0"/></a:xfrm></p:spPr></p:sp>` +
		`</p:grpSp>`)}

	c := testClassifier(t, nil, nil)
	_, err := c.classifySlide(&rawSlide{shapes: []rawShape{group}})
	var dg *DegenerateGroupGeometryError
	if !errors.As(err, &dg) {
		t.Fatalf("error = %v, want *DegenerateGroupGeometryError", err)
	}
	if dg.ShapeID != 10 || dg.GroupName != "Flat" {
		t.Errorf("error context = %+v", dg)
	}
}

func TestClassifySlideZOrder(t *testing.T) {
	chunks := []rawShape{
		spChunk(2, `<p:spPr/>`),
		spChunk(3, `<p:spPr/>`),
		spChunk(4, `<p:spPr/>`),
	}
	c := testClassifier(t, nil, nil)
	shapes, err := c.classifySlide(&rawSlide{shapes: chunks})
	if err != nil {
		t.Fatalf("classifySlide failed: %v", err)
	}
	for i, s := range shapes {
		if s.Identity().ZOrder != i {
			t.Errorf("shape %d ZOrder = %d", i, s.Identity().ZOrder)
		}
	}
}

func TestDeriveCaption(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"quarterly sales chart", "quarterly sales chart"},
		{"  spaced   out  ", "spaced out"},
		{"Picture 3", ""},
		{"Image 12", ""},
		{"screenshot", ""},
		{"", ""},
		{"logo", "Logo"},
	}
	for _, tt := range tests {
		if got := deriveCaption(tt.in); got != tt.want {
			t.Errorf("deriveCaption(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
