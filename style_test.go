package goslides

import "testing"

func TestNewColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"FF0000", "FFFF0000"},
		{"#00FF00", "FF00FF00"},
		{"80FF0000", "80FF0000"},
		{"ff00ff", "FFFF00FF"},
		{"bogus", "FF000000"},
		{"", "FF000000"},
	}
	for _, tt := range tests {
		if got := NewColor(tt.in).ARGB; got != tt.want {
			t.Errorf("NewColor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestColorComponents(t *testing.T) {
	c := NewColor("80123456")
	if c.GetAlpha() != 0x80 || c.GetRed() != 0x12 || c.GetGreen() != 0x34 || c.GetBlue() != 0x56 {
		t.Errorf("components = %d %d %d %d", c.GetAlpha(), c.GetRed(), c.GetGreen(), c.GetBlue())
	}
	if c.RGB() != "123456" {
		t.Errorf("RGB() = %q, want 123456", c.RGB())
	}
}

func TestStyleArgMerge(t *testing.T) {
	bold := true
	red := NewColor("FF0000")
	blue := NewColor("0000FF")
	size := 32

	first := StyleArg{Bold: &bold, FontColor: &red}
	second := StyleArg{FontSize: &size, FontColor: &blue}

	merged := first.merge(second)

	// fields set only by the first survive
	if merged.Bold == nil || !*merged.Bold {
		t.Error("merge dropped Bold from first arg")
	}
	// fields set only by the second are added
	if merged.FontSize == nil || *merged.FontSize != 32 {
		t.Error("merge did not add FontSize from second arg")
	}
	// fields set by both take the later value
	if merged.FontColor == nil || *merged.FontColor != blue {
		t.Errorf("merge FontColor = %v, want %v", merged.FontColor, blue)
	}
	// unset fields stay unset
	if merged.Italic != nil || merged.LineWidth != nil {
		t.Error("merge invented fields neither arg set")
	}
}

func TestStyleArgApplyToFont(t *testing.T) {
	f := DefaultFont()
	bold := true
	name := "Arial"
	arg := StyleArg{Bold: &bold, FontName: &name}
	arg.applyToFont(&f)

	if !f.Bold || f.Name != "Arial" {
		t.Errorf("applyToFont: got %+v", f)
	}
	if f.Size != 18 {
		t.Errorf("applyToFont touched Size: %d", f.Size)
	}
}

func TestStyleArgApplyToShape(t *testing.T) {
	var st ShapeStyle
	red := NewColor("FF0000")
	w := Point(2)
	arg := StyleArg{FillColor: &red, LineWidth: &w}
	arg.applyToShape(&st)

	if st.Fill == nil || st.Fill.Kind != FillSolid || st.Fill.Color != red {
		t.Errorf("Fill = %+v", st.Fill)
	}
	if st.Line == nil || st.Line.Width != w {
		t.Errorf("Line = %+v", st.Line)
	}
}

func TestMergeRuns(t *testing.T) {
	p := &Paragraph{Runs: []*Run{
		{Text: "He", Font: Font{Name: "Arial", Size: 12}},
		{Text: "llo wor", Font: Font{Name: "Calibri", Size: 24, Bold: true}},
		{Text: "ld", Font: Font{Name: "Arial", Size: 12}},
	}}
	r := p.mergeRuns()
	if r == nil {
		t.Fatal("mergeRuns returned nil")
	}
	if r.Text != "Hello world" {
		t.Errorf("merged text = %q", r.Text)
	}
	// the run with the most text keeps its formatting
	if !r.Font.Bold || r.Font.Size != 24 {
		t.Errorf("merged font = %+v, want the dominant run's", r.Font)
	}
	if len(p.Runs) != 1 {
		t.Errorf("paragraph kept %d runs, want 1", len(p.Runs))
	}
}

func TestMergeRunsEmpty(t *testing.T) {
	p := &Paragraph{}
	if r := p.mergeRuns(); r != nil {
		t.Errorf("mergeRuns on empty paragraph = %+v, want nil", r)
	}
}
