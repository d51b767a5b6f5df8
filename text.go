package goslides

import "strings"

// Run is a contiguous span of identically formatted text.
type Run struct {
	Text string
	Font Font
}

// Paragraph is an ordered sequence of styled runs plus paragraph-level
// alignment and indent properties.
type Paragraph struct {
	Runs      []*Run
	Alignment string // "l", "ctr", "r", "just" or "" for inherited
	Level     int    // indent level
	Bullet    bool
}

// Text returns the concatenated text of all runs.
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// mergeRuns collapses the paragraph into a single run carrying the full
// paragraph text. The run with the most text keeps its formatting; the rest
// are removed. Returns nil for an empty paragraph.
func (p *Paragraph) mergeRuns() *Run {
	if len(p.Runs) == 0 {
		return nil
	}
	dominant := p.Runs[0]
	for _, r := range p.Runs[1:] {
		if len(r.Text) > len(dominant.Text) {
			dominant = r
		}
	}
	dominant.Text = p.Text()
	p.Runs = []*Run{dominant}
	return dominant
}

func (p *Paragraph) clone() *Paragraph {
	out := &Paragraph{Alignment: p.Alignment, Level: p.Level, Bullet: p.Bullet}
	out.Runs = make([]*Run, len(p.Runs))
	for i, r := range p.Runs {
		rc := *r
		out.Runs[i] = &rc
	}
	return out
}

// TextFrame is the text body of a text-bearing shape.
type TextFrame struct {
	Paragraphs []*Paragraph
}

// Text returns the frame's text, one line per paragraph.
func (tf *TextFrame) Text() string {
	parts := make([]string, 0, len(tf.Paragraphs))
	for _, p := range tf.Paragraphs {
		parts = append(parts, p.Text())
	}
	return strings.Join(parts, "\n")
}

// IsEmpty reports whether the frame holds no text at all.
func (tf *TextFrame) IsEmpty() bool {
	for _, p := range tf.Paragraphs {
		if p.Text() != "" {
			return false
		}
	}
	return true
}

func (tf *TextFrame) clone() TextFrame {
	out := TextFrame{Paragraphs: make([]*Paragraph, len(tf.Paragraphs))}
	for i, p := range tf.Paragraphs {
		out.Paragraphs[i] = p.clone()
	}
	return out
}
