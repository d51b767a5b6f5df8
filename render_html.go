package goslides

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RenderOptions controls HTML output.
type RenderOptions struct {
	// EmbedImages inlines media as data URIs. When false, images reference
	// files under ImagePrefix relative to the document.
	EmbedImages bool
	// ShowImages includes picture shapes at all; captions of semantic
	// pictures render either way.
	ShowImages bool
	// ImagePrefix is the relative directory for non-embedded image
	// references. Defaults to "images/".
	ImagePrefix string
}

func (o RenderOptions) prefix() string {
	if o.ImagePrefix == "" {
		return "images/"
	}
	if !strings.HasSuffix(o.ImagePrefix, "/") {
		return o.ImagePrefix + "/"
	}
	return o.ImagePrefix
}

// RenderHTML renders the whole deck as one HTML document, slides stacked in
// order. Closure logs are applied to rendered output; the parsed model is
// untouched. Failed slides render as an error marker block.
func (p *Presentation) RenderHTML(opts RenderOptions) (string, error) {
	body := elem(atom.Body, nil)
	for _, s := range p.slides {
		node, err := p.renderSlideNode(s, opts)
		if err != nil {
			return "", err
		}
		body.AppendChild(node)
	}

	doc := &html.Node{Type: html.DocumentNode}
	doctype := &html.Node{Type: html.DoctypeNode, Data: "html"}
	doc.AppendChild(doctype)
	root := elem(atom.Html, nil)
	head := elem(atom.Head, nil)
	meta := elem(atom.Meta, map[string]string{"charset": "utf-8"})
	head.AppendChild(meta)
	root.AppendChild(head)
	root.AppendChild(body)
	doc.AppendChild(root)

	var sb strings.Builder
	if err := html.Render(&sb, doc); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// RenderSlideHTML renders one slide as an HTML fragment.
func (p *Presentation) RenderSlideHTML(index int, opts RenderOptions) (string, error) {
	s, err := p.Slide(index)
	if err != nil {
		return "", err
	}
	node, err := p.renderSlideNode(s, opts)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := html.Render(&sb, node); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (p *Presentation) renderSlideNode(s *SlidePage, opts RenderOptions) (*html.Node, error) {
	if s.Failed() {
		div := elem(atom.Div, map[string]string{
			"class": "slide slide-error",
			"style": p.slideStyle(),
		})
		div.AppendChild(text(fmt.Sprintf("slide %d could not be parsed: %v", s.Index+1, s.Err)))
		return div, nil
	}

	render := s
	if len(s.Closures) > 0 {
		applied, err := s.applied(p.pool, replayOptions{})
		if err != nil {
			return nil, err
		}
		render = applied
	}

	div := elem(atom.Div, map[string]string{
		"class": "slide",
		"style": p.slideStyle(),
	})
	var renderErr error
	render.Walk(func(sh ShapeElement) bool {
		if _, ok := sh.(*GroupShape); ok {
			// children are already absolute; the container itself draws nothing
			return true
		}
		node, err := p.renderShapeNode(sh, opts)
		if err != nil {
			renderErr = err
			return false
		}
		if node != nil {
			div.AppendChild(node)
		}
		return true
	})
	if renderErr != nil {
		return nil, renderErr
	}
	return div, nil
}

func (p *Presentation) slideStyle() string {
	return fmt.Sprintf("position:relative;overflow:hidden;width:%.1fpt;height:%.1fpt",
		EMUToPoint(p.slideWidth), EMUToPoint(p.slideHeight))
}

func (p *Presentation) renderShapeNode(sh ShapeElement, opts RenderOptions) (*html.Node, error) {
	switch v := sh.(type) {
	case *TextBox:
		return p.renderFrameNode(sh, &v.Frame), nil
	case *Placeholder:
		node := p.renderFrameNode(sh, &v.Frame)
		setAttr(node, "class", "placeholder placeholder-"+v.PhType)
		return node, nil
	case *FreeShape:
		var frame *TextFrame
		if v.Frame != nil {
			frame = v.Frame
		}
		node := p.renderFrameNode(sh, frame)
		if fill := sh.Style().Fill; fill != nil && fill.Kind == FillSolid {
			appendStyle(node, "background-color:#"+fill.Color.RGB())
		}
		return node, nil
	case *Picture:
		return p.renderPictureNode(sh, v, "", opts)
	case *SemanticPicture:
		return p.renderPictureNode(sh, &v.Picture, v.Caption, opts)
	case *LineShape:
		node := elem(atom.Div, map[string]string{"style": p.boxStyle(sh)})
		stroke := "#000000"
		width := 1.0
		if line := sh.Style().Line; line != nil {
			stroke = "#" + line.Color.RGB()
			if line.Width > 0 {
				width = EMUToPoint(line.Width)
			}
		}
		appendStyle(node, fmt.Sprintf("border-top:%.1fpt solid %s", width, stroke))
		return node, nil
	default:
		// unsupported shapes render as empty placeholders so layout gaps
		// stay visible
		return elem(atom.Div, map[string]string{"style": p.boxStyle(sh), "class": "unsupported"}), nil
	}
}

func (p *Presentation) renderFrameNode(sh ShapeElement, frame *TextFrame) *html.Node {
	node := elem(atom.Div, map[string]string{"style": p.boxStyle(sh)})
	if frame == nil {
		return node
	}
	for _, para := range frame.Paragraphs {
		pn := elem(atom.P, map[string]string{"style": "margin:0" + alignCSS(para.Alignment)})
		if para.Level > 0 {
			appendStyle(pn, fmt.Sprintf("padding-left:%dem", para.Level))
		}
		for _, run := range para.Runs {
			if run.Text == "" {
				continue
			}
			span := elem(atom.Span, map[string]string{"style": fontCSS(run.Font)})
			span.AppendChild(text(run.Text))
			pn.AppendChild(span)
		}
		node.AppendChild(pn)
	}
	return node
}

func (p *Presentation) renderPictureNode(sh ShapeElement, pic *Picture, caption string, opts RenderOptions) (*html.Node, error) {
	if !opts.ShowImages {
		if caption == "" {
			return nil, nil
		}
		node := elem(atom.Div, map[string]string{"style": p.boxStyle(sh), "class": "caption"})
		node.AppendChild(text(caption))
		return node, nil
	}

	src := opts.prefix() + pic.MediaKey
	if opts.EmbedImages {
		data, err := p.pool.Get(pic.MediaKey)
		if err != nil {
			return nil, &SerializationError{
				SlideIndex: sh.SlideIndex(),
				ShapeID:    sh.Identity().ID,
				MediaKey:   pic.MediaKey,
				Err:        err,
			}
		}
		mime, ok := contentTypeByExt[p.pool.Ext(pic.MediaKey)]
		if !ok {
			mime = "application/octet-stream"
		}
		src = "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
	}

	alt := pic.AltText
	if caption != "" {
		alt = caption
	}
	img := elem(atom.Img, map[string]string{
		"src":   src,
		"alt":   alt,
		"style": p.boxStyle(sh),
	})
	return img, nil
}

// boxStyle positions a shape absolutely within its slide div.
func (p *Presentation) boxStyle(sh ShapeElement) string {
	b := sh.Box()
	css := fmt.Sprintf("position:absolute;left:%.1fpt;top:%.1fpt;width:%.1fpt;height:%.1fpt",
		EMUToPoint(b.Left), EMUToPoint(b.Top), EMUToPoint(b.Width), EMUToPoint(b.Height))
	if rot := sh.Rotation(); rot != 0 {
		css += fmt.Sprintf(";transform:rotate(%ddeg)", rot)
	}
	return css
}

func fontCSS(f Font) string {
	var parts []string
	if f.Name != "" {
		parts = append(parts, "font-family:'"+f.Name+"'")
	}
	if f.Size > 0 {
		parts = append(parts, fmt.Sprintf("font-size:%dpt", f.Size))
	}
	if f.Bold {
		parts = append(parts, "font-weight:bold")
	}
	if f.Italic {
		parts = append(parts, "font-style:italic")
	}
	if f.Underline {
		parts = append(parts, "text-decoration:underline")
	}
	parts = append(parts, "color:#"+f.Color.RGB())
	return strings.Join(parts, ";")
}

func alignCSS(algn string) string {
	switch algn {
	case "ctr":
		return ";text-align:center"
	case "r":
		return ";text-align:right"
	case "just":
		return ";text-align:justify"
	}
	return ""
}

func elem(a atom.Atom, attrs map[string]string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: attrs[k]})
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func appendStyle(n *html.Node, css string) {
	for i := range n.Attr {
		if n.Attr[i].Key == "style" {
			n.Attr[i].Val += ";" + css
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: css})
}
