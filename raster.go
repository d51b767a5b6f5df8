package goslides

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImageFormat represents the raster output format.
type ImageFormat int

const (
	ImageFormatPNG ImageFormat = iota
	ImageFormatJPEG
)

// RasterOptions configures slide-to-image rendering.
type RasterOptions struct {
	// Width is the output image width in pixels. Height follows the slide
	// aspect ratio. Default: 960.
	Width int
	// Format is the output image format.
	Format ImageFormat
	// JPEGQuality is the JPEG quality (1-100). Default: 90.
	JPEGQuality int
	// DPI is the rendering DPI for font sizing. Default: 96.
	DPI float64
	// FontDirs adds directories to the font search path; system font
	// directories are always searched.
	FontDirs []string
	// FontCache shares a pre-warmed cache across renders.
	FontCache *FontCache
}

// DefaultRasterOptions returns default rendering options.
func DefaultRasterOptions() *RasterOptions {
	return &RasterOptions{
		Width:       960,
		Format:      ImageFormatPNG,
		JPEGQuality: 90,
		DPI:         96,
	}
}

// SlideToImage renders one slide to a raster preview. The closure log is
// applied to the rendered output, the parsed model stays untouched. A
// failed slide renders as a blank frame.
func (p *Presentation) SlideToImage(slideIndex int, opts *RasterOptions) (image.Image, error) {
	s, err := p.Slide(slideIndex)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = DefaultRasterOptions()
	}
	imgW := opts.Width
	if imgW <= 0 {
		imgW = 960
	}

	slideW := float64(p.slideWidth)
	slideH := float64(p.slideHeight)
	imgH := int(float64(imgW) * slideH / slideW)

	img := image.NewRGBA(image.Rect(0, 0, imgW, imgH))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	if s.Failed() {
		return img, nil
	}

	render := s
	if len(s.Closures) > 0 {
		applied, aerr := s.applied(p.pool, replayOptions{})
		if aerr != nil {
			return nil, aerr
		}
		render = applied
	}

	r := &rasterizer{
		img:    img,
		pool:   p.pool,
		scaleX: float64(imgW) / slideW,
		scaleY: float64(imgH) / slideH,
		fonts:  opts.FontCache,
		dpi:    opts.DPI,
	}
	if r.fonts == nil {
		r.fonts = NewFontCache(opts.FontDirs...)
	}
	if r.dpi <= 0 {
		r.dpi = 96
	}

	render.Walk(func(sh ShapeElement) bool {
		r.drawShape(sh)
		return true
	})
	return img, nil
}

// SaveSlideImage renders a slide and writes it to a file.
func (p *Presentation) SaveSlideImage(slideIndex int, path string, opts *RasterOptions) error {
	img, err := p.SlideToImage(slideIndex, opts)
	if err != nil {
		return err
	}
	return saveImage(img, path, opts)
}

func saveImage(img image.Image, path string, opts *RasterOptions) error {
	if opts == nil {
		opts = DefaultRasterOptions()
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	switch opts.Format {
	case ImageFormatJPEG:
		quality := opts.JPEGQuality
		if quality <= 0 || quality > 100 {
			quality = 90
		}
		return jpeg.Encode(f, img, &jpeg.Options{Quality: quality})
	default:
		return png.Encode(f, img)
	}
}

// --- rasterizer ---

type rasterizer struct {
	img    *image.RGBA
	pool   *MediaPool
	scaleX float64
	scaleY float64
	fonts  *FontCache
	dpi    float64
}

func (r *rasterizer) drawShape(sh ShapeElement) {
	// Boxes are absolute after group normalization, so every shape draws
	// directly into slide space; group containers themselves draw nothing.
	switch v := sh.(type) {
	case *GroupShape:
	case *TextBox:
		r.drawFrameShape(sh, &v.Frame)
	case *Placeholder:
		r.drawFrameShape(sh, &v.Frame)
	case *FreeShape:
		r.drawFrameShape(sh, v.Frame)
	case *Picture:
		r.drawPicture(sh, v)
	case *SemanticPicture:
		r.drawPicture(sh, &v.Picture)
	case *LineShape:
		r.drawLineShape(sh)
	default:
		rect := r.pixelRect(sh.Box())
		r.strokeRect(rect, color.RGBA{R: 200, G: 200, B: 200, A: 255}, 1)
	}
}

func (r *rasterizer) pixelRect(b BoundingBox) image.Rectangle {
	x := int(float64(b.Left) * r.scaleX)
	y := int(float64(b.Top) * r.scaleY)
	w := int(float64(b.Width) * r.scaleX)
	h := int(float64(b.Height) * r.scaleY)
	return image.Rect(x, y, x+w, y+h)
}

func rgba(c Color) color.RGBA {
	return color.RGBA{R: c.GetRed(), G: c.GetGreen(), B: c.GetBlue(), A: c.GetAlpha()}
}

func (r *rasterizer) drawFrameShape(sh ShapeElement, frame *TextFrame) {
	rect := r.pixelRect(sh.Box())
	st := sh.Style()
	if st.Fill != nil && st.Fill.Kind == FillSolid {
		draw.Draw(r.img, rect, &image.Uniform{rgba(st.Fill.Color)}, image.Point{}, draw.Over)
	}
	if st.Line != nil {
		pw := int(float64(st.Line.Width) / float64(emuPerPoint) * r.dpi / 72.0)
		if pw < 1 {
			pw = 1
		}
		r.strokeRect(rect, rgba(st.Line.Color), pw)
	}
	if frame != nil {
		r.drawParagraphs(frame.Paragraphs, rect)
	}
}

func (r *rasterizer) drawPicture(sh ShapeElement, pic *Picture) {
	rect := r.pixelRect(sh.Box())
	data, err := r.pool.Get(pic.MediaKey)
	if err != nil {
		r.strokeRect(rect, color.RGBA{R: 200, G: 200, B: 200, A: 255}, 1)
		return
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		r.strokeRect(rect, color.RGBA{R: 200, G: 200, B: 200, A: 255}, 1)
		return
	}
	draw.Draw(r.img, rect, scaleImage(src, rect.Dx(), rect.Dy()), image.Point{}, draw.Over)
}

func (r *rasterizer) drawLineShape(sh ShapeElement) {
	b := sh.Box()
	x1 := int(float64(b.Left) * r.scaleX)
	y1 := int(float64(b.Top) * r.scaleY)
	x2 := int(float64(b.Right()) * r.scaleX)
	y2 := int(float64(b.Bottom()) * r.scaleY)
	stroke := rgba(ColorBlack)
	if line := sh.Style().Line; line != nil {
		stroke = rgba(line.Color)
	}
	r.drawLine(x1, y1, x2, y2, stroke)
}

// --- drawing primitives ---

func (r *rasterizer) strokeRect(rect image.Rectangle, c color.RGBA, width int) {
	for i := 0; i < width; i++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			r.setPixel(x, rect.Min.Y+i, c)
			r.setPixel(x, rect.Max.Y-1-i, c)
		}
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			r.setPixel(rect.Min.X+i, y, c)
			r.setPixel(rect.Max.X-1-i, y, c)
		}
	}
}

// drawLine uses Bresenham's algorithm.
func (r *rasterizer) drawLine(x1, y1, x2, y2 int, c color.RGBA) {
	dx := absInt(x2 - x1)
	dy := absInt(y2 - y1)
	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		r.setPixel(x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func (r *rasterizer) setPixel(x, y int, c color.RGBA) {
	bounds := r.img.Bounds()
	if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
		r.img.SetRGBA(x, y, c)
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// --- text rendering ---

func (r *rasterizer) face(f Font) font.Face {
	sizePt := float64(f.Size)
	if sizePt <= 0 {
		sizePt = 10
	}
	scaledPt := sizePt * r.scaleY * r.dpi / 72.0

	name := f.Name
	if name == "" {
		name = "Calibri"
	}
	if face := r.fonts.GetFace(name, scaledPt, f.Bold, f.Italic); face != nil {
		return face
	}
	for _, fallback := range []string{"arial", "helvetica", "dejavu sans", "liberation sans", "noto sans"} {
		if face := r.fonts.GetFace(fallback, scaledPt, f.Bold, f.Italic); face != nil {
			return face
		}
	}
	return basicfont.Face7x13
}

type styledRun struct {
	text  string
	face  font.Face
	color color.RGBA
}

type textLine struct {
	runs      []styledRun
	width     int
	height    int
	alignment string
}

func buildTextLine(runs []styledRun, align string) textLine {
	totalW := 0
	maxH := 0
	for _, sr := range runs {
		totalW += font.MeasureString(sr.face, sr.text).Ceil()
		if h := sr.face.Metrics().Height.Ceil(); h > maxH {
			maxH = h
		}
	}
	if maxH <= 0 {
		maxH = 14
	}
	return textLine{runs: runs, width: totalW, height: maxH, alignment: align}
}

func (r *rasterizer) drawParagraphs(paragraphs []*Paragraph, rect image.Rectangle) {
	x, y := rect.Min.X, rect.Min.Y
	w, h := rect.Dx(), rect.Dy()

	var lines []textLine
	for _, para := range paragraphs {
		var runs []styledRun
		for _, run := range para.Runs {
			if run.Text == "" {
				continue
			}
			runs = append(runs, styledRun{
				text:  run.Text,
				face:  r.face(run.Font),
				color: rgba(run.Font.Color),
			})
		}
		if len(runs) > 0 {
			lines = append(lines, buildTextLine(runs, para.Alignment))
		} else {
			lines = append(lines, textLine{height: 14, alignment: para.Alignment})
		}
	}

	var wrapped []textLine
	for _, line := range lines {
		if line.width <= w || w <= 0 || len(line.runs) == 0 {
			wrapped = append(wrapped, line)
			continue
		}
		wrapped = append(wrapped, wrapLine(line, w)...)
	}

	curY := y
	for _, line := range wrapped {
		curY += line.height
		if curY > y+h {
			break
		}
		drawX := x
		switch line.alignment {
		case "ctr":
			drawX = x + (w-line.width)/2
		case "r":
			drawX = x + w - line.width
		}
		for _, run := range line.runs {
			d := &font.Drawer{
				Dst:  r.img,
				Src:  &image.Uniform{run.color},
				Face: run.face,
				Dot:  fixed.P(drawX, curY),
			}
			d.DrawString(run.text)
			drawX += font.MeasureString(run.face, run.text).Ceil()
		}
	}
}

// wrapLine word-wraps a line into segments that fit within maxWidth.
func wrapLine(line textLine, maxWidth int) []textLine {
	type styledWord struct {
		word  string
		face  font.Face
		color color.RGBA
	}
	var words []styledWord
	for _, run := range line.runs {
		for i, w := range strings.Fields(run.text) {
			if i > 0 {
				w = " " + w
			}
			words = append(words, styledWord{word: w, face: run.face, color: run.color})
		}
	}
	if len(words) == 0 {
		return []textLine{line}
	}

	var result []textLine
	var curRuns []styledRun
	curWidth := 0
	for _, sw := range words {
		ww := font.MeasureString(sw.face, sw.word).Ceil()
		if curWidth+ww > maxWidth && curWidth > 0 {
			result = append(result, buildTextLine(curRuns, line.alignment))
			curRuns = nil
			curWidth = 0
			sw.word = strings.TrimLeft(sw.word, " ")
			ww = font.MeasureString(sw.face, sw.word).Ceil()
		}
		curRuns = append(curRuns, styledRun{text: sw.word, face: sw.face, color: sw.color})
		curWidth += ww
	}
	if len(curRuns) > 0 {
		result = append(result, buildTextLine(curRuns, line.alignment))
	}
	return result
}

// scaleImage scales an image to the target size using nearest-neighbor.
func scaleImage(src image.Image, dstW, dstH int) image.Image {
	if dstW <= 0 || dstH <= 0 {
		return src
	}
	srcBounds := src.Bounds()
	srcW, srcH := srcBounds.Dx(), srcBounds.Dy()
	if srcW == 0 || srcH == 0 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	for y := 0; y < dstH; y++ {
		for x := 0; x < dstW; x++ {
			dst.Set(x, y, src.At(srcBounds.Min.X+x*srcW/dstW, srcBounds.Min.Y+y*srcH/dstH))
		}
	}
	return dst
}
