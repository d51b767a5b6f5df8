package goslides

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Presentation is a parsed deck. Slides keep their source order; a slide
// that failed to parse occupies its index with Err set rather than being
// dropped, so one bad slide never loses the rest of the deck.
type Presentation struct {
	cfg    *Config
	pkg    *pkgReader
	pool   *MediaPool
	slides []*SlidePage

	slideWidth  int64 // EMU
	slideHeight int64
}

// ParseFile opens and parses a .pptx package.
func ParseFile(path string, cfg *Config) (*Presentation, error) {
	return ParseFileContext(context.Background(), path, cfg)
}

// ParseFileContext is ParseFile with a context governing external image
// conversion.
func ParseFileContext(ctx context.Context, path string, cfg *Config) (*Presentation, error) {
	if cfg == nil {
		cfg = NewConfig("")
	}
	if err := cfg.defaults(); err != nil {
		return nil, err
	}

	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext != "pptx" {
		return nil, &UnsupportedFormatError{Format: ext}
	}

	pkg, err := openPackage(path)
	if err != nil {
		return nil, err
	}

	p := &Presentation{
		cfg:         cfg,
		pkg:         pkg,
		pool:        newMediaPool(cfg.ImageDir()),
		slideWidth:  pkg.slideW,
		slideHeight: pkg.slideH,
	}

	for i, partName := range pkg.slideParts {
		slide := p.parseSlide(ctx, i, partName)
		p.slides = append(p.slides, slide)
	}
	return p, nil
}

// parseSlide parses one slide part. Failures are recorded on the returned
// slide, never propagated: the deck parse continues.
func (p *Presentation) parseSlide(ctx context.Context, index int, partName string) *SlidePage {
	slide := &SlidePage{
		Index:     index,
		LayoutRef: p.pkg.layoutRef(partName),
		partName:  partName,
	}

	data, err := p.pkg.part(partName)
	if err != nil {
		slide.Err = err
		p.cfg.Logger.Warn("slide parse failed", "slide", index, "part", partName, "err", err)
		return slide
	}

	raw, err := parseRawSlide(data)
	if err != nil {
		slide.Err = &MalformedSourceError{Part: partName, Err: err}
		p.cfg.Logger.Warn("slide parse failed", "slide", index, "part", partName, "err", err)
		return slide
	}
	slide.raw = raw

	cl := &classifier{
		ctx:        ctx,
		slideIndex: index,
		slidePart:  partName,
		pkg:        p.pkg,
		pool:       p.pool,
		conv:       p.cfg.Converter,
		logger:     p.cfg.Logger,
	}
	shapes, err := cl.classifySlide(raw)
	if err != nil {
		slide.Err = err
		p.cfg.Logger.Warn("slide parse failed", "slide", index, "part", partName, "err", err)
		return slide
	}
	slide.Shapes = shapes
	return slide
}

// Slides returns the deck's slides in source order, failed ones included.
func (p *Presentation) Slides() []*SlidePage { return p.slides }

// SlideCount returns the number of slides, failed ones included.
func (p *Presentation) SlideCount() int { return len(p.slides) }

// Slide returns the slide at the given 0-based index.
func (p *Presentation) Slide(index int) (*SlidePage, error) {
	if index < 0 || index >= len(p.slides) {
		return nil, fmt.Errorf("slide index %d out of range (deck has %d)", index, len(p.slides))
	}
	return p.slides[index], nil
}

// SlideSize returns the deck's slide dimensions in EMU.
func (p *Presentation) SlideSize() (width, height int64) {
	return p.slideWidth, p.slideHeight
}

// MediaPool returns the deck's extracted media.
func (p *Presentation) MediaPool() *MediaPool { return p.pool }

// Config returns the configuration the deck was parsed with.
func (p *Presentation) Config() *Config { return p.cfg }

// AppendClosure validates and records a deferred mutation against a slide.
func (p *Presentation) AppendClosure(slideIndex int, c Closure) error {
	slide, err := p.Slide(slideIndex)
	if err != nil {
		return err
	}
	return slide.AppendClosure(c)
}

// ExtractText returns the deck's visible text, slides separated by blank
// lines. Failed slides contribute nothing.
func (p *Presentation) ExtractText() string {
	var parts []string
	for _, s := range p.slides {
		if s.Failed() {
			continue
		}
		if t := s.ExtractText(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Validate reports structural problems with the deck: failed slides and
// closure logs referencing media the pool does not hold. An empty result
// means the deck is serializable.
func (p *Presentation) Validate() []error {
	var issues []error
	if len(p.slides) == 0 {
		issues = append(issues, fmt.Errorf("presentation has no slides"))
	}
	for _, s := range p.slides {
		if s.Failed() {
			issues = append(issues, fmt.Errorf("slide %d: %w", s.Index, s.Err))
			continue
		}
		s.Walk(func(sh ShapeElement) bool {
			if b := sh.Box(); b.Width < 0 || b.Height < 0 {
				issues = append(issues, fmt.Errorf("slide %d: shape %d has negative extent (%d x %d)",
					s.Index, sh.Identity().ID, b.Width, b.Height))
			}
			return true
		})
		for _, c := range s.Closures {
			if c.Kind == ClosureReplaceImage && !p.pool.Has(c.MediaKey) {
				issues = append(issues, &SerializationError{
					SlideIndex: s.Index,
					ShapeID:    c.TargetID,
					MediaKey:   c.MediaKey,
					Err:        fmt.Errorf("media key not in pool"),
				})
			}
		}
	}
	return issues
}
