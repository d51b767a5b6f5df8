package goslides

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// The package layer is the narrow collaborator wrapping the OOXML zip
// container: it opens a .pptx, enumerates slide parts in document order and
// resolves relationship ids to part bytes. It never interprets shape
// content; that is the classifier's job.

// maxPartSize is the maximum allowed size for a single part extracted from
// the container, guarding against zip bombs.
const maxPartSize = 50 << 20 // 50 MB

// maxPackageSize is the cumulative limit for all extracted content.
const maxPackageSize = 200 << 20 // 200 MB

// maxPartCount is the maximum number of parts allowed in a package.
const maxPartCount = 10000

// relationship is one entry of a .rels part.
type relationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

type xmlRelationships struct {
	XMLName       xml.Name       `xml:"Relationships"`
	Relationships []relationship `xml:"Relationship"`
}

const (
	relTypeSlide       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	relTypeSlideLayout = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	relTypeImage       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
)

// pkgReader holds a fully loaded package: every part's bytes plus the
// original part order, so an untouched part can be written back verbatim.
type pkgReader struct {
	path       string
	parts      map[string][]byte
	order      []string // zip entry order
	slideParts []string // slide part names in document order
	slideW     int64    // sldSz cx in EMU
	slideH     int64    // sldSz cy in EMU
}

// openPackage reads the package at path entirely into memory.
func openPackage(path string) (*pkgReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &MalformedSourceError{Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &MalformedSourceError{Err: err}
	}
	if info.Size() > maxPackageSize {
		return nil, &MalformedSourceError{Err: fmt.Errorf("package size %d exceeds maximum (%d bytes)", info.Size(), maxPackageSize)}
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, &MalformedSourceError{Err: err}
	}
	if len(zr.File) > maxPartCount {
		return nil, &MalformedSourceError{Err: fmt.Errorf("package contains too many parts (%d > %d)", len(zr.File), maxPartCount)}
	}

	p := &pkgReader{
		path:  path,
		parts: make(map[string][]byte, len(zr.File)),
	}
	var total int64
	for _, zf := range zr.File {
		if zf.UncompressedSize64 > maxPartSize {
			return nil, &MalformedSourceError{Part: zf.Name, Err: fmt.Errorf("part exceeds maximum size (%d bytes)", maxPartSize)}
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, &MalformedSourceError{Part: zf.Name, Err: err}
		}
		data, err := readAllLimited(rc, maxPartSize)
		rc.Close()
		if err != nil {
			return nil, &MalformedSourceError{Part: zf.Name, Err: err}
		}
		total += int64(len(data))
		if total > maxPackageSize {
			return nil, &MalformedSourceError{Err: fmt.Errorf("extracted content exceeds maximum (%d bytes)", int64(maxPackageSize))}
		}
		p.parts[zf.Name] = data
		p.order = append(p.order, zf.Name)
	}

	if err := p.readPresentationPart(); err != nil {
		return nil, err
	}
	return p, nil
}

// part returns a part's bytes, or a MalformedSourceError when absent.
func (p *pkgReader) part(name string) ([]byte, error) {
	data, ok := p.parts[name]
	if !ok {
		return nil, &MalformedSourceError{Part: name, Err: fmt.Errorf("part not found")}
	}
	return data, nil
}

// relationships parses the .rels part associated with partName.
// A missing .rels part yields an empty list, not an error.
func (p *pkgReader) relationships(partName string) ([]relationship, error) {
	relsName := path.Join(path.Dir(partName), "_rels", path.Base(partName)+".rels")
	data, ok := p.parts[relsName]
	if !ok {
		return nil, nil
	}
	var rels xmlRelationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, &MalformedSourceError{Part: relsName, Err: err}
	}
	return rels.Relationships, nil
}

// resolveTarget resolves a relationship target relative to the part that
// declared it (e.g. "../media/image1.png" from "ppt/slides/slide1.xml").
func resolveTarget(partName, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(partName), target)
}

// xmlPresentationPart is the subset of ppt/presentation.xml we need: the
// ordered slide id list and the slide size.
type xmlPresentationPart struct {
	SldIDs []struct {
		RID string `xml:"id,attr"`
	} `xml:"sldIdLst>sldId"`
	SldSz struct {
		CX int64 `xml:"cx,attr"`
		CY int64 `xml:"cy,attr"`
	} `xml:"sldSz"`
}

func (p *pkgReader) readPresentationPart() error {
	const presPart = "ppt/presentation.xml"
	data, err := p.part(presPart)
	if err != nil {
		return err
	}
	var pres xmlPresentationPart
	if err := xml.Unmarshal(data, &pres); err != nil {
		return &MalformedSourceError{Part: presPart, Err: err}
	}
	p.slideW = pres.SldSz.CX
	p.slideH = pres.SldSz.CY
	if p.slideW <= 0 || p.slideH <= 0 {
		// 4:3 default, same as a blank PowerPoint document
		p.slideW, p.slideH = 9144000, 6858000
	}

	rels, err := p.relationships(presPart)
	if err != nil {
		return err
	}
	byID := make(map[string]string, len(rels))
	for _, rel := range rels {
		if rel.Type == relTypeSlide {
			byID[rel.ID] = resolveTarget(presPart, rel.Target)
		}
	}
	for _, sld := range pres.SldIDs {
		if target, ok := byID[sld.RID]; ok {
			p.slideParts = append(p.slideParts, target)
		}
	}
	return nil
}

// media resolves an image relationship id declared by slidePart to the
// referenced bytes and lowercase extension.
func (p *pkgReader) media(slidePart, relID string) ([]byte, string, error) {
	rels, err := p.relationships(slidePart)
	if err != nil {
		return nil, "", err
	}
	for _, rel := range rels {
		if rel.ID != relID {
			continue
		}
		target := resolveTarget(slidePart, rel.Target)
		data, err := p.part(target)
		if err != nil {
			return nil, "", err
		}
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(target), "."))
		return data, ext, nil
	}
	return nil, "", &MalformedSourceError{Part: slidePart, Err: fmt.Errorf("relationship %s not found", relID)}
}

// layoutRef returns the slide layout part name the slide is based on, or ""
// when the slide declares none.
func (p *pkgReader) layoutRef(slidePart string) string {
	rels, err := p.relationships(slidePart)
	if err != nil {
		return ""
	}
	for _, rel := range rels {
		if rel.Type == relTypeSlideLayout {
			return resolveTarget(slidePart, rel.Target)
		}
	}
	return ""
}

func readAllLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("part exceeds size limit (%d bytes)", limit)
	}
	return data, nil
}
