package goslides

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

const (
	maxFontScanDepth = 3
	maxFontFileSize  = 20 << 20 // 20 MB
)

type faceKey struct {
	name   string
	size   float64
	bold   bool
	italic bool
}

// FontCache loads TrueType/OpenType fonts from system and user directories
// and caches rendered faces for the raster preview. Directory scanning is
// lazy: nothing is read from disk until the first face lookup.
type FontCache struct {
	mu      sync.RWMutex
	dirs    []string
	fonts   map[string]*opentype.Font // lowercase family or file name
	faces   map[faceKey]font.Face
	scanned bool
}

// NewFontCache creates a cache searching the given directories in addition
// to the OS font directories.
func NewFontCache(extraDirs ...string) *FontCache {
	return &FontCache{
		dirs:  append(systemFontDirs(), extraDirs...),
		fonts: make(map[string]*opentype.Font),
		faces: make(map[faceKey]font.Face),
	}
}

// GetFace returns a rendering face for the font, or nil when no matching
// font file is installed.
func (fc *FontCache) GetFace(name string, sizePt float64, bold, italic bool) font.Face {
	fc.ensureScanned()

	key := faceKey{name: strings.ToLower(name), size: sizePt, bold: bold, italic: italic}
	fc.mu.RLock()
	if face, ok := fc.faces[key]; ok {
		fc.mu.RUnlock()
		return face
	}
	fc.mu.RUnlock()

	f := fc.findFont(key.name, bold, italic)
	if f == nil {
		return nil
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    sizePt,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil
	}

	fc.mu.Lock()
	fc.faces[key] = face
	fc.mu.Unlock()
	return face
}

// LoadFont registers a font file under the given name, bypassing the
// directory scan.
func (fc *FontCache) LoadFont(name, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > maxFontFileSize {
		return fmt.Errorf("font file too large: %d bytes (max %d)", info.Size(), maxFontFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return err
	}
	fc.mu.Lock()
	fc.fonts[strings.ToLower(name)] = f
	fc.registerFamily(f)
	fc.mu.Unlock()
	return nil
}

// findFont resolves a lowercase font name, trying filename style suffixes
// ("arialbd", "arial bold") before the base name.
func (fc *FontCache) findFont(lower string, bold, italic bool) *opentype.Font {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	var suffixes []string
	switch {
	case bold && italic:
		suffixes = []string{" bold italic", "bi", "z"}
	case bold:
		suffixes = []string{" bold", "bd", "b"}
	case italic:
		suffixes = []string{" italic", "i"}
	}
	for _, s := range suffixes {
		if f, ok := fc.fonts[lower+s]; ok {
			return f
		}
	}
	if f, ok := fc.fonts[lower]; ok {
		return f
	}
	if alias, ok := cjkFontAliases[lower]; ok {
		for _, s := range suffixes {
			if f, ok := fc.fonts[alias+s]; ok {
				return f
			}
		}
		if f, ok := fc.fonts[alias]; ok {
			return f
		}
	}
	return nil
}

func (fc *FontCache) ensureScanned() {
	fc.mu.RLock()
	scanned := fc.scanned
	fc.mu.RUnlock()
	if scanned {
		return
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.scanned {
		return
	}
	fc.scanned = true
	for _, dir := range fc.dirs {
		fc.scanDir(dir, 0)
	}
}

func (fc *FontCache) scanDir(dir string, depth int) {
	if depth > maxFontScanDepth {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			fc.scanDir(filepath.Join(dir, entry.Name()), depth+1)
			continue
		}
		lower := strings.ToLower(entry.Name())
		isColl := strings.HasSuffix(lower, ".ttc") || strings.HasSuffix(lower, ".otc")
		isSingle := strings.HasSuffix(lower, ".ttf") || strings.HasSuffix(lower, ".otf")
		if !isColl && !isSingle {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() > maxFontFileSize {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		base := strings.TrimSuffix(lower, filepath.Ext(lower))
		if isColl {
			coll, err := opentype.ParseCollection(data)
			if err != nil {
				continue
			}
			for i := 0; i < coll.NumFonts(); i++ {
				f, err := coll.Font(i)
				if err != nil {
					continue
				}
				if i == 0 {
					fc.fonts[base] = f
				}
				fc.registerFamily(f)
			}
			continue
		}
		f, err := opentype.Parse(data)
		if err != nil {
			continue
		}
		fc.fonts[base] = f
		fc.registerFamily(f)
	}
}

// registerFamily also indexes a font under its internal family and full
// names, which is how slide XML usually references it.
func (fc *FontCache) registerFamily(f *opentype.Font) {
	if family, err := f.Name(nil, sfnt.NameIDFamily); err == nil && family != "" {
		fc.fonts[strings.ToLower(family)] = f
	}
	if full, err := f.Name(nil, sfnt.NameIDFull); err == nil && full != "" {
		fc.fonts[strings.ToLower(full)] = f
	}
}

// cjkFontAliases maps CJK font names to the English family names they are
// installed under, so decks authored with localized font names still find
// their files.
var cjkFontAliases = map[string]string{
	"宋体":   "simsun",
	"黑体":   "simhei",
	"微软雅黑": "microsoft yahei",
	"楷体":   "kaiti",
	"仿宋":   "fangsong",
	"新宋体":  "nsimsun",
	"等线":   "dengxian",
	"隶书":   "lisu",
	"幼圆":   "youyuan",
}

func systemFontDirs() []string {
	switch runtime.GOOS {
	case "windows":
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		dirs := []string{filepath.Join(windir, "Fonts")}
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			dirs = append(dirs, filepath.Join(local, "Microsoft", "Windows", "Fonts"))
		}
		return dirs
	case "darwin":
		dirs := []string{"/System/Library/Fonts", "/Library/Fonts"}
		if home, _ := os.UserHomeDir(); home != "" {
			dirs = append(dirs, filepath.Join(home, "Library", "Fonts"))
		}
		return dirs
	default:
		dirs := []string{"/usr/share/fonts", "/usr/local/share/fonts"}
		if home, _ := os.UserHomeDir(); home != "" {
			dirs = append(dirs, filepath.Join(home, ".local", "share", "fonts"), filepath.Join(home, ".fonts"))
		}
		return dirs
	}
}
