// Package goslides parses PowerPoint presentation packages (.pptx) into a
// typed, navigable model of slides and shapes that can be inspected, rendered
// to a layout-preserving HTML or raster rendition, edited through a deferred
// mutation log, and serialized back into a valid package.
//
// Parsing never mutates the source package; edits are recorded as Closures
// and replayed at save time, so untouched content round-trips byte-for-byte.
//
// See the Version variable for the current library version.
package goslides

import "fmt"

// Version information for the GoSlides library.
const (
	VersionMajor = 0
	VersionMinor = 1
	VersionPatch = 0
)

// Version is the full version string of the GoSlides library.
var Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)
