package goslides

import "fmt"

// UnsupportedFormatError is returned when content reaches a consumer that
// must interpret an encoding it does not recognize. The classifier itself
// never returns it; only content consumers (media extraction, rendering) do.
type UnsupportedFormatError struct {
	Format string // file extension or element name, lowercase
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q", e.Format)
}

// DegenerateGroupGeometryError is returned when a group's children collapse
// to a zero-width or zero-height union, making the local-to-absolute scale
// undefined.
type DegenerateGroupGeometryError struct {
	SlideIndex int
	ShapeID    int
	GroupName  string
}

func (e *DegenerateGroupGeometryError) Error() string {
	return fmt.Sprintf("slide %d: group shape %d (%q) has zero-extent child bounds",
		e.SlideIndex, e.ShapeID, e.GroupName)
}

// UnknownTargetError is returned when a closure addresses a shape id that is
// not present in the target slide's shape forest.
type UnknownTargetError struct {
	SlideIndex int
	ShapeID    int
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("slide %d: no shape with id %d", e.SlideIndex, e.ShapeID)
}

// ConversionFailedError is returned when the external image converter
// exhausted its retry budget.
type ConversionFailedError struct {
	SourceFormat string
	TargetFormat string
	Attempts     int
	Err          error
}

func (e *ConversionFailedError) Error() string {
	return fmt.Sprintf("converting %s to %s failed after %d attempts: %v",
		e.SourceFormat, e.TargetFormat, e.Attempts, e.Err)
}

func (e *ConversionFailedError) Unwrap() error { return e.Err }

// SerializationError is returned when saving fails: a shape references a
// media key absent from the pool, or the package writer reports an error.
type SerializationError struct {
	SlideIndex int
	ShapeID    int
	MediaKey   string
	Err        error
}

func (e *SerializationError) Error() string {
	if e.MediaKey != "" {
		return fmt.Sprintf("slide %d: shape %d references missing media key %q",
			e.SlideIndex, e.ShapeID, e.MediaKey)
	}
	return fmt.Sprintf("slide %d: serialization failed: %v", e.SlideIndex, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// MalformedSourceError is returned when the package collaborator reports
// corrupt input: a broken zip container, a missing required part, or a part
// that does not parse as XML.
type MalformedSourceError struct {
	Part string
	Err  error
}

func (e *MalformedSourceError) Error() string {
	if e.Part != "" {
		return fmt.Sprintf("malformed package part %s: %v", e.Part, e.Err)
	}
	return fmt.Sprintf("malformed package: %v", e.Err)
}

func (e *MalformedSourceError) Unwrap() error { return e.Err }
