// Package metadata persists FileRecord rows: the relational side of an
// upload, keyed into the blob store by storage path. The blob engine itself
// never touches this layer; callers correlate path and metadata.
package metadata

import "time"

// Thumbnail is a tagged variant: either no thumbnail or a storage path.
// It replaces nullable-string checks scattered across call sites; rendering
// code matches on Path's second return value.
type Thumbnail struct {
	path string
	ok   bool
}

// NoThumbnail returns the absent variant.
func NoThumbnail() Thumbnail {
	return Thumbnail{}
}

// ThumbnailAt returns the variant referencing a stored thumbnail blob.
func ThumbnailAt(path string) Thumbnail {
	return Thumbnail{path: path, ok: true}
}

// Path returns the storage path and whether a thumbnail exists.
func (t Thumbnail) Path() (string, bool) {
	return t.path, t.ok
}

// FileRecord describes one uploaded file. StoragePath and Thumbnail are
// foreign references into the blob store. Deleted is a soft-delete flag on
// the metadata side only; it does not remove the underlying blob.
type FileRecord struct {
	ID          string
	Name        string
	Size        int64
	MimeType    string
	UploadDate  time.Time
	StoragePath string
	Thumbnail   Thumbnail
	Deleted     bool
}
