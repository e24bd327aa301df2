package model

// ImageRecord is the in-memory state of one item's image.
// Reference is empty for a recorded miss. Ext is set once the stored file
// format has been confirmed on disk, so later lookups probe it first.
type ImageRecord struct {
	Reference string
	Ext       string
}
