package domain

import "time"

// ItemKind distinguishes text snippets from stored files.
type ItemKind string

const (
	KindText ItemKind = "text"
	KindFile ItemKind = "file"
)

// Item is one entry of the shared feed.
//
// Items only live in process memory. They disappear on explicit
// delete, on clear, or when the process exits.
type Item struct {
	// ID is a random identifier, unrelated to the creation time.
	ID string

	Kind ItemKind

	// DeviceID references the submitting device. DeviceName and Color
	// are a snapshot of the device record taken at creation and are
	// relabelled in place when the device is renamed.
	DeviceID   string
	DeviceName string
	Color      string

	// CreatedAt is used for ordering and display only.
	CreatedAt time.Time

	Text *TextPayload
	File *FilePayload

	// Seq breaks ties between items sharing the same CreatedAt.
	Seq uint64
}

// TextPayload is the body of a text item.
type TextPayload struct {
	Content string
}

// FilePayload references a fully stored upload.
type FilePayload struct {
	StoredName   string
	OriginalName string
	MimeType     string
	Size         int64
}

// Timestamp returns CreatedAt as unix milliseconds.
func (i Item) Timestamp() int64 {
	return i.CreatedAt.UnixMilli()
}
