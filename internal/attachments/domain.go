package attachments

import "time"

// Attachment is a file stored against a task. Filename is the unique on-disk
// name; OriginalName is what the uploader called it.
type Attachment struct {
	ID           int64
	TaskID       int64
	Filename     string
	OriginalName string
	FileSize     int64
	MimeType     string
	UploadedBy   int64
	UploadedAt   time.Time
}
