package models

// UploadStatus is the lifecycle phase of a single file upload.
type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadUploading UploadStatus = "uploading"
	UploadSuccess   UploadStatus = "success"
	UploadError     UploadStatus = "error"
)

// UploadTask tracks one file of an upload batch.
type UploadTask struct {
	ID       string       `json:"id"`
	Filename string       `json:"filename"`
	Progress int          `json:"progress"`
	Status   UploadStatus `json:"status"`
	Error    string       `json:"error,omitempty"`
}

// Done reports whether the task reached a terminal status.
func (t UploadTask) Done() bool {
	return t.Status == UploadSuccess || t.Status == UploadError
}
