package core

import (
	"context"
	"io"

	"tfshrms.cloud/hrms/infrastructure/communication"
)

// Upload directories inside the file store.
const (
	TrackerFilesDir = "tracker_uploads"
	ProjectFilesDir = "project_files"
)

// FileStore keeps uploaded files. Put returns the stored name.
type FileStore interface {
	Put(ctx context.Context, dir, name string, body io.Reader) (string, error)
	Delete(ctx context.Context, dir, name string) error
	URL(dir, name string) string
}

type Mailer interface {
	SendEmail(ctx context.Context, info *communication.EmailInfo) error
}

// Upload is a file received from a client.
type Upload struct {
	Name string
	Body io.Reader
}
