package attachments

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type driveUploader interface {
	Upload(ctx context.Context, name, mimeType, folderID string, body io.Reader) (link string, err error)
}

// DriveStore uploads attachments into one Drive folder.
type DriveStore struct {
	uploader driveUploader
	folderID string
}

// NewDriveStore builds a Drive-backed store.
func NewDriveStore(ctx context.Context, folderID string, opts ...option.ClientOption) (*DriveStore, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("attachments: drive client: %w", err)
	}
	return &DriveStore{uploader: driveFiles{svc: svc}, folderID: folderID}, nil
}

func newDriveStoreWithUploader(u driveUploader, folderID string) *DriveStore {
	return &DriveStore{uploader: u, folderID: folderID}
}

func (d *DriveStore) Put(ctx context.Context, a Attachment) (string, error) {
	if len(a.Data) == 0 {
		return "", ErrEmpty
	}
	if a.UploadedAt.IsZero() {
		a.UploadedAt = time.Now()
	}
	link, err := d.uploader.Upload(ctx, ObjectName(a), a.MimeType, d.folderID, bytes.NewReader(a.Data))
	if err != nil {
		return "", fmt.Errorf("attachments: drive upload: %w", err)
	}
	return link, nil
}

type driveFiles struct {
	svc *drive.Service
}

func (f driveFiles) Upload(ctx context.Context, name, mimeType, folderID string, body io.Reader) (string, error) {
	file := &drive.File{Name: name, MimeType: mimeType}
	if folderID != "" {
		file.Parents = []string{folderID}
	}
	created, err := f.svc.Files.Create(file).
		Media(body, googleapi.ContentType(mimeType)).
		Fields("id", "webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if created.WebViewLink != "" {
		return created.WebViewLink, nil
	}
	return "https://drive.google.com/file/d/" + created.Id + "/view", nil
}
