package attachments

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var png = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

func TestDecode(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString(png)

	a, err := Decode(payload, "image/png", "nails.png", 1024)
	require.NoError(t, err)
	assert.Equal(t, png, a.Data)
	assert.Equal(t, "nails.png", a.FileName)

	a, err = Decode("data:image/jpeg;base64,"+payload, "", "../../etc/design", 0)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", a.MimeType)
	assert.Equal(t, "design.jpg", a.FileName)
}

func TestDecodeRejects(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString(png)

	_, err := Decode("", "image/png", "x.png", 0)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Decode(payload, "application/pdf", "x.pdf", 0)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Decode("%%%not-base64", "image/png", "x.png", 0)
	assert.ErrorIs(t, err, ErrInvalidEncoding)

	_, err = Decode(payload, "image/png", "x.png", 4)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestObjectName(t *testing.T) {
	name := ObjectName(Attachment{
		FileName:     "nails.png",
		CustomerName: "山田 花子",
		UploadedAt:   time.Date(2026, 11, 2, 4, 5, 6, 0, time.UTC),
	})
	assert.Equal(t, "予約_山田_花子_20261102T040506Z_nails.png", name)
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	if in.Body != nil {
		f.body, _ = io.ReadAll(in.Body)
	}
	return &s3.PutObjectOutput{}, f.err
}

func TestS3StorePut(t *testing.T) {
	client := &fakeS3{}
	store := NewS3Store(client, "salon-designs", "")

	link, err := store.Put(context.Background(), Attachment{
		FileName:     "nails.png",
		MimeType:     "image/png",
		Data:         png,
		CustomerName: "Hanako",
		UploadedAt:   time.Date(2026, 11, 2, 4, 5, 6, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "salon-designs", *client.input.Bucket)
	assert.Equal(t, "image/png", *client.input.ContentType)
	assert.True(t, strings.HasPrefix(*client.input.Key, "designs/2026/11/02/予約_Hanako_"))
	assert.Equal(t, png, client.body)
	assert.Equal(t, "s3://salon-designs/"+*client.input.Key, link)

	withBase := NewS3Store(client, "salon-designs", "https://cdn.example.com/")
	link, err = withBase.Put(context.Background(), Attachment{FileName: "a.png", MimeType: "image/png", Data: png})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://cdn.example.com/designs/"))
}

func TestS3StorePutError(t *testing.T) {
	store := NewS3Store(&fakeS3{err: errors.New("denied")}, "salon-designs", "")
	_, err := store.Put(context.Background(), Attachment{FileName: "a.png", MimeType: "image/png", Data: png})
	assert.Error(t, err)

	_, err = store.Put(context.Background(), Attachment{})
	assert.ErrorIs(t, err, ErrEmpty)
}

type fakeDrive struct {
	name, mimeType, folder string
	err                    error
}

func (f *fakeDrive) Upload(ctx context.Context, name, mimeType, folderID string, body io.Reader) (string, error) {
	f.name, f.mimeType, f.folder = name, mimeType, folderID
	if f.err != nil {
		return "", f.err
	}
	return "https://drive.google.com/file/d/abc/view", nil
}

func TestDriveStorePut(t *testing.T) {
	up := &fakeDrive{}
	store := newDriveStoreWithUploader(up, "folder-1")

	link, err := store.Put(context.Background(), Attachment{FileName: "a.png", MimeType: "image/png", Data: png, CustomerName: "Hanako"})
	require.NoError(t, err)
	assert.Equal(t, "https://drive.google.com/file/d/abc/view", link)
	assert.Equal(t, "folder-1", up.folder)
	assert.True(t, strings.HasPrefix(up.name, "予約_Hanako_"))

	_, err = newDriveStoreWithUploader(&fakeDrive{err: errors.New("quota")}, "folder-1").
		Put(context.Background(), Attachment{FileName: "a.png", MimeType: "image/png", Data: png})
	assert.Error(t, err)
}
