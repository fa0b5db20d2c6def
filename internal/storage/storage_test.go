package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-api/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		give    string
		want    string
		wantErr bool
	}{
		{give: "appeals/MDRPH001/doc.pdf", want: "appeals/MDRPH001/doc.pdf"},
		{give: "../../etc/passwd", want: "etc/passwd"},
		{give: `a\b\c.pdf`, want: "a/b/c.pdf"},
		{give: "/", wantErr: true},
		{give: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := cleanKey(tt.give)
		if tt.wantErr {
			assert.Error(t, err, tt.give)
			continue
		}
		require.NoError(t, err, tt.give)
		assert.Equal(t, tt.want, got)
	}
}

func TestFS_Put(t *testing.T) {
	root := t.TempDir()
	fs := NewFS(root)

	key, err := fs.Put(context.Background(), "appeals/MDRPH001/report.pdf", strings.NewReader("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "appeals/MDRPH001/report.pdf", key)

	b, err := os.ReadFile(filepath.Join(root, "appeals", "MDRPH001", "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(b))

	// overwrite in place
	_, err = fs.Put(context.Background(), "appeals/MDRPH001/report.pdf", strings.NewReader("v2"), "")
	require.NoError(t, err)
	b, err = os.ReadFile(filepath.Join(root, "appeals", "MDRPH001", "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(b))

	entries, err := os.ReadDir(filepath.Join(root, "appeals", "MDRPH001"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestFS_PutCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFS(t.TempDir()).Put(ctx, "x.pdf", strings.NewReader("x"), "")
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeUploader struct {
	input *s3manager.UploadInput
	body  string
	err   error
}

func (f *fakeUploader) UploadWithContext(_ aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	f.input = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	if f.err != nil {
		return nil, f.err
	}
	return &s3manager.UploadOutput{Location: "https://bucket.s3.amazonaws.com/" + aws.StringValue(in.Key)}, nil
}

func TestS3_Put(t *testing.T) {
	up := &fakeUploader{}
	loc, err := NewS3(up, "go-docs").Put(context.Background(), "/appeals/a.pdf", strings.NewReader("pdf"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/appeals/a.pdf", loc)
	assert.Equal(t, "go-docs", aws.StringValue(up.input.Bucket))
	assert.Equal(t, "application/pdf", aws.StringValue(up.input.ContentType))
	assert.Equal(t, "pdf", up.body)

	up.err = errors.New("access denied")
	_, err = NewS3(up, "go-docs").Put(context.Background(), "b.pdf", strings.NewReader("pdf"), "")
	assert.ErrorContains(t, err, "s3://go-docs/b.pdf")
}

func TestNew(t *testing.T) {
	b, err := New(&config.Config{StorageBackend: "fs", StorageDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FS{}, b)

	_, err = New(&config.Config{StorageBackend: "s3"})
	assert.ErrorContains(t, err, "S3_BUCKET")

	_, err = New(&config.Config{StorageBackend: "ftp"})
	assert.Error(t, err)
}
