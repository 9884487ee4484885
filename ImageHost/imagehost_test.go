package ImageHost

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TeleCare/Models"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func TestImgBBUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "secret", r.FormValue("key"))
		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "scan.png", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, pngHeader, data)

		_, _ = w.Write([]byte(`{"data":{"url":"https://i.ibb.co/abc/scan.png"},"success":true,"status":200}`))
	}))
	defer srv.Close()

	url, err := NewImgBB("secret", srv.URL).Upload(context.Background(), "scan.png", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "https://i.ibb.co/abc/scan.png", url)
}

func TestImgBBUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status_code":400,"error":{"message":"Invalid API v1 key."},"success":false}`))
	}))
	defer srv.Close()

	_, err := NewImgBB("bad", srv.URL).Upload(context.Background(), "scan.png", pngHeader)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API v1 key.")
}

func TestImgBBWithoutKey(t *testing.T) {
	_, err := NewImgBB("", "http://unused").Upload(context.Background(), "scan.png", pngHeader)
	assert.ErrorIs(t, err, Models.ErrNotConfigured)
}

func TestDetectTypeRejectsNonImages(t *testing.T) {
	_, _, err := DetectType([]byte("%PDF-1.4 not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	ct, ext, err := DetectType(pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, ".png", ext)
}

type fakeS3 struct {
	input *s3.PutObjectInput
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	return &s3.PutObjectOutput{}, nil
}

func TestS3Upload(t *testing.T) {
	fake := &fakeS3{}
	uploader := newS3(fake, "telecare-media", "")

	url, err := uploader.Upload(context.Background(), "scan.png", pngHeader)
	require.NoError(t, err)
	require.NotNil(t, fake.input)
	assert.Equal(t, "telecare-media", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "image/png", aws.ToString(fake.input.ContentType))
	key := aws.ToString(fake.input.Key)
	assert.True(t, strings.HasPrefix(key, "media/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "https://telecare-media.s3.amazonaws.com/"+key, url)
}
