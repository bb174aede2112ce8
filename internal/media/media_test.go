package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var imagePathPattern = regexp.MustCompile(`^uploads/movies/the-cherry-orchard-[0-9a-f-]{36}\.png$`)

func TestImagePath(t *testing.T) {
	p := ImagePath("The Cherry Orchard", "Poster.PNG")
	assert.Regexp(t, imagePathPattern, p)

	assert.NotEqual(t, p, ImagePath("The Cherry Orchard", "Poster.PNG"))
	assert.False(t, strings.Contains(ImagePath("Play", "noext"), "."))
}

func TestLocalStorageSave(t *testing.T) {
	dir := t.TempDir()
	s := &LocalStorage{Dir: dir, BaseURL: "/media/"}

	ref, err := s.Save(context.Background(), "uploads/movies/x.png", strings.NewReader("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/media/uploads/movies/x.png", ref)

	data, err := os.ReadFile(filepath.Join(dir, "uploads", "movies", "x.png"))
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))
}

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(params.Body)
	args := m.Called(aws.ToString(params.Bucket), aws.ToString(params.Key), string(body), aws.ToString(params.ContentType))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func TestS3StorageSave(t *testing.T) {
	client := new(mockS3)
	s := &S3Storage{Client: client, Bucket: "posters", Region: "eu-west-1"}

	client.On("PutObject", "posters", "uploads/movies/x.png", "img", "image/png").Return(&s3.PutObjectOutput{}, nil)

	ref, err := s.Save(context.Background(), "uploads/movies/x.png", strings.NewReader("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://posters.s3.eu-west-1.amazonaws.com/uploads/movies/x.png", ref)
	client.AssertExpectations(t)
}

func TestS3StorageSaveError(t *testing.T) {
	client := new(mockS3)
	s := &S3Storage{Client: client, Bucket: "posters", Region: "eu-west-1"}

	client.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	_, err := s.Save(context.Background(), "k", strings.NewReader(""), "image/png")
	assert.ErrorContains(t, err, "access denied")
}
