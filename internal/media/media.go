package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const ImageDir = "uploads/movies"

// Storage persists an uploaded object under key and returns the reference
// stored on the owning record.
type Storage interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

// ImagePath builds uploads/movies/{slugified-title}-{random-id}.{ext} from the
// play title and the uploaded file name.
func ImagePath(title, filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	name := fmt.Sprintf("%s-%s", slug.Make(title), uuid.NewString())
	if ext != "" {
		name += "." + ext
	}
	return path.Join(ImageDir, name)
}

// LocalStorage writes objects below Dir and serves them from BaseURL.
type LocalStorage struct {
	Dir     string
	BaseURL string
}

func (s *LocalStorage) Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	target := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create media file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	return strings.TrimRight(s.BaseURL, "/") + "/" + key, nil
}
