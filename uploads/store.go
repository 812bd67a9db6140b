// Package uploads stores admin-uploaded images on local disk and backs the
// upload directory up once a day.
package uploads

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/AymenMB/wud-sub001/apperrors"
)

var allowedTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

var unsafeChars = regexp.MustCompile(`[^\w\-.]`)

type Store struct {
	Dir         string
	PublicPath  string
	MaxFiles    int
	MaxFileSize int64
}

// SaveImages validates every file first, then writes them under subdir and
// returns their public urls in upload order.
func (s *Store) SaveImages(subdir string, files []*multipart.FileHeader) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > s.MaxFiles {
		return nil, apperrors.Invalid("images", fmt.Sprintf("at most %d files can be uploaded", s.MaxFiles))
	}
	for _, fh := range files {
		if err := s.check(fh); err != nil {
			return nil, err
		}
	}

	saveDir := filepath.Join(s.Dir, subdir)
	if err := os.MkdirAll(saveDir, os.ModePerm); err != nil {
		return nil, apperrors.Internal("failed to create upload folder", err)
	}

	urls := make([]string, 0, len(files))
	for _, fh := range files {
		filename := storedName(fh.Filename)
		if err := writeFile(fh, filepath.Join(saveDir, filename)); err != nil {
			for _, u := range urls {
				s.Remove(u)
			}
			return nil, apperrors.Internal("failed to save image", err)
		}
		urls = append(urls, path.Join(s.PublicPath, subdir, filename))
	}
	log.Printf("📁 Saved %d image(s) under %s", len(urls), saveDir)
	return urls, nil
}

func (s *Store) check(fh *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	want, ok := allowedTypes[ext]
	if !ok {
		return apperrors.Invalid("images", fmt.Sprintf("%s: only jpg, png and webp images are accepted", fh.Filename))
	}
	if fh.Size > s.MaxFileSize {
		return apperrors.Invalid("images", fmt.Sprintf("%s: larger than %d MB", fh.Filename, s.MaxFileSize>>20))
	}

	f, err := fh.Open()
	if err != nil {
		return apperrors.Internal("failed to read upload", err)
	}
	defer f.Close()
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return apperrors.Internal("failed to read upload", err)
	}
	if got := http.DetectContentType(head[:n]); got != want {
		return apperrors.Invalid("images", fmt.Sprintf("%s: content is %s, not an image of its extension", fh.Filename, got))
	}
	return nil
}

func storedName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	base = strings.ReplaceAll(base, " ", "_")
	base = unsafeChars.ReplaceAllString(base, "_")
	return fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), base, ext)
}

func writeFile(fh *multipart.FileHeader, dest string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return err
	}
	return out.Sync()
}

// Remove deletes the file behind a public url produced by SaveImages.
// Urls outside the public path are ignored.
func (s *Store) Remove(url string) {
	prefix := strings.TrimRight(s.PublicPath, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return
	}
	rel := filepath.FromSlash(strings.TrimPrefix(url, prefix))
	if strings.Contains(rel, "..") {
		return
	}
	if err := os.Remove(filepath.Join(s.Dir, rel)); err != nil && !os.IsNotExist(err) {
		log.Printf("⚠️ Failed to remove upload %s: %v", url, err)
	}
}
