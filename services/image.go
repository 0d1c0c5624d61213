package services

import (
	"fmt"
	"io"
	"path"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Upload is an image submitted with a post form.
type Upload struct {
	Name   string
	Size   int64
	Reader io.Reader
}

type imageBlob struct {
	data []byte
	ext  string
}

var allowedImageTypes = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/svg+xml": ".svg",
	"image/webp":    ".webp",
}

// readImage loads an upload of at most maxBytes and checks its sniffed type.
func readImage(u *Upload, maxBytes int64) (*imageBlob, string) {
	tooBig := fmt.Sprintf("may not be greater than %d kilobytes", maxBytes/1024)
	if u.Size > maxBytes {
		return nil, tooBig
	}
	data, err := io.ReadAll(io.LimitReader(u.Reader, maxBytes+1))
	if err != nil {
		return nil, "could not be read"
	}
	if int64(len(data)) > maxBytes {
		return nil, tooBig
	}
	if len(data) == 0 {
		return nil, "must be an image"
	}
	mt := mimetype.Detect(data)
	for mime, ext := range allowedImageTypes {
		if mt.Is(mime) {
			return &imageBlob{data: data, ext: ext}, ""
		}
	}
	return nil, "must be a file of type: jpeg, jpg, png, gif, svg, webp"
}

func imageKey(postID uint, ext string) string {
	return path.Join("posts", fmt.Sprint(postID), uuid.NewString()+ext)
}
