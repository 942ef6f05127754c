package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxUploadSize bounds a multipart request body (50 MB).
const MaxUploadSize = 50 << 20

// UploadedFile is an opened multipart file part.
type UploadedFile struct {
	Name string
	Body io.ReadCloser
}

// FormFiles opens every file sent under field. Callers must CloseFiles.
func FormFiles(c *gin.Context, field string) ([]UploadedFile, error) {
	if c.Request.MultipartForm == nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)
		if err := c.Request.ParseMultipartForm(MaxUploadSize); err != nil {
			if errors.Is(err, http.ErrNotMultipart) {
				return nil, nil
			}
			return nil, err
		}
	}

	form := c.Request.MultipartForm
	files := []UploadedFile{}
	for _, header := range form.File[field] {
		f, err := header.Open()
		if err != nil {
			CloseFiles(files)
			return nil, err
		}
		files = append(files, UploadedFile{Name: header.Filename, Body: f})
	}
	return files, nil
}

func CloseFiles(files []UploadedFile) {
	for _, f := range files {
		f.Body.Close()
	}
}
