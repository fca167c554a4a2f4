package service

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stemsi/quizdesk/internal/model"
)

// Sentinel errors for document uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// Document types the extraction endpoint accepts.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
}

// MediaService reads uploaded documents for question extraction.
type MediaService struct {
	maxBytes int64
}

// NewMediaService creates a MediaService that rejects files above maxBytes.
func NewMediaService(maxBytes int64) *MediaService {
	return &MediaService{maxBytes: maxBytes}
}

// ReadUploads checks each upload's type and size and reads it into memory.
func (s *MediaService) ReadUploads(headers []*multipart.FileHeader) ([]model.UploadFile, error) {
	files := make([]model.UploadFile, 0, len(headers))
	for _, header := range headers {
		f, err := s.readUpload(header)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func (s *MediaService) readUpload(header *multipart.FileHeader) (model.UploadFile, error) {
	name := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return model.UploadFile{}, fmt.Errorf("%w: %s (allowed: %s)",
			ErrUnsupportedFileType, name, strings.Join(allowedTypes(), ", "))
	}
	if s.maxBytes > 0 && header.Size > s.maxBytes {
		return model.UploadFile{}, fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, s.maxBytes)
	}

	src, err := header.Open()
	if err != nil {
		return model.UploadFile{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return model.UploadFile{}, fmt.Errorf("read upload: %w", err)
	}
	return model.UploadFile{Name: name, Content: content}, nil
}

func allowedTypes() []string {
	types := make([]string, 0, len(allowedExtensions))
	for t := range allowedExtensions {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
