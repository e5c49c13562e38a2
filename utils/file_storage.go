package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"
)

// FileStorage persists uploaded documents, currently client quote files
type FileStorage interface {
	UploadQuote(file multipart.File, clientID uint, originalName string) (string, error)
	DeleteFile(filePath string) error
	FileExists(filePath string) (bool, error)
}

type LocalFileStorage struct {
	uploadPath string
}

func NewLocalFileStorage(uploadPath string) *LocalFileStorage {
	return &LocalFileStorage{uploadPath: uploadPath}
}

// UploadQuote stores a quote document under uploads/quotes/<client>/ with a
// timestamped, sanitized filename and returns the stored relative path.
// Re-uploads of a byte-identical document return the already stored path
// instead of keeping a second copy.
func (s *LocalFileStorage) UploadQuote(file multipart.File, clientID uint, originalName string) (string, error) {
	ext := filepath.Ext(originalName)
	base := CleanStringForFilename(originalName[:len(originalName)-len(ext)])
	fileName := fmt.Sprintf("%s_%d%s", base, time.Now().Unix(), ext)

	clientDir := filepath.Join("quotes", fmt.Sprintf("%d", clientID))
	relPath := filepath.Join(clientDir, fileName)
	fullPath := filepath.Join(s.uploadPath, relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to finalize file: %w", err)
	}

	if existing := s.findDuplicate(fullPath, fileName); existing != "" {
		os.Remove(fullPath)
		return filepath.Join(clientDir, existing), nil
	}

	return relPath, nil
}

// findDuplicate returns the name of a sibling file with the same content as
// newPath, or "" when none exists
func (s *LocalFileStorage) findDuplicate(newPath, newName string) string {
	newHash, err := GenerateFileHash(newPath)
	if err != nil {
		return ""
	}

	entries, err := os.ReadDir(filepath.Dir(newPath))
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == newName {
			continue
		}
		hash, err := GenerateFileHash(filepath.Join(filepath.Dir(newPath), entry.Name()))
		if err != nil {
			continue
		}
		if hash == newHash {
			return entry.Name()
		}
	}
	return ""
}

// DeleteFile removes a stored file; deleting a missing file is not an error
func (s *LocalFileStorage) DeleteFile(filePath string) error {
	fullPath := filepath.Join(s.uploadPath, filePath)

	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// FileExists checks whether a stored file is still on disk
func (s *LocalFileStorage) FileExists(filePath string) (bool, error) {
	fullPath := filepath.Join(s.uploadPath, filePath)

	_, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}
	return true, nil
}
