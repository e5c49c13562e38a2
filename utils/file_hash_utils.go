package utils

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"regexp"
	"strings"
)

// GenerateFileHash returns the MD5 hash of a file on disk, used to detect
// re-uploads of the same quote document
func GenerateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

var underscoreRuns = regexp.MustCompile(`_+`)

// CleanStringForFilename strips a string down to filename-safe characters
func CleanStringForFilename(input string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-':
			return '_'
		case r == '.':
			return '.'
		default:
			return -1
		}
	}, input)

	clean = underscoreRuns.ReplaceAllString(clean, "_")
	clean = strings.Trim(clean, "_")

	if clean == "" {
		clean = "file"
	}
	if len(clean) > 100 {
		clean = clean[:100]
	}
	return clean
}
