package utils

import (
	"fmt"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// GetDownloadURL builds a download URL for a request, http in development
// and https in production
func GetDownloadURL(c *fiber.Ctx, filePath string) string {
	env := os.Getenv("APP_ENV")
	filePath = strings.TrimPrefix(filePath, "/")

	if env == "production" {
		return fmt.Sprintf("https://%s/%s", c.Hostname(), filePath)
	}
	return fmt.Sprintf("http://%s/%s", c.Hostname(), filePath)
}

// BuildPublicURL joins a served file path onto the configured base URL.
// Background workers use this since they have no request to derive a host
// from.
func BuildPublicURL(baseURL, filePath string) string {
	return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(filePath, "/")
}
