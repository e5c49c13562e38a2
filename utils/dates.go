package utils

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// DateLocation is the application's timezone
var DateLocation *time.Location

// InitializeDateLocation sets up the application's timezone
func InitializeDateLocation() error {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
		// Continue execution as env vars might be set in the system
	}

	timezone := os.Getenv("APP_TIMEZONE")
	if timezone == "" {
		timezone = "Africa/Johannesburg" // fallback default
	}

	var err error
	DateLocation, err = time.LoadLocation(timezone)
	return err
}

// NormalizeDate converts a time.Time to midnight in the application timezone
func NormalizeDate(t time.Time) time.Time {
	loc := DateLocation
	if loc == nil {
		loc = time.Local
	}
	year, month, day := t.In(loc).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// Today returns today's date normalized at midnight in the application timezone
func Today() time.Time {
	return NormalizeDate(time.Now())
}
