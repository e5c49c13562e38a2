package utils

import (
	"fmt"
	"os"
	"strconv"

	"training-crm-backend/config"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

var mailer *gomail.Dialer

// InitializeMailer sets up the SMTP dialer from the environment. Call once
// at startup, before any background worker can send.
func InitializeMailer() {
	mailHost := os.Getenv("SMTP_HOST")
	mailPort := os.Getenv("SMTP_PORT")
	mailUser := os.Getenv("SMTP_USER")
	mailPassword := os.Getenv("SMTP_PASSWORD")

	port, err := strconv.Atoi(mailPort)
	if err != nil {
		config.Logger.Error("Invalid SMTP_PORT value, defaulting to port 25",
			zap.String("provided_port", mailPort),
			zap.Error(err),
		)
		port = 25
	}

	mailer = gomail.NewDialer(mailHost, port, mailUser, mailPassword)
	config.Logger.Info("Mailer initialized successfully")
}

// GetMailer returns the initialized mailer
func GetMailer() *gomail.Dialer {
	return mailer
}

// SendEmail sends a plain notification email, optionally carrying a download
// link for a generated export file
func SendEmail(email string, message string, title string, downloadLink string) error {
	if mailer == nil {
		return fmt.Errorf("mailer is not initialized")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", os.Getenv("SMTP_FROM"))
	m.SetHeader("To", email)
	m.SetHeader("Subject", title)

	m.SetBody("text/plain", message)
	if downloadLink != "" {
		m.AddAlternative("text/html", fmt.Sprintf(`
		<html>
		<head>
			<meta charset="utf-8">
			<title>%s</title>
		</head>
		<body>
			<p>%s</p>
			<p><a href="%s">Download the file here</a></p>
		</body>
		</html>`, title, message, downloadLink))
	}

	if err := mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	config.Logger.Info("Email sent", zap.String("recipient", email), zap.String("subject", title))
	return nil
}
