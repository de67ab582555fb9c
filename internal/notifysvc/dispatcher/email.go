package dispatcher

import (
	"context"
	"fmt"
	"net/smtp"
	"os"

	"github.com/smms/canteen-services/internal/canteensvc/models"
)

// EmailSender mails the notification to recipients that have an email
// address on file.
type EmailSender struct {
	Host string
	Port string
	From string
	auth smtp.Auth
}

func NewEmailSender() *EmailSender {
	host := os.Getenv("SMTP_HOST")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASSWORD")

	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}

	return &EmailSender{
		Host: host,
		Port: os.Getenv("SMTP_PORT"),
		From: os.Getenv("SMTP_FROM"),
		auth: auth,
	}
}

func (s *EmailSender) Name() string { return "email" }

func (s *EmailSender) Applies(recipient *models.User) bool {
	return recipient.Email != "" && s.Host != ""
}

func (s *EmailSender) Send(ctx context.Context, recipient *models.User, n *models.Notification) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.From, recipient.Email, n.Title, n.Message)

	addr := s.Host + ":" + s.Port
	return smtp.SendMail(addr, s.auth, s.From, []string{recipient.Email}, []byte(msg))
}
