package email

import (
	"fmt"
	"net/smtp"
	"os"
)

type EmailService struct {
	host     string
	port     string
	user     string
	password string
	from     string
}

func NewEmailService() *EmailService {
	return &EmailService{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		user:     os.Getenv("SMTP_USER"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     os.Getenv("SMTP_FROM"),
	}
}

func (e *EmailService) SendInviteEmail(to, code string) error {
	domain := os.Getenv("DOMAIN")
	if domain == "" {
		domain = "http://localhost:8080"
	}

	signupLink := fmt.Sprintf("%s/signup?code=%s", domain, code)

	subject := "You're invited to Namesake"
	body := fmt.Sprintf(`Hi!

You've been invited to Namesake, a free tool for navigating the legal
name change process.

Use the link below to create your account:

%s

Or enter this early access code when signing up:

%s

If you weren't expecting this invitation, you can ignore this email.

---
Namesake
`, signupLink, code)

	message := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", e.from, to, subject, body)

	auth := smtp.PlainAuth("", e.user, e.password, e.host)
	addr := fmt.Sprintf("%s:%s", e.host, e.port)

	err := smtp.SendMail(addr, auth, e.from, []string{to}, []byte(message))
	if err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}

	return nil
}
