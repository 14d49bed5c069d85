package services

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
)

// EmailService sends transactional mail over plain SMTP. All send failures
// are logged and swallowed so callers never leak whether an address exists.
type EmailService struct {
	host string
	port string
	user string
	pass string
	from string
}

func NewEmailService() *EmailService {
	return &EmailService{
		host: os.Getenv("SMTP_HOST"),
		port: os.Getenv("SMTP_PORT"),
		user: os.Getenv("SMTP_USER"),
		pass: os.Getenv("SMTP_PASS"),
		from: os.Getenv("SMTP_FROM"),
	}
}

func (s *EmailService) configured() bool {
	return s.host != "" && s.port != "" && s.from != ""
}

// SendTempPassword mails a temporary password after a forgot-password request.
func (s *EmailService) SendTempPassword(to, tempPassword string) {
	subject := "Your temporary password"
	body := fmt.Sprintf(
		"A temporary password was issued for your account.\r\n\r\n"+
			"Temporary password: %s\r\n\r\n"+
			"Please sign in and change it right away.\r\n", tempPassword)
	s.send(to, subject, body)
}

func (s *EmailService) send(to, subject, body string) {
	if !s.configured() {
		log.Printf("[email] SMTP not configured, skipping mail to %s", to)
		return
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		s.from, to, subject, body))

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.pass, s.host)
	}
	if err := smtp.SendMail(s.host+":"+s.port, auth, s.from, []string{to}, msg); err != nil {
		log.Printf("[email] send to %s failed: %v", to, err)
	}
}
