package notify

import (
	"context"
	"fmt"
	"net/smtp"
)

// SMTPSink mails codes as plain text over authenticated SMTP.
type SMTPSink struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

func (s *SMTPSink) SendVerificationCode(_ context.Context, addr, code, purpose string) error {
	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)

	body := fmt.Sprintf("Your verification code is %s. It expires shortly; do not share it.", code)
	message := []byte("Subject: " + purpose + "\r\n" +
		"From: " + s.Sender + "\r\n" +
		"To: " + addr + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		body + "\r\n")

	endpoint := fmt.Sprintf("%s:%d", s.Host, s.Port)
	if err := smtp.SendMail(endpoint, auth, s.Sender, []string{addr}, message); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
