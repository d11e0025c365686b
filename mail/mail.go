package mail

import (
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
)

// Sender delivers verification mail. Failures are for the caller to log
// and swallow; registration never depends on delivery.
type Sender interface {
	SendVerificationEmail(to, verificationToken string) error
}

// SMTPConfig holds the configuration for SMTP email sending
type SMTPConfig struct {
	Host        string
	Port        string
	Username    string
	Password    string
	From        string
	FrontendURL string
}

// SMTPSender implements Sender over plain SMTP
type SMTPSender struct {
	cfg SMTPConfig
}

var _ Sender = (*SMTPSender)(nil)

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.Port == "" || cfg.Username == "" || cfg.Password == "" || cfg.From == "" {
		return nil, errors.New("invalid smtp configuration")
	}
	return &SMTPSender{cfg: cfg}, nil
}

func (s *SMTPSender) SendVerificationEmail(to, verificationToken string) error {
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	msg := []byte(fmt.Sprintf(
		"To: %s\r\nSubject: Verify Your Email - Seen Platform\r\n\r\n%s",
		to, verificationText(s.cfg.FrontendURL, verificationToken)))

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, msg); err != nil {
		return err
	}
	slog.Info("verification email sent", "to", to)
	return nil
}

func verificationText(frontendURL, token string) string {
	return fmt.Sprintf(
		"Welcome to Seen!\n\n"+
			"Please verify your email address by clicking the link below:\n"+
			"%s/verify-email?token=%s\n\n"+
			"This link will expire in 24 hours.\n\n"+
			"If you didn't create an account with Seen, please ignore this email.\n\n"+
			"Best regards,\nThe Seen Team",
		frontendURL, token)
}

// LogSender is the dev-mode Sender: it logs the token instead of mailing it
type LogSender struct{}

var _ Sender = (*LogSender)(nil)

func (LogSender) SendVerificationEmail(to, verificationToken string) error {
	slog.Info("verification email (dev mode, not sent)", "to", to, "token", verificationToken)
	return nil
}
