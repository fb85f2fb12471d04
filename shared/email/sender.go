package email

import (
	"context"
	"fmt"
	"net/smtp"

	"air-quality-stack/shared/config"
)

// Sender delivers a finished message
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// NewSender picks the transport named by cfg.Provider
func NewSender(ctx context.Context, cfg *config.EmailConfig) (Sender, error) {
	switch cfg.Provider {
	case config.EmailProviderSMTP, "":
		return NewSMTPSender(cfg), nil
	case config.EmailProviderGmail:
		return NewGmailSender(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

type SMTPSender struct {
	config   *config.EmailConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg *config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		config:   cfg,
		sendMail: smtp.SendMail,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := msg.Bytes()
	if err != nil {
		return err
	}

	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPServer)
	addr := fmt.Sprintf("%s:%d", s.config.SMTPServer, s.config.SMTPPort)
	if err := s.sendMail(addr, auth, msg.From, msg.To, raw); err != nil {
		return fmt.Errorf("failed to send via SMTP %s: %w", addr, err)
	}
	return nil
}
