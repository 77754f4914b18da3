// Package mail delivers the rendered digest over SMTP.
//
// The sender speaks plain SMTP upgraded with STARTTLS before any
// credentials cross the wire; a relay that cannot upgrade fails the
// send. Message assembly lives in message.go, body composition (digest
// artifact plus optional newsletter template) in body.go.
package mail

import (
	"crypto/tls"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/opengov-gr/diavgest/config"
	"github.com/opengov-gr/diavgest/errors"
)

// Sender submits digest messages through one configured SMTP relay.
type Sender struct {
	cfg    config.EmailConfig
	logger *zap.SugaredLogger
}

// NewSender creates a sender over the given email configuration.
func NewSender(cfg config.EmailConfig, logger *zap.SugaredLogger) *Sender {
	return &Sender{cfg: cfg, logger: logger}
}

// Send connects to the relay, upgrades with STARTTLS, authenticates
// when credentials are configured, and submits the message.
func (s *Sender) Send(msg *Message) error {
	if s.cfg.Host == "" {
		return errors.New("email.host is not configured")
	}
	if len(msg.To) == 0 {
		return errors.New("no recipients configured, set email.to or DIGEST_TO")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to %s", addr)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
		return errors.Wrapf(err, "relay %s refused STARTTLS", s.cfg.Host)
	}

	if s.cfg.User != "" {
		auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return errors.Wrapf(err, "authentication failed for %s", s.cfg.User)
		}
	}

	if err := client.Mail(msg.From); err != nil {
		return errors.Wrapf(err, "relay rejected sender %s", msg.From)
	}
	for _, rcpt := range msg.To {
		if err := client.Rcpt(rcpt); err != nil {
			return errors.Wrapf(err, "relay rejected recipient %s", rcpt)
		}
	}

	w, err := client.Data()
	if err != nil {
		return errors.Wrap(err, "failed to open message data")
	}
	if _, err := w.Write(msg.Bytes()); err != nil {
		return errors.Wrap(err, "failed to write message data")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "failed to finish message data")
	}

	s.logger.Infow("Digest email sent",
		"relay", addr,
		"recipients", len(msg.To),
		"subject", msg.Subject,
	)
	return client.Quit()
}
