package mail

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"github.com/opengov-gr/diavgest/config"
	"github.com/opengov-gr/diavgest/ingest"
)

// Message is one digest email ready for submission.
//
// Summary, when set, is the run outcome behind the digest. A degraded
// run (anything but healthy) is surfaced as an extra header row so
// downstream filters can route or flag the mail without parsing HTML;
// the visible degradation banner is already part of the rendered body.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Summary *ingest.Summary
}

// NewMessage fills sender, recipients and subject from the email
// configuration. An empty configured subject falls back to a default
// naming the digest month.
func NewMessage(cfg config.EmailConfig, month time.Time, html string, summary *ingest.Summary) *Message {
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject(month)
	}
	return &Message{
		From:    cfg.Sender(),
		To:      cfg.Recipients(),
		Subject: subject,
		HTML:    html,
		Summary: summary,
	}
}

// DefaultSubject names the digest month the way the legacy pipeline did.
func DefaultSubject(month time.Time) string {
	return fmt.Sprintf("Diavgeia Digest — %s %d", month.Month(), month.Year())
}

// Bytes assembles the RFC 5322 message. The HTML body travels as
// base64 so Greek text survives 7-bit relay paths, and the subject is
// Q-encoded when it carries non-ASCII characters.
func (m *Message) Bytes() []byte {
	var b strings.Builder
	header := func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}

	header("From", m.From)
	header("To", strings.Join(m.To, ", "))
	header("Subject", mime.QEncoding.Encode("UTF-8", m.Subject))
	header("Message-ID", messageID(m.From))
	header("Date", time.Now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="UTF-8"`)
	header("Content-Transfer-Encoding", "base64")

	if m.Summary != nil && m.Summary.Health != ingest.HealthHealthy.String() {
		header("X-Diavgest-Summary", fmt.Sprintf("health=%s; failed_intervals=%d; records=%d",
			m.Summary.Health, m.Summary.FailedIntervalCount, m.Summary.RecordCount))
	}

	b.WriteString("\r\n")
	b.WriteString(wrapBase64(base64.StdEncoding.EncodeToString([]byte(m.HTML))))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// messageID builds a globally unique Message-ID from a base58-encoded
// uuid at the sender's domain.
func messageID(from string) string {
	u := uuid.New()
	domain := "diavgest.local"
	if i := strings.LastIndex(from, "@"); i >= 0 && i+1 < len(from) {
		domain = from[i+1:]
	}
	return fmt.Sprintf("<%s@%s>", base58.Encode(u[:]), domain)
}

// wrapBase64 folds an encoded body at the 76-column MIME limit.
func wrapBase64(s string) string {
	const width = 76
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteString("\r\n")
		s = s[width:]
	}
	b.WriteString(s)
	return b.String()
}
