// Package mailer delivers invoice documents over SMTP.
package mailer

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"
	"time"
)

// ErrNotConfigured indicates the SMTP settings are incomplete; delivery is
// refused rather than attempted half-configured.
var ErrNotConfigured = errors.New("mailer: smtp not configured")

// Config collects the SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c Config) complete() bool {
	return c.Host != "" && c.Port > 0 && c.From != ""
}

// Message is one outbound mail with an optional file attachment.
type Message struct {
	To             string
	Subject        string
	Body           string
	AttachmentPath string
}

// Mailer sends messages through a single SMTP relay.
type Mailer struct {
	logger *slog.Logger
	cfg    Config
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New builds a Mailer.
func New(logger *slog.Logger, cfg Config) *Mailer {
	return &Mailer{logger: logger, cfg: cfg, send: smtp.SendMail}
}

// Send delivers one message. The attachment, when present, rides along
// base64-encoded in a multipart body.
func (m *Mailer) Send(msg Message) error {
	if !m.cfg.complete() {
		return ErrNotConfigured
	}
	if msg.To == "" {
		return errors.New("mailer: recipient missing")
	}

	payload, err := m.build(msg)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(addr, auth, m.cfg.From, []string{msg.To}, payload); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", msg.To, err)
	}
	m.logger.Info("mail sent", slog.String("to", msg.To), slog.String("subject", msg.Subject))
	return nil
}

const boundary = "gridbill-mime-boundary"

func (m *Mailer) build(msg Message) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(msg.Body)
	buf.WriteString("\r\n")

	if msg.AttachmentPath != "" {
		data, err := os.ReadFile(msg.AttachmentPath)
		if err != nil {
			return nil, fmt.Errorf("mailer: read attachment: %w", err)
		}
		name := filepath.Base(msg.AttachmentPath)

		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		buf.WriteString("Content-Type: application/pdf\r\n")
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n\r\n", name)

		encoded := base64.StdEncoding.EncodeToString(data)
		for len(encoded) > 76 {
			buf.WriteString(encoded[:76])
			buf.WriteString("\r\n")
			encoded = encoded[76:]
		}
		buf.WriteString(encoded)
		buf.WriteString("\r\n")
	}

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes(), nil
}
