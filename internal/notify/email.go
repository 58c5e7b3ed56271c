package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/kaelsworks/sentinel/internal/config"
)

// EmailChannel delivers notifications over SMTP, supporting both implicit
// TLS (use_ssl) and STARTTLS, the same split the teacher's emailChannel
// makes.
type EmailChannel struct {
	cfg config.EmailConfig
}

func NewEmailChannel(cfg config.EmailConfig) *EmailChannel {
	return &EmailChannel{cfg: cfg}
}

func (e *EmailChannel) Name() string { return "email" }

// sanitizeHeader strips CR/LF from a header value to prevent header
// injection via attacker-controlled container names or log content.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}

func (e *EmailChannel) Send(ctx context.Context, n Notification) error {
	addr := fmt.Sprintf("%s:%d", e.cfg.SMTPServer, e.cfg.SMTPPort)

	dialer := net.Dialer{Timeout: 15 * time.Second}
	var conn net.Conn
	var err error
	if e.cfg.UseSSL {
		conn, err = tls.DialWithDialer(&dialer, "tcp", addr, &tls.Config{ServerName: e.cfg.SMTPServer})
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, e.cfg.SMTPServer)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if !e.cfg.UseSSL {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: e.cfg.SMTPServer}); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}

	auth := smtp.PlainAuth("", e.cfg.Sender, e.cfg.Password, e.cfg.SMTPServer)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	if err := client.Mail(e.cfg.Sender); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range e.cfg.Recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt to %s: %w", rcpt, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	message := buildMIMEMessage(e.cfg.Sender, e.cfg.Recipients, n)
	if _, err := wc.Write([]byte(message)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}

	return client.Quit()
}

func buildMIMEMessage(sender string, recipients []string, n Notification) string {
	subject := sanitizeHeader(n.Subject)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("From: %s\r\n", sanitizeHeader(sender)))
	sb.WriteString(fmt.Sprintf("To: %s\r\n", sanitizeHeader(strings.Join(recipients, ", "))))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(n.Body)
	sb.WriteString("\r\n")
	return sb.String()
}
