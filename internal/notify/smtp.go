package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

const defaultSMTPTimeout = 30 * time.Second

// SMTPConfig — параметры SMTP-сервера.
type SMTPConfig struct {
	Addr     string
	From     string
	Username string
	Password string

	// SSL — соединение сразу по TLS (порт 465). Без него используется
	// STARTTLS, если сервер его предлагает.
	SSL bool

	// Auth — PLAIN-аутентификация.
	Auth bool

	Timeout time.Duration
}

// SMTPDeliverer отправляет отчёты письмом.
type SMTPDeliverer struct {
	cfg SMTPConfig
}

// NewSMTPDeliverer создаёт SMTPDeliverer.
func NewSMTPDeliverer(cfg SMTPConfig) *SMTPDeliverer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}
	return &SMTPDeliverer{cfg: cfg}
}

// Deliver отправляет письмо to с темой subject.
func (d *SMTPDeliverer) Deliver(ctx context.Context, to, subject, body string) error {
	host, _, err := net.SplitHostPort(d.cfg.Addr)
	if err != nil {
		return fmt.Errorf("parse smtp addr: %w", err)
	}

	conn, err := d.dial(ctx, host)
	if err != nil {
		return err
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if !d.cfg.SSL {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}

	if d.cfg.Auth {
		auth := smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(d.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(BuildMessage(d.cfg.From, to, subject, body)); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}

	return client.Quit()
}

func (d *SMTPDeliverer) dial(ctx context.Context, host string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: d.cfg.Timeout}

	var conn net.Conn
	var err error
	if d.cfg.SSL {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: host}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", d.cfg.Addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", d.cfg.Addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial smtp %s: %w", d.cfg.Addr, err)
	}

	if err := conn.SetDeadline(time.Now().Add(d.cfg.Timeout)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set smtp deadline: %w", err)
	}

	return conn, nil
}

// BuildMessage собирает RFC 5322 письмо с текстовым телом.
func BuildMessage(from, to, subject, body string) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	b.WriteString("\r\n")

	return []byte(b.String())
}
