// Package mailer delivers transactional email over SMTP.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/samber/oops"

	"REFERRAL_AUTH_BACK-END/internal/config"
)

// Mailer sends a single HTML message.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer handles email sending operations
type SMTPMailer struct {
	config *config.EmailConfig
	send   sendFunc
	now    func() time.Time
}

// NewSMTPMailer creates a new SMTP mailer. Port 465 uses implicit TLS,
// any other port goes through smtp.SendMail and STARTTLS.
func NewSMTPMailer(cfg *config.EmailConfig) *SMTPMailer {
	m := &SMTPMailer{config: cfg, now: time.Now}
	if cfg.SMTPPort == "465" {
		m.send = sendImplicitTLS
	} else {
		m.send = smtp.SendMail
	}
	return m
}

// Send delivers htmlBody to a single recipient.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.config.SMTPUsername == "" || m.config.SMTPPassword == "" {
		return oops.Code("MAIL_NOT_CONFIGURED").Errorf("email credentials not configured")
	}
	if err := ctx.Err(); err != nil {
		return oops.Code("MAIL_SEND_FAILED").Wrap(err)
	}

	fromEmail := m.config.FromEmail
	if fromEmail == "" {
		fromEmail = m.config.SMTPUsername
	}

	msg, err := buildMessage(mail.Address{Name: m.config.FromName, Address: fromEmail}, to, subject, htmlBody, m.now())
	if err != nil {
		return err
	}

	auth := smtp.PlainAuth("", m.config.SMTPUsername, m.config.SMTPPassword, m.config.SMTPHost)
	addr := net.JoinHostPort(m.config.SMTPHost, m.config.SMTPPort)
	if err := m.send(addr, auth, fromEmail, []string{to}, msg); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("smtp_host", m.config.SMTPHost).Wrap(err)
	}
	return nil
}

func buildMessage(from mail.Address, to, subject, htmlBody string, date time.Time) ([]byte, error) {
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return nil, oops.Code("MAIL_INVALID_RECIPIENT").Wrap(err)
	}
	if strings.ContainsAny(subject, "\r\n") {
		return nil, oops.Code("MAIL_INVALID_SUBJECT").Errorf("subject must be a single line")
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from.String())
	fmt.Fprintf(&b, "To: %s\r\n", rcpt.String())
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", date.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")
	return b.Bytes(), nil
}

func sendImplicitTLS(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12})
	if err != nil {
		return err
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// LogMailer records that a message would have been sent. It is used when
// SMTP is not configured so the reset flow still completes.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the recipient, subject and body size. The body is never logged
// since it carries the plaintext reset link.
func (m *LogMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.logger.InfoContext(ctx, "email not sent, SMTP disabled",
		"to", to,
		"subject", subject,
		"body_bytes", len(htmlBody),
	)
	return nil
}

// PasswordResetSubject is the subject line of the reset email.
const PasswordResetSubject = "Password Reset Request"

var resetTemplate = template.Must(template.New("reset").Parse(`<p>Click <a href="{{.Link}}" target="_blank" style="color: blue; text-decoration: underline;">here</a> to reset your password.</p>
<p>If the link doesn't work, copy and paste the following URL into your browser:</p>
<p><a href="{{.Link}}" target="_blank">{{.Link}}</a></p>
<p>This link expires in {{.Minutes}} minutes.</p>
`))

// PasswordResetEmail renders the HTML body carrying the reset link.
func PasswordResetEmail(link string, ttl time.Duration) (string, error) {
	var b bytes.Buffer
	err := resetTemplate.Execute(&b, struct {
		Link    string
		Minutes int
	}{Link: link, Minutes: int(ttl.Minutes())})
	if err != nil {
		return "", oops.Code("MAIL_TEMPLATE_FAILED").Wrap(err)
	}
	return b.String(), nil
}
