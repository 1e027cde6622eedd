package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-shelter-backend/internal/config"
)

// SMTPTransport sends mail through an SMTP relay. STARTTLS and AUTH PLAIN
// are used when the server advertises them.
type SMTPTransport struct {
	cfg  config.SMTPConfig
	from string
}

// NewSMTPTransport builds a transport for the given relay.
func NewSMTPTransport(cfg config.SMTPConfig, from string) *SMTPTransport {
	return &SMTPTransport{cfg: cfg, from: from}
}

// Name implements Transport.
func (t *SMTPTransport) Name() string { return config.TransportSMTP }

// Send implements Transport. The context deadline bounds the whole
// conversation with the relay.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) (Receipt, error) {
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Receipt{}, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return Receipt{}, err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: t.cfg.Host}); err != nil {
			return Receipt{}, fmt.Errorf("starttls: %w", err)
		}
	}
	if t.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
			if err := c.Auth(auth); err != nil {
				return Receipt{}, fmt.Errorf("auth: %w", err)
			}
		}
	}

	id := uuid.NewString()
	body, err := buildMIME(t.from, msg, id)
	if err != nil {
		return Receipt{}, err
	}

	if err := c.Mail(envelopeAddress(t.from)); err != nil {
		return Receipt{}, err
	}
	if err := c.Rcpt(msg.To); err != nil {
		return Receipt{}, err
	}
	w, err := c.Data()
	if err != nil {
		return Receipt{}, err
	}
	if _, err := w.Write(body); err != nil {
		return Receipt{}, err
	}
	if err := w.Close(); err != nil {
		return Receipt{}, err
	}
	if err := c.Quit(); err != nil {
		return Receipt{}, err
	}
	return Receipt{Transport: t.Name(), ID: id}, nil
}

// envelopeAddress strips a display name ("Shelter <a@b.org>" -> "a@b.org").
func envelopeAddress(from string) string {
	if a, err := mail.ParseAddress(from); err == nil {
		return a.Address
	}
	return from
}

func buildMIME(from string, msg Message, id string) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := textproto.MIMEHeader{}
	hdr.Set("From", from)
	hdr.Set("To", msg.To)
	hdr.Set("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	hdr.Set("Date", time.Now().UTC().Format(time.RFC1123Z))
	hdr.Set("Message-ID", "<"+id+"@shelter>")
	hdr.Set("MIME-Version", "1.0")
	hdr.Set("Content-Type", "multipart/alternative; boundary="+mw.Boundary())

	var head bytes.Buffer
	for _, k := range []string{"From", "To", "Subject", "Date", "Message-ID", "MIME-Version", "Content-Type"} {
		fmt.Fprintf(&head, "%s: %s\r\n", k, hdr.Get(k))
	}
	head.WriteString("\r\n")

	for _, part := range []struct{ ctype, body string }{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	} {
		if part.body == "" {
			continue
		}
		pw, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.ctype}})
		if err != nil {
			return nil, err
		}
		if _, err := pw.Write([]byte(part.body)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return append(head.Bytes(), buf.Bytes()...), nil
}
