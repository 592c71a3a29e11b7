package smtpout

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/phishschool/backend/internal/core"
	"go.uber.org/zap"
)

// SMTPSender delivers email through a plain SMTP relay
type SMTPSender struct {
	addr     string
	username string
	password string
	fromName string
	logger   *zap.Logger
}

// NewSMTPSender creates a new SMTP sender. addr is host:port of the relay.
func NewSMTPSender(addr, username, password, fromName string, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{
		addr:     addr,
		username: username,
		password: password,
		fromName: fromName,
		logger:   logger,
	}
}

// Send builds a multipart/alternative message and submits it to the relay
func (s *SMTPSender) Send(ctx context.Context, email *core.OutboundEmail) error {
	msg, err := s.buildMessage(email)
	if err != nil {
		return fmt.Errorf("failed to build SMTP message: %w", err)
	}

	var auth sasl.Client
	if s.username != "" {
		auth = sasl.NewPlainClient("", s.username, s.password)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(s.addr, auth, email.From, []string{email.To}, bytes.NewReader(msg))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email via SMTP: %w", err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Debug("Email sent via SMTP",
		zap.String("to", email.To),
		zap.String("relay", s.addr))
	return nil
}

func (s *SMTPSender) buildMessage(email *core.OutboundEmail) ([]byte, error) {
	var buf bytes.Buffer
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writePart(writer, "text/plain", email.TextBody); err != nil {
		return nil, err
	}
	if email.HTMLBody != "" {
		if err := writePart(writer, "text/html", email.HTMLBody); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	from := email.From
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.fromName), email.From)
	}

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", email.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", email.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n", writer.Boundary())
	buf.WriteString("\r\n")
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}

func writePart(writer *multipart.Writer, contentType, content string) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType+"; charset=utf-8")
	header.Set("Content-Transfer-Encoding", "quoted-printable")
	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(content)); err != nil {
		return err
	}
	return qp.Close()
}
