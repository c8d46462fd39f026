package email

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPProvider struct {
	cfg Config
}

func NewSMTP(cfg Config) *SMTPProvider {
	return &SMTPProvider{cfg: cfg}
}

func (p *SMTPProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	auth := smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n%s\r\n%s", strings.Join(to, ", "), subject, mime, htmlBody))

	return smtp.SendMail(addr, auth, p.cfg.From, to, msg)
}

// SendWithAttachments builds a multipart/mixed message with the HTML body
// first and each attachment base64-encoded after it.
func (p *SMTPProvider) SendWithAttachments(ctx context.Context, to []string, subject string, htmlBody string, attachments []Attachment) error {
	if len(attachments) == 0 {
		return p.Send(ctx, to, subject, htmlBody)
	}

	auth := smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	bodyHeader := textproto.MIMEHeader{}
	bodyHeader.Set("Content-Type", "text/html; charset=\"UTF-8\"")
	bodyPart, err := writer.CreatePart(bodyHeader)
	if err != nil {
		return err
	}
	if _, err := bodyPart.Write([]byte(htmlBody)); err != nil {
		return err
	}

	for _, attachment := range attachments {
		contentType := attachment.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		header := textproto.MIMEHeader{}
		header.Set("Content-Type", contentType)
		header.Set("Content-Transfer-Encoding", "base64")
		header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.Filename))

		part, err := writer.CreatePart(header)
		if err != nil {
			return err
		}

		encoded := make([]byte, base64.StdEncoding.EncodedLen(len(attachment.Data)))
		base64.StdEncoding.Encode(encoded, attachment.Data)
		// 76-char lines per RFC 2045
		for len(encoded) > 0 {
			n := 76
			if len(encoded) < n {
				n = len(encoded)
			}
			if _, err := part.Write(encoded[:n]); err != nil {
				return err
			}
			if _, err := part.Write([]byte("\r\n")); err != nil {
				return err
			}
			encoded = encoded[n:]
		}
	}

	if err := writer.Close(); err != nil {
		return err
	}

	return smtp.SendMail(addr, auth, p.cfg.From, to, buf.Bytes())
}

func (p *SMTPProvider) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	subject, body, err := renderTemplate(templateName, data)
	if err != nil {
		return err
	}
	return p.Send(ctx, to, subject, body)
}

func (p *SMTPProvider) SendTemplateWithAttachments(ctx context.Context, to []string, templateName string, data interface{}, attachments []Attachment) error {
	subject, body, err := renderTemplate(templateName, data)
	if err != nil {
		return err
	}
	return p.SendWithAttachments(ctx, to, subject, body, attachments)
}

func renderTemplate(templateName string, data interface{}) (string, string, error) {
	t, err := template.ParseFS(templateFS, "templates/"+templateName+".html")
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template: %w", err)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template: %w", err)
	}

	subject := "Visitor management notification"
	if dataMap, ok := data.(map[string]interface{}); ok {
		if subj, exists := dataMap["subject"]; exists {
			if subjStr, ok := subj.(string); ok {
				subject = subjStr
			}
		}
	}

	return subject, body.String(), nil
}
