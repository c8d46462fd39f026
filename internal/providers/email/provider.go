package email

import "context"

// Attachment is a file carried inline with an outbound message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
	SendWithAttachments(ctx context.Context, to []string, subject string, htmlBody string, attachments []Attachment) error
	SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error
	SendTemplateWithAttachments(ctx context.Context, to []string, templateName string, data interface{}, attachments []Attachment) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}

func (p *NoOpProvider) SendWithAttachments(ctx context.Context, to []string, subject string, htmlBody string, attachments []Attachment) error {
	return nil
}

func (p *NoOpProvider) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	return nil
}

func (p *NoOpProvider) SendTemplateWithAttachments(ctx context.Context, to []string, templateName string, data interface{}, attachments []Attachment) error {
	return nil
}
