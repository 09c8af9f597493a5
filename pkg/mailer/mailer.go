package mailer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/archivobordado/bordado-backend/pkg/config"
	pkgerrors "github.com/archivobordado/bordado-backend/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Attachment is a file delivered inline with an email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message describes a single outbound email.
type Message struct {
	To          string
	ToName      string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Sender is the outbound email surface used by fulfillment.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendgridSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Client sends email through SendGrid.
type Client struct {
	sender    sendgridSender
	fromEmail string
	fromName  string
}

// NewClient builds the SendGrid-backed mailer from configuration.
func NewClient(cfg config.MailConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, errors.New("sendgrid from email is required")
	}

	return &Client{
		sender:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: strings.TrimSpace(cfg.FromEmail),
		fromName:  strings.TrimSpace(cfg.FromName),
	}, nil
}

// Send delivers the message, attaching any files base64-encoded.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c == nil || c.sender == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "mailer not configured")
	}
	if strings.TrimSpace(msg.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient email is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}

	email := mail.NewV3Mail()
	email.SetFrom(mail.NewEmail(c.fromName, c.fromEmail))
	email.Subject = msg.Subject

	personalization := mail.NewPersonalization()
	personalization.AddTos(mail.NewEmail(msg.ToName, msg.To))
	email.AddPersonalizations(personalization)

	email.AddContent(mail.NewContent("text/html", msg.HTML))

	for _, att := range msg.Attachments {
		if len(att.Data) == 0 {
			continue
		}
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		attachment := mail.NewAttachment()
		attachment.SetFilename(att.Filename)
		attachment.SetType(contentType)
		attachment.SetDisposition("attachment")
		attachment.SetContent(base64.StdEncoding.EncodeToString(att.Data))
		email.AddAttachment(attachment)
	}

	resp, err := c.sender.SendWithContext(ctx, email)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send email")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return pkgerrors.Wrap(
			pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body)),
			"send email failed",
		)
	}

	return nil
}
