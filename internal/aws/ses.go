package aws

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

const charsetUTF8 = "UTF-8"

// SESAPI is the subset of the SES v2 client used to send notifications
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailTransport delivers notifications through Amazon SES
type EmailTransport struct {
	logger *zap.Logger
	client SESAPI
	from   string
	to     []string
}

// NewEmailTransport creates an SES-backed notification transport
func NewEmailTransport(logger *zap.Logger, client SESAPI, from string, to []string) *EmailTransport {
	return &EmailTransport{
		logger: logger,
		client: client,
		from:   from,
		to:     to,
	}
}

func (e *EmailTransport) Name() string { return "ses" }

// Send emails subject and body as plain text with a preformatted HTML alternative
func (e *EmailTransport) Send(ctx context.Context, subject, body string) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(e.from),
		Destination: &sestypes.Destination{
			ToAddresses: e.to,
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject), Charset: aws.String(charsetUTF8)},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: aws.String(body), Charset: aws.String(charsetUTF8)},
					Html: &sestypes.Content{Data: aws.String(htmlBody(body)), Charset: aws.String(charsetUTF8)},
				},
			},
		},
	}

	result, err := e.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("SES SendEmail failed: %w", err)
	}

	e.logger.Info("Notification email sent",
		zap.String("message_id", aws.ToString(result.MessageId)),
		zap.Strings("to", e.to))

	return nil
}

func htmlBody(body string) string {
	return "<pre>" + html.EscapeString(body) + "</pre>"
}
