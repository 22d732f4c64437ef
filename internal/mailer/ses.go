package mailer

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/cosmoexplorer/backend/internal/config"
	"github.com/cosmoexplorer/backend/internal/pkg/logger"
)

// SESSender sends emails via AWS SES using the SDK v2.
type SESSender struct {
	client *sesv2.Client
}

// NewSESSender creates an SES sender from static credentials.
func NewSESSender(ctx context.Context, cfg appconfig.SESConfig) (*SESSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SESSender{client: sesv2.NewFromConfig(awsCfg)}, nil
}

// Send delivers a single email through AWS SES.
func (s *SESSender) Send(ctx context.Context, msg *Message) error {
	if s.client == nil {
		return fmt.Errorf("SES client not initialized - check credentials")
	}

	result, err := s.client.SendEmail(ctx, sesInput(msg))
	if err != nil {
		log.Printf("[SES] Failed to send to %s: %v", logger.RedactEmail(msg.To), err)
		return fmt.Errorf("ses send: %w", err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	log.Printf("[SES] Sent to %s (id: %s)", logger.RedactEmail(msg.To), messageID)
	return nil
}

// sesInput shapes a Message into the SES v2 request payload.
func sesInput(msg *Message) *sesv2.SendEmailInput {
	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
}
