package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	pkglogger "github.com/BradenHooton/keystone/pkg/logger"
)

// LockoutNotifier tells an account owner that repeated failures locked the account
type LockoutNotifier interface {
	NotifyLockout(ctx context.Context, email, name string, minutes int) error
}

// NoopLockoutNotifier is used when no sender address is configured
type NoopLockoutNotifier struct{}

func (NoopLockoutNotifier) NotifyLockout(ctx context.Context, email, name string, minutes int) error {
	return nil
}

// sesSender is the subset of the SES client used here
type sesSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESLockoutNotifier sends lockout notices through AWS SES
type SESLockoutNotifier struct {
	client      sesSender
	fromAddress string
	logger      *slog.Logger
}

// NewSESLockoutNotifier loads the default AWS credential chain for region
func NewSESLockoutNotifier(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*SESLockoutNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newSESLockoutNotifier(ses.NewFromConfig(cfg), fromAddress, logger), nil
}

func newSESLockoutNotifier(client sesSender, fromAddress string, logger *slog.Logger) *SESLockoutNotifier {
	return &SESLockoutNotifier{
		client:      client,
		fromAddress: fromAddress,
		logger:      logger,
	}
}

func (n *SESLockoutNotifier) NotifyLockout(ctx context.Context, email, name string, minutes int) error {
	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + name
	}

	textBody := fmt.Sprintf(`%s,

We detected several failed sign-in attempts on your account, so it has been
temporarily locked for %d minutes.

If this was you, wait and try again. If it was not, consider changing your
password once the lock expires.

This is an automated message. Please do not reply to this email.
`, greeting, minutes)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your account has been temporarily locked"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send lockout email: %w", err)
	}

	n.logger.Info("lockout email sent",
		slog.String("email", pkglogger.MaskEmail(email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
