package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESAlertNotifier emails cost alerts through AWS SES
type SESAlertNotifier struct {
	client      sesAPI
	guard       CallGuard
	apiCall     string
	fromAddress string
	toAddress   string
	logger      *slog.Logger
}

// NewSESAlertNotifier creates a notifier using the default AWS credential chain.
// Sends go through guard under apiCall; guard may be nil.
func NewSESAlertNotifier(ctx context.Context, region, fromAddress, toAddress string, guard CallGuard, apiCall string, logger *slog.Logger) (*SESAlertNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESAlertNotifier{
		client:      ses.NewFromConfig(cfg),
		guard:       guard,
		apiCall:     apiCall,
		fromAddress: fromAddress,
		toAddress:   toAddress,
		logger:      logger,
	}, nil
}

// NotifyCostThreshold sends one alert email
func (n *SESAlertNotifier) NotifyCostThreshold(ctx context.Context, alert CostAlert) error {
	subject := fmt.Sprintf("Daily API cost threshold exceeded (%s)", alert.Date)
	body := fmt.Sprintf(`Daily API cost threshold exceeded

Date:      %s
Total:     $%.4f
Threshold: $%.2f
Crossed by: %s

Further calls today will not raise another alert.
`, alert.Date, alert.Total, alert.Threshold, alert.APICall)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{n.toAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	}

	var messageID string
	send := func(ctx context.Context) error {
		result, err := n.client.SendEmail(ctx, input)
		if err != nil {
			return err
		}
		if result.MessageId != nil {
			messageID = *result.MessageId
		}
		return nil
	}

	var err error
	if n.guard != nil {
		err = n.guard.Do(ctx, n.apiCall, send)
	} else {
		err = send(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to send cost alert: %w", err)
	}

	n.logger.Info("cost alert sent",
		slog.String("date", alert.Date),
		slog.String("message_id", messageID))
	return nil
}

// LogAlertNotifier writes cost alerts to the log only. Used when no alert
// recipient is configured.
type LogAlertNotifier struct {
	logger *slog.Logger
}

func NewLogAlertNotifier(logger *slog.Logger) *LogAlertNotifier {
	return &LogAlertNotifier{logger: logger}
}

func (n *LogAlertNotifier) NotifyCostThreshold(ctx context.Context, alert CostAlert) error {
	n.logger.WarnContext(ctx, "daily API cost threshold exceeded",
		slog.String("date", alert.Date),
		slog.String("api_call", alert.APICall),
		slog.Float64("total", alert.Total),
		slog.Float64("threshold", alert.Threshold))
	return nil
}
