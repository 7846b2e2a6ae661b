// Package notify sends transactional email through AWS SES.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"delivery-and-compliance/internal/models"
)

// Sender is the contract the checkout flow depends on; failures are logged,
// not fatal.
type Sender interface {
	SendOrderConfirmation(ctx context.Context, to string, order *models.Order) error
}

// LogSender is the dev-mode stand-in used when no SES sender is configured:
// it logs the confirmation instead of emailing it.
type LogSender struct {
	Logger *zap.Logger
}

func (l *LogSender) SendOrderConfirmation(ctx context.Context, to string, order *models.Order) error {
	l.Logger.Info("order confirmation (email disabled)",
		zap.String("to", to),
		zap.String("order_id", order.ID))
	return nil
}

// SESMailer sends through SES v2.
type SESMailer struct {
	client *sesv2.Client
	sender string
}

func NewSESMailer(ctx context.Context, region, sender string) (*SESMailer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("notify.NewSESMailer: %w", err)
	}
	return &SESMailer{client: sesv2.NewFromConfig(cfg), sender: sender}, nil
}

// SendOrderConfirmation sends a plain-text confirmation with the order
// summary and the zone's delivery window.
func (m *SESMailer) SendOrderConfirmation(ctx context.Context, to string, order *models.Order) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Your order %s is confirmed.\n\n", order.ID)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "- %s x%.2f %s\n", item.ProductType, item.Quantity, item.Unit)
	}
	fmt.Fprintf(&b, "\nSubtotal: $%.2f\nDelivery fee: $%.2f\nTotal: $%.2f\n", order.Subtotal, order.DeliveryFee, order.Total)
	fmt.Fprintf(&b, "Estimated delivery: %s\n", order.DeliveryWindow)

	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.sender),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(fmt.Sprintf("Order %s confirmed", order.ID))},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(b.String())},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("notify.SendOrderConfirmation: %w", err)
	}
	return nil
}
