package lib

import (
	"context"
	"fmt"
	"strconv"
	"vbs/src/config"

	"github.com/stripe/stripe-go/v82"
)

type CheckoutInput struct {
	BookingID   uint
	Description string
	Amount      int64
	Currency    string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// CheckoutGateway creates hosted card checkout sessions.
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error)
}

type StripeGateway struct {
	client     *stripe.Client
	successURL string
	cancelURL  string
}

func NewStripeGateway(cfg *config.Config) *StripeGateway {
	return &StripeGateway{
		client:     stripe.NewClient(cfg.StripeSecretKey),
		successURL: cfg.CheckoutSuccessURL,
		cancelURL:  cfg.CheckoutCancelURL,
	}
}

// NewStripeGatewayWithClient Replace stripe client with custom client implementation
func NewStripeGatewayWithClient(c *stripe.Client, successURL, cancelURL string) *StripeGateway {
	return &StripeGateway{client: c, successURL: successURL, cancelURL: cancelURL}
}

// CreateCheckoutSession opens a single line item payment session. Amount is
// in whole currency units and is converted to the minor unit here.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error) {
	bookingId := strconv.FormatUint(uint64(in.BookingID), 10)
	params := &stripe.CheckoutSessionCreateParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		ClientReferenceID: stripe.String(bookingId),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String(in.Currency),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(in.Description),
					},
					UnitAmount: stripe.Int64(in.Amount * 100),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"booking_id": bookingId,
		},
	}
	cs, err := g.client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: cs.ID, URL: cs.URL}, nil
}
