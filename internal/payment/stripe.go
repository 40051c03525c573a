package payment

import (
	"context"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// compile-time check that *StripeProcessor implements Processor
var _ Processor = (*StripeProcessor)(nil)

// StripeProcessor implements Processor on the Stripe API.
//
// It holds its own client.API instance instead of setting the package-global
// stripe.Key — configuration is injected at construction like every other
// dependency in this codebase, and tests can construct processors against a
// stub backend without touching globals.
type StripeProcessor struct {
	api      *client.API
	currency string
}

// NewStripeProcessor creates a StripeProcessor using the given secret key.
// currency is a lowercase ISO code such as "usd".
func NewStripeProcessor(secretKey, currency string) *StripeProcessor {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProcessor{
		api:      api,
		currency: currency,
	}
}

// CreateCustomer registers a Stripe customer carrying the card token as its
// payment source.
func (p *StripeProcessor) CreateCustomer(ctx context.Context, email, cardToken string) (string, error) {
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(email),
		Source: stripe.String(cardToken),
	}

	cus, err := p.api.Customers.New(params)
	if err != nil {
		return "", classify("creating customer", err)
	}

	return cus.ID, nil
}

// CreateCharge charges amountCents against the customer's stored source.
func (p *StripeProcessor) CreateCharge(ctx context.Context, customerID string, amountCents int64, description string) (string, error) {
	params := &stripe.ChargeParams{
		Params:      stripe.Params{Context: ctx},
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(p.currency),
		Customer:    stripe.String(customerID),
		Description: stripe.String(description),
	}

	ch, err := p.api.Charges.New(params)
	if err != nil {
		return "", classify("creating charge", err)
	}

	return ch.ID, nil
}

// classify separates card declines from everything else. Stripe reports
// declines as typed errors with ErrorTypeCard; transport failures and API
// errors stay plain so the caller maps them to a processor error.
func classify(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
		return fmt.Errorf("payment/stripe: %s: %w", op, &Declined{Reason: stripeErr.Msg})
	}
	return fmt.Errorf("payment/stripe: %s: %w", op, err)
}
