// Package payment abstracts the payment processor behind a small interface.
//
// The authoring workflow charges a fixed amount before a post may be created:
// card token (from the client) → customer record → charge. Both calls cross
// the network and can fail independently; the service layer maps failures to
// the domain error taxonomy and never persists partial post state.
package payment

import "context"

// Processor is the capability the payment gate needs from a processor.
// The production implementation is Stripe; tests inject a fake.
type Processor interface {
	// CreateCustomer registers a customer with the processor, attaching the
	// single-use card token collected client-side. Returns the processor's
	// customer id.
	CreateCustomer(ctx context.Context, email, cardToken string) (string, error)

	// CreateCharge charges amountCents (in the configured currency) against
	// an existing customer. Returns the processor's charge id only when the
	// charge actually succeeded.
	CreateCharge(ctx context.Context, customerID string, amountCents int64, description string) (string, error)
}

// Declined marks processor errors that are card declines (as opposed to
// transport or processor failures). The service layer asks via errors.As.
type Declined struct {
	Reason string
}

func (d *Declined) Error() string {
	if d.Reason == "" {
		return "card declined"
	}
	return "card declined: " + d.Reason
}
