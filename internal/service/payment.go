package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/storyhub/internal/apperror"
	"github.com/sakif/storyhub/internal/metrics"
	"github.com/sakif/storyhub/internal/payment"
	"github.com/sakif/storyhub/internal/repository"
)

// PaymentService runs the payment gate in front of post authoring.
//
// The workflow is strictly ordered: card token (collected client-side) →
// customer record → charge of the fixed configured amount → one post credit
// on the caller's session. Any failure before the charge succeeds leaves no
// server-side residue — there is no pending-payment record, so an abandoned
// or declined attempt is simply re-run from the payment form.
//
// The credit and the eventual post are two independent store operations
// (session update here, post insert in PostService.Create), deliberately not
// a cross-entity transaction.
type PaymentService struct {
	processor  payment.Processor
	sessions   repository.SessionRepository
	priceCents int64
	recorder   metrics.Recorder
	logger     *slog.Logger
}

func NewPaymentService(
	processor payment.Processor,
	sessions repository.SessionRepository,
	priceCents int64,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		processor:  processor,
		sessions:   sessions,
		priceCents: priceCents,
		recorder:   recorder,
		logger:     logger,
	}
}

// PriceCents is the fixed amount charged per authored post.
func (s *PaymentService) PriceCents() int64 {
	return s.priceCents
}

// RequireCredit verifies the session holds an unspent post credit. It does
// not consume the credit; that happens when the post is actually saved.
func (s *PaymentService) RequireCredit(ctx context.Context, sessionToken string) error {
	session, err := s.sessions.GetSession(ctx, sessionToken)
	if err != nil {
		return err
	}
	if session.PostCredits < 1 {
		return apperror.PaymentRequired()
	}
	return nil
}

// Accept executes steps 3–4 of the gate for the session: customer creation,
// then the charge. On success one post credit is granted to the session.
//
// Declines surface as ErrPaymentDeclined and everything else the processor
// throws as ErrPaymentProcessor; in both cases no credit is granted and the
// caller returns the user to the payment form.
func (s *PaymentService) Accept(ctx context.Context, sessionToken, email, cardToken string) error {
	if cardToken == "" {
		return apperror.ValidationFailed("token", "payment token is required")
	}

	customerID, err := s.processor.CreateCustomer(ctx, email, cardToken)
	if err != nil {
		return s.paymentFailed("creating customer", err)
	}

	chargeID, err := s.processor.CreateCharge(ctx, customerID, s.priceCents, "storyhub post authoring")
	if err != nil {
		return s.paymentFailed("creating charge", err)
	}

	if err := s.sessions.GrantPostCredit(ctx, sessionToken); err != nil {
		// The charge went through but the session vanished (logout racing the
		// payment). The money/state gap is logged loudly; nothing to retry.
		s.logger.Error("charge succeeded but credit grant failed",
			slog.String("chargeID", chargeID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("granting post credit after charge %s: %w", chargeID, err)
	}

	s.recorder.RecordPayment("succeeded")
	s.logger.Info("payment accepted",
		slog.String("customerID", customerID),
		slog.String("chargeID", chargeID),
		slog.Int64("amountCents", s.priceCents),
	)

	return nil
}

// paymentFailed classifies a processor failure into the domain taxonomy.
func (s *PaymentService) paymentFailed(op string, err error) error {
	var declined *payment.Declined
	if errors.As(err, &declined) {
		s.recorder.RecordPayment("declined")
		s.logger.Info("payment declined", slog.String("reason", declined.Reason))
		return apperror.PaymentDeclined(declined.Error())
	}

	s.recorder.RecordPayment("error")
	s.logger.Error("payment processor failure",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return apperror.PaymentProcessor("the payment could not be processed, please try again")
}
