package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/storyhub/internal/auth"
	"github.com/sakif/storyhub/internal/service"
)

// PaymentHandler runs the browser-facing side of the payment gate.
//
// The order of the workflow is fixed: /addPost shows the payment form,
// /acceptPayment runs the customer + charge steps, and only then does
// /displayPostForm hand out the authoring form. The handler enforces the
// ordering through the session's credit counter — there is no other
// pending-payment state anywhere.
type PaymentHandler struct {
	payments       *service.PaymentService
	users          *service.UserService
	publishableKey string
	logger         *slog.Logger
}

func NewPaymentHandler(
	payments *service.PaymentService,
	users *service.UserService,
	publishableKey string,
	logger *slog.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		payments:       payments,
		users:          users,
		publishableKey: publishableKey,
		logger:         logger,
	}
}

// paymentFormResponse is what the client needs to render the card form:
// the amount it is about to charge and the processor's publishable key.
type paymentFormResponse struct {
	AmountCents    int64  `json:"amountCents"`
	PublishableKey string `json:"publishableKey"`
}

type acceptPaymentRequest struct {
	Token string `json:"token"` // single-use card token from the client-side SDK
}

// HandlePaymentForm presents the payment step of the authoring workflow.
//
// HTTP: GET /addPost (authenticated)
func (h *PaymentHandler) HandlePaymentForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, paymentFormResponse{
		AmountCents:    h.payments.PriceCents(),
		PublishableKey: h.publishableKey,
	})
}

// HandleAcceptPayment runs customer creation and the charge for the
// requester's session.
//
// HTTP: POST /acceptPayment (authenticated)
//
// On success the session gains one post credit and the client proceeds to
// /displayPostForm. On decline or processor failure nothing is recorded and
// the client returns to the payment form.
func (h *PaymentHandler) HandleAcceptPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	token, tok := auth.SessionTokenFromContext(r.Context())
	if !ok || !tok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	var req acceptPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	// The customer record is created under the user's profile email; an
	// empty email is fine, Stripe treats it as optional.
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.payments.Accept(r.Context(), token, user.Email, req.Token); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "payment accepted"})
}

// HandlePostForm presents the authoring form, reachable only with an
// unspent credit on the session.
//
// HTTP: GET /displayPostForm (authenticated)
func (h *PaymentHandler) HandlePostForm(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.SessionTokenFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	// The credit is only verified here; /savePost checks again and spends it.
	if err := h.payments.RequireCredit(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "compose your post"})
}
