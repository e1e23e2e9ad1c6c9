package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/checkout/session"
	"github.com/stripe/stripe-go/v72/webhook"

	"resale-api/internal/logger"
	"resale-api/internal/models"
	"resale-api/internal/repository"
	"resale-api/internal/services"
)

// StripeHandler upgrades and downgrades plans through Stripe checkout and
// webhooks.
type StripeHandler struct {
	authService services.AuthService
	profileRepo repository.ProfileRepository
}

func NewStripeHandler(authService services.AuthService, profileRepo repository.ProfileRepository) *StripeHandler {
	return &StripeHandler{
		authService: authService,
		profileRepo: profileRepo,
	}
}

const (
	ErrNoStripeCustomer = "profile has no Stripe customer"
	ErrInvalidPlan      = "invalid plan"
	ErrCreateCheckout   = "error creating checkout session"
)

func (h *StripeHandler) HandleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Plan string `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	profile, ok := services.ProfileFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if profile.StripeCustomerID == "" {
		http.Error(w, ErrNoStripeCustomer, http.StatusBadRequest)
		return
	}

	priceID, err := priceIDForPlan(models.PlanTier(req.Plan))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sessionID, err := h.createCheckoutSession(profile.StripeCustomerID, priceID, req.Plan)
	if err != nil {
		http.Error(w, ErrCreateCheckout, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"sessionId": sessionID})
}

func priceIDForPlan(plan models.PlanTier) (string, error) {
	switch plan {
	case models.StarterPlan:
		return os.Getenv("STRIPE_STARTER_PRICE_ID"), nil
	case models.ProPlan:
		return os.Getenv("STRIPE_PRO_PRICE_ID"), nil
	case models.BusinessPlan:
		return os.Getenv("STRIPE_BUSINESS_PRICE_ID"), nil
	default:
		return "", errors.New(ErrInvalidPlan)
	}
}

func (h *StripeHandler) createCheckoutSession(customerID, priceID, plan string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(os.Getenv("CHECKOUT_SUCCESS_URL")),
		CancelURL:  stripe.String(os.Getenv("CHECKOUT_CANCEL_URL")),
	}
	params.AddMetadata("plan", plan)

	s, err := session.New(params)
	if err != nil {
		return "", err
	}

	return s.ID, nil
}

func (h *StripeHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	const MaxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading request body: %v\n", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), os.Getenv("STRIPE_WEBHOOK_SECRET"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error verifying webhook signature: %v\n", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var checkoutSession stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &checkoutSession); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing webhook JSON: %v\n", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.handleCheckoutCompleted(r.Context(), checkoutSession)
	case "customer.subscription.deleted", "customer.subscription.updated":
		var subscription stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing webhook JSON: %v\n", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.handleSubscriptionChanged(r.Context(), subscription)
	default:
		logger.Logger.WithField("type", event.Type).Debug("Unhandled Stripe event")
	}

	w.WriteHeader(http.StatusOK)
}

func (h *StripeHandler) handleCheckoutCompleted(ctx context.Context, checkoutSession stripe.CheckoutSession) {
	if checkoutSession.Customer == nil {
		return
	}

	profile, err := h.profileRepo.GetByStripeCustomerID(ctx, checkoutSession.Customer.ID)
	if err != nil {
		logger.Logger.WithField("customer", checkoutSession.Customer.ID).
			Errorf("No profile for Stripe customer: %v", err)
		return
	}

	plan := models.PlanTier(checkoutSession.Metadata["plan"])
	if !plan.Valid() {
		plan = models.ProPlan
	}

	if err := h.profileRepo.UpdatePlan(ctx, profile.ID, plan); err != nil {
		logger.Logger.WithField("profile", profile.ID).
			Errorf("Failed to upgrade plan: %v", err)
		return
	}

	logger.Logger.WithField("profile", profile.ID).Infof("Plan upgraded to %s", plan)
}

func (h *StripeHandler) handleSubscriptionChanged(ctx context.Context, subscription stripe.Subscription) {
	if subscription.Customer == nil {
		return
	}

	profile, err := h.profileRepo.GetByStripeCustomerID(ctx, subscription.Customer.ID)
	if err != nil {
		logger.Logger.WithField("customer", subscription.Customer.ID).
			Errorf("No profile for Stripe customer: %v", err)
		return
	}

	// Any subscription that is no longer collectible drops the profile back
	// to the free tier
	if subscription.Status == stripe.SubscriptionStatusCanceled ||
		subscription.Status == stripe.SubscriptionStatusUnpaid {
		if err := h.profileRepo.UpdatePlan(ctx, profile.ID, models.FreePlan); err != nil {
			logger.Logger.WithField("profile", profile.ID).
				Errorf("Failed to downgrade plan: %v", err)
			return
		}
		logger.Logger.WithField("profile", profile.ID).Info("Plan downgraded to free")
	}
}
