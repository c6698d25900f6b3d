package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/set-night/cosmiccreator/internal/config"
	"github.com/set-night/cosmiccreator/internal/domain"
	"github.com/set-night/cosmiccreator/internal/poll"
	"github.com/set-night/cosmiccreator/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// CheckoutSession is the part of a hosted checkout session the service reads.
type CheckoutSession struct {
	ID          string
	URL         string
	Paid        bool
	Expired     bool
	AmountTotal int64 // minor units
	Currency    string
}

// CheckoutGateway creates customers and checkout sessions at the payment
// provider.
type CheckoutGateway interface {
	CreateCustomer(ctx context.Context, creator *domain.Creator) (string, error)
	CreateSession(ctx context.Context, customerID, priceID, origin, clientReference string) (*CheckoutSession, error)
	GetSession(ctx context.Context, id string) (*CheckoutSession, error)
}

// PaymentRepository is implemented by repository.Queries.
type PaymentRepository interface {
	GetCreatorByID(ctx context.Context, id int64) (*domain.Creator, error)
	SetCreatorStripeCustomer(ctx context.Context, id int64, customerID string) error
	CreatePayment(ctx context.Context, arg repository.CreatePaymentParams) (*domain.Payment, error)
	GetPaymentBySession(ctx context.Context, checkoutSessionID string) (*domain.Payment, error)
	UpdatePaymentStatus(ctx context.Context, arg repository.UpdatePaymentStatusParams) (*domain.Payment, error)
}

type PaymentService struct {
	creators *CreatorService
	repo     PaymentRepository
	gateway  CheckoutGateway
	priceID  string
	notifier Notifier

	interval    time.Duration
	maxAttempts int
}

func NewPaymentService(creators *CreatorService, repo PaymentRepository, gateway CheckoutGateway, priceID string, notifier Notifier) *PaymentService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &PaymentService{
		creators:    creators,
		repo:        repo,
		gateway:     gateway,
		priceID:     priceID,
		notifier:    notifier,
		interval:    config.PaymentPollInterval,
		maxAttempts: config.PaymentPollMaxAttempts,
	}
}

// CreateCheckout opens a checkout session for the creator and records a
// pending payment. It returns the hosted checkout URL.
func (s *PaymentService) CreateCheckout(ctx context.Context, username, origin string) (string, error) {
	if u, err := url.Parse(origin); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidOrigin, origin)
	}

	creator, _, err := s.creators.FindOrCreate(ctx, username)
	if err != nil {
		return "", err
	}

	customerID := ""
	if creator.StripeCustomerID != nil {
		customerID = *creator.StripeCustomerID
	}
	if customerID == "" {
		customerID, err = s.gateway.CreateCustomer(ctx, creator)
		if err != nil {
			return "", fmt.Errorf("create customer: %w", err)
		}
		if err := s.repo.SetCreatorStripeCustomer(ctx, creator.ID, customerID); err != nil {
			return "", fmt.Errorf("store customer: %w", err)
		}
	}

	session, err := s.gateway.CreateSession(ctx, customerID, s.priceID, origin, fmt.Sprint(creator.ID))
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}

	if _, err := s.repo.CreatePayment(ctx, repository.CreatePaymentParams{
		CreatorID:         creator.ID,
		CheckoutSessionID: session.ID,
		PriceID:           s.priceID,
	}); err != nil {
		return "", fmt.Errorf("record payment: %w", err)
	}

	slog.Info("checkout session created", "creator", creator.Username, "session", session.ID)
	return session.URL, nil
}

// ConfirmPayment polls the checkout session until it is paid or the
// attempts run out. Running out is not an error: the payment stays pending.
func (s *PaymentService) ConfirmPayment(ctx context.Context, sessionID string) (*domain.Payment, error) {
	payment, err := s.repo.GetPaymentBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if payment.Status != domain.PaymentStatusPending {
		return payment, nil
	}

	var session *CheckoutSession
	_, err = poll.Until(ctx, s.interval, s.maxAttempts, func(ctx context.Context, _ int) (bool, error) {
		cs, err := s.gateway.GetSession(ctx, sessionID)
		if err != nil {
			return false, err
		}
		session = cs
		return cs.Paid || cs.Expired, nil
	})
	if errors.Is(err, poll.ErrExhausted) {
		return payment, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check checkout session: %w", err)
	}

	status := domain.PaymentStatusPaid
	if !session.Paid {
		status = domain.PaymentStatusFailed
	}
	amount := majorUnits(session.AmountTotal, session.Currency)

	payment, err = s.repo.UpdatePaymentStatus(ctx, repository.UpdatePaymentStatusParams{
		CheckoutSessionID: sessionID,
		Status:            status,
		Amount:            amount,
		Currency:          session.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	if status == domain.PaymentStatusPaid {
		username := fmt.Sprint(payment.CreatorID)
		if creator, err := s.repo.GetCreatorByID(ctx, payment.CreatorID); err == nil {
			username = creator.Username
		}
		s.notifier.LogPayment(username, amount, session.Currency)
		slog.Info("payment confirmed", "creator", username, "session", sessionID, "amount", amount.String())
	}
	return payment, nil
}

// Currencies whose Stripe minor unit is not a hundredth.
var (
	zeroDecimalCurrencies  = []string{"bif", "clp", "djf", "gnf", "jpy", "kmf", "krw", "mga", "pyg", "rwf", "ugx", "vnd", "vuv", "xaf", "xof", "xpf"}
	threeDecimalCurrencies = []string{"bhd", "jod", "kwd", "omr", "tnd"}
)

// majorUnits converts a Stripe amount in minor units to the currency's
// major unit.
func majorUnits(amount int64, currency string) decimal.Decimal {
	currency = strings.ToLower(currency)
	switch {
	case slices.Contains(zeroDecimalCurrencies, currency):
		return decimal.New(amount, 0)
	case slices.Contains(threeDecimalCurrencies, currency):
		return decimal.New(amount, -3)
	default:
		return decimal.New(amount, -2)
	}
}

// StripeGateway is the CheckoutGateway backed by Stripe Checkout.
type StripeGateway struct {
	sc *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeGateway{sc: sc}
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, creator *domain.Creator) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	params.AddMetadata("creator_id", fmt.Sprint(creator.ID))
	params.AddMetadata("username", creator.Username)

	customer, err := g.sc.Customers.New(params)
	if err != nil {
		return "", err
	}
	return customer.ID, nil
}

func (g *StripeGateway) CreateSession(ctx context.Context, customerID, priceID, origin, clientReference string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(1),
		}},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(origin + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(origin + "?canceled=true"),
		ClientReferenceID: stripe.String(clientReference),
	}
	params.Context = ctx

	cs, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return checkoutSession(cs), nil
}

func (g *StripeGateway) GetSession(ctx context.Context, id string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	cs, err := g.sc.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, err
	}
	return checkoutSession(cs), nil
}

func checkoutSession(cs *stripe.CheckoutSession) *CheckoutSession {
	return &CheckoutSession{
		ID:          cs.ID,
		URL:         cs.URL,
		Paid:        cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Expired:     cs.Status == stripe.CheckoutSessionStatusExpired,
		AmountTotal: cs.AmountTotal,
		Currency:    string(cs.Currency),
	}
}
