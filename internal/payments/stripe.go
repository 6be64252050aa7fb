package payments

import (
	"context"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/account"
	"github.com/stripe/stripe-go/v78/accountlink"
	"github.com/stripe/stripe-go/v78/paymentintent"
	"github.com/stripe/stripe-go/v78/refund"
	"github.com/stripe/stripe-go/v78/transfer"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/bookedbarber/bookedbarber-api/internal/config"
)

type StripeProvider struct {
	webhookSecret string
	returnURL     string
	reauthURL     string
}

func NewStripeProvider(cfg config.PaymentsConfig) *StripeProvider {
	stripe.Key = cfg.StripeSecretKey

	return &StripeProvider{
		webhookSecret: cfg.StripeWebhookSecret,
		returnURL:     cfg.StripeConnectReturn,
		reauthURL:     cfg.StripeConnectReauth,
	}
}

func (p *StripeProvider) Name() string { return "stripe" }

func (p *StripeProvider) CreateCharge(ctx context.Context, in ChargeInput) (*Charge, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(in.AmountCents),
		Currency:    stripe.String(in.Currency),
		Description: stripe.String(in.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	if in.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(in.CustomerEmail)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}

	return &Charge{
		ProviderID:   pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

func (p *StripeProvider) Refund(ctx context.Context, providerID string) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(providerID),
	}
	params.Context = ctx

	r, err := refund.New(params)
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

// -------- Connect --------

func (p *StripeProvider) CreateConnectAccount(ctx context.Context, email string) (string, error) {
	params := &stripe.AccountParams{
		Type:  stripe.String(string(stripe.AccountTypeExpress)),
		Email: stripe.String(email),
	}
	params.Context = ctx

	acct, err := account.New(params)
	if err != nil {
		return "", err
	}
	return acct.ID, nil
}

func (p *StripeProvider) OnboardingLink(ctx context.Context, accountID string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(p.reauthURL),
		ReturnURL:  stripe.String(p.returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx

	link, err := accountlink.New(params)
	if err != nil {
		return "", err
	}
	return link.URL, nil
}

func (p *StripeProvider) Transfer(ctx context.Context, accountID string, amountCents int64, currency string) (string, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(currency),
		Destination: stripe.String(accountID),
	}
	params.Context = ctx

	tr, err := transfer.New(params)
	if err != nil {
		return "", err
	}
	return tr.ID, nil
}

// VerifyEvent checks the webhook signature and parses the event.
func (p *StripeProvider) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, p.webhookSecret)
}

var (
	_ Provider        = (*StripeProvider)(nil)
	_ ConnectProvider = (*StripeProvider)(nil)
)
