package payments

import (
	"context"
	"errors"
)

var ErrProviderUnavailable = errors.New("payment provider not configured")

type ChargeInput struct {
	AmountCents   int64
	Currency      string
	Description   string
	CustomerEmail string
	Metadata      map[string]string
}

type Charge struct {
	ProviderID string
	// ClientSecret is what the frontend needs to finish the payment
	// (Stripe intent secret, MercadoPago ticket URL).
	ClientSecret string
	Status       string
}

// Provider is the gateway-facing half of the payments flow. The service
// owns all persistence; implementations only talk to the gateway.
type Provider interface {
	Name() string
	CreateCharge(ctx context.Context, in ChargeInput) (*Charge, error)
	Refund(ctx context.Context, providerID string) (string, error)
}

// ConnectProvider is implemented by gateways that can onboard barbers and
// move money to their accounts. Only Stripe supports this today.
type ConnectProvider interface {
	CreateConnectAccount(ctx context.Context, email string) (string, error)
	OnboardingLink(ctx context.Context, accountID string) (string, error)
	Transfer(ctx context.Context, accountID string, amountCents int64, currency string) (string, error)
}
