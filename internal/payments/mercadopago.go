package payments

import (
	"context"
	"strconv"

	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	mppayment "github.com/mercadopago/sdk-go/pkg/payment"
	mprefund "github.com/mercadopago/sdk-go/pkg/refund"
)

// MercadoPagoProvider is the alternative gateway for shops billing in Latin
// America (pix). Selected with PAYMENT_PROVIDER=mercadopago.
type MercadoPagoProvider struct {
	payments mppayment.Client
	refunds  mprefund.Client
}

func NewMercadoPagoProvider(accessToken string) (*MercadoPagoProvider, error) {
	cfg, err := mpconfig.New(accessToken)
	if err != nil {
		return nil, err
	}

	return &MercadoPagoProvider{
		payments: mppayment.NewClient(cfg),
		refunds:  mprefund.NewClient(cfg),
	}, nil
}

func (p *MercadoPagoProvider) Name() string { return "mercadopago" }

func (p *MercadoPagoProvider) CreateCharge(ctx context.Context, in ChargeInput) (*Charge, error) {
	req := mppayment.Request{
		TransactionAmount: float64(in.AmountCents) / 100,
		Description:       in.Description,
		PaymentMethodID:   "pix",
		Payer: &mppayment.PayerRequest{
			Email: in.CustomerEmail,
		},
	}

	res, err := p.payments.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	return &Charge{
		ProviderID:   strconv.Itoa(res.ID),
		Status:       res.Status,
		ClientSecret: res.PointOfInteraction.TransactionData.TicketURL,
	}, nil
}

func (p *MercadoPagoProvider) Refund(ctx context.Context, providerID string) (string, error) {
	id, err := strconv.Atoi(providerID)
	if err != nil {
		return "", err
	}

	res, err := p.refunds.Create(ctx, id)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(res.ID), nil
}

var _ Provider = (*MercadoPagoProvider)(nil)
