package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is the closed set of ways a sale can be paid. Cash and
// Card settle locally; the mobile-money methods require an asynchronous
// confirmation from the provider before a sale may commit.
type PaymentMethod string

const (
	MethodCash        PaymentMethod = "cash"
	MethodCard        PaymentMethod = "card"
	MethodMPesa       PaymentMethod = "mpesa"
	MethodAirtelMoney PaymentMethod = "airtel_money"
	MethodTKash       PaymentMethod = "tkash"
	MethodEquitel     PaymentMethod = "equitel"
)

// MobileMethods lists every phone-number-addressed provider
var MobileMethods = []PaymentMethod{MethodMPesa, MethodAirtelMoney, MethodTKash, MethodEquitel}

// IsMobile reports whether the method needs a provider handshake
func (m PaymentMethod) IsMobile() bool {
	switch m {
	case MethodMPesa, MethodAirtelMoney, MethodTKash, MethodEquitel:
		return true
	case MethodCash, MethodCard:
		return false
	}
	return false
}

// Valid reports whether the method is one of the supported variants
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodMPesa, MethodAirtelMoney, MethodTKash, MethodEquitel:
		return true
	}
	return false
}

// PaymentStatus is the lifecycle state of a payment attempt
type PaymentStatus string

const (
	PaymentCreated   PaymentStatus = "created"
	PaymentInitiated PaymentStatus = "initiated"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentTimedOut  PaymentStatus = "timed_out"
)

// Terminal reports whether the status ends the attempt
func (s PaymentStatus) Terminal() bool {
	return s == PaymentConfirmed || s == PaymentFailed || s == PaymentTimedOut
}

// PaymentRequest tracks one mobile-payment attempt through the
// Created -> Initiated -> {Confirmed, Failed, TimedOut} state machine.
type PaymentRequest struct {
	ID          uuid.UUID     `json:"id"`
	Method      PaymentMethod `json:"method"`
	PhoneNumber string        `json:"phone_number"`
	Amount      float64       `json:"amount"`
	Reference   string        `json:"reference"`
	ProviderRef string        `json:"provider_ref,omitempty"`
	Status      PaymentStatus `json:"status"`
	Reason      string        `json:"reason,omitempty"`
	Attempts    int           `json:"attempts"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
