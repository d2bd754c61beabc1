package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"

	"salepoint/internal/config"

	"go.uber.org/zap"
)

func TestTwilioSMSDisabledMakesNoNetworkCall(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	sms := NewTwilioSMS(config.SMSConfig{Enabled: false}, server.Client(), zap.NewNop())
	sms.baseURL = server.URL

	err := sms.SendSMS(context.Background(), "254712345678", "hello")
	if !errors.Is(err, ErrChannelDisabled) {
		t.Fatalf("expected ErrChannelDisabled, got %v", err)
	}
	if called {
		t.Error("disabled channel reached the network")
	}
}

func TestTwilioSMSMissingCredentials(t *testing.T) {
	sms := NewTwilioSMS(config.SMSConfig{Enabled: true}, nil, zap.NewNop())

	err := sms.SendSMS(context.Background(), "254712345678", "hello")
	if !errors.Is(err, ErrChannelNotConfigured) {
		t.Fatalf("expected ErrChannelNotConfigured, got %v", err)
	}
}

func TestTwilioSMSPostsMessage(t *testing.T) {
	var gotPath, gotTo, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotPath = r.URL.Path
		gotTo = r.PostForm.Get("To")
		gotBody = r.PostForm.Get("Body")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	cfg := config.SMSConfig{Enabled: true, AccountSID: "AC123", AuthToken: "tok", FromNumber: "+15550100"}
	sms := NewTwilioSMS(cfg, server.Client(), zap.NewNop())
	sms.baseURL = server.URL

	if err := sms.SendSMS(context.Background(), "254712345678", "Payment received"); err != nil {
		t.Fatalf("SendSMS failed: %v", err)
	}

	if !strings.Contains(gotPath, "AC123") {
		t.Errorf("request path %q missing account sid", gotPath)
	}
	if gotTo != "254712345678" || gotBody != "Payment received" {
		t.Errorf("posted To=%q Body=%q", gotTo, gotBody)
	}
}

func TestTwilioSMSProviderErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := config.SMSConfig{Enabled: true, AccountSID: "AC123", AuthToken: "bad", FromNumber: "+15550100"}
	sms := NewTwilioSMS(cfg, server.Client(), zap.NewNop())
	sms.baseURL = server.URL

	if err := sms.SendSMS(context.Background(), "254712345678", "x"); err == nil {
		t.Fatal("expected error from provider status 401")
	}
}

func TestSMTPEmailDisabled(t *testing.T) {
	email := NewSMTPEmail(config.EmailConfig{Enabled: false}, zap.NewNop())

	err := email.SendEmail(context.Background(), "s", "b", nil)
	if !errors.Is(err, ErrChannelDisabled) {
		t.Fatalf("expected ErrChannelDisabled, got %v", err)
	}
}

func TestSMTPEmailBuildsMessage(t *testing.T) {
	cfg := config.EmailConfig{
		Enabled:    true,
		SMTPHost:   "smtp.example.com",
		SMTPPort:   587,
		Sender:     "alerts@salepoint.local",
		Password:   "secret",
		Recipients: []string{"owner@example.com"},
	}
	email := NewSMTPEmail(cfg, zap.NewNop())

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	email.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	if err := email.SendEmail(context.Background(), "Critical Stock Alert: Sugar 2kg", "8 units left", nil); err != nil {
		t.Fatalf("SendEmail failed: %v", err)
	}

	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if gotFrom != cfg.Sender {
		t.Errorf("from = %q", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "owner@example.com" {
		t.Errorf("to = %v, want configured recipients", gotTo)
	}
	if !strings.Contains(string(gotMsg), "Subject: Critical Stock Alert: Sugar 2kg") {
		t.Errorf("message missing subject header:\n%s", gotMsg)
	}
}

func TestSMTPEmailExplicitRecipientOverridesConfig(t *testing.T) {
	cfg := config.EmailConfig{
		Enabled:    true,
		SMTPHost:   "smtp.example.com",
		SMTPPort:   587,
		Sender:     "alerts@salepoint.local",
		Recipients: []string{"owner@example.com"},
	}
	email := NewSMTPEmail(cfg, zap.NewNop())

	var gotTo []string
	email.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotTo = to
		return nil
	}

	if err := email.SendEmail(context.Background(), "s", "b", []string{"direct@example.com"}); err != nil {
		t.Fatalf("SendEmail failed: %v", err)
	}
	if len(gotTo) != 1 || gotTo[0] != "direct@example.com" {
		t.Errorf("to = %v, want explicit recipient", gotTo)
	}
}
