package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"salepoint/internal/config"
	"salepoint/internal/domain"
	"salepoint/internal/notify"
	"salepoint/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type nopClassifier struct{}

func (nopClassifier) Classify(p *domain.Product) domain.StockStatus {
	return domain.StockAdequate
}

func newTestService(t *testing.T) (Service, *notify.Hub) {
	t.Helper()
	catalog := repository.NewSampleCatalog()
	hub := notify.NewHub(nopClassifier{}, nil, nil, zap.NewNop())
	cfg := config.AuthConfig{JWTSecret: "test-secret", AccessExpiry: 480}
	return NewService(catalog, hub, cfg, zap.NewNop()), hub
}

func TestLoginIssuesTokenWithClaims(t *testing.T) {
	svc, hub := newTestService(t)

	result, err := svc.Login(context.Background(), "clerk1", "clerk123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if result.User.Username != "clerk1" || result.User.Role != "clerk" {
		t.Errorf("identity = %+v", result.User)
	}
	if result.ExpiresAt.Before(time.Now().Add(7 * time.Hour)) {
		t.Errorf("expiry %v too soon for a 480 minute token", result.ExpiresAt)
	}

	token, err := jwt.Parse(result.Token, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("issued token does not verify: %v", err)
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["username"] != "clerk1" || claims["role"] != "clerk" {
		t.Errorf("claims = %v", claims)
	}

	list := hub.List(0)
	if len(list) != 1 || list[0].Title != "User Login" {
		t.Errorf("login not recorded: %+v", list)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, hub := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Login(ctx, "clerk1", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "clerk123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v", err)
	}
	if len(hub.List(0)) != 0 {
		t.Error("failed logins raised notifications")
	}
}

func TestLogoutRecordsNotification(t *testing.T) {
	svc, hub := newTestService(t)

	svc.Logout("manager1")

	list := hub.List(0)
	if len(list) != 1 || list[0].Title != "User Logout" {
		t.Errorf("logout not recorded: %+v", list)
	}
}
