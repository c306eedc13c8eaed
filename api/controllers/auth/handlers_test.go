package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/groceryscout/storefront-gateway/api/validators"
)

func decodeRegister(t *testing.T, body string) error {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	var payload RegisterRequest
	return validators.DecodeJSONBody(req, &payload)
}

func TestRegisterAcceptsSixCharacterPassword(t *testing.T) {
	t.Parallel()

	err := decodeRegister(t, `{"email":"shopper@example.com","password":"secret"}`)
	if err != nil {
		t.Fatalf("six characters should satisfy the backend minimum: %v", err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	t.Parallel()

	if err := decodeRegister(t, `{"email":"shopper@example.com","password":"short"}`); err == nil {
		t.Fatal("expected five-character password to fail validation")
	}
}
