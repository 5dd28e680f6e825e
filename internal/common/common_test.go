package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"savings-circle/rosca/internal/apperrors"
	"savings-circle/rosca/internal/constants"
	"savings-circle/rosca/internal/models/dtos"
)

func TestCacheService_GetOrSet(t *testing.T) {
	cs := NewCacheService(time.Minute, time.Minute)
	calls := 0
	loader := func() (any, error) {
		calls++
		return "summary", nil
	}

	for i := 0; i < 3; i++ {
		val, err := cs.GetOrSet("k", time.Minute, loader)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if val != "summary" {
			t.Errorf("Expected cached value, got %v", val)
		}
	}
	if calls != 1 {
		t.Errorf("Expected loader called once, got %d", calls)
	}

	cs.Delete("k")
	if _, ok := cs.Get("k"); ok {
		t.Error("Expected key to be gone after delete")
	}

	_, err := cs.GetOrSet("bad", time.Minute, func() (any, error) { return nil, errors.New("boom") })
	if err == nil {
		t.Error("Expected loader error to propagate")
	}
	if _, ok := cs.Get("bad"); ok {
		t.Error("Expected failed load not to be cached")
	}
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) dtos.APIResponse {
	t.Helper()
	var resp dtos.APIResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		override []int
		status   int
		code     string
		leaks    string
	}{
		{"conflict", apperrors.Conflict(constants.ErrCodeAlreadyReserved, ""), nil, http.StatusConflict, constants.ErrCodeAlreadyReserved, ""},
		{"insufficient funds", apperrors.InsufficientFunds(decimal.RequireFromString("7"), decimal.RequireFromString("5")), nil, http.StatusPaymentRequired, constants.ErrCodeInsufficientFunds, ""},
		{"internal hides cause", apperrors.Internal("load association", errors.New("pq: secret detail")), nil, http.StatusInternalServerError, constants.ErrCodeInternal, "secret detail"},
		{"plain error with override", errors.New("missing token"), []int{http.StatusUnauthorized}, http.StatusUnauthorized, constants.ErrCodeUnauthorized, ""},
		{"plain error hides cause", errors.New("dial tcp refused"), nil, http.StatusInternalServerError, constants.ErrCodeInternal, "dial tcp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondError(rr, time.Now(), tt.err, "request failed", tt.override...)

			if rr.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rr.Code)
			}
			body := rr.Body.String()
			if tt.leaks != "" && strings.Contains(body, tt.leaks) {
				t.Errorf("Response leaked %q: %s", tt.leaks, body)
			}
			resp := decode(t, rr)
			if resp.Status != string(constants.APIStatusError) {
				t.Errorf("Expected error status, got %s", resp.Status)
			}
			if resp.Error == nil || resp.Error.Code != tt.code {
				t.Fatalf("Expected code %s, got %+v", tt.code, resp.Error)
			}
		})
	}
}

func TestRespondError_InsufficientFundsAmounts(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, time.Now(), apperrors.InsufficientFunds(decimal.RequireFromString("7"), decimal.RequireFromString("5")), "")

	resp := decode(t, rr)
	if resp.Error.RequiredAmount == nil || !resp.Error.RequiredAmount.Equal(decimal.RequireFromString("7")) {
		t.Errorf("Expected required 7, got %v", resp.Error.RequiredAmount)
	}
	if resp.Error.CurrentBalance == nil || !resp.Error.CurrentBalance.Equal(decimal.RequireFromString("5")) {
		t.Errorf("Expected current 5, got %v", resp.Error.CurrentBalance)
	}
}
