package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"savings-circle/rosca/internal/apperrors"
	"savings-circle/rosca/internal/auth"
	"savings-circle/rosca/internal/constants"
	"savings-circle/rosca/internal/db/repositories"
	"savings-circle/rosca/internal/models/dtos"
	"savings-circle/rosca/internal/models/entities"
	gormModels "savings-circle/rosca/internal/models/gorm"
)

// Mock TurnReserver
type mockTurnReserver struct {
	reserveFunc func(ctx context.Context, userID, turnID string) (*dtos.ReservationResult, error)
}

func (m *mockTurnReserver) Reserve(ctx context.Context, userID, turnID string) (*dtos.ReservationResult, error) {
	return m.reserveFunc(ctx, userID, turnID)
}

// Mock CycleTrigger
type mockCycleTrigger struct {
	triggerFunc func(ctx context.Context, associationID string) (*dtos.CycleResult, error)
}

func (m *mockCycleTrigger) TriggerCycle(ctx context.Context, associationID string) (*dtos.CycleResult, error) {
	return m.triggerFunc(ctx, associationID)
}

// Mock AssociationManager
type mockAssociationManager struct {
	createFunc  func(ctx context.Context, req dtos.CreateAssociationReq) (*gormModels.Association, error)
	summaryFunc func(ctx context.Context, associationID string) (*dtos.AssociationSummary, error)
	topUpFunc   func(ctx context.Context, userID string, amount decimal.Decimal) (*dtos.WalletView, error)
}

func (m *mockAssociationManager) Create(ctx context.Context, req dtos.CreateAssociationReq) (*gormModels.Association, error) {
	return m.createFunc(ctx, req)
}

func (m *mockAssociationManager) Summary(ctx context.Context, associationID string) (*dtos.AssociationSummary, error) {
	return m.summaryFunc(ctx, associationID)
}

func (m *mockAssociationManager) TopUp(ctx context.Context, userID string, amount decimal.Decimal) (*dtos.WalletView, error) {
	return m.topUpFunc(ctx, userID, amount)
}

type decodedResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Kind           string           `json:"kind"`
		Code           string           `json:"code"`
		RequiredAmount *decimal.Decimal `json:"required_amount"`
		CurrentBalance *decimal.Decimal `json:"current_balance"`
		Members        []struct {
			UserID string `json:"user_id"`
		} `json:"members"`
	} `json:"error"`
}

func withClaims(userID string, role constants.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := &auth.JWTClaims{
				RoleValue:        role,
				RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
			}
			next.ServeHTTP(w, r.WithContext(auth.SetUserClaims(r.Context(), claims)))
		})
	}
}

func serve(t *testing.T, router http.Handler, method, path string, body []byte) (*httptest.ResponseRecorder, decodedResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var resp decodedResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
	return rr, resp
}

func TestReserveTurnHandler_Success(t *testing.T) {
	var gotUser, gotTurn string
	svc := &mockTurnReserver{
		reserveFunc: func(ctx context.Context, userID, turnID string) (*dtos.ReservationResult, error) {
			gotUser, gotTurn = userID, turnID
			return &dtos.ReservationResult{Success: true, Turn: dtos.TurnView{ID: turnID, TurnNumber: 3}}, nil
		},
	}

	r := chi.NewRouter()
	r.With(withClaims("user-1", constants.RoleMember)).Post("/api/v1/turns/{turn_id}/reserve", ReserveTurnHandler(svc))

	rr, resp := serve(t, r, "POST", "/api/v1/turns/turn-9/reserve", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if gotUser != "user-1" || gotTurn != "turn-9" {
		t.Errorf("Expected user-1/turn-9, got %s/%s", gotUser, gotTurn)
	}
	if resp.Status != string(constants.APIStatusOk) {
		t.Errorf("Expected ok status, got %s", resp.Status)
	}
}

func TestReserveTurnHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"insufficient funds", apperrors.InsufficientFunds(decimal.NewFromInt(7), decimal.NewFromInt(5)), http.StatusPaymentRequired, constants.ErrCodeInsufficientFunds},
		{"already holding", apperrors.Conflict(constants.ErrCodeAlreadyHoldingTurn, ""), http.StatusConflict, constants.ErrCodeAlreadyHoldingTurn},
		{"turn not found", apperrors.NotFound(constants.ErrCodeTurnNotFound, ""), http.StatusNotFound, constants.ErrCodeTurnNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockTurnReserver{
				reserveFunc: func(ctx context.Context, userID, turnID string) (*dtos.ReservationResult, error) {
					return nil, tt.err
				},
			}
			r := chi.NewRouter()
			r.With(withClaims("user-1", constants.RoleMember)).Post("/turns/{turn_id}/reserve", ReserveTurnHandler(svc))

			rr, resp := serve(t, r, "POST", "/turns/t/reserve", nil)
			if rr.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rr.Code)
			}
			if resp.Status != string(constants.APIStatusError) || resp.Error == nil {
				t.Fatalf("Expected error body, got %+v", resp)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, resp.Error.Code)
			}
		})
	}
}

func TestReserveTurnHandler_InsufficientFundsCarriesAmounts(t *testing.T) {
	svc := &mockTurnReserver{
		reserveFunc: func(ctx context.Context, userID, turnID string) (*dtos.ReservationResult, error) {
			return nil, apperrors.InsufficientFunds(decimal.NewFromInt(7), decimal.NewFromInt(5))
		},
	}
	r := chi.NewRouter()
	r.With(withClaims("user-1", constants.RoleMember)).Post("/turns/{turn_id}/reserve", ReserveTurnHandler(svc))

	_, resp := serve(t, r, "POST", "/turns/t/reserve", nil)
	if resp.Error.RequiredAmount == nil || !resp.Error.RequiredAmount.Equal(decimal.NewFromInt(7)) {
		t.Errorf("Expected required amount 7, got %v", resp.Error.RequiredAmount)
	}
	if resp.Error.CurrentBalance == nil || !resp.Error.CurrentBalance.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected current balance 5, got %v", resp.Error.CurrentBalance)
	}
}

func TestReserveTurnHandler_MissingClaims(t *testing.T) {
	svc := &mockTurnReserver{}
	r := chi.NewRouter()
	r.Post("/turns/{turn_id}/reserve", ReserveTurnHandler(svc))

	rr, resp := serve(t, r, "POST", "/turns/t/reserve", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}
	if resp.Error == nil || resp.Error.Code != constants.ErrCodeUnauthorized {
		t.Errorf("Expected unauthorized code, got %+v", resp.Error)
	}
}

func TestTriggerCycleHandler_ShortfallListsMembers(t *testing.T) {
	svc := &mockCycleTrigger{
		triggerFunc: func(ctx context.Context, associationID string) (*dtos.CycleResult, error) {
			return nil, apperrors.ContributionShortfall([]apperrors.Shortfall{
				{UserID: "u-2", RequiredAmount: decimal.NewFromInt(100), CurrentBalance: decimal.NewFromInt(50)},
				{UserID: "u-3", RequiredAmount: decimal.NewFromInt(100), CurrentBalance: decimal.Zero},
			})
		},
	}
	r := chi.NewRouter()
	r.Post("/associations/{association_id}/cycle", TriggerCycleHandler(svc))

	rr, resp := serve(t, r, "POST", "/associations/a-1/cycle", nil)
	if rr.Code != http.StatusPaymentRequired {
		t.Errorf("Expected status 402, got %d", rr.Code)
	}
	if resp.Error == nil || len(resp.Error.Members) != 2 {
		t.Fatalf("Expected two shortfall members, got %+v", resp.Error)
	}
	if resp.Error.Kind != string(apperrors.KindInsufficientFunds) {
		t.Errorf("Expected kind InsufficientFunds, got %s", resp.Error.Kind)
	}
}

func TestTriggerCycleHandler_CompletedIsSuccess(t *testing.T) {
	svc := &mockCycleTrigger{
		triggerFunc: func(ctx context.Context, associationID string) (*dtos.CycleResult, error) {
			return &dtos.CycleResult{
				Success:       true,
				Status:        string(constants.AssociationCompleted),
				AssociationID: associationID,
				Message:       "association already completed",
			}, nil
		},
	}
	r := chi.NewRouter()
	r.Post("/associations/{association_id}/cycle", TriggerCycleHandler(svc))

	rr, resp := serve(t, r, "POST", "/associations/a-1/cycle", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var result dtos.CycleResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
	if result.Status != string(constants.AssociationCompleted) || result.AssociationID != "a-1" {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestGetFeeRatiosHandler(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/fees/ratios", GetFeeRatiosHandler())

	rr, resp := serve(t, r, "GET", "/fees/ratios?duration=12", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var schedule dtos.FeeSchedule
	if err := json.Unmarshal(resp.Data, &schedule); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
	if len(schedule.Turns) != 12 {
		t.Fatalf("Expected 12 ratios, got %d", len(schedule.Turns))
	}
	if !schedule.Turns[9].Ratio.Equal(decimal.RequireFromString("-0.02")) {
		t.Errorf("Expected turn 10 ratio -0.02, got %s", schedule.Turns[9].Ratio)
	}

	for _, q := range []string{"", "?duration=-1", "?duration=abc", "?duration=121", "?duration=5000000"} {
		rr, resp := serve(t, r, "GET", "/fees/ratios"+q, nil)
		if rr.Code != http.StatusBadRequest || resp.Error == nil || resp.Error.Code != constants.ErrCodeBadRequest {
			t.Errorf("%q: expected 400 BAD_REQUEST, got %d", q, rr.Code)
		}
		if rr.Body.Len() > 4096 {
			t.Errorf("%q: expected a small error body, got %d bytes", q, rr.Body.Len())
		}
	}
}

func TestGetFeeRatiosHandler_Bounds(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/fees/ratios", GetFeeRatiosHandler())

	tests := []struct {
		query string
		turns int
	}{
		{"?duration=0", 0},
		{"?duration=120", 120},
	}
	for _, tt := range tests {
		rr, resp := serve(t, r, "GET", "/fees/ratios"+tt.query, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%q: expected status 200, got %d", tt.query, rr.Code)
		}
		var schedule dtos.FeeSchedule
		if err := json.Unmarshal(resp.Data, &schedule); err != nil {
			t.Fatalf("%q: failed to decode data: %v", tt.query, err)
		}
		if schedule.Turns == nil || len(schedule.Turns) != tt.turns {
			t.Errorf("%q: expected %d turns, got %v", tt.query, tt.turns, schedule.Turns)
		}
	}
}

func TestCreateAssociationHandler(t *testing.T) {
	svc := &mockAssociationManager{
		createFunc: func(ctx context.Context, req dtos.CreateAssociationReq) (*gormModels.Association, error) {
			if req.Duration != 12 || !req.MonthlyAmount.Equal(decimal.NewFromInt(100)) {
				t.Errorf("Unexpected request: %+v", req)
			}
			return &gormModels.Association{ID: "a-1"}, nil
		},
		summaryFunc: func(ctx context.Context, associationID string) (*dtos.AssociationSummary, error) {
			return &dtos.AssociationSummary{ID: associationID, Status: string(constants.AssociationPending)}, nil
		},
	}
	r := chi.NewRouter()
	r.Post("/admin/associations", CreateAssociationHandler(svc))

	body, _ := json.Marshal(map[string]interface{}{"name": "circle", "monthly_amount": "100", "duration": 12})
	rr, _ := serve(t, r, "POST", "/admin/associations", body)
	if rr.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rr.Code)
	}

	rr, resp := serve(t, r, "POST", "/admin/associations", []byte(`{"monthly_amount": "100"}`))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
	if resp.Error == nil || resp.Error.Code != constants.ErrCodeBadRequest {
		t.Errorf("Expected bad request code, got %+v", resp.Error)
	}
}

func TestTopUpWalletHandler_RejectsNonPositive(t *testing.T) {
	svc := &mockAssociationManager{
		topUpFunc: func(ctx context.Context, userID string, amount decimal.Decimal) (*dtos.WalletView, error) {
			if !amount.IsPositive() {
				return nil, apperrors.Conflict(constants.ErrCodeInvalidAmount, "")
			}
			return &dtos.WalletView{UserID: userID, Balance: amount}, nil
		},
	}
	r := chi.NewRouter()
	r.Post("/admin/wallets/{user_id}/topup", TopUpWalletHandler(svc))

	rr, _ := serve(t, r, "POST", "/admin/wallets/u-1/topup", []byte(`{"amount": "25"}`))
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	rr, resp := serve(t, r, "POST", "/admin/wallets/u-1/topup", []byte(`{"amount": "-5"}`))
	if rr.Code != http.StatusConflict || resp.Error.Code != constants.ErrCodeInvalidAmount {
		t.Errorf("Expected 409 invalid amount, got %d %+v", rr.Code, resp.Error)
	}
}

// Mock profile sources
type mockProfileReader struct {
	getFunc func(ctx context.Context, id string) (*gormModels.User, error)
}

func (m *mockProfileReader) GetWithMemberships(ctx context.Context, id string) (*gormModels.User, error) {
	return m.getFunc(ctx, id)
}

type mockUserPayments struct {
	gotLimit int
}

func (m *mockUserPayments) ListByUser(ctx context.Context, userID string, limit int) ([]entities.PaymentRecord, error) {
	m.gotLimit = limit
	return []entities.PaymentRecord{{ID: "p-1", UserID: userID, Kind: "payout"}}, nil
}

func TestGetMeHandler(t *testing.T) {
	turn := 3
	users := &mockProfileReader{
		getFunc: func(ctx context.Context, id string) (*gormModels.User, error) {
			if id != "u-1" {
				return nil, repositories.ErrUserNotFound
			}
			return &gormModels.User{
				ID:            id,
				Name:          "alice",
				Role:          constants.RoleMember,
				WalletBalance: decimal.NewFromInt(40),
				Memberships: []gormModels.Membership{{
					AssociationID: "a-1",
					TurnNumber:    &turn,
					Status:        constants.MembershipActive,
					Association:   gormModels.Association{Name: "circle"},
				}},
			}, nil
		},
	}
	payments := &mockUserPayments{}

	r := chi.NewRouter()
	r.With(withClaims("u-1", constants.RoleMember)).Get("/me", GetMeHandler(users, payments))
	r.With(withClaims("ghost", constants.RoleMember)).Get("/ghost", GetMeHandler(users, payments))

	rr, resp := serve(t, r, "GET", "/me", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var view dtos.ProfileView
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		t.Fatalf("Failed to decode profile: %v", err)
	}
	if len(view.Memberships) != 1 || view.Memberships[0].AssociationName != "circle" {
		t.Errorf("Unexpected memberships: %+v", view.Memberships)
	}
	if len(view.RecentPayments) != 1 || payments.gotLimit != recentPaymentsLimit {
		t.Errorf("Expected recent payments with limit %d, got %d rows limit %d", recentPaymentsLimit, len(view.RecentPayments), payments.gotLimit)
	}

	rr, resp = serve(t, r, "GET", "/ghost", nil)
	if rr.Code != http.StatusNotFound || resp.Error == nil || resp.Error.Code != constants.ErrCodeNotFound {
		t.Errorf("Expected 404 NOT_FOUND, got %d %+v", rr.Code, resp.Error)
	}
}

// Mock InstallmentPayer
type mockInstallmentPayer struct {
	payFunc func(ctx context.Context, userID, associationID string) (*dtos.ContributionResult, error)
}

func (m *mockInstallmentPayer) Pay(ctx context.Context, userID, associationID string) (*dtos.ContributionResult, error) {
	return m.payFunc(ctx, userID, associationID)
}

// Mock PaymentHistory
type mockPaymentHistory struct {
	gotLimit int
}

func (m *mockPaymentHistory) ListByAssociation(ctx context.Context, associationID string, limit int) ([]entities.PaymentRecord, error) {
	m.gotLimit = limit
	return []entities.PaymentRecord{{ID: "p-1", AssociationID: &associationID, Kind: "contribution"}}, nil
}

func (m *mockPaymentHistory) Totals(ctx context.Context, associationID string) ([]entities.PaymentTotal, error) {
	return []entities.PaymentTotal{{Kind: "contribution", Total: decimal.NewFromInt(-100)}}, nil
}

func TestPayInstallmentHandler(t *testing.T) {
	svc := &mockInstallmentPayer{
		payFunc: func(ctx context.Context, userID, associationID string) (*dtos.ContributionResult, error) {
			if associationID == "done" {
				return nil, apperrors.Conflict(constants.ErrCodeNothingOwed, "")
			}
			return &dtos.ContributionResult{
				Success: true,
				Payment: dtos.PaymentView{Amount: decimal.NewFromInt(100), FeeAmount: decimal.NewFromInt(7)},
			}, nil
		},
	}
	r := chi.NewRouter()
	r.With(withClaims("u-1", constants.RoleMember)).Post("/associations/{association_id}/contributions", PayInstallmentHandler(svc))

	rr, _ := serve(t, r, "POST", "/associations/a-1/contributions", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}

	rr, resp := serve(t, r, "POST", "/associations/done/contributions", nil)
	if rr.Code != http.StatusConflict || resp.Error.Code != constants.ErrCodeNothingOwed {
		t.Errorf("Expected 409 nothing owed, got %d %+v", rr.Code, resp.Error)
	}
}

func TestGetAssociationHandler_NotFound(t *testing.T) {
	svc := &mockAssociationManager{
		summaryFunc: func(ctx context.Context, associationID string) (*dtos.AssociationSummary, error) {
			return nil, apperrors.NotFound(constants.ErrCodeAssociationNotFound, "")
		},
	}
	r := chi.NewRouter()
	r.Get("/associations/{association_id}", GetAssociationHandler(svc))

	rr, resp := serve(t, r, "GET", "/associations/missing", nil)
	if rr.Code != http.StatusNotFound || resp.Error.Code != constants.ErrCodeAssociationNotFound {
		t.Errorf("Expected 404 association not found, got %d %+v", rr.Code, resp.Error)
	}
}

func TestListPaymentsHandler(t *testing.T) {
	repo := &mockPaymentHistory{}
	r := chi.NewRouter()
	r.Get("/associations/{association_id}/payments", ListPaymentsHandler(repo))

	rr, resp := serve(t, r, "GET", "/associations/a-1/payments?limit=5", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if repo.gotLimit != 5 {
		t.Errorf("Expected limit 5 passed through, got %d", repo.gotLimit)
	}
	var view dtos.PaymentHistoryView
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		t.Fatalf("Failed to decode payments: %v", err)
	}
	if len(view.Payments) != 1 || len(view.Totals) != 1 || view.AssociationID != "a-1" {
		t.Errorf("Unexpected history: %+v", view)
	}

	for _, bad := range []string{"0", "-3", "abc"} {
		rr, resp := serve(t, r, "GET", "/associations/a-1/payments?limit="+bad, nil)
		if rr.Code != http.StatusBadRequest || resp.Error.Code != constants.ErrCodeBadRequest {
			t.Errorf("limit=%s: expected 400 BAD_REQUEST, got %d %+v", bad, rr.Code, resp.Error)
		}
	}
}
