package pgi

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/borealinsurance/pgi/internal/apierror"
	"github.com/borealinsurance/pgi/model"
)

func TestActivatePolicy(t *testing.T) {
	p, ds := newMockPGI(t)
	appID := gofakeit.UUID()

	ds.On("InsertIdempotencyKey", mock.Anything, "key-1", EndpointActivatePolicy).Return(true, nil)
	ds.On("GetApplication", mock.Anything, appID).Return(&model.Application{ID: appID, Status: model.ApplicationApproved}, nil)
	ds.On("CreatePolicy", mock.Anything, mock.MatchedBy(func(pol *model.Policy) bool {
		return pol.ApplicationID == appID && pol.Status == model.PolicyActive
	})).Return(nil)
	ds.On("CreateScheduleLines", mock.Anything, mock.MatchedBy(func(lines []model.PremiumScheduleLine) bool {
		return len(lines) == 12
	})).Return(nil)
	ds.On("UpdateApplicationStatus", mock.Anything, appID, model.ApplicationActive).Return(nil)

	policy, err := p.ActivatePolicy(context.Background(), ActivatePolicyRequest{
		IdempotencyKey: "key-1",
		ApplicationID:  appID,
		AnnualPremium:  decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, start, policy.StartDate)
	assert.Equal(t, start.AddDate(1, 0, 0), policy.EndDate)
	assert.Equal(t, model.PolicyNumber(testNow), policy.PolicyNumber)
	require.Len(t, policy.Schedule, 12)

	total := decimal.Zero
	for _, line := range policy.Schedule {
		total = total.Add(line.PremiumAmount)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "83.37", policy.Schedule[11].PremiumAmount.StringFixed(2))
	assert.False(t, policy.Replayed)
	ds.AssertExpectations(t)
}

func TestActivatePolicy_ReplayReturnsExistingPolicy(t *testing.T) {
	p, ds := newMockPGI(t)

	existing := &model.Policy{ID: "pol_1", ApplicationID: "app_1", Status: model.PolicyActive}
	ds.On("InsertIdempotencyKey", mock.Anything, "key-1", EndpointActivatePolicy).Return(false, nil)
	ds.On("GetPolicyByApplicationID", mock.Anything, "app_1").Return(existing, nil)
	ds.On("GetScheduleLinesByPolicy", mock.Anything, "pol_1").Return([]model.PremiumScheduleLine{{ID: "sch_1"}}, nil)

	policy, err := p.ActivatePolicy(context.Background(), ActivatePolicyRequest{
		IdempotencyKey: "key-1",
		ApplicationID:  "app_1",
		AnnualPremium:  decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	assert.True(t, policy.Replayed)
	assert.Equal(t, "pol_1", policy.ID)
	ds.AssertNotCalled(t, "CreatePolicy", mock.Anything, mock.Anything)
}

func TestActivatePolicy_KeyReusedForOtherApplication(t *testing.T) {
	p, ds := newMockPGI(t)

	ds.On("InsertIdempotencyKey", mock.Anything, "key-1", EndpointActivatePolicy).Return(false, nil)
	ds.On("GetPolicyByApplicationID", mock.Anything, "app_2").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "not found", nil))

	_, err := p.ActivatePolicy(context.Background(), ActivatePolicyRequest{
		IdempotencyKey: "key-1",
		ApplicationID:  "app_2",
		AnnualPremium:  decimal.NewFromInt(1000),
	})
	assert.True(t, apierror.HasCode(err, apierror.ErrConflict))
}

func TestActivatePolicy_InvalidInput(t *testing.T) {
	p, ds := newMockPGI(t)

	tests := []struct {
		name string
		req  ActivatePolicyRequest
	}{
		{"missing application", ActivatePolicyRequest{IdempotencyKey: "k", AnnualPremium: decimal.NewFromInt(10)}},
		{"zero premium", ActivatePolicyRequest{IdempotencyKey: "k", ApplicationID: "app_1"}},
		{"too many installments", ActivatePolicyRequest{IdempotencyKey: "k", ApplicationID: "app_1", AnnualPremium: decimal.NewFromInt(10), Installments: 13}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ActivatePolicy(context.Background(), tt.req)
			assert.True(t, apierror.HasCode(err, apierror.ErrInvalidInput))
		})
	}
	ds.AssertNotCalled(t, "InsertIdempotencyKey", mock.Anything, mock.Anything, mock.Anything)
}

func TestActivatePolicy_DeclinedApplication(t *testing.T) {
	p, ds := newMockPGI(t)

	ds.On("InsertIdempotencyKey", mock.Anything, "key-9", EndpointActivatePolicy).Return(true, nil)
	ds.On("GetApplication", mock.Anything, "app_9").Return(&model.Application{ID: "app_9", Status: model.ApplicationDeclined}, nil)

	_, err := p.ActivatePolicy(context.Background(), ActivatePolicyRequest{
		IdempotencyKey: "key-9",
		ApplicationID:  "app_9",
		AnnualPremium:  decimal.NewFromInt(600),
		Installments:   6,
	})
	assert.True(t, apierror.HasCode(err, apierror.ErrConflict))
	ds.AssertNotCalled(t, "CreatePolicy", mock.Anything, mock.Anything)
}

func TestRenewPolicy_StartsAtOldEndDate(t *testing.T) {
	p, ds := newMockPGI(t)

	end := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	current := &model.Policy{ID: "pol_1", Status: model.PolicyActive, PremiumAmount: decimal.NewFromInt(1200), EndDate: end}
	renewed := &model.Policy{ID: "pol_1", Status: model.PolicyActive, PremiumAmount: decimal.NewFromInt(1200), EndDate: end.AddDate(1, 0, 0)}

	ds.On("InsertIdempotencyKey", mock.Anything, "renew-1", EndpointRenewPolicy).Return(true, nil)
	ds.On("GetPolicy", mock.Anything, "pol_1").Return(current, nil).Once()
	ds.On("ExtendPolicy", mock.Anything, "pol_1", decimal.NewFromInt(1200), end.AddDate(1, 0, 0)).Return(nil)
	ds.On("CreateScheduleLines", mock.Anything, mock.MatchedBy(func(lines []model.PremiumScheduleLine) bool {
		return len(lines) == 4 && lines[0].DueDate.Equal(end) && lines[0].PremiumAmount.Equal(decimal.NewFromInt(300))
	})).Return(nil)
	ds.On("GetPolicy", mock.Anything, "pol_1").Return(renewed, nil).Once()
	ds.On("GetScheduleLinesByPolicy", mock.Anything, "pol_1").Return([]model.PremiumScheduleLine{}, nil)

	policy, err := p.RenewPolicy(context.Background(), RenewPolicyRequest{IdempotencyKey: "renew-1", PolicyID: "pol_1", Installments: 4})
	require.NoError(t, err)
	assert.Equal(t, end.AddDate(1, 0, 0), policy.EndDate)
	ds.AssertExpectations(t)
}

func TestRenewPolicy_CancelledPolicy(t *testing.T) {
	p, ds := newMockPGI(t)

	ds.On("InsertIdempotencyKey", mock.Anything, "renew-2", EndpointRenewPolicy).Return(true, nil)
	ds.On("GetPolicy", mock.Anything, "pol_2").Return(&model.Policy{ID: "pol_2", Status: model.PolicyCancelled}, nil)

	_, err := p.RenewPolicy(context.Background(), RenewPolicyRequest{IdempotencyKey: "renew-2", PolicyID: "pol_2"})
	assert.True(t, apierror.HasCode(err, apierror.ErrConflict))
	ds.AssertNotCalled(t, "ExtendPolicy", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelPolicy(t *testing.T) {
	p, ds := newMockPGI(t)

	cancelledAt := testNow
	ds.On("CancelPolicy", mock.Anything, "pol_1", testNow).Return(true, nil)
	ds.On("GetPolicy", mock.Anything, "pol_1").Return(&model.Policy{ID: "pol_1", Status: model.PolicyCancelled, CancelledAt: &cancelledAt}, nil)

	policy, err := p.CancelPolicy(context.Background(), "pol_1")
	require.NoError(t, err)
	assert.Equal(t, model.PolicyCancelled, policy.Status)
	ds.AssertNotCalled(t, "MarkScheduleLinePaid", mock.Anything, mock.Anything)
}

func TestCancelPolicy_AlreadyCancelledIsReturned(t *testing.T) {
	p, ds := newMockPGI(t)

	ds.On("CancelPolicy", mock.Anything, "pol_1", testNow).Return(false, nil)
	ds.On("GetPolicy", mock.Anything, "pol_1").Return(&model.Policy{ID: "pol_1", Status: model.PolicyCancelled}, nil)

	policy, err := p.CancelPolicy(context.Background(), "pol_1")
	require.NoError(t, err)
	assert.Equal(t, model.PolicyCancelled, policy.Status)
}

func TestCancelPolicy_NotFound(t *testing.T) {
	p, ds := newMockPGI(t)

	ds.On("CancelPolicy", mock.Anything, "pol_x", testNow).Return(false, nil)
	ds.On("GetPolicy", mock.Anything, "pol_x").Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "not found", nil))

	_, err := p.CancelPolicy(context.Background(), "pol_x")
	assert.True(t, apierror.HasCode(err, apierror.ErrNotFound))
}

func TestCancelPolicy_ExpiredConflicts(t *testing.T) {
	p, ds := newMockPGI(t)

	ds.On("CancelPolicy", mock.Anything, "pol_3", testNow).Return(false, nil)
	ds.On("GetPolicy", mock.Anything, "pol_3").Return(&model.Policy{ID: "pol_3", Status: model.PolicyExpired}, nil)

	_, err := p.CancelPolicy(context.Background(), "pol_3")
	assert.True(t, apierror.HasCode(err, apierror.ErrConflict))
}

func TestGetPolicy_WithSchedule(t *testing.T) {
	p, ds := newMockPGI(t)

	ds.On("GetPolicy", mock.Anything, "pol_1").Return(&model.Policy{ID: "pol_1"}, nil)
	ds.On("GetScheduleLinesByPolicy", mock.Anything, "pol_1").Return([]model.PremiumScheduleLine{{ID: "sch_1"}, {ID: "sch_2"}}, nil)

	policy, err := p.GetPolicy(context.Background(), "pol_1")
	require.NoError(t, err)
	assert.Len(t, policy.Schedule, 2)
}
