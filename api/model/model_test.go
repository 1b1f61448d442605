package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateActivatePolicy(t *testing.T) {
	tests := []struct {
		name    string
		req     ActivatePolicy
		wantErr bool
	}{
		{"valid", ActivatePolicy{ApplicationID: "app_1", AnnualPremium: decimal.NewFromInt(1200)}, false},
		{"valid with start date", ActivatePolicy{ApplicationID: "app_1", AnnualPremium: decimal.NewFromInt(1200), StartDate: "2025-04-01"}, false},
		{"missing application", ActivatePolicy{AnnualPremium: decimal.NewFromInt(1200)}, true},
		{"zero premium", ActivatePolicy{ApplicationID: "app_1"}, true},
		{"negative premium", ActivatePolicy{ApplicationID: "app_1", AnnualPremium: decimal.NewFromInt(-5)}, true},
		{"too many installments", ActivatePolicy{ApplicationID: "app_1", AnnualPremium: decimal.NewFromInt(1), Installments: 24}, true},
		{"bad date", ActivatePolicy{ApplicationID: "app_1", AnnualPremium: decimal.NewFromInt(1), StartDate: "01/04/2025"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.ValidateActivatePolicy()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestToActivatePolicyRequest(t *testing.T) {
	a := ActivatePolicy{ApplicationID: "app_1", AnnualPremium: decimal.NewFromInt(900), Installments: 3, StartDate: "2025-04-01"}
	req := a.ToActivatePolicyRequest("key-1")

	assert.Equal(t, "key-1", req.IdempotencyKey)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), req.StartDate)
	assert.Equal(t, 3, req.Installments)

	a.StartDate = ""
	assert.True(t, a.ToActivatePolicyRequest("key-1").StartDate.IsZero())
}

func TestValidateRenewPolicy(t *testing.T) {
	r := RenewPolicy{}
	assert.NoError(t, r.ValidateRenewPolicy())

	r.AnnualPremium = decimal.NewFromInt(-1)
	assert.Error(t, r.ValidateRenewPolicy())
}

func TestValidateApplicationWebhook(t *testing.T) {
	w := ApplicationWebhook{EventID: "evt_1", ExternalID: "app_1", Status: "approved"}
	assert.NoError(t, w.ValidateApplicationWebhook())

	w.Status = "approvedish"
	assert.Error(t, w.ValidateApplicationWebhook())

	w = ApplicationWebhook{Status: "approved"}
	assert.Error(t, w.ValidateApplicationWebhook())
}
