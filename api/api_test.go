package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/borealinsurance/pgi"
	"github.com/borealinsurance/pgi/config"
	"github.com/borealinsurance/pgi/database/mocks"
	"github.com/borealinsurance/pgi/internal/apierror"
	"github.com/borealinsurance/pgi/internal/clock"
	"github.com/borealinsurance/pgi/model"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type TestRequest struct {
	Method   string
	Route    string
	Payload  interface{}
	Header   map[string]string
	Response interface{}
}

func setupRouter(t *testing.T, conf *config.Configuration) (*gin.Engine, *mocks.MockDataSource) {
	t.Helper()
	ds := &mocks.MockDataSource{}
	p, err := pgi.NewPGI(ds, conf, pgi.WithClock(clock.NewFakeClock(testNow)))
	require.NoError(t, err)
	return NewAPI(p, conf).Router(), ds
}

func newTestConfig() *config.Configuration {
	cnf := &config.Configuration{ProjectName: "pgi-test"}
	cnf.Accrual.JobName = "premium_accrual"
	return cnf
}

func SetUpTestRequest(t *testing.T, router *gin.Engine, s TestRequest) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if s.Payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(s.Payload))
	}
	req := httptest.NewRequest(s.Method, s.Route, &body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.Header {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if s.Response != nil && w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), s.Response)
	}
	return w
}

func notFound() error {
	return apierror.NewAPIError(apierror.ErrNotFound, "not found", nil)
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t, newTestConfig())

	w := SetUpTestRequest(t, router, TestRequest{Method: http.MethodGet, Route: "/"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSecureModeRequiresKey(t *testing.T) {
	conf := newTestConfig()
	conf.Server.Secure = true
	conf.Server.SecretKey = "s3cret"
	router, ds := setupRouter(t, conf)
	ds.On("GetPolicy", mock.Anything, "pol_1").Return(&model.Policy{ID: "pol_1"}, nil)
	ds.On("GetScheduleLinesByPolicy", mock.Anything, "pol_1").Return([]model.PremiumScheduleLine{}, nil)

	w := SetUpTestRequest(t, router, TestRequest{Method: http.MethodGet, Route: "/policies/pol_1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = SetUpTestRequest(t, router, TestRequest{
		Method: http.MethodGet,
		Route:  "/policies/pol_1",
		Header: map[string]string{"X-PGI-Key": "s3cret"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestActivatePolicy_RequiresIdempotencyKey(t *testing.T) {
	router, ds := setupRouter(t, newTestConfig())

	w := SetUpTestRequest(t, router, TestRequest{
		Method:  http.MethodPost,
		Route:   "/policies/activate",
		Payload: map[string]interface{}{"application_id": "app_1", "annual_premium": 1200},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	ds.AssertNotCalled(t, "InsertIdempotencyKey", mock.Anything, mock.Anything, mock.Anything)
}

func TestActivatePolicy_ValidationError(t *testing.T) {
	router, _ := setupRouter(t, newTestConfig())

	w := SetUpTestRequest(t, router, TestRequest{
		Method:  http.MethodPost,
		Route:   "/policies/activate",
		Payload: map[string]interface{}{"annual_premium": 1200},
		Header:  map[string]string{IdempotencyHeader: "key-1"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActivatePolicy_Created(t *testing.T) {
	router, ds := setupRouter(t, newTestConfig())

	ds.On("InsertIdempotencyKey", mock.Anything, "key-1", pgi.EndpointActivatePolicy).Return(true, nil)
	ds.On("GetApplication", mock.Anything, "app_1").Return(&model.Application{ID: "app_1", Status: model.ApplicationApproved}, nil)
	ds.On("CreatePolicy", mock.Anything, mock.Anything).Return(nil)
	ds.On("CreateScheduleLines", mock.Anything, mock.MatchedBy(func(lines []model.PremiumScheduleLine) bool {
		return len(lines) == 4
	})).Return(nil)
	ds.On("UpdateApplicationStatus", mock.Anything, "app_1", model.ApplicationActive).Return(nil)

	var resp model.Policy
	w := SetUpTestRequest(t, router, TestRequest{
		Method:   http.MethodPost,
		Route:    "/policies/activate",
		Payload:  map[string]interface{}{"application_id": "app_1", "annual_premium": "1200", "installments": 4, "start_date": "2025-04-01"},
		Header:   map[string]string{IdempotencyHeader: "key-1"},
		Response: &resp,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "app_1", resp.ApplicationID)
	assert.Len(t, resp.Schedule, 4)
	assert.True(t, resp.PremiumAmount.Equal(decimal.NewFromInt(1200)))
	ds.AssertExpectations(t)
}

func TestActivatePolicy_ReplayAnswersOK(t *testing.T) {
	router, ds := setupRouter(t, newTestConfig())

	ds.On("InsertIdempotencyKey", mock.Anything, "key-1", pgi.EndpointActivatePolicy).Return(false, nil)
	ds.On("GetPolicyByApplicationID", mock.Anything, "app_1").Return(&model.Policy{ID: "pol_1", ApplicationID: "app_1"}, nil)
	ds.On("GetScheduleLinesByPolicy", mock.Anything, "pol_1").Return([]model.PremiumScheduleLine{}, nil)

	w := SetUpTestRequest(t, router, TestRequest{
		Method:  http.MethodPost,
		Route:   "/policies/activate",
		Payload: map[string]interface{}{"application_id": "app_1", "annual_premium": 1200},
		Header:  map[string]string{IdempotencyHeader: "key-1"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	ds.AssertNotCalled(t, "CreatePolicy", mock.Anything, mock.Anything)
}

func TestGetPolicy_NotFound(t *testing.T) {
	router, ds := setupRouter(t, newTestConfig())
	ds.On("GetPolicy", mock.Anything, "pol_x").Return(nil, notFound())

	w := SetUpTestRequest(t, router, TestRequest{Method: http.MethodGet, Route: "/policies/pol_x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelPolicy_ExpiredConflicts(t *testing.T) {
	router, ds := setupRouter(t, newTestConfig())
	ds.On("CancelPolicy", mock.Anything, "pol_1", testNow).Return(false, nil)
	ds.On("GetPolicy", mock.Anything, "pol_1").Return(&model.Policy{ID: "pol_1", Status: model.PolicyExpired}, nil)

	w := SetUpTestRequest(t, router, TestRequest{Method: http.MethodPost, Route: "/policies/pol_1/cancel"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRenewPolicy(t *testing.T) {
	router, ds := setupRouter(t, newTestConfig())

	end := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ds.On("InsertIdempotencyKey", mock.Anything, "renew-1", pgi.EndpointRenewPolicy).Return(true, nil)
	ds.On("GetPolicy", mock.Anything, "pol_1").
		Return(&model.Policy{ID: "pol_1", Status: model.PolicyActive, PremiumAmount: decimal.NewFromInt(600), EndDate: end}, nil).Once()
	ds.On("ExtendPolicy", mock.Anything, "pol_1", decimal.NewFromInt(600), end.AddDate(1, 0, 0)).Return(nil)
	ds.On("CreateScheduleLines", mock.Anything, mock.Anything).Return(nil)
	ds.On("GetPolicy", mock.Anything, "pol_1").
		Return(&model.Policy{ID: "pol_1", Status: model.PolicyActive, EndDate: end.AddDate(1, 0, 0)}, nil).Once()
	ds.On("GetScheduleLinesByPolicy", mock.Anything, "pol_1").Return([]model.PremiumScheduleLine{}, nil)

	w := SetUpTestRequest(t, router, TestRequest{
		Method:  http.MethodPost,
		Route:   "/policies/pol_1/renew",
		Payload: map[string]interface{}{"installments": 6},
		Header:  map[string]string{IdempotencyHeader: "renew-1"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	ds.AssertExpectations(t)
}

func TestApplicationWebhook(t *testing.T) {
	router, ds := setupRouter(t, newTestConfig())
	ds.On("InsertIdempotencyKey", mock.Anything, "webhook:evt_1", pgi.EndpointApplicationWebhook).Return(true, nil).Once()
	ds.On("UpdateApplicationStatus", mock.Anything, "app_1", model.ApplicationApproved).Return(nil).Once()
	ds.On("InsertIdempotencyKey", mock.Anything, "webhook:evt_1", pgi.EndpointApplicationWebhook).Return(false, nil).Once()

	payload := map[string]string{"event_id": "evt_1", "external_id": "app_1", "status": "approved"}

	var first pgi.WebhookReceipt
	w := SetUpTestRequest(t, router, TestRequest{Method: http.MethodPost, Route: "/webhooks/applications", Payload: payload, Response: &first})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, first.Duplicate)

	var second pgi.WebhookReceipt
	w = SetUpTestRequest(t, router, TestRequest{Method: http.MethodPost, Route: "/webhooks/applications", Payload: payload, Response: &second})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, second.Duplicate)
	ds.AssertNumberOfCalls(t, "UpdateApplicationStatus", 1)
}

func TestApplicationWebhook_InvalidStatus(t *testing.T) {
	router, _ := setupRouter(t, newTestConfig())

	w := SetUpTestRequest(t, router, TestRequest{
		Method:  http.MethodPost,
		Route:   "/webhooks/applications",
		Payload: map[string]string{"event_id": "evt_1", "external_id": "app_1", "status": "bound"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkBatchPaid_Twice(t *testing.T) {
	router, ds := setupRouter(t, newTestConfig())

	ds.On("MarkPayoutBatchPaid", mock.Anything, "batch_1", testNow).Return(decimal.NewFromInt(150), true, nil).Once()
	ds.On("MarkBatchPayablesPaid", mock.Anything, "batch_1").Return(int64(3), nil).Once()
	ds.On("RecordLedgerTransaction", mock.Anything, mock.MatchedBy(func(txn model.LedgerTransaction) bool {
		return txn.Entries[0].ReferenceID == "batch_1"
	})).Return(nil).Once()
	ds.On("MarkPayoutBatchPaid", mock.Anything, "batch_1", testNow).Return(decimal.Zero, false, nil).Once()
	ds.On("GetPayoutBatch", mock.Anything, "batch_1").Return(&model.PayoutBatch{ID: "batch_1", Status: model.BatchPaid}, nil)

	for i := 0; i < 2; i++ {
		w := SetUpTestRequest(t, router, TestRequest{Method: http.MethodPost, Route: "/payout-batches/batch_1/paid"})
		assert.Equal(t, http.StatusOK, w.Code)
	}
	ds.AssertNumberOfCalls(t, "RecordLedgerTransaction", 1)
	ds.AssertNumberOfCalls(t, "MarkBatchPayablesPaid", 1)
}

func TestGetPayables_FilterAndPaging(t *testing.T) {
	router, ds := setupRouter(t, newTestConfig())
	ds.On("GetPayables", mock.Anything, model.PayableFilter{Status: model.PayableEarned, Limit: 5, Offset: 10}).
		Return([]model.CommissionPayable{{ID: "pay_1"}}, nil)

	var resp []model.CommissionPayable
	w := SetUpTestRequest(t, router, TestRequest{Method: http.MethodGet, Route: "/payables?status=earned&limit=5&offset=10", Response: &resp})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp, 1)

	w = SetUpTestRequest(t, router, TestRequest{Method: http.MethodGet, Route: "/payables?status=owed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetLedgerTransaction_NotFound(t *testing.T) {
	router, ds := setupRouter(t, newTestConfig())
	ds.On("GetLedgerEntriesByTxID", mock.Anything, "txn_x").Return([]model.LedgerEntry{}, nil)

	w := SetUpTestRequest(t, router, TestRequest{Method: http.MethodGet, Route: "/ledger/transactions/txn_x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifyLedger(t *testing.T) {
	router, ds := setupRouter(t, newTestConfig())
	ds.On("GetUnbalancedTransactions", mock.Anything).Return([]model.LedgerImbalance{}, nil)

	var resp pgi.LedgerReport
	w := SetUpTestRequest(t, router, TestRequest{Method: http.MethodGet, Route: "/ledger/verify", Response: &resp})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Balanced)
}

func TestTrialBalance_InternalError(t *testing.T) {
	router, ds := setupRouter(t, newTestConfig())
	ds.On("GetAccountBalances", mock.Anything).Return(nil, errors.New("connection refused"))

	w := SetUpTestRequest(t, router, TestRequest{Method: http.MethodGet, Route: "/ledger/trial-balance"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRunAccrual_SkippedWhenLocked(t *testing.T) {
	router, ds := setupRouter(t, newTestConfig())
	ds.On("AcquireJobLock", mock.Anything, "premium_accrual", mock.Anything, mock.Anything).Return(false, nil)

	w := SetUpTestRequest(t, router, TestRequest{Method: http.MethodPost, Route: "/jobs/accrual"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	ds.AssertNotCalled(t, "CreateJobRun", mock.Anything, mock.Anything)
}

func TestRunAccrual_Completed(t *testing.T) {
	router, ds := setupRouter(t, newTestConfig())
	ds.On("AcquireJobLock", mock.Anything, "premium_accrual", mock.Anything, mock.Anything).Return(true, nil)
	ds.On("CreateJobRun", mock.Anything, mock.Anything).Return(nil)
	ds.On("GetDueScheduleLines", mock.Anything, testNow).Return([]model.DueScheduleLine{}, nil)
	ds.On("CompleteJobRun", mock.Anything, mock.Anything, testNow, 0).Return(nil)
	ds.On("ReleaseJobLock", mock.Anything, "premium_accrual", mock.Anything).Return(nil)

	var run model.JobRun
	w := SetUpTestRequest(t, router, TestRequest{Method: http.MethodPost, Route: "/jobs/accrual", Response: &run})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.JobCompleted, run.Status)
}

func TestRunAccrual_AsyncWithoutQueue(t *testing.T) {
	router, _ := setupRouter(t, newTestConfig())

	w := SetUpTestRequest(t, router, TestRequest{Method: http.MethodPost, Route: "/jobs/accrual?async=true"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetJobRuns(t *testing.T) {
	router, ds := setupRouter(t, newTestConfig())
	ds.On("GetJobRuns", mock.Anything, model.JobPremiumAccrual, 20, 0).Return([]model.JobRun{{ID: "job_1"}}, nil)
	ds.On("GetJobRun", mock.Anything, "job_404").Return(nil, notFound())

	w := SetUpTestRequest(t, router, TestRequest{Method: http.MethodGet, Route: "/jobs?job_type=premium_accrual"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = SetUpTestRequest(t, router, TestRequest{Method: http.MethodGet, Route: "/jobs/job_404"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
