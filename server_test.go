package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/models"
	"github.com/LakshayGajra/material-audit-mvp-sub001/models/reports"
	"github.com/LakshayGajra/material-audit-mvp-sub001/testutil"
	"github.com/LakshayGajra/material-audit-mvp-sub001/workflow"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type apiFixture struct {
	router     *gin.Engine
	fx         testutil.Fixture
	contractor int
	materials  []int
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	t.Setenv("AUTH_REQUIRED", "false")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	fx := testutil.Seed(t, testutil.Context(), 2)
	api := &apiFixture{router: NewRouter(config.GetLogger()), fx: fx, contractor: fx.Contractor.ID}
	for _, m := range fx.Materials {
		api.materials = append(api.materials, m.ID)
	}
	testutil.SetLedger(t, db, api.contractor, api.materials[0], "100")
	testutil.SetLedger(t, db, api.contractor, api.materials[1], "50")
	return api
}

func (a *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("business-id", testutil.BusinessId)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *apiFixture) submit(t *testing.T, reported ...string) models.Reconciliation {
	t.Helper()
	items := make([]map[string]any, 0, len(reported))
	for i, q := range reported {
		items = append(items, map[string]any{"materialId": a.materials[i], "reportedQuantity": q})
	}
	w := a.do(t, http.MethodPost, "/reconciliations", map[string]any{
		"contractorId": a.contractor,
		"periodType":   "WEEKLY",
		"periodStart":  "2024-03-04",
		"periodEnd":    "2024-03-10",
		"reportedBy":   "site-lead",
		"items":        items,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Reconciliation](t, w)
}

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(config.GetLogger())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSubmitAndReviewReconciliation(t *testing.T) {
	api := newAPI(t)

	rec := api.submit(t, "97", "40")
	assert.Equal(t, "REC-000001", rec.ReconciliationNumber)
	assert.Equal(t, models.ReconciliationStatusSubmitted, rec.Status)
	assert.Equal(t, "Acme Fabrication", rec.ContractorName)
	require.Len(t, rec.LineItems, 2)
	assert.False(t, rec.LineItems[0].IsAnomaly)
	assert.True(t, rec.LineItems[1].IsAnomaly)
	assert.Equal(t, "Material 2", rec.LineItems[1].MaterialName)

	w := api.do(t, http.MethodGet, "/reconciliations/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Reconciliation](t, w), 1)

	path := fmt.Sprintf("/reconciliations/%d/review", rec.ID)
	w = api.do(t, http.MethodPost, path, map[string]any{
		"status": "ACCEPTED", "reviewedBy": "auditor", "adjustInventory": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reviewed := decode[models.Reconciliation](t, w)
	assert.Equal(t, models.ReconciliationStatusAccepted, reviewed.Status)
	assert.True(t, reviewed.InventoryAdjusted)

	w = api.do(t, http.MethodPost, path, map[string]any{"status": "DISPUTED", "reviewedBy": "auditor"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodGet, fmt.Sprintf("/contractors/%d/inventory", api.contractor), nil)
	require.Equal(t, http.StatusOK, w.Code)
	quantities := map[int]string{}
	for _, row := range decode[[]models.ContractorInventory](t, w) {
		quantities[row.MaterialId] = row.Quantity.String()
	}
	assert.Equal(t, "97", quantities[api.materials[0]])
	assert.Equal(t, "40", quantities[api.materials[1]])

	w = api.do(t, http.MethodGet, fmt.Sprintf("/reconciliations/%d/history", rec.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]models.History](t, w)
	require.Len(t, history, 3)
	assert.Equal(t, models.HistoryActionCreate, history[0].ActionType)
	assert.Equal(t, models.HistoryActionAdjust, history[1].ActionType)
	assert.Equal(t, models.HistoryActionReview, history[2].ActionType)
}

func TestErrorMapping(t *testing.T) {
	api := newAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"validation", http.MethodPost, "/reconciliations", map[string]any{"contractorId": api.contractor, "periodType": "WEEKLY"}, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/reconciliations", "not an object", http.StatusBadRequest},
		{"unknown reconciliation", http.MethodGet, "/reconciliations/9999", nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/reconciliations/abc", nil, http.StatusBadRequest},
		{"bad cursor", http.MethodGet, "/reconciliations?after=%21%21", nil, http.StatusBadRequest},
		{"bad resolved filter", http.MethodGet, "/anomalies?resolved=maybe", nil, http.StatusBadRequest},
		{"unknown anomaly", http.MethodPost, "/anomalies/9999/resolve", map[string]any{"resolvedBy": "auditor"}, http.StatusNotFound},
		{"resolve needs ids", http.MethodGet, "/thresholds/resolve", nil, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/nope", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestValidationErrorNamesField(t *testing.T) {
	api := newAPI(t)
	w := api.do(t, http.MethodPost, "/reconciliations", map[string]any{
		"contractorId": api.contractor,
		"periodType":   "WEEKLY",
		"periodStart":  "2024-03-04",
		"periodEnd":    "2024-03-10",
		"reportedBy":   "site-lead",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "items", decode[map[string]string](t, w)["field"])
}

func TestBusinessHeaderRequired(t *testing.T) {
	api := newAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/anomalies", nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnomalyListAndResolve(t *testing.T) {
	api := newAPI(t)
	api.submit(t, "80")

	w := api.do(t, http.MethodGet, "/anomalies?resolved=false", nil)
	require.Equal(t, http.StatusOK, w.Code)
	open := decode[[]models.Anomaly](t, w)
	require.Len(t, open, 1)
	assert.Equal(t, models.AnomalyTypeShortage, open[0].AnomalyType)
	assert.Equal(t, "Material 1", open[0].MaterialName)

	path := fmt.Sprintf("/anomalies/%d/resolve", open[0].ID)
	w = api.do(t, http.MethodPost, path, map[string]any{"resolvedBy": "auditor", "notes": "recount"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[models.Anomaly](t, w).IsResolved)

	w = api.do(t, http.MethodPost, path, map[string]any{"resolvedBy": "someone-else"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodGet, "/anomalies?format=xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, reports.ExcelContentType, w.Header().Get("Content-Type"))
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Acme Fabrication", rows[1][1])
	assert.Equal(t, "Material 1", rows[1][2])
}

func TestResolveAnomalyWithoutBody(t *testing.T) {
	api := newAPI(t)
	api.submit(t, "80")

	w := api.do(t, http.MethodGet, "/anomalies?resolved=false", nil)
	require.Equal(t, http.StatusOK, w.Code)
	open := decode[[]models.Anomaly](t, w)
	require.Len(t, open, 1)

	path := fmt.Sprintf("/anomalies/%d/resolve", open[0].ID)
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("business-id", testutil.BusinessId)
	w = httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resolved := decode[models.Anomaly](t, w)
	assert.True(t, resolved.IsResolved)
	assert.NotNil(t, resolved.ResolvedAt)

	// a body that is present but broken is still rejected
	req = httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte("{")))
	req.Header.Set("business-id", testutil.BusinessId)
	w = httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestThresholdRoutes(t *testing.T) {
	api := newAPI(t)

	w := api.do(t, http.MethodPut, "/thresholds/overrides", map[string]any{
		"kind": "MATERIAL", "materialId": api.materials[0], "percentage": "2.5",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	override := decode[models.VarianceThresholdOverride](t, w)

	w = api.do(t, http.MethodGet, fmt.Sprintf("/thresholds/resolve?contractor_id=%d&material_id=%d", api.contractor, api.materials[0]), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resolved := decode[models.ResolvedThreshold](t, w)
	assert.Equal(t, models.ThresholdSourceMaterial, resolved.Source)
	assert.Equal(t, "2.5", resolved.Percentage.String())

	w = api.do(t, http.MethodDelete, fmt.Sprintf("/thresholds/overrides/%d", override.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPut, "/thresholds/global", map[string]any{"percentage": "7"})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, fmt.Sprintf("/thresholds/resolve?contractor_id=%d&material_id=%d", api.contractor, api.materials[0]), nil)
	resolved = decode[models.ResolvedThreshold](t, w)
	assert.Equal(t, models.ThresholdSourceGlobal, resolved.Source)
	assert.Equal(t, "7", resolved.Percentage.String())

	w = api.do(t, http.MethodPut, "/thresholds/overrides", map[string]any{"kind": "GALAXY", "percentage": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportReconciliation(t *testing.T) {
	api := newAPI(t)
	rec := api.submit(t, "97")

	w := api.do(t, http.MethodGet, fmt.Sprintf("/reconciliations/%d/export", rec.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, reports.ExcelContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "REC-000001.xlsx")
	assert.NotEmpty(t, w.Body.Bytes())
}

func pushBody(t *testing.T, deliveryId string, m config.PubSubMessage) map[string]any {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	return map[string]any{
		"message":      map[string]any{"id": deliveryId, "data": base64.StdEncoding.EncodeToString(data)},
		"subscription": "projects/test/subscriptions/material-audit",
	}
}

func TestPubSubPush(t *testing.T) {
	api := newAPI(t)

	payload, err := json.Marshal(workflow.ConsumptionPayload{
		ContractorId: api.contractor, MaterialId: api.materials[0],
		ExpectedQuantity: testutil.Dec("10"), ConsumedQuantity: testutil.Dec("15"), ReferenceId: 3,
	})
	require.NoError(t, err)
	msg := config.PubSubMessage{
		BusinessId: testutil.BusinessId,
		EventType:  string(models.EventMaterialConsumed),
		Payload:    payload,
	}

	w := api.do(t, http.MethodPost, "/pubsub", pushBody(t, "d-1", msg))
	require.Equal(t, http.StatusNoContent, w.Code)
	w = api.do(t, http.MethodPost, "/pubsub", pushBody(t, "d-1", msg))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, http.MethodGet, fmt.Sprintf("/contractors/%d/inventory", api.contractor), nil)
	for _, row := range decode[[]models.ContractorInventory](t, w) {
		if row.MaterialId == api.materials[0] {
			assert.Equal(t, "85", row.Quantity.String())
		}
	}
	w = api.do(t, http.MethodGet, "/anomalies?resolved=false", nil)
	open := decode[[]models.Anomaly](t, w)
	require.Len(t, open, 1)
	assert.Equal(t, models.AnomalySourceConsumption, open[0].Source)
	assert.Equal(t, models.AnomalyTypeExcess, open[0].AnomalyType)

	tests := []struct {
		name string
		body any
	}{
		{"not an envelope", "garbage"},
		{"unknown event", pushBody(t, "d-2", config.PubSubMessage{BusinessId: testutil.BusinessId, EventType: "SOMETHING_ELSE"})},
		{"missing business", pushBody(t, "d-3", config.PubSubMessage{EventType: string(models.EventMaterialConsumed)})},
		{"bad payload", pushBody(t, "d-4", config.PubSubMessage{BusinessId: testutil.BusinessId, EventType: string(models.EventMaterialIssued), Payload: json.RawMessage(`{"contractor_id":0}`)})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/pubsub", tt.body)
			assert.Equal(t, http.StatusNoContent, w.Code)
		})
	}
}

func TestOutboxRevive(t *testing.T) {
	api := newAPI(t)
	api.submit(t, "97")
	require.NoError(t, config.GetDB().Model(&models.OutboxEvent{}).
		Where("business_id = ?", testutil.BusinessId).
		Update("publish_status", models.OutboxPublishStatusDead).Error)

	w := api.do(t, http.MethodPost, "/internal/ops/outbox/revive", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, w)["revived"])
}
