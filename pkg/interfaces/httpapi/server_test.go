package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/agrostock/pkg/application/dto"
	"github.com/vsinha/agrostock/pkg/application/services"
	fixtures "github.com/vsinha/agrostock/pkg/infrastructure/testing"
)

func newTestServer(t *testing.T) (*echo.Echo, *fixtures.Farm) {
	t.Helper()
	store, farm := fixtures.NewFarmStore()
	svc := NewServices(services.Deps{
		Store:  store,
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return fixtures.FarmNow },
	})
	return New(svc, zerolog.Nop()), farm
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestServer_WithdrawAndBalance(t *testing.T) {
	e, farm := newTestServer(t)

	rec := do(e, http.MethodPost, "/withdrawals",
		`{"product_id":"`+string(farm.Roundup)+`","quantity":"15","unit":"l","reason":"spillage"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	withdrawal := decode[dto.WithdrawalView](t, rec)
	require.Len(t, withdrawal.Allocations, 2)
	assert.Equal(t, string(farm.LotA), withdrawal.Allocations[0].LotID)
	assert.Equal(t, "5", withdrawal.Allocations[1].Quantity.String())
	assert.Len(t, withdrawal.MovementIDs, 2)

	rec = do(e, http.MethodGet, "/lots/"+string(farm.LotB)+"/balance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", decode[dto.BalanceView](t, rec).Balance.String())

	rec = do(e, http.MethodGet, "/lots/"+string(farm.LotB)+"/balance?as_of=2024-03-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10", decode[dto.BalanceView](t, rec).Balance.String())

	rec = do(e, http.MethodGet, "/lots/"+string(farm.LotB)+"/balance?as_of=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ErrorStatuses(t *testing.T) {
	e, farm := newTestServer(t)
	roundup := string(farm.Roundup)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		kind   string
	}{
		{"insufficient stock", http.MethodPost, "/withdrawals", `{"product_id":"` + roundup + `","quantity":"25","unit":"l"}`, http.StatusConflict, "insufficient_stock"},
		{"missing unit", http.MethodPost, "/withdrawals", `{"product_id":"` + roundup + `","quantity":"1"}`, http.StatusBadRequest, "validation"},
		{"zero quantity", http.MethodPost, "/allocations/preview", `{"product_id":"` + roundup + `","quantity":"0","unit":"l"}`, http.StatusBadRequest, "validation"},
		{"unknown product", http.MethodPost, "/withdrawals", `{"product_id":"nope","quantity":"1","unit":"l"}`, http.StatusNotFound, "not_found"},
		{"unknown lot", http.MethodGet, "/lots/nope/balance", "", http.StatusNotFound, "not_found"},
		{"unknown active", http.MethodGet, "/active-stock?name=atrazine", "", http.StatusNotFound, "not_found"},
		{"product in use", http.MethodDelete, "/products/" + roundup, "", http.StatusConflict, "in_use"},
		{"empty mix", http.MethodPost, "/mix/check-items", `{"product_ids":[]}`, http.StatusBadRequest, "validation"},
		{"unknown application", http.MethodGet, "/applications/nope", "", http.StatusNotFound, "not_found"},
		{"malformed json", http.MethodPost, "/mix/check", `{"a":`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			body := decode[errorBody](t, rec)
			assert.Equal(t, tt.kind, body.Kind)
			assert.NotEmpty(t, body.Error)
		})
	}

	rec := do(e, http.MethodPost, "/withdrawals", `{"product_id":"`+roundup+`","quantity":"25","unit":"l"}`)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "25", body.Requested)
	assert.Equal(t, "20", body.Available)
	assert.Equal(t, "l", body.Unit)
}

func TestServer_PreviewReportsShortfall(t *testing.T) {
	e, farm := newTestServer(t)

	rec := do(e, http.MethodPost, "/allocations/preview",
		`{"product_id":"`+string(farm.Roundup)+`","quantity":"25","unit":"l"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[dto.AllocationView](t, rec)
	assert.False(t, view.Covered)
	assert.Equal(t, "5", view.Remaining.String())

	// preview writes nothing
	rec = do(e, http.MethodGet, "/lots/"+string(farm.LotA)+"/balance", "")
	assert.Equal(t, "10", decode[dto.BalanceView](t, rec).Balance.String())
}

func TestServer_ListLots(t *testing.T) {
	e, farm := newTestServer(t)

	rec := do(e, http.MethodGet, "/lots?product_id="+string(farm.Roundup)+"&expiring_within_days=100", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rows := decode[[]dto.LotRow](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, "RU-A", rows[0].LotCode)
	assert.True(t, rows[0].ExpiringSoon)

	rec = do(e, http.MethodGet, "/lots?expiring_within_days=soon", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/lots?in_stock=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ActiveStockAndMix(t *testing.T) {
	e, farm := newTestServer(t)

	rec := do(e, http.MethodGet, "/active-stock?name=Glifosato", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stock := decode[dto.ActiveStock](t, rec)
	assert.Equal(t, "Glyphosate", stock.Active)
	assert.Equal(t, "13.2", stock.TotalMassKg.String())

	rec = do(e, http.MethodPost, "/mix/check", `{"a":"2,4-D","b":"glyphosate"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "caution", decode[dto.PairCheck](t, rec).Relation)

	rec = do(e, http.MethodPost, "/mix/check-items",
		`{"product_ids":["`+string(farm.Roundup)+`","`+string(farm.Amine)+`","`+string(farm.Cuprex)+`"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[dto.MixReport](t, rec)
	assert.Equal(t, "forbidden", report.Summary)
	assert.Len(t, report.Pairs, 3)

	rec = do(e, http.MethodPost, "/rules", `{"a":"2,4-D","b":"Glyphosate","relation":"sometimes"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Applications(t *testing.T) {
	e, farm := newTestServer(t)

	rec := do(e, http.MethodPost, "/applications", `{
		"parcel_ref": "North 12",
		"date": "2024-11-03T00:00:00Z",
		"area_ha": "10",
		"items": [{"product_id": "`+string(farm.Roundup)+`", "dose": "1.5", "dose_unit": "L/ha"}]
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	app := decode[dto.ApplicationView](t, rec)
	assert.Equal(t, "80", app.TotalCost.String())
	require.Len(t, app.Items, 2)

	rec = do(e, http.MethodGet, "/applications/"+app.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "North 12", decode[dto.ApplicationView](t, rec).ParcelRef)

	rec = do(e, http.MethodGet, "/applications?parcel=North%2012", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]dto.ApplicationView](t, rec), 1)

	rec = do(e, http.MethodPost, "/applications", `{"area_ha":"10"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Health(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
