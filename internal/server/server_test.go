package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"wilayasapi/internal/lookup"
	"wilayasapi/internal/rate"
	"wilayasapi/internal/refdata"
	"wilayasapi/internal/rules"
)

func newTestHandler(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	store, err := refdata.JSONSource{}.Load(context.Background())
	if err != nil {
		t.Fatalf("load reference data: %v", err)
	}
	tables, err := rules.Load("")
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	lk := lookup.New(store)
	return New(lk, rate.NewEngine(lk, tables), nil, cfg)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, Config{})
	rr := do(t, h, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body := rr.Body.String(); body != "ok" {
		t.Fatalf("expected body 'ok', got %q", body)
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, Config{})
	rr := do(t, h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var res struct {
		Status    string  `json:"status"`
		Timestamp string  `json:"timestamp"`
		Uptime    float64 `json:"uptime"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if res.Status != "healthy" || res.Timestamp == "" || res.Uptime < 0 {
		t.Fatalf("unexpected response: %+v", res)
	}
}

func TestIndexListsEndpoints(t *testing.T) {
	h := newTestHandler(t, Config{})
	rr := do(t, h, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var res struct {
		Version   string            `json:"version"`
		Endpoints map[string]string `json:"endpoints"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if res.Version != Version {
		t.Fatalf("unexpected version %q", res.Version)
	}
	if _, ok := res.Endpoints["POST /estimate"]; !ok {
		t.Fatalf("estimate endpoint missing from index: %v", res.Endpoints)
	}
}

func TestRequestIDHeaderPresent(t *testing.T) {
	h := newTestHandler(t, Config{})
	rr := do(t, h, http.MethodGet, "/healthz", "")
	if rid := rr.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rid := rr.Header().Get("X-Request-ID"); rid != "abc-123" {
		t.Fatalf("expected caller request id to be echoed, got %q", rid)
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := newTestHandler(t, Config{})
	rr := do(t, h, http.MethodGet, "/wilayas", "")
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff, got %q", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "SAMEORIGIN" {
		t.Fatalf("expected SAMEORIGIN, got %q", got)
	}
}

func TestCORSAllowedOrigin(t *testing.T) {
	h := newTestHandler(t, Config{AllowedOrigins: []string{"https://shop.example.dz"}})

	req := httptest.NewRequest(http.MethodGet, "/wilayas", nil)
	req.Header.Set("Origin", "https://shop.example.dz")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example.dz" {
		t.Fatalf("expected origin to be allowed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/wilayas", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected foreign origin to be refused, got %q", got)
	}
}

func TestListWilayas(t *testing.T) {
	h := newTestHandler(t, Config{})
	rr := do(t, h, http.MethodGet, "/wilayas", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var res struct {
		Success bool `json:"success"`
		Count   int  `json:"count"`
		Data    []struct {
			Code          int    `json:"code"`
			Name          string `json:"name"`
			CommunesCount int    `json:"communes_count"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if !res.Success || res.Count != 58 || len(res.Data) != 58 {
		t.Fatalf("unexpected list: success=%v count=%d len=%d", res.Success, res.Count, len(res.Data))
	}
	if res.Data[0].Code != 1 || res.Data[0].Name != "Adrar" || res.Data[0].CommunesCount == 0 {
		t.Fatalf("unexpected first entry: %+v", res.Data[0])
	}
}

func TestGetWilaya_CaseInsensitive(t *testing.T) {
	h := newTestHandler(t, Config{})
	rr := do(t, h, http.MethodGet, "/wilaya/"+url.PathEscape("  ALGER "), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body=%s", rr.Code, rr.Body.String())
	}
	var res struct {
		Data struct {
			Name           string   `json:"wilaya_name"`
			Code           int      `json:"wilaya_code"`
			Communes       []string `json:"communes"`
			CommunesCount  int      `json:"communes_count"`
			DeliveryPrices *struct {
				Domicile float64 `json:"domicile"`
				Bureau   float64 `json:"bureau"`
				Delai    string  `json:"delai"`
			} `json:"delivery_prices"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if res.Data.Name != "Alger" || res.Data.Code != 16 {
		t.Fatalf("unexpected wilaya: %+v", res.Data)
	}
	if res.Data.CommunesCount != len(res.Data.Communes) {
		t.Fatalf("count %d does not match communes %d", res.Data.CommunesCount, len(res.Data.Communes))
	}
	if res.Data.DeliveryPrices == nil || res.Data.DeliveryPrices.Domicile != 400 || res.Data.DeliveryPrices.Bureau != 0 {
		t.Fatalf("unexpected delivery prices: %+v", res.Data.DeliveryPrices)
	}
}

func TestGetWilaya_WithoutDeliveryRecord(t *testing.T) {
	h := newTestHandler(t, Config{})
	rr := do(t, h, http.MethodGet, "/wilaya/"+url.PathEscape("In Guezzam"), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body=%s", rr.Code, rr.Body.String())
	}
	var res struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if got := string(res.Data["delivery_prices"]); got != "null" {
		t.Fatalf("expected null delivery_prices, got %s", got)
	}
}

func TestGetCommunes(t *testing.T) {
	h := newTestHandler(t, Config{})
	rr := do(t, h, http.MethodGet, "/wilaya/oran/communes", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var res struct {
		Data struct {
			Name     string   `json:"wilaya_name"`
			Communes []string `json:"communes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if res.Data.Name != "Oran" || len(res.Data.Communes) == 0 {
		t.Fatalf("unexpected communes: %+v", res.Data)
	}
}

func TestGetDelivery(t *testing.T) {
	h := newTestHandler(t, Config{})
	rr := do(t, h, http.MethodGet, "/wilaya/Oran/delivery", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var res struct {
		Data struct {
			Name   string `json:"wilaya_name"`
			Prices struct {
				Domicile float64 `json:"domicile"`
				Bureau   float64 `json:"bureau"`
				Delai    string  `json:"delai"`
			} `json:"delivery_prices"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if res.Data.Prices.Domicile != 800 || res.Data.Prices.Bureau != 450 || res.Data.Prices.Delai != "24-48h" {
		t.Fatalf("unexpected prices: %+v", res.Data.Prices)
	}
}

type estimateResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Estimation struct {
			Destination struct {
				Wilaya string `json:"wilaya"`
				Code   int    `json:"code"`
			} `json:"destination"`
			Package struct {
				Type     string `json:"type"`
				Quantity int    `json:"quantity"`
			} `json:"package"`
			Delivery struct {
				Option string `json:"option"`
			} `json:"delivery"`
			Costs struct {
				BasePrice    float64 `json:"basePrice"`
				UnitCost     float64 `json:"unitCost"`
				PackagingFee float64 `json:"packagingFee"`
				HandlingFee  float64 `json:"handlingFee"`
				Subtotal     float64 `json:"subtotal"`
				FinalCost    float64 `json:"finalCost"`
				Currency     string  `json:"currency"`
			} `json:"costs"`
		} `json:"estimation"`
	} `json:"data"`
}

func TestEstimate_HomeDelivery(t *testing.T) {
	h := newTestHandler(t, Config{})
	rr := do(t, h, http.MethodPost, "/estimate", `{"wilaya":"alger","weight":1.5,"packageType":"standard","deliveryOption":"domicile","quantity":1}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body=%s", rr.Code, rr.Body.String())
	}
	var res estimateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	est := res.Data.Estimation
	if !res.Success || est.Destination.Wilaya != "Alger" || est.Destination.Code != 16 {
		t.Fatalf("unexpected destination: %+v", est.Destination)
	}
	if est.Costs.UnitCost != 400 || est.Costs.PackagingFee != 50 || est.Costs.HandlingFee != 100 {
		t.Fatalf("unexpected line items: %+v", est.Costs)
	}
	if est.Costs.Subtotal != 550 || est.Costs.FinalCost != 550 || est.Costs.Currency != "DA" {
		t.Fatalf("unexpected totals: %+v", est.Costs)
	}
}

func TestEstimate_DeskDeliveryDefaults(t *testing.T) {
	h := newTestHandler(t, Config{})
	rr := do(t, h, http.MethodPost, "/estimate", `{"destination":"Oran","weight":"3","deliveryOption":"bureau"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body=%s", rr.Code, rr.Body.String())
	}
	var res estimateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	est := res.Data.Estimation
	if est.Package.Type != "standard" || est.Package.Quantity != 1 || est.Delivery.Option != "desk" {
		t.Fatalf("defaults not applied: %+v %+v", est.Package, est.Delivery)
	}
	// 450 x 1.3 = 585, + packaging 50 + medium handling 200
	if est.Costs.BasePrice != 450 || est.Costs.UnitCost != 585 || est.Costs.FinalCost != 835 {
		t.Fatalf("unexpected costs: %+v", est.Costs)
	}
}

func TestEstimate_FormEncoded(t *testing.T) {
	h := newTestHandler(t, Config{})
	form := url.Values{"wilaya": {"Alger"}, "weight": {"1.5"}, "recurringCustomer": {"true"}}
	req := httptest.NewRequest(http.MethodPost, "/estimate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body=%s", rr.Code, rr.Body.String())
	}
	var res estimateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	// 550 less 5% recurring discount, rounded half-up
	if res.Data.Estimation.Costs.FinalCost != 523 {
		t.Fatalf("unexpected final cost: %v", res.Data.Estimation.Costs.FinalCost)
	}
}

func TestRateLimitReturns429(t *testing.T) {
	h := newTestHandler(t, Config{RateLimitRequests: 2, RateLimitWindow: time.Hour})
	for i := 0; i < 2; i++ {
		if rr := do(t, h, http.MethodGet, "/wilayas", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}
	rr := do(t, h, http.MethodGet, "/wilayas", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if rr := do(t, h, http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Fatalf("health checks must bypass the limiter, got %d", rr.Code)
	}
}
