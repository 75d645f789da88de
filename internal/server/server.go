package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"wilayasapi/internal/lookup"
	"wilayasapi/internal/rate"
	"wilayasapi/internal/refdata"
)

// Version is reported by the index endpoint.
const Version = "1.0.0"

type Config struct {
	AllowedOrigins []string
	// RateLimitRequests per RateLimitWindow per client; zero disables limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// BodyLimitBytes caps request bodies; zero disables the cap.
	BodyLimitBytes int64
}

type Server struct {
	regions *lookup.Service
	est     rate.Estimator
	log     *zap.Logger
	started time.Time
}

// New wires the routes over a lookup service and an estimator.
func New(regions *lookup.Service, est rate.Estimator, log *zap.Logger, cfg Config) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{regions: regions, est: est, log: log, started: time.Now()}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(accessLogMiddleware(log))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders...)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   orDefaultList(cfg.AllowedOrigins, "*"),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if cfg.RateLimitRequests > 0 {
		r.Use(NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, log).Middleware)
	}
	if cfg.BodyLimitBytes > 0 {
		r.Use(middleware.RequestSize(cfg.BodyLimitBytes))
	}

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/wilayas", s.handleListWilayas)
	r.Route("/wilaya/{name}", func(r chi.Router) {
		r.Get("/", s.handleGetWilaya)
		r.Get("/communes", s.handleGetCommunes)
		r.Get("/delivery", s.handleGetDelivery)
	})
	r.Post("/estimate", s.handleEstimate)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorDetails(w, http.StatusNotFound, "endpoint_not_found", "endpoint not found", map[string]any{"path": r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "Algeria Wilayas & Communes API",
		"version": Version,
		"endpoints": map[string]string{
			"GET /wilayas":                "List all wilayas",
			"GET /wilaya/:name":           "Get wilaya details with communes and delivery prices",
			"GET /wilaya/:name/communes":  "Get communes for a specific wilaya",
			"GET /wilaya/:name/delivery":  "Get delivery prices for a specific wilaya",
			"POST /estimate":              "Estimate delivery cost based on weight, package type, and destination",
			"GET /health":                 "Health check",
		},
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Seconds(),
	})
}

// Regions

type wilayaSummary struct {
	Code          int    `json:"code"`
	Name          string `json:"name"`
	CommunesCount int    `json:"communes_count"`
}

type deliveryPrices struct {
	Domicile json.Number `json:"domicile"`
	Bureau   json.Number `json:"bureau"`
	Delai    string      `json:"delai"`
}

type wilayaCommunes struct {
	Name          string   `json:"wilaya_name"`
	Code          int      `json:"wilaya_code"`
	Communes      []string `json:"communes"`
	CommunesCount int      `json:"communes_count"`
}

type wilayaDetail struct {
	wilayaCommunes
	DeliveryPrices *deliveryPrices `json:"delivery_prices"`
}

type wilayaDelivery struct {
	Name           string         `json:"wilaya_name"`
	DeliveryPrices deliveryPrices `json:"delivery_prices"`
}

func (s *Server) handleListWilayas(w http.ResponseWriter, r *http.Request) {
	list := s.regions.ListRegions()
	data := make([]wilayaSummary, 0, len(list))
	for _, rs := range list {
		data = append(data, wilayaSummary{Code: rs.Code, Name: rs.Name, CommunesCount: rs.SubdivisionCount})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": len(data), "data": data})
}

func (s *Server) handleGetWilaya(w http.ResponseWriter, r *http.Request) {
	name, ok := wilayaParam(w, r)
	if !ok {
		return
	}
	detail, err := s.regions.GetRegion(name)
	if err != nil {
		s.writeLookupError(w, err, map[string]any{"available_wilayas": s.regions.RegionNames()})
		return
	}
	resp := wilayaDetail{wilayaCommunes: communesView(detail.Region)}
	if detail.Delivery != nil {
		p := pricesView(*detail.Delivery)
		resp.DeliveryPrices = &p
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": resp})
}

func (s *Server) handleGetCommunes(w http.ResponseWriter, r *http.Request) {
	name, ok := wilayaParam(w, r)
	if !ok {
		return
	}
	region, err := s.regions.GetSubdivisions(name)
	if err != nil {
		s.writeLookupError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": communesView(region)})
}

func (s *Server) handleGetDelivery(w http.ResponseWriter, r *http.Request) {
	name, ok := wilayaParam(w, r)
	if !ok {
		return
	}
	record, err := s.regions.GetDeliveryRecord(name)
	if err != nil {
		s.writeLookupError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    wilayaDelivery{Name: record.Name, DeliveryPrices: pricesView(record)},
	})
}

func wilayaParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	if strings.TrimSpace(name) == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "wilaya name required")
		return "", false
	}
	return name, true
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error, details map[string]any) {
	switch {
	case errors.Is(err, lookup.ErrNotFound):
		writeErrorDetails(w, http.StatusNotFound, "resource_not_found", "wilaya not found", details)
	case errors.Is(err, lookup.ErrNoDelivery):
		writeErrorJSON(w, http.StatusNotFound, "delivery_not_found", "delivery data not found for this wilaya")
	default:
		s.log.Error("lookup failed", zap.Error(err))
		writeErrorJSON(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func communesView(r refdata.Region) wilayaCommunes {
	return wilayaCommunes{Name: r.Name, Code: r.Code, Communes: r.Subdivisions, CommunesCount: len(r.Subdivisions)}
}

func pricesView(d refdata.DeliveryRecord) deliveryPrices {
	return deliveryPrices{
		Domicile: json.Number(d.HomePrice.String()),
		Bureau:   json.Number(d.DeskPrice.String()),
		Delai:    d.EstimatedDays,
	}
}

// Estimate

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeEstimateRequest(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		var fe *fieldError
		switch {
		case errors.As(err, &tooLarge):
			writeErrorJSON(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
		case errors.As(err, &fe):
			writeErrorDetails(w, http.StatusBadRequest, "invalid_parameter", fe.Error(), map[string]any{"field": fe.Field})
		default:
			writeErrorJSON(w, http.StatusBadRequest, "invalid_body", "request body could not be parsed")
		}
		return
	}

	quote, err := s.est.Estimate(req)
	if err != nil {
		s.writeEstimateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    map[string]any{"estimation": quote},
	})
}

func (s *Server) writeEstimateError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := rate.AsError(err)
	if !ok {
		s.log.Error("estimate failed", zap.Error(err), zap.String("request_id", requestIDFrom(r.Context())))
		writeErrorJSON(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	if e.IsServerFault() {
		// Rule tables are broken; keep the detail in the logs only.
		s.log.Error("rule tables rejected a valid request",
			zap.String("kind", string(e.Kind)),
			zap.String("field", e.Field),
			zap.String("detail", e.Message),
			zap.String("request_id", requestIDFrom(r.Context())))
		writeErrorJSON(w, http.StatusInternalServerError, "configuration_error", "estimation is temporarily unavailable")
		return
	}

	details := make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		details[k] = v
	}
	if e.Field != "" {
		details["field"] = e.Field
	}
	writeErrorDetails(w, statusForKind(e.Kind), string(e.Kind), e.Message, details)
}

func statusForKind(k rate.Kind) int {
	switch k {
	case rate.KindDestinationNotFound:
		return http.StatusNotFound
	case rate.KindConfigurationGap, rate.KindWeightOutOfRange:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorJSON writes a standardized JSON error response:
// {"success": false, "error": {"code": string, "message": string}}
func writeErrorJSON(w http.ResponseWriter, status int, code string, message string) {
	writeErrorDetails(w, status, code, message, nil)
}

// writeErrorDetails adds an optional "details" object to the error body.
func writeErrorDetails(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	body := map[string]any{
		"code":    code,
		"message": message,
	}
	if len(details) > 0 {
		body["details"] = details
	}
	writeJSON(w, status, map[string]any{"success": false, "error": body})
}

func orDefaultList(l []string, d string) []string {
	if len(l) == 0 {
		return []string{d}
	}
	return l
}
