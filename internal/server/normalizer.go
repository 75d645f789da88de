package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"wilayasapi/internal/rate"
)

// Candidate keys per field. Clients of the original API send "wilaya" and
// "value"; nested "package.*" payloads are accepted as well.
var (
	destinationKeys = []string{"wilaya", "destination"}
	weightKeys      = []string{"weight", "package.weight"}
	packageTypeKeys = []string{"packageType", "package_type", "package.type"}
	optionKeys      = []string{"deliveryOption", "delivery_option"}
	quantityKeys    = []string{"quantity", "package.quantity"}
	valueKeys       = []string{"value", "declaredValue", "declared_value"}
	recurringKeys   = []string{"recurringCustomer", "recurring_customer"}
)

// fieldError reports a payload field that is present but has the wrong type.
type fieldError struct {
	Field   string
	Message string
}

func (e *fieldError) Error() string { return e.Field + ": " + e.Message }

// decodeEstimateRequest reads a JSON or form-encoded body into a rate.Request.
// Range checks are left to the engine.
func decodeEstimateRequest(r *http.Request) (rate.Request, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return rate.Request{}, err
		}
		return requestFromForm(r.PostForm)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return rate.Request{}, err
	}
	return requestFromJSON(body)
}

func requestFromJSON(body []byte) (rate.Request, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return requestFromPayload(map[string]any{})
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return rate.Request{}, fmt.Errorf("decode estimate body: %w", err)
	}
	return requestFromPayload(payload)
}

func requestFromForm(form url.Values) (rate.Request, error) {
	payload := make(map[string]any, len(form))
	for k, v := range form {
		if len(v) > 0 {
			payload[k] = v[0]
		}
	}
	return requestFromPayload(payload)
}

func requestFromPayload(p map[string]any) (rate.Request, error) {
	var (
		req rate.Request
		err error
	)
	if req.Destination, err = getString(p, destinationKeys); err != nil {
		return rate.Request{}, err
	}
	if req.Weight, err = getFloat(p, weightKeys); err != nil {
		return rate.Request{}, err
	}
	if req.PackageType, err = getString(p, packageTypeKeys); err != nil {
		return rate.Request{}, err
	}
	if req.DeliveryOption, err = getString(p, optionKeys); err != nil {
		return rate.Request{}, err
	}
	if req.Quantity, err = getInt(p, quantityKeys); err != nil {
		return rate.Request{}, err
	}
	if req.DeclaredValue, err = getFloat(p, valueKeys); err != nil {
		return rate.Request{}, err
	}
	if req.RecurringCustomer, err = getBool(p, recurringKeys); err != nil {
		return rate.Request{}, err
	}
	return req, nil
}

// getString returns the first non-empty string from the candidate keys.
func getString(m map[string]any, keys []string) (string, error) {
	key, v := getAny(m, keys)
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &fieldError{Field: key, Message: "must be a string"}
	}
	return strings.TrimSpace(s), nil
}

func getFloat(m map[string]any, keys []string) (*float64, error) {
	return toFloat(getAny(m, keys))
}

func getInt(m map[string]any, keys []string) (*int, error) {
	key, v := getAny(m, keys)
	f, err := toFloat(key, v)
	if err != nil || f == nil {
		return nil, err
	}
	if *f != math.Trunc(*f) {
		return nil, &fieldError{Field: key, Message: "must be a whole number"}
	}
	// Saturate so huge counts still reach the engine's range check.
	n := int(math.Max(math.Min(*f, math.MaxInt32), math.MinInt32))
	return &n, nil
}

func toFloat(key string, v any) (*float64, error) {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		f, err = t.Float64()
	case float64:
		f = t
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return nil, &fieldError{Field: key, Message: "must be a number"}
	}
	if err != nil {
		return nil, &fieldError{Field: key, Message: "must be a number"}
	}
	return &f, nil
}

func getBool(m map[string]any, keys []string) (bool, error) {
	key, v := getAny(m, keys)
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "false", "0", "off", "no":
			return false, nil
		case "true", "1", "on", "yes":
			return true, nil
		}
	}
	return false, &fieldError{Field: key, Message: "must be a boolean"}
}

// getAny returns the first non-nil value from the candidate keys along with
// the key that supplied it. Empty strings are skipped.
func getAny(m map[string]any, keys []string) (string, any) {
	for _, k := range keys {
		v := getPath(m, k)
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return k, v
	}
	if len(keys) > 0 {
		return keys[0], nil
	}
	return "", nil
}

// getPath navigates a dot-separated key into nested maps.
func getPath(m map[string]any, path string) any {
	parts := strings.Split(path, ".")
	var cur any = m
	for _, p := range parts {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := mm[p]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}
