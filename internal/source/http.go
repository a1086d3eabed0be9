package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// LivePressure is reported for every live reading; the feed carries
// temperature only.
const LivePressure = 100.0

// TemperaturePath is appended to the configured base URL.
const TemperaturePath = "/api/temperature"

// HTTPSource polls the ingestion service for its latest temperature.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates a live feed source for baseURL. An empty baseURL
// yields a source whose every Read fails with ErrNotConfigured.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	u := ""
	if baseURL != "" {
		u = strings.TrimRight(baseURL, "/") + TemperaturePath
	}
	return &HTTPSource{
		url:    u,
		client: &http.Client{Timeout: timeout},
	}
}

// Kind returns KindLive.
func (s *HTTPSource) Kind() Kind { return KindLive }

// URL returns the polled endpoint, or "" when unconfigured.
func (s *HTTPSource) URL() string { return s.url }

// Read fetches the latest temperature. On any failure prev is returned.
func (s *HTTPSource) Read(ctx context.Context, prev Reading) (Reading, error) {
	if s.url == "" {
		return prev, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return prev, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return prev, fmt.Errorf("fetch %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return prev, fmt.Errorf("fetch %s: status %d", s.url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return prev, fmt.Errorf("read body: %w", err)
	}

	temp, err := ParseTemperature(body)
	if err != nil {
		return prev, err
	}
	return Reading{Temperature: temp, Pressure: LivePressure}, nil
}

// ParseTemperature extracts a temperature from a feed payload. The field is
// looked up, in order, as "value", "temperature", "data.temperature" and
// "lm35Temp" (which may be a numeric string). A payload whose "status" is
// "error" or "no_data_yet" carries no reading.
func ParseTemperature(body []byte) (float64, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var status string
	if raw, ok := doc["status"]; ok {
		_ = json.Unmarshal(raw, &status)
	}
	switch status {
	case "no_data_yet":
		return 0, ErrNoData
	case "error":
		return 0, fmt.Errorf("%w: upstream reported error", ErrNoData)
	}

	if v, ok := number(doc["value"]); ok {
		return v, nil
	}
	if v, ok := number(doc["temperature"]); ok {
		return v, nil
	}
	if raw, ok := doc["data"]; ok {
		var data map[string]json.RawMessage
		if json.Unmarshal(raw, &data) == nil {
			if v, ok := number(data["temperature"]); ok {
				return v, nil
			}
		}
	}
	if v, ok := numberOrString(doc["lm35Temp"]); ok {
		return v, nil
	}
	return 0, ErrMalformed
}

// number decodes raw if it is a JSON number.
func number(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return v, true
}

// numberOrString decodes a JSON number or a string holding one.
func numberOrString(raw json.RawMessage) (float64, bool) {
	if v, ok := number(raw); ok {
		return v, true
	}
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
