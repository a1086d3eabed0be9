package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemperatureFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		want float64
	}{
		{"value", `{"value": 101.5}`, 101.5},
		{"temperature", `{"temperature": 42}`, 42},
		{"ingest envelope", `{"status":"ok","data":{"temperature":88.25,"receivedAt":"2026-01-01T00:00:00Z"}}`, 88.25},
		{"lm35 number", `{"lm35Temp": 36.6}`, 36.6},
		{"lm35 string", `{"lm35Temp": " 36.6 "}`, 36.6},
		{"value wins", `{"value": 1, "temperature": 2, "data": {"temperature": 3}}`, 1},
		{"non-number value skipped", `{"value": "hot", "temperature": 120}`, 120},
		{"null value skipped", `{"value": null, "data": {"temperature": 70}}`, 70},
		{"explicit zero accepted", `{"temperature": 0}`, 0},
		{"negative accepted", `{"temperature": -5}`, -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTemperature([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTemperatureRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"empty object", `{}`, ErrMalformed},
		{"not json", `<html>`, ErrMalformed},
		{"array", `[1,2]`, ErrMalformed},
		{"lm35 garbage", `{"lm35Temp": "warm"}`, ErrMalformed},
		{"no data yet", `{"status":"no_data_yet"}`, ErrNoData},
		{"proxy upstream error", `{"message":"Upstream error","temperature":0,"status":"error"}`, ErrNoData},
		{"proxy unconfigured", `{"message":"No SERVER_URL configured"}`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTemperature([]byte(tt.body))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func newFeed(t *testing.T, status int, body string) *HTTPSource {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != TemperaturePath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return NewHTTPSource(ts.URL+"/", time.Second)
}

func TestHTTPSourceRead(t *testing.T) {
	src := newFeed(t, http.StatusOK, `{"status":"ok","data":{"temperature":121.3,"receivedAt":"2026-01-01T00:00:00Z"}}`)
	assert.Equal(t, KindLive, src.Kind())

	got, err := src.Read(context.Background(), Reading{Temperature: 20, Pressure: 180})
	require.NoError(t, err)
	assert.Equal(t, Reading{Temperature: 121.3, Pressure: LivePressure}, got)
}

func TestHTTPSourceMalformedKeepsPrevious(t *testing.T) {
	src := newFeed(t, http.StatusOK, `{}`)
	prev := Reading{Temperature: 64.2, Pressure: 100}

	got, err := src.Read(context.Background(), prev)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Equal(t, prev, got)
}

func TestHTTPSourceUpstreamStatusKeepsPrevious(t *testing.T) {
	src := newFeed(t, http.StatusBadGateway, `{"error":"down"}`)
	prev := Reading{Temperature: 99, Pressure: 100}

	got, err := src.Read(context.Background(), prev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Equal(t, prev, got)
}

func TestHTTPSourceUnreachableKeepsPrevious(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	src := NewHTTPSource(url, time.Second)
	prev := Reading{Temperature: 30, Pressure: 100}
	got, err := src.Read(context.Background(), prev)
	require.Error(t, err)
	assert.Equal(t, prev, got)
}

func TestHTTPSourceTimeout(t *testing.T) {
	block := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(block)
		ts.Close()
	})

	src := NewHTTPSource(ts.URL, 50*time.Millisecond)
	prev := Reading{Temperature: 55, Pressure: 100}
	start := time.Now()
	got, err := src.Read(context.Background(), prev)
	require.Error(t, err)
	assert.Equal(t, prev, got)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHTTPSourceUnconfigured(t *testing.T) {
	src := NewHTTPSource("", time.Second)
	assert.Empty(t, src.URL())

	prev := Reading{Temperature: 20, Pressure: 100}
	got, err := src.Read(context.Background(), prev)
	assert.True(t, errors.Is(err, ErrNotConfigured))
	assert.Equal(t, prev, got)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("simulation")
	require.NoError(t, err)
	assert.Equal(t, KindSimulation, k)

	_, err = ParseKind("mqtt")
	assert.Error(t, err)
}
