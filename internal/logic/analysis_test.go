package logic

import (
	"strings"
	"testing"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name        string
		temp, press float64
		kill        float64
		wantPrefix  string
	}{
		{"complete", 121, 205, 100, "Sterilization cycle complete"},
		{"complete wins over conditions", 20, 100, 100, "Sterilization cycle complete"},
		{"optimal", 121.5, 206, 40, "Optimal sterilization conditions"},
		{"low pressure", 110, 100, 10, "Temperature is rising, but pressure is sub-optimal"},
		{"inactive", 20, 100, 0, "System inactive"},
		{"heating", 80, 160, 0, "Heating phase in progress"},
		{"hot but not optimal pressure", 121, 180, 50, "Heating phase in progress"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.temp, tt.press, tt.kill)
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("Analyze(%v, %v, %v): got %q, want prefix %q", tt.temp, tt.press, tt.kill, got, tt.wantPrefix)
			}
		})
	}
}
