package logic

import "math"

const (
	// EffectiveTemperature is the lowest temperature (°C) with any modeled
	// sterilizing effect.
	EffectiveTemperature = 100.0
	// BaseKillRate is the kill points per second at EffectiveTemperature.
	BaseKillRate = 0.05
	// KillZ is the temperature rise (°C) that multiplies the kill rate by ten.
	KillZ = 20.0
	// TargetKillPoints is the accumulated kill needed to complete a cycle.
	TargetKillPoints = 300.0
	// CycleStartTemperature is the temperature (°C) above which a cycle opens.
	CycleStartTemperature = 50.0
)

// KillIncrement returns the kill points earned by holding temperature for
// elapsedSeconds. It is zero below EffectiveTemperature and grows
// exponentially above it. NaN temperatures and non-positive intervals
// earn nothing.
func KillIncrement(temperature, elapsedSeconds float64) float64 {
	if !(temperature >= EffectiveTemperature) || !(elapsedSeconds > 0) {
		return 0
	}
	factor := math.Pow(10, (temperature-EffectiveTemperature)/KillZ)
	return BaseKillRate * factor * elapsedSeconds
}

// KillPercentage converts kill points to a percentage of target, clamped
// to [0, 100].
func KillPercentage(points, target float64) float64 {
	if target <= 0 || points <= 0 {
		return 0
	}
	return math.Min(100, points/target*100)
}
