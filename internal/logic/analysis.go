package logic

// Analyze returns a one-line advisory for the current conditions.
func Analyze(temperature, pressure, killPercentage float64) string {
	switch {
	case killPercentage >= 100:
		return "Sterilization cycle complete. Environment is pathogen-free. Start cooling phase."
	case temperature > 120 && pressure > 200:
		return "Optimal sterilization conditions reached. Bacteria destruction rate is maximal."
	case temperature > 100 && pressure < 150:
		return "Temperature is rising, but pressure is sub-optimal. Check seal integrity to ensure steam saturation."
	case temperature < CycleStartTemperature:
		return "System inactive. Ready to begin sterilization cycle."
	default:
		return "Heating phase in progress. Monitoring parameters for optimal kill range."
	}
}
