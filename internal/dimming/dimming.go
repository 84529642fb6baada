// Package dimming converts between the controller's intensity scale (0-100)
// and the host brightness scale (0-255).
//
// Both conversions round half to even and clamp their input, so a value
// outside the range never reaches the controller.
package dimming

import "math"

const (
	MaxIntensity  = 100
	MaxBrightness = 255
)

// IntensityToBrightness maps a controller intensity to host brightness.
func IntensityToBrightness(intensity int) int {
	intensity = ClampIntensity(intensity)
	return int(math.RoundToEven(MaxBrightness * (float64(intensity) / MaxIntensity)))
}

// BrightnessToIntensity maps host brightness to a controller intensity.
func BrightnessToIntensity(brightness int) int {
	brightness = ClampBrightness(brightness)
	v := MaxIntensity * (1 - float64(MaxBrightness-brightness)/MaxBrightness)
	return ClampIntensity(int(math.RoundToEven(v)))
}

// ClampIntensity limits v to 0..100.
func ClampIntensity(v int) int {
	return clamp(v, MaxIntensity)
}

// ClampBrightness limits v to 0..255.
func ClampBrightness(v int) int {
	return clamp(v, MaxBrightness)
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
