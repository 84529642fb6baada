package dimming

import "testing"

func TestEndpoints(t *testing.T) {
	tests := []struct {
		name string
		got  int
		want int
	}{
		{"intensity 0", IntensityToBrightness(0), 0},
		{"intensity 100", IntensityToBrightness(100), 255},
		{"brightness 0", BrightnessToIntensity(0), 0},
		{"brightness 255", BrightnessToIntensity(255), 100},
		{"brightness 128", BrightnessToIntensity(128), 50},
		{"intensity 50", IntensityToBrightness(50), 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %d, want %d", tt.got, tt.want)
			}
		})
	}
}

func TestRoundTripWithinOne(t *testing.T) {
	for i := 0; i <= MaxIntensity; i++ {
		back := BrightnessToIntensity(IntensityToBrightness(i))
		if diff := back - i; diff < -1 || diff > 1 {
			t.Errorf("intensity %d round-tripped to %d", i, back)
		}
	}
}

func TestMonotonic(t *testing.T) {
	prev := -1
	for i := 0; i <= MaxIntensity; i++ {
		b := IntensityToBrightness(i)
		if b < prev {
			t.Fatalf("IntensityToBrightness(%d) = %d, less than previous %d", i, b, prev)
		}
		prev = b
	}

	prev = -1
	for b := 0; b <= MaxBrightness; b++ {
		i := BrightnessToIntensity(b)
		if i < prev {
			t.Fatalf("BrightnessToIntensity(%d) = %d, less than previous %d", b, i, prev)
		}
		prev = i
	}
}

func TestClampsOutOfRange(t *testing.T) {
	if got := IntensityToBrightness(-5); got != 0 {
		t.Errorf("IntensityToBrightness(-5) = %d, want 0", got)
	}
	if got := IntensityToBrightness(150); got != 255 {
		t.Errorf("IntensityToBrightness(150) = %d, want 255", got)
	}
	if got := BrightnessToIntensity(-1); got != 0 {
		t.Errorf("BrightnessToIntensity(-1) = %d, want 0", got)
	}
	if got := BrightnessToIntensity(1000); got != 100 {
		t.Errorf("BrightnessToIntensity(1000) = %d, want 100", got)
	}
}
