package domain

// SliderChallenge is one puzzle instance for the pixel slider. Target is the
// true answer kept server-side; ShowMin/ShowMax describe the decoy band the
// UI renders.
type SliderChallenge struct {
	Target  int
	ShowMin int
	ShowMax int
}

// Slider geometry. The track is TrackWidth pixels wide, the target always
// lands in the middle band, and a submitted position within Tolerance pixels
// of the target passes.
const (
	SliderTrackWidth = 300
	SliderTolerance  = 20

	// SliderInputMax bounds both submitted positions and stored targets;
	// anything outside 0..SliderInputMax is rejected outright.
	SliderInputMax = 500
)
