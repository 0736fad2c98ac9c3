package service

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/domain"
)

var (
	ErrChallengeExpired = errors.New("slider challenge expired or unknown")
	ErrSliderMismatch   = errors.New("slider position does not match")
	ErrSliderInput      = errors.New("slider input out of range")
)

// SliderService generates pixel-slider challenges and verifies submitted
// positions. The true target only ever lives server-side, keyed by the
// robots scene token it was issued with, and is consumed on first read.
type SliderService struct {
	mu      sync.Mutex
	targets map[string]sliderTarget
}

type sliderTarget struct {
	target    int
	expiresAt time.Time
}

func NewSliderService() *SliderService {
	return &SliderService{targets: make(map[string]sliderTarget)}
}

// NewChallenge picks a target uniformly in the middle 20%-80% band of the
// track plus a decoy display band for the UI.
func (s *SliderService) NewChallenge() domain.SliderChallenge {
	lo := domain.SliderTrackWidth * 20 / 100
	hi := domain.SliderTrackWidth * 80 / 100

	showMin := domain.SliderTolerance + rand.IntN(domain.SliderTrackWidth-2*domain.SliderTolerance)

	return domain.SliderChallenge{
		Target:  lo + rand.IntN(hi-lo+1),
		ShowMin: showMin,
		ShowMax: showMin + domain.SliderTolerance,
	}
}

// Remember stores the challenge target under the issued robots token.
func (s *SliderService) Remember(token string, target int, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[token] = sliderTarget{target: target, expiresAt: expiresAt}
}

// Peek returns the stored target for a token without consuming it.
func (s *SliderService) Peek(token string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.targets[token]
	if !ok || time.Now().After(t.expiresAt) {
		return 0, false
	}
	return t.target, true
}

// Consume returns the stored target for a token and deletes it, so every
// challenge is single-use regardless of outcome.
func (s *SliderService) Consume(token string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.targets[token]
	if !ok {
		return 0, false
	}
	delete(s.targets, token)

	if time.Now().After(t.expiresAt) {
		return 0, false
	}
	return t.target, true
}

// VerifyPixel checks a submitted position against a target. Both values must
// be inside the sane 0..500 range; out-of-range input is rejected, never
// clamped. The distance check is inclusive.
func (s *SliderService) VerifyPixel(user, target, tolerance int) error {
	if user < 0 || user > domain.SliderInputMax ||
		target < 0 || target > domain.SliderInputMax {
		return ErrSliderInput
	}

	diff := user - target
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		return ErrSliderMismatch
	}
	return nil
}

// Sweep drops expired targets; called by housekeeping.
func (s *SliderService) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, t := range s.targets {
		if now.After(t.expiresAt) {
			delete(s.targets, token)
		}
	}
}
