package models

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestChatTurnRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ChatTurnRequest
		wantErr error
	}{
		{"valid", ChatTurnRequest{Phase: 2, Message: "Hallo"}, nil},
		{"missing phase", ChatTurnRequest{Message: "Hallo"}, ErrMissingFields},
		{"missing message", ChatTurnRequest{Phase: 2}, ErrMissingFields},
		{"whitespace message", ChatTurnRequest{Phase: 2, Message: "   "}, ErrMissingFields},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestAnalyzePitchRequestValidate(t *testing.T) {
	short := AnalyzePitchRequest{PitchText: "zu kurz"}
	if err := short.Validate(); !errors.Is(err, ErrPitchTooShort) {
		t.Errorf("expected ErrPitchTooShort, got %v", err)
	}

	// Surrounding whitespace does not count toward the minimum.
	padded := AnalyzePitchRequest{PitchText: "  kurz  " + strings.Repeat(" ", 60)}
	if err := padded.Validate(); !errors.Is(err, ErrPitchTooShort) {
		t.Errorf("expected padded short pitch to be rejected, got %v", err)
	}

	ok := AnalyzePitchRequest{PitchText: strings.Repeat("Wir lösen ein teures Problem. ", 3)}
	if err := ok.Validate(); err != nil {
		t.Errorf("expected valid pitch, got %v", err)
	}
}

func TestErrPitchTooShortMessage(t *testing.T) {
	// The message is shown verbatim to German-speaking users.
	want := "Pitch text zu kurz. Mindestens 50 Zeichen erforderlich."
	if ErrPitchTooShort.Error() != want {
		t.Errorf("ErrPitchTooShort = %q, want %q", ErrPitchTooShort.Error(), want)
	}
}

func TestEvaluatePhaseRequestValidate(t *testing.T) {
	req := EvaluatePhaseRequest{Phase: 2, ConversationHistory: []ChatMessage{{Role: RoleUser, Content: "x"}}}
	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request, got %v", err)
	}
	empty := EvaluatePhaseRequest{Phase: 2}
	if err := empty.Validate(); !errors.Is(err, ErrMissingFields) {
		t.Errorf("expected ErrMissingFields for empty history, got %v", err)
	}
}

func TestResetPhaseRequestValidate(t *testing.T) {
	req := ResetPhaseRequest{Phase: 3, Identity: Identity{UserID: "u1"}}
	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request, got %v", err)
	}
	anon := ResetPhaseRequest{Phase: 3}
	if err := anon.Validate(); !errors.Is(err, ErrMissingFields) {
		t.Errorf("expected ErrMissingFields without user id, got %v", err)
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct{ in, want int }{
		{-5, 0},
		{0, 0},
		{73, 73},
		{100, 100},
		{140, 100},
	}
	for _, tc := range tests {
		if got := ClampScore(tc.in); got != tc.want {
			t.Errorf("ClampScore(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestPricingCost(t *testing.T) {
	usage := TokenUsage{
		InputTokens:      1_000_000,
		OutputTokens:     1_000_000,
		CacheWriteTokens: 1_000_000,
		CacheReadTokens:  1_000_000,
	}
	got := DefaultPricing.Cost(usage)
	want := 3.00 + 15.00 + 3.75 + 0.30
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Cost = %v, want %v", got, want)
	}
}

func TestPricingCostRoundsToSixDecimals(t *testing.T) {
	// 7 input tokens cost 0.000021 USD exactly; 1 token costs 0.000003.
	got := DefaultPricing.Cost(TokenUsage{InputTokens: 7})
	if got != 0.000021 {
		t.Errorf("Cost = %v, want 0.000021", got)
	}
	got = DefaultPricing.Cost(TokenUsage{OutputTokens: 1})
	if got != 0.000015 {
		t.Errorf("Cost = %v, want 0.000015", got)
	}
}

func TestPricingCostZeroUsage(t *testing.T) {
	if got := DefaultPricing.Cost(TokenUsage{}); got != 0 {
		t.Errorf("Cost of zero usage = %v, want 0", got)
	}
}
