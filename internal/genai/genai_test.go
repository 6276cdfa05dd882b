package genai

import (
	"errors"
	"testing"
	"time"

	"github.com/LukaSashic/PitchPerfect/internal/models"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient()
	if !errors.Is(err, models.ErrConfigurationMissing) {
		t.Errorf("expected ErrConfigurationMissing without key, got %v", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient(WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.model != DefaultModel {
		t.Errorf("model = %q, want %q", c.model, DefaultModel)
	}
	if c.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", c.timeout, DefaultTimeout)
	}
}

func TestNewClientOptions(t *testing.T) {
	c, err := NewClient(WithAPIKey("test-key"), WithModel("gpt-4o-mini"), WithTimeout(3*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.model != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", c.model)
	}
	if c.timeout != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", c.timeout)
	}
}
