// Package phase provides the static coaching phase catalog.
//
// Phases, completion rubrics and adaptive question steps are embedded at
// build time and loaded once at startup. The registry never fails a lookup:
// unknown phase ids resolve to a generic fallback phase so the coaching flow
// stays usable for phases that have not been curated yet.
package phase

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/LukaSashic/PitchPerfect/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed phases.yaml
var phasesYAML []byte

// StatusPrefill is the assistant seed fragment that biases the model toward
// emitting the structured phase status block.
const StatusPrefill = "<phase_status>\n<complete>"

// QuestionStep describes one adaptive diagnostic question step.
type QuestionStep struct {
	Step          int      `yaml:"step"`
	Focus         string   `yaml:"focus"`
	QuestionTypes []string `yaml:"question_types"`
}

type catalog struct {
	Phases        []models.Phase  `yaml:"phases"`
	Rubrics       []models.Rubric `yaml:"rubrics"`
	QuestionSteps []QuestionStep  `yaml:"question_steps"`
}

// Registry is the immutable phase catalog.
type Registry struct {
	phases      map[int]models.Phase
	rubrics     map[int]models.Rubric
	steps       map[int]QuestionStep
	definitions string
}

// NewRegistry loads the embedded phase catalog.
func NewRegistry() (*Registry, error) {
	var c catalog
	if err := yaml.Unmarshal(phasesYAML, &c); err != nil {
		slog.Error("Registry.NewRegistry: failed to parse phase catalog", "error", err)
		return nil, fmt.Errorf("failed to parse phase catalog: %w", err)
	}
	if len(c.Phases) == 0 {
		return nil, fmt.Errorf("phase catalog is empty")
	}

	r := &Registry{
		phases:  make(map[int]models.Phase, len(c.Phases)),
		rubrics: make(map[int]models.Rubric, len(c.Rubrics)),
		steps:   make(map[int]QuestionStep, len(c.QuestionSteps)),
	}
	for _, p := range c.Phases {
		r.phases[p.ID] = p
	}
	for _, rb := range c.Rubrics {
		r.rubrics[rb.PhaseID] = rb
	}
	for _, st := range c.QuestionSteps {
		r.steps[st.Step] = st
	}

	// The full catalog is serialized once and reused verbatim in every
	// coaching request so the model API can cache it.
	defs, err := json.MarshalIndent(r.phasesByID(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize phase definitions: %w", err)
	}
	r.definitions = string(defs)

	slog.Debug("Registry.NewRegistry: phase catalog loaded", "phases", len(r.phases), "rubrics", len(r.rubrics), "question_steps", len(r.steps))
	return r, nil
}

func (r *Registry) phasesByID() map[int]models.Phase {
	out := make(map[int]models.Phase, len(r.phases))
	for id, p := range r.phases {
		out[id] = p
	}
	return out
}

// Phase resolves a phase id, falling back to a generic phase for unknown ids.
func (r *Registry) Phase(id int) models.Phase {
	if p, ok := r.phases[id]; ok {
		return p
	}
	slog.Debug("Registry.Phase: unknown phase id, using generic fallback", "phase", id)
	return models.Phase{
		ID:                 id,
		Name:               fmt.Sprintf("Phase %d", id),
		Instructions:       "Führe systematische Befragung durch.",
		CompletionCriteria: "Phase-Ziele erreicht",
	}
}

// Known reports whether a phase id is part of the curated catalog.
func (r *Registry) Known(id int) bool {
	_, ok := r.phases[id]
	return ok
}

// Rubric returns the evaluation rubric for a phase, if one is curated.
func (r *Registry) Rubric(id int) (models.Rubric, bool) {
	rb, ok := r.rubrics[id]
	return rb, ok
}

// Step returns the adaptive question step template, if one is curated.
func (r *Registry) Step(id int) (QuestionStep, bool) {
	st, ok := r.steps[id]
	return st, ok
}

// Prefill returns the assistant seed fragment for a phase. Only curated
// phases use structured status prefilling.
func (r *Registry) Prefill(id int) string {
	if r.Known(id) {
		return StatusPrefill
	}
	return ""
}

// DefinitionsBlock returns the serialized phase catalog included in the
// cache-friendly portion of coaching requests.
func (r *Registry) DefinitionsBlock() string {
	return r.definitions
}

// All returns the curated phases ordered by id.
func (r *Registry) All() []models.Phase {
	out := make([]models.Phase, 0, len(r.phases))
	for _, p := range r.phases {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
