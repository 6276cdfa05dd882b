package phase

import (
	"strings"
	"testing"
)

func TestNewRegistryLoadsCatalog(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("failed to load phase catalog: %v", err)
	}

	all := r.All()
	if len(all) != 12 {
		t.Fatalf("expected 12 curated phases, got %d", len(all))
	}
	if all[0].ID != 2 || all[len(all)-1].ID != 13 {
		t.Errorf("expected phases 2..13 ordered by id, got first=%d last=%d", all[0].ID, all[len(all)-1].ID)
	}

	p := r.Phase(2)
	if p.Name != "Fatale Fehler Diagnose" {
		t.Errorf("unexpected phase 2 name: %q", p.Name)
	}
	if p.Instructions == "" || p.CompletionCriteria == "" {
		t.Errorf("phase 2 missing instructions or completion criteria")
	}
}

func TestPhaseUnknownFallsBack(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("failed to load phase catalog: %v", err)
	}

	p := r.Phase(99)
	if p.ID != 99 {
		t.Errorf("expected fallback phase to carry requested id, got %d", p.ID)
	}
	if p.Name != "Phase 99" {
		t.Errorf("unexpected fallback name: %q", p.Name)
	}
	if p.Instructions == "" {
		t.Errorf("fallback phase must carry generic instructions")
	}
	if r.Known(99) {
		t.Errorf("phase 99 must not be reported as curated")
	}
}

func TestPrefillOnlyForCuratedPhases(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("failed to load phase catalog: %v", err)
	}

	if got := r.Prefill(3); got != StatusPrefill {
		t.Errorf("expected status prefill for curated phase, got %q", got)
	}
	if got := r.Prefill(42); got != "" {
		t.Errorf("expected empty prefill for unknown phase, got %q", got)
	}
}

func TestRubricLookups(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("failed to load phase catalog: %v", err)
	}

	for _, id := range []int{2, 3, 4} {
		rb, ok := r.Rubric(id)
		if !ok {
			t.Fatalf("expected rubric for phase %d", id)
		}
		if len(rb.MustMeet) == 0 || len(rb.ShouldMeet) == 0 {
			t.Errorf("phase %d rubric incomplete: %d must, %d should", id, len(rb.MustMeet), len(rb.ShouldMeet))
		}
		if rb.MaxScore != 100 {
			t.Errorf("phase %d rubric max score = %d, want 100", id, rb.MaxScore)
		}
	}

	if _, ok := r.Rubric(5); ok {
		t.Errorf("phase 5 has no curated rubric")
	}
}

func TestQuestionSteps(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("failed to load phase catalog: %v", err)
	}

	wantFocus := map[int]string{4: "Problem", 5: "Lösung", 6: "Traktion", 7: "Wettbewerb"}
	for id, focus := range wantFocus {
		st, ok := r.Step(id)
		if !ok {
			t.Fatalf("expected question step %d", id)
		}
		if st.Focus != focus {
			t.Errorf("step %d focus = %q, want %q", id, st.Focus, focus)
		}
	}
	if _, ok := r.Step(3); ok {
		t.Errorf("step 3 must not exist")
	}
}

func TestDefinitionsBlockStable(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("failed to load phase catalog: %v", err)
	}

	defs := r.DefinitionsBlock()
	if defs == "" {
		t.Fatalf("definitions block is empty")
	}
	if !strings.Contains(defs, "Fatale Fehler Diagnose") {
		t.Errorf("definitions block missing phase names")
	}
	if defs != r.DefinitionsBlock() {
		t.Errorf("definitions block must be byte-stable across calls")
	}
}

func TestFallbackQuestion(t *testing.T) {
	for _, step := range []int{4, 5, 6, 7} {
		q := FallbackQuestion(step)
		if q.Question == "" {
			t.Errorf("step %d fallback question empty", step)
		}
		if len(q.SuggestedAnswers) != 3 {
			t.Errorf("step %d fallback must carry 3 answers, got %d", step, len(q.SuggestedAnswers))
		}
	}

	// Unknown steps resolve to the problem question.
	if got := FallbackQuestion(99); got.Question != FallbackQuestion(DefaultFallbackStep).Question {
		t.Errorf("unknown step must map to step %d question", DefaultFallbackStep)
	}
}

func TestFallbackAnalysis(t *testing.T) {
	a := FallbackAnalysis()
	if a.OverallScore != 42 {
		t.Errorf("fallback analysis score = %d, want 42", a.OverallScore)
	}
	if len(a.FatalErrors) != 3 {
		t.Errorf("fallback analysis must list 3 fatal errors, got %d", len(a.FatalErrors))
	}
	if len(a.Dimensions) != 4 {
		t.Errorf("fallback analysis must score 4 dimensions, got %d", len(a.Dimensions))
	}
	if a.Strengths == nil || len(a.Strengths) != 0 {
		t.Errorf("fallback analysis strengths must be present and empty, got %v", a.Strengths)
	}
}

func TestFallbackDiagnostic(t *testing.T) {
	d := FallbackDiagnostic()
	if d.CriticalIssues != 4 || d.WarningIssues != 2 || d.StrongAreas != 1 {
		t.Errorf("unexpected issue counts: %d/%d/%d", d.CriticalIssues, d.WarningIssues, d.StrongAreas)
	}
	if len(d.Issues) != 7 {
		t.Fatalf("expected 7 issues, got %d", len(d.Issues))
	}
	if d.Issues[0].Severity != "critical" || d.Issues[6].Severity != "good" {
		t.Errorf("issues must be ordered by severity: first=%s last=%s", d.Issues[0].Severity, d.Issues[6].Severity)
	}
}
