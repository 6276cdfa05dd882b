package extract

import (
	"errors"
	"testing"

	"github.com/LukaSashic/PitchPerfect/internal/models"
)

func TestTag(t *testing.T) {
	text := "prefix <response>\n  Hallo Gründer!  \n</response> suffix"
	got, ok := Tag(text, "response")
	if !ok {
		t.Fatalf("expected response tag to be found")
	}
	if got != "Hallo Gründer!" {
		t.Errorf("expected trimmed content, got %q", got)
	}

	if _, ok := Tag(text, "thinking"); ok {
		t.Errorf("expected missing tag to report not found")
	}
}

func TestTagFirstOccurrenceWins(t *testing.T) {
	text := "<q>erste</q> <q>zweite</q>"
	got, ok := Tag(text, "q")
	if !ok || got != "erste" {
		t.Errorf("expected first occurrence, got %q (found=%v)", got, ok)
	}
}

func TestStripTagsIdempotent(t *testing.T) {
	raw := "<analysis>intern</analysis> Sichtbarer Text <note>x</note>"
	once := StripTags(raw)
	twice := StripTags(once)
	if once != twice {
		t.Errorf("StripTags not idempotent: %q vs %q", once, twice)
	}
	if once != "intern Sichtbarer Text x" {
		t.Errorf("unexpected stripped text: %q", once)
	}
}

func TestParseCoachingReplyStructured(t *testing.T) {
	raw := `<thinking>Der Gründer ist vage.</thinking>
<analysis>Keine Zahlen genannt.</analysis>
<response>Was genau kostet dieses Problem? In Euro pro Monat.</response>`

	reply := ParseCoachingReply(raw)
	if !reply.HasStructure {
		t.Fatalf("expected structured reply")
	}
	if reply.Response != "Was genau kostet dieses Problem? In Euro pro Monat." {
		t.Errorf("unexpected response: %q", reply.Response)
	}
	if reply.Thinking != "Der Gründer ist vage." {
		t.Errorf("unexpected thinking: %q", reply.Thinking)
	}
	if reply.Analysis != "Keine Zahlen genannt." {
		t.Errorf("unexpected analysis: %q", reply.Analysis)
	}
}

func TestParseCoachingReplyUnstructured(t *testing.T) {
	raw := "Einfach nur Text ohne Struktur."
	reply := ParseCoachingReply(raw)
	if reply.HasStructure {
		t.Errorf("expected unstructured reply")
	}
	if reply.Response != raw {
		t.Errorf("expected full raw text as response, got %q", reply.Response)
	}
}

func TestPhaseStatusExplicitBlock(t *testing.T) {
	text := `Gute Arbeit!
<phase_status>
  <complete>true</complete>
  <completion_score>92</completion_score>
  <missing_elements>Marktgröße, Timing</missing_elements>
</phase_status>`

	status := PhaseStatus(text)
	if !status.Complete {
		t.Errorf("expected complete=true")
	}
	if status.CompletionScore != 92 {
		t.Errorf("expected score 92, got %d", status.CompletionScore)
	}
	if len(status.MissingElements) != 2 || status.MissingElements[0] != "Marktgröße" || status.MissingElements[1] != "Timing" {
		t.Errorf("unexpected missing elements: %v", status.MissingElements)
	}
}

func TestPhaseStatusClampsScore(t *testing.T) {
	text := "<phase_status><complete>false</complete><completion_score>150</completion_score></phase_status>"
	status := PhaseStatus(text)
	if status.CompletionScore != 100 {
		t.Errorf("expected clamped score 100, got %d", status.CompletionScore)
	}
}

func TestPhaseStatusKeywordFallback(t *testing.T) {
	status := PhaseStatus("Sehr gut! Die Phase abgeschlossen, weiter geht's.")
	if !status.Complete {
		t.Errorf("expected keyword heuristic to mark phase complete")
	}
	if status.CompletionScore != 85 {
		t.Errorf("expected fallback score 85, got %d", status.CompletionScore)
	}

	status = PhaseStatus("Erzähl mir mehr über deine Zielgruppe.")
	if status.Complete {
		t.Errorf("expected incomplete without keywords")
	}
	if status.CompletionScore != 50 {
		t.Errorf("expected fallback score 50, got %d", status.CompletionScore)
	}
}

func TestRemovePhaseStatus(t *testing.T) {
	text := "Antwort.\n<phase_status><complete>false</complete></phase_status>"
	if got := RemovePhaseStatus(text); got != "Antwort." {
		t.Errorf("expected status block removed, got %q", got)
	}
}

func TestJSONWithPrefill(t *testing.T) {
	var out struct {
		OverallScore int    `json:"overallScore"`
		NextSteps    string `json:"nextSteps"`
	}
	modelText := " 42,\n  \"nextSteps\": \"Quantifiziere das Problem\"\n}"
	if err := JSONWithPrefill("{\n  \"overallScore\":", modelText, &out); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if out.OverallScore != 42 || out.NextSteps != "Quantifiziere das Problem" {
		t.Errorf("unexpected parse result: %+v", out)
	}
}

func TestJSONReplyStripsFences(t *testing.T) {
	var out map[string]int
	if err := JSONReply("```json\n{\"score\": 7}\n```", &out); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if out["score"] != 7 {
		t.Errorf("unexpected value: %v", out)
	}
}

func TestJSONWithPrefillMalformed(t *testing.T) {
	var out map[string]int
	err := JSONWithPrefill("{", "not json at all", &out)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if !errors.Is(err, models.ErrMalformedModelOutput) {
		t.Errorf("expected ErrMalformedModelOutput, got %v", err)
	}
}

func TestList(t *testing.T) {
	text := "<gaps><item>Keine Zahlen</item><item> Vage Persona </item></gaps>"
	items := List(text, "gaps")
	if len(items) != 2 || items[0] != "Keine Zahlen" || items[1] != "Vage Persona" {
		t.Errorf("unexpected items: %v", items)
	}
	if items := List("nichts", "gaps"); items != nil {
		t.Errorf("expected nil for missing container, got %v", items)
	}
}

func TestDelimitedList(t *testing.T) {
	items := DelimitedList("<missing_elements>eins, zwei, ,drei</missing_elements>", "missing_elements")
	if len(items) != 3 || items[2] != "drei" {
		t.Errorf("unexpected items: %v", items)
	}
}
