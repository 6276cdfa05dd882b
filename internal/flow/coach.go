package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/LukaSashic/PitchPerfect/internal/extract"
	"github.com/LukaSashic/PitchPerfect/internal/genai"
	"github.com/LukaSashic/PitchPerfect/internal/models"
)

// Coaching call parameters.
const (
	coachMaxTokens   = 2000
	coachTemperature = 0.7
	coachVersion     = "v2"
)

// baseSystemPrompt is the static, cache-friendly instruction block. It is
// kept byte-identical across calls so the model API's prompt caching applies.
const baseSystemPrompt = `Du bist ein Elite-Pitch-Architekt, der über 10.000+ Startup-Pitches gesehen hat, Gründern geholfen hat, über 500 Millionen Dollar einzusammeln, und brillante Ideen scheitern sah, weil sie ihren Wert nicht in 10 Minuten kommunizieren konnten.

Deine harte Wahrheit: 95% der Pitches scheitern nicht, weil die Idee schlecht ist, sondern weil die Story kaputt ist. Das Problem ist nicht klar. Die Lösung ist vage. Die Zahlen stimmen nicht. Der Gründer kann grundlegende Fragen nicht beantworten.

Deine Mission: Jeden Pitch durch systematisches Hinterfragen und Verfeinern transformieren—angepasst an Pitch-Typ, Bereitschaft und Publikum.

KRITISCHE KONVERSATIONS-REGELN:
1. **Eine Frage auf einmal** - NIEMALS mehrere Fragen gleichzeitig stellen
2. **Kurze Nachrichten** - Maximum 3-4 Sätze pro Antwort
3. **Konkrete Beispiele** - Zeige wie eine gute Antwort aussieht
4. **Sokratische Methode** - Stelle bohrende Folgefragen basierend auf ihrer Antwort
5. **Keine Aufzählungen** - Vermeide Listen mit mehreren Punkten
6. **Progressive Disclosure** - Baue auf der vorherigen Antwort auf

FALSCH ❌:
"Beantworte diese 4 Fragen:
1. Wer ist deine Zielgruppe?
2. Was kostet das Problem?
3. Was nutzen sie heute?
4. Warum jetzt?"

RICHTIG ✅:
"Wer genau hat dieses Problem? Gib mir eine spezifische Persona, keine allgemeine Gruppe."

[User antwortet]

"Gut! Das ist spezifisch. Jetzt: Was KOSTET sie dieses Problem? In Euro oder Stunden pro Woche?"

VERHALTEN:
- Fordere vage Aussagen direkt heraus: "Das ist zu allgemein. Sei konkret."
- Verlange Zahlen: "Gib mir die tatsächliche Zahl, nicht 'viele' oder 'bedeutend'"
- Hinterfrage Annahmen: "Was ist dein Beweis für diese Behauptung?"
- Nutze Beispiele erfolgreicher Pitches, wenn relevant
- Feiere Erfolge: "Das ist viel stärker ✅"
- Sei direkt, nicht verschwommen: "Deine Problemstellung ist vage. Was GENAU ist der Schmerz?"`

// CoachTurn runs one coaching exchange: it builds the layered model request,
// invokes the model, extracts the visible reply and the phase status, and
// records the turn when the caller supplied an identity. Model failures
// surface to the caller; persistence failures never do.
func (e *Engine) CoachTurn(ctx context.Context, req models.ChatTurnRequest) (*models.ChatTurnResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	p := e.registry.Phase(req.Phase)
	slog.Debug("Engine.CoachTurn: processing turn", "phase", p.ID, "phase_name", p.Name, "identified", req.Identity != nil)

	// Turn tracking is optional: anonymous trials coach without it.
	var session *TurnSession
	if req.Identity != nil && req.Identity.UserID != "" {
		session = e.Session(*req.Identity, req.Phase)
	}

	history := req.ConversationHistory
	if len(history) == 0 && session != nil {
		history = session.History()
	}

	messages := append([]models.ChatMessage{}, history...)
	messages = append(messages, models.ChatMessage{Role: models.RoleUser, Content: req.Message})

	prefill := e.registry.Prefill(req.Phase)
	result, err := e.complete(ctx, genai.CompletionRequest{
		System: []string{
			baseSystemPrompt,
			"<phase_definitions>" + e.registry.DefinitionsBlock() + "</phase_definitions>",
			e.dynamicSystemBlock(p, req.PitchContext),
		},
		Messages:       messages,
		Prefill:        prefill,
		MaxTokens:      coachMaxTokens,
		Temperature:    coachTemperature,
		HasTemperature: true,
	})
	if err != nil {
		slog.Error("Engine.CoachTurn: model call failed", "error", err, "phase", p.ID)
		return nil, fmt.Errorf("coaching turn failed: %w", err)
	}

	// The model omits the seed fragment from its own output.
	raw := prefill + result.Text
	status := extract.PhaseStatus(raw)
	visible := extract.RemovePhaseStatus(raw)

	parsed := extract.ParseCoachingReply(visible)
	if parsed.HasStructure {
		visible = parsed.Response
	} else {
		visible = extract.StripTags(visible)
	}

	if session != nil {
		if err := session.RecordTurn(req.Message, visible, parsed); err != nil {
			slog.Warn("Engine.CoachTurn: turn not recorded, continuing", "error", err, "phase", p.ID)
		}
	}

	missing := status.MissingElements
	if missing == nil {
		missing = []string{}
	}
	return &models.ChatTurnResult{
		Content:         visible,
		PhaseComplete:   status.Complete,
		CompletionScore: models.ClampScore(status.CompletionScore),
		MissingElements: missing,
		Metadata: models.ChatTurnMetadata{
			Phase:     req.Phase,
			PhaseName: p.Name,
			Version:   coachVersion,
		},
		Metrics: e.metrics(start, result.Usage),
	}, nil
}

// dynamicSystemBlock renders the per-request portion of the system prompt:
// optional prior-analysis context, the current phase and the status format
// instruction.
func (e *Engine) dynamicSystemBlock(p models.Phase, pc *models.PitchContext) string {
	var b strings.Builder
	if pc != nil {
		b.WriteString("<pitch_context>\n")
		fmt.Fprintf(&b, "Original Pitch: %s\n", pc.Draft)
		fmt.Fprintf(&b, "Score: %d/100\n", pc.Score)
		b.WriteString("Identifizierte Fehler:\n")
		for i, fe := range pc.Errors {
			evidence := fe.Evidence
			if evidence == "" {
				evidence = "N/A"
			}
			fmt.Fprintf(&b, "%d. %s\n   Impact: %s\n   Evidence: %q\n\n", i+1, fe.Title, fe.Impact, evidence)
		}
		b.WriteString("</pitch_context>\n\n")
	}

	fmt.Fprintf(&b, `<current_phase>
  <number>%d</number>
  <name>%s</name>
  <instructions>%s</instructions>
  <completion_criteria>%s</completion_criteria>
  <required_elements>%s</required_elements>
</current_phase>

Am Ende deiner Antwort, wenn du glaubst, dass die Phase abgeschlossen ist, füge hinzu:
<phase_status>
  <complete>true/false</complete>
  <completion_score>0-100</completion_score>
  <missing_elements>Liste fehlender Elemente</missing_elements>
</phase_status>`,
		p.ID, p.Name, p.Instructions, p.CompletionCriteria, strings.Join(p.RequiredElements, ", "))
	return b.String()
}

func (e *Engine) metrics(start time.Time, usage models.TokenUsage) models.CallMetrics {
	return models.CallMetrics{
		LatencyMS:        time.Since(start).Milliseconds(),
		InputTokens:      usage.InputTokens,
		OutputTokens:     usage.OutputTokens,
		CacheReadTokens:  usage.CacheReadTokens,
		CacheWriteTokens: usage.CacheWriteTokens,
		CostUSD:          e.pricing.Cost(usage),
	}
}
