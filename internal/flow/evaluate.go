package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/LukaSashic/PitchPerfect/internal/extract"
	"github.com/LukaSashic/PitchPerfect/internal/genai"
	"github.com/LukaSashic/PitchPerfect/internal/models"
)

const (
	evaluateMaxTokens   = 2000
	evaluateTemperature = 0.3
)

// EvaluatePhase grades a coaching conversation against the phase rubric.
// Phases without a curated rubric return ErrNoRubric; model and parse
// failures surface because a made-up score would mislead the founder.
func (e *Engine) EvaluatePhase(ctx context.Context, req models.EvaluatePhaseRequest) (*models.PhaseEvaluation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	rubric, ok := e.registry.Rubric(req.Phase)
	if !ok {
		return nil, fmt.Errorf("phase %d: %w", req.Phase, models.ErrNoRubric)
	}

	result, err := e.complete(ctx, genai.CompletionRequest{
		Messages:       []models.ChatMessage{{Role: models.RoleUser, Content: buildEvaluationPrompt(req.Phase, req.ConversationHistory, rubric)}},
		MaxTokens:      evaluateMaxTokens,
		Temperature:    evaluateTemperature,
		HasTemperature: true,
	})
	if err != nil {
		slog.Error("Engine.EvaluatePhase: model call failed", "phase", req.Phase, "error", err)
		return nil, err
	}

	var eval models.PhaseEvaluation
	if err := extract.JSONReply(result.Text, &eval); err != nil {
		slog.Error("Engine.EvaluatePhase: evaluation did not parse", "phase", req.Phase, "error", err)
		return nil, err
	}

	// The threshold is ours, not the model's.
	eval.Score = models.ClampScore(eval.Score)
	eval.CanProceed = eval.Score >= models.ProceedScoreThreshold
	if eval.Gaps == nil {
		eval.Gaps = []string{}
	}
	slog.Debug("Engine.EvaluatePhase: evaluation complete", "phase", req.Phase, "score", eval.Score, "can_proceed", eval.CanProceed)
	return &eval, nil
}

func buildEvaluationPrompt(phaseID int, history []models.ChatMessage, rubric models.Rubric) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Du bist ein Experten-Pitch-Coach und bewertest die Arbeit eines Gründers in Phase %d: %s.\n\n", phaseID, rubric.Name)

	b.WriteString("<conversation_history>\n")
	for i, msg := range history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		speaker := "Coach"
		if msg.Role == models.RoleUser {
			speaker = "Gründer"
		}
		fmt.Fprintf(&b, "%s: %s", speaker, msg.Content)
	}
	b.WriteString("\n</conversation_history>\n\n")

	b.WriteString("<evaluation_criteria>\nERFORDERLICHE KRITERIEN (Pflicht - binär erfüllt/nicht erfüllt):\n")
	for i, c := range rubric.MustMeet {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.Label)
	}
	b.WriteString("\nBONUS-KRITERIEN (Bonuspunkte):\n")
	for i, c := range rubric.ShouldMeet {
		fmt.Fprintf(&b, "%d. %s (%d Punkte)\n", i+1, c.Label, c.Weight)
	}
	b.WriteString("</evaluation_criteria>\n\n")

	b.WriteString("<evaluation_instructions>\n")
	b.WriteString("1. Analysiere die Konversation um zu bestimmen, ob jedes Kriterium erfüllt ist\n")
	b.WriteString("2. Berechne den Score:\n")
	b.WriteString("   - Basis-Score: 50 Punkte wenn ALLE Pflicht-Kriterien erfüllt sind\n")
	b.WriteString("   - Wenn IRGENDEIN Pflicht-Kriterium fehlt: max Score = 40 Punkte\n")
	b.WriteString("   - Addiere Bonus-Punkte für jedes erfüllte Bonus-Kriterium\n")
	fmt.Fprintf(&b, "   - Maximum möglich: %d Punkte\n\n", rubric.MaxScore)
	b.WriteString("3. Gib spezifisches, umsetzbares Feedback für Lücken\n")
	b.WriteString("4. Sei direkt aber ermutigend - deutsche Gründer schätzen Ehrlichkeit\n\n")

	b.WriteString("Gib deine Bewertung in diesem EXAKTEN JSON-Format aus (kein Markdown, keine Code-Blöcke):\n")
	b.WriteString("{\n  \"score\": <Zahl 0-100>,\n  \"canProceed\": <boolean - true wenn score >= 70>,\n  \"mustMeetResults\": {\n    ")
	b.WriteString(criterionIDFields(rubric.MustMeet))
	b.WriteString("\n  },\n  \"shouldMeetResults\": {\n    ")
	b.WriteString(criterionIDFields(rubric.ShouldMeet))
	b.WriteString("\n  },\n  \"gaps\": [<Array von Strings die beschreiben was fehlt>],\n")
	b.WriteString("  \"feedback\": \"<Ermutigendes aber direktes Feedback auf Deutsch, 2-3 Sätze>\",\n")
	b.WriteString("  \"nextSteps\": \"<Spezifischer umsetzbarer nächster Schritt auf Deutsch>\"\n}\n")
	b.WriteString("</evaluation_instructions>\n\n")

	b.WriteString("**WICHTIG: Alle Ausgaben müssen auf Deutsch sein.**\n\n")
	b.WriteString("Bewerte die Konversation und gib NUR das JSON-Objekt zurück, nichts anderes.")
	return b.String()
}

func criterionIDFields(criteria []models.Criterion) string {
	parts := make([]string, len(criteria))
	for i, c := range criteria {
		parts[i] = fmt.Sprintf("%q: <boolean>", c.ID)
	}
	return strings.Join(parts, ",\n    ")
}
