package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/LukaSashic/PitchPerfect/internal/extract"
	"github.com/LukaSashic/PitchPerfect/internal/genai"
	"github.com/LukaSashic/PitchPerfect/internal/models"
	"github.com/LukaSashic/PitchPerfect/internal/phase"
)

const (
	questionMaxTokens = 1000

	// pitchDraftLimit caps how much of the draft reaches the prompt.
	pitchDraftLimit = 1000

	// emptyDraftPlaceholder is what the frontend sends when no draft exists.
	emptyDraftPlaceholder = "[Kein Pitch-Entwurf vorhanden]"
)

const questionSystemPrompt = `Du bist ein KI-Assistent, der adaptive Fragen für eine Pitch-Diagnose generiert.

Deine Aufgabe:
1. Analysiere den Kontext (Pitch-Typ, Phase, Pitch-Entwurf, vorherige Antworten)
2. Generiere EINE präzise, spezifische Frage basierend auf dem Fokusbereich
3. Erstelle 3 relevante Antwortoptionen, die zum Nutzer passen

WICHTIGE REGELN:
- Die Frage MUSS zum Pitch-Entwurf passen und spezifisch sein
- Verwende Details aus dem Pitch-Entwurf in der Frage
- Antwortoptionen müssen realistisch und unterschiedlich sein
- Eine Option sollte konservativ sein, eine ambitioniert, eine mittelmäßig
- Antworten sollten 1-2 Sätze lang sein
- Sprache: Deutsch, direkt, ohne Floskeln

OUTPUT FORMAT (JSON):
{
    "question": "Spezifische Frage basierend auf Kontext",
    "description": "Warum diese Frage wichtig ist (1 Satz)",
    "suggestedAnswers": [
        "Antwort Option 1 (konservativ/realistisch)",
        "Antwort Option 2 (mittelmäßig/ausgewogen)",
        "Antwort Option 3 (ambitioniert/optimistisch)"
    ]
}

Beispiel:
Pitch-Entwurf: "Wir helfen Restaurants, Lebensmittelverschwendung zu reduzieren..."
Schritt 4 (Problem):
{
    "question": "Wie viel Umsatz verlieren Restaurants durchschnittlich durch Lebensmittelverschwendung pro Monat?",
    "description": "Die Quantifizierung des Problems macht es für Investoren greifbar",
    "suggestedAnswers": [
        "Etwa 5-10% des Umsatzes, also €2.000-4.000 bei einem durchschnittlichen Restaurant",
        "Rund 15-20% des Umsatzes, das sind €6.000-8.000 monatlich bei unserer Zielgruppe",
        "Bis zu 30% des Einkaufsbudgets, was €10.000+ pro Monat bedeuten kann"
    ]
}`

// GenerateQuestion produces one adaptive diagnostic question for a form step.
// It never returns an error: unknown steps, model failures, and malformed
// replies all fall back to the curated question for that step.
func (e *Engine) GenerateQuestion(ctx context.Context, req models.AdaptiveQuestionRequest) models.AdaptiveQuestion {
	step, ok := e.registry.Step(req.StepNumber)
	if !ok {
		slog.Warn("Engine.GenerateQuestion: unknown step, using fallback question", "step", req.StepNumber)
		return phase.FallbackQuestion(req.StepNumber)
	}

	result, err := e.complete(ctx, genai.CompletionRequest{
		System:    []string{questionSystemPrompt},
		Messages:  []models.ChatMessage{{Role: models.RoleUser, Content: buildQuestionContext(step, req.Context)}},
		MaxTokens: questionMaxTokens,
	})
	if err != nil {
		slog.Warn("Engine.GenerateQuestion: model call failed, using fallback question", "step", req.StepNumber, "error", err)
		return phase.FallbackQuestion(req.StepNumber)
	}

	var question models.AdaptiveQuestion
	if err := extract.JSONReply(result.Text, &question); err != nil {
		slog.Warn("Engine.GenerateQuestion: reply did not parse, using fallback question", "step", req.StepNumber, "error", err)
		return phase.FallbackQuestion(req.StepNumber)
	}
	if question.Question == "" || len(question.SuggestedAnswers) != 3 {
		slog.Warn("Engine.GenerateQuestion: reply incomplete, using fallback question", "step", req.StepNumber, "answers", len(question.SuggestedAnswers))
		return phase.FallbackQuestion(req.StepNumber)
	}
	slog.Debug("Engine.GenerateQuestion: question generated", "step", req.StepNumber)
	return question
}

func buildQuestionContext(step phase.QuestionStep, qc models.QuestionContext) string {
	var b strings.Builder

	pitchType := qc.PitchType
	if pitchType == "" {
		pitchType = "nicht angegeben"
	}
	stage := qc.Stage
	if stage == "" {
		stage = "nicht angegeben"
	}
	fmt.Fprintf(&b, "KONTEXT:\nPitch-Typ: %s\nPhase: %s\nFokusbereich für diese Frage: %s\n\n", pitchType, stage, step.Focus)

	if qc.PitchDraft != "" && qc.PitchDraft != emptyDraftPlaceholder {
		draft := qc.PitchDraft
		if len(draft) > pitchDraftLimit {
			draft = draft[:pitchDraftLimit]
		}
		fmt.Fprintf(&b, "PITCH-ENTWURF:\n%s\n\n", draft)
	}

	if len(qc.PreviousAnswers) > 0 {
		b.WriteString("VORHERIGE ANTWORTEN:\n")
		for _, key := range sortedKeys(qc.PreviousAnswers) {
			fmt.Fprintf(&b, "%s: %s\n", key, qc.PreviousAnswers[key])
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "AUFGABE:\nGeneriere eine %s-Frage mit 3 Antwortoptionen.\n\nDie Frage sollte spezifisch auf den Pitch-Entwurf eingehen und dem Nutzer helfen, %s besser zu artikulieren.\n\nAntworte NUR mit dem JSON-Objekt, NICHTS anderes.", step.Focus, step.Focus)
	return b.String()
}

// sortedKeys keeps prompt rendering deterministic.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
