package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/LukaSashic/PitchPerfect/internal/extract"
	"github.com/LukaSashic/PitchPerfect/internal/genai"
	"github.com/LukaSashic/PitchPerfect/internal/models"
	"github.com/LukaSashic/PitchPerfect/internal/phase"
)

const diagnosticMaxTokens = 2000

const diagnosticSystemPrompt = `Du bist ein Pitch-Coach-Experte, der personalisierte Pitch-Diagnosen erstellt.

AUFGABE:
Analysiere die Antworten des Nutzers und erstelle eine brutally honest, aber konstruktive Diagnose mit 5-7 Issues.

WICHTIG:
- Referenziere SPEZIFISCHE Details aus dem Pitch-Entwurf
- Nutze konkrete Beispiele aus ihren Antworten
- Zeige den finanziellen Impact jedes Problems (in €)
- Priorisiere nach Schweregrad
- Sei direkt und ehrlich, aber ermutigend

ISSUE TYPES:
- critical: Verhindert Finanzierung/Deal komplett (rot 🔴)
- warning: Schwächt Pitch erheblich (gelb 🟡)
- good: Starke Bereiche (grün 🟢)

OUTPUT FORMAT (JSON):
{
    "criticalIssues": 2,
    "warningIssues": 3,
    "strongAreas": 2,
    "issues": [
        {
            "severity": "critical",
            "title": "Spezifischer Titel mit Details aus Pitch",
            "description": "Konkrete Beschreibung mit Referenz zu ihren Antworten",
            "impact": "Kosten/Verlust wenn nicht behoben",
            "workshopPhase": "Phase 2, 3"
        }
    ]
}

Beispiel:
Für einen Pitch über "Firmenevents in der Natur":
{
    "severity": "critical",
    "title": "Keine konkreten ROI-Zahlen für HR-Manager",
    "description": "Du beschreibst 'motivierte Teams', aber HR-Manager brauchen harte Zahlen: -X% Krankenstand, +Y% Retention, €Z gespart pro Mitarbeiter. Ohne diese Metriken wirst du als 'nice to have' abgelehnt.",
    "impact": "€50.000+ in verlorenen Deals, weil Budget-Entscheider keine Rechtfertigung haben",
    "workshopPhase": "Phase 4, 6"
}`

// GenerateDiagnostic builds a personalized diagnostic from the intake form.
// It never returns an error: a missing form, an unconfigured model client, a
// timeout, or a malformed reply all degrade to the curated report.
func (e *Engine) GenerateDiagnostic(ctx context.Context, req models.DiagnosticRequest) models.DiagnosticReport {
	if req.FormData == nil {
		slog.Warn("Engine.GenerateDiagnostic: no form data, using fallback diagnostic")
		return phase.FallbackDiagnostic()
	}

	result, err := e.complete(ctx, genai.CompletionRequest{
		System:    []string{diagnosticSystemPrompt},
		Messages:  []models.ChatMessage{{Role: models.RoleUser, Content: buildDiagnosticContext(req.FormData)}},
		MaxTokens: diagnosticMaxTokens,
	})
	if err != nil {
		slog.Warn("Engine.GenerateDiagnostic: model call failed, using fallback diagnostic", "error", err)
		return phase.FallbackDiagnostic()
	}

	var report models.DiagnosticReport
	if err := extract.JSONReply(result.Text, &report); err != nil {
		slog.Warn("Engine.GenerateDiagnostic: reply did not parse, using fallback diagnostic", "error", err)
		return phase.FallbackDiagnostic()
	}
	if len(report.Issues) == 0 {
		slog.Warn("Engine.GenerateDiagnostic: reply had no issues, using fallback diagnostic")
		return phase.FallbackDiagnostic()
	}
	slog.Debug("Engine.GenerateDiagnostic: diagnostic generated", "issues", len(report.Issues))
	return report
}

func buildDiagnosticContext(form *models.DiagnosticForm) string {
	var b strings.Builder

	pitchType := form.PitchType
	if pitchType == "" {
		pitchType = "nicht angegeben"
	}
	stage := form.Stage
	if stage == "" {
		stage = "nicht angegeben"
	}
	draft := form.PitchDraft
	if draft == "" {
		draft = "[Kein Pitch vorhanden]"
	}
	fmt.Fprintf(&b, "NUTZER-ANTWORTEN:\n\nPitch-Typ: %s\nPhase: %s\n\nPITCH-ENTWURF:\n%s\n\n", pitchType, stage, draft)

	if form.Question4 != "" {
		fmt.Fprintf(&b, "PROBLEM (Frage 4): %s\n\n", form.Question4)
	}
	if form.Question5 != "" {
		fmt.Fprintf(&b, "LÖSUNG (Frage 5): %s\n\n", form.Question5)
	}
	if form.Question6 != "" {
		fmt.Fprintf(&b, "TRAKTION (Frage 6): %s\n\n", form.Question6)
	}
	if form.Question7 != "" {
		fmt.Fprintf(&b, "WETTBEWERB (Frage 7): %s\n\n", form.Question7)
	}

	b.WriteString("AUFGABE:\nErstelle eine personalisierte Pitch-Diagnose mit 5-7 Issues.\nReferenziere spezifische Details aus dem Pitch und den Antworten.\nZeige konkrete Impact-Zahlen.\n\nAntworte NUR mit JSON, keine Markdown.")
	return b.String()
}
