// Canned fallback content for the flows that must always return something
// displayable. All entry points consume this table; no handler carries its
// own copy.
package phase

import "github.com/LukaSashic/PitchPerfect/internal/models"

// DefaultFallbackStep is the question step substituted for unknown step ids.
const DefaultFallbackStep = 4

var fallbackQuestions = map[int]models.AdaptiveQuestion{
	4: {
		Question:    "Wie würdest du das Hauptproblem beschreiben, das du löst?",
		Description: "Eine klare Problemstellung ist die Basis eines überzeugenden Pitches",
		SuggestedAnswers: []string{
			"Unternehmen verschwenden Zeit mit ineffizienten Prozessen",
			"Kunden haben Schwierigkeiten, die richtige Lösung zu finden",
			"Der Markt ist intransparent und schwer zu navigieren",
		},
	},
	5: {
		Question:    "Was macht deine Lösung konkret?",
		Description: "Investoren müssen sofort verstehen, was du baust",
		SuggestedAnswers: []string{
			"Wir automatisieren manuelle Prozesse mit KI",
			"Wir bieten eine Plattform, die Komplexität reduziert",
			"Wir schaffen Transparenz durch Datenanalyse",
		},
	},
	6: {
		Question:    "Welche messbaren Erfolge hast du bisher?",
		Description: "Traktion ist der beste Beweis für Product-Market Fit",
		SuggestedAnswers: []string{
			"Wir haben erste zahlende Kunden und positives Feedback",
			"Wir sind noch im MVP-Stadium mit Beta-Nutzern",
			"Wir wachsen 20%+ monatlich bei Umsatz oder Nutzerzahlen",
		},
	},
	7: {
		Question:    "Wer sind deine Hauptwettbewerber?",
		Description: "\"Keine Konkurrenz\" ist nie die richtige Antwort",
		SuggestedAnswers: []string{
			"Etablierte Player mit komplexen und teuren Lösungen",
			"Indirekte Konkurrenz wie Excel oder manuelle Prozesse",
			"Wir sind die ersten, die dieses Problem so angehen",
		},
	},
}

// FallbackQuestion returns the canned question for a step. Unknown steps get
// the step-4 question.
func FallbackQuestion(step int) models.AdaptiveQuestion {
	if q, ok := fallbackQuestions[step]; ok {
		return q
	}
	return fallbackQuestions[DefaultFallbackStep]
}

// FallbackAnalysis returns the fixed demonstration analysis substituted when
// the scorer cannot produce a real one. The caller attaches the financial
// impact derived from its overall score.
func FallbackAnalysis() models.PitchAnalysis {
	return models.PitchAnalysis{
		OverallScore: 42,
		Confidence:   0.50,
		Dimensions: map[string]models.DimensionScore{
			"clarity": {
				Score:      45,
				Confidence: 0.50,
				Reasoning:  "Automatische Analyse nicht verfügbar. Prüfe: Ist deine Zielgruppe spezifisch benannt? Ist der Mechanismus deiner Lösung erklärt?",
			},
			"emotional": {
				Score:      40,
				Confidence: 0.50,
				Reasoning:  "Prüfe: Quantifizierst du den Schmerzpunkt in Euro oder Zeit? Nutzt du Loss Framing?",
			},
			"credibility": {
				Score:      40,
				Confidence: 0.50,
				Reasoning:  "Prüfe: Enthält dein Pitch konkrete Zahlen, Social Proof und Referenzen?",
			},
			"cta": {
				Score:      45,
				Confidence: 0.50,
				Reasoning:  "Prüfe: Gibt es genau EINE spezifische, niedrigschwellige Handlungsaufforderung?",
			},
		},
		FatalErrors: []models.FatalError{
			{
				ID:           "no_pain_quantification",
				Title:        "Fehlende Schmerzpunkt-Quantifizierung",
				Severity:     models.SeverityCritical,
				Evidence:     "Dein Pitch-Entwurf",
				Impact:       "Investoren sehen keinen messbaren ROI. Wie viel kostet das Problem in Zeit oder Geld?",
				Fix:          "Quantifiziere das Problem mit konkreten Zahlen: €-Betrag, Stunden pro Woche oder verlorene Deals pro Jahr.",
				CostEstimate: 47000,
			},
			{
				ID:           "vague_solution",
				Title:        "Unklarer Lösungsmechanismus",
				Severity:     models.SeverityCritical,
				Evidence:     "Dein Pitch-Entwurf",
				Impact:       "Ohne erklärten Mechanismus wirkt die Lösung nicht glaubwürdig.",
				Fix:          "Erkläre das WIE, nicht nur das WAS: welcher konkrete Mechanismus erzeugt das Ergebnis?",
				CostEstimate: 35000,
			},
			{
				ID:           "zero_credibility_markers",
				Title:        "Keine Glaubwürdigkeitssignale",
				Severity:     models.SeverityHigh,
				Evidence:     "Dein Pitch-Entwurf",
				Impact:       "Ohne Zahlen und Referenzen fehlt das Vertrauen.",
				Fix:          "Füge konkrete Social-Proof- und Authority-Marker hinzu: Nutzerzahlen, Erfolge, Erfahrung.",
				CostEstimate: 28000,
			},
		},
		Strengths: []string{},
		NextSteps: "Fokussiere sofort auf: (1) Problem quantifizieren, (2) Lösungsmechanismus erklären, (3) Social Proof hinzufügen. Diese 3 Fehler killen 90% der Pitches.",
	}
}

// FallbackDiagnostic returns the fixed diagnostic report substituted when the
// personalized diagnostic cannot be generated.
func FallbackDiagnostic() models.DiagnosticReport {
	return models.DiagnosticReport{
		CriticalIssues: 4,
		WarningIssues:  2,
		StrongAreas:    1,
		Issues: []models.DiagnosticIssue{
			{
				Severity:      models.SeverityCritical,
				Title:         "Problemstellung ist vage",
				Description:   "Du hast nicht klar definiert, wer dieses Problem hat und wie teuer es für sie ist.",
				Impact:        "Investoren können keine Marktgröße berechnen",
				WorkshopPhase: "Phase 2",
			},
			{
				Severity:      models.SeverityCritical,
				Title:         "Keine Marktvalidierung",
				Description:   "Keine Kundeninterviews, keine LOIs, keine Beweise für Nachfrage.",
				Impact:        "Ohne Beweise wird kein Investor investieren",
				WorkshopPhase: "Phase 5",
			},
			{
				Severity:      models.SeverityCritical,
				Title:         "Schwaches Finanzmodell",
				Description:   "Fehlend: CAC, LTV, Unit Economics, Payback Period.",
				Impact:        "Unmöglich, Profitabilität zu prognostizieren",
				WorkshopPhase: "Phase 8",
			},
			{
				Severity:      models.SeverityCritical,
				Title:         "Keine klare Differenzierung",
				Description:   "Was macht dich 10x besser als Alternativen? Nicht klar.",
				Impact:        "Warum sollte jemand wechseln?",
				WorkshopPhase: "Phase 3",
			},
			{
				Severity:      "warning",
				Title:         "Marktgröße braucht Arbeit",
				Description:   "Benötigt Bottom-up TAM/SAM/SOM mit Quellen.",
				Impact:        "Investoren zweifeln an Skalierbarkeit",
				WorkshopPhase: "Phase 4",
			},
			{
				Severity:      "warning",
				Title:         "Wettbewerbsanalyse oberflächlich",
				Description:   "Zeige strategischen Vorteil und Barrieren.",
				Impact:        "Angst vor Kopierung",
				WorkshopPhase: "Phase 7",
			},
			{
				Severity:      "good",
				Title:         "Starke Team-Story",
				Description:   "Domain-Expertise ist klar.",
				Impact:        "Gibt Vertrauen",
				WorkshopPhase: "-",
			},
		},
	}
}
