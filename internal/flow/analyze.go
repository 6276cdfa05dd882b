package flow

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/LukaSashic/PitchPerfect/internal/extract"
	"github.com/LukaSashic/PitchPerfect/internal/genai"
	"github.com/LukaSashic/PitchPerfect/internal/models"
	"github.com/LukaSashic/PitchPerfect/internal/phase"
)

// Analysis call parameters. The low temperature keeps scoring consistent.
const (
	analyzeMaxTokens   = 3000
	analyzeTemperature = 0.3

	// analysisPrefill seeds the model reply so it continues a JSON object.
	analysisPrefill = "{\n  \"overallScore\":"
)

// Financial impact contract constants. Reproduced exactly so downstream
// dashboards agree.
const (
	avgInvestorMeetingsPerYear = 12
	avgDealSizeEUR             = 250000
	optimalSuccessRate         = 0.65
)

// analysisSystemContext frames the analyzer's expertise. Cache-friendly.
const analysisSystemContext = `<system_context>
You are PitchPerfect AI, the leading pitch optimization system in the German startup ecosystem with these credentials:

Track Record:
- 1,000+ pitches analyzed
- €50M+ funding secured by users
- 85% predictive accuracy (validated)
- 247+ active users, 3 Series-A successes

Scientific Framework (9 Angles):
1. Neuroscience: Emotional activation, memory encoding, amygdala response
2. Behavioral Economics: Loss aversion (2x weight), framing effects, anchoring
3. Cognitive Psychology: Cognitive load minimization, dual-process theory
4. Social Psychology: Authority, social proof, liking, commitment
5. Communication Science: Narrative structure, clarity optimization
6. Linguistics/NLP: Presuppositions, sensory language, active voice
7. Sales Strategy: Value proposition, ROI focus, personalization
8. Game Theory: Strategic positioning, competitive dynamics
9. Data Science: Predictive modeling, pattern recognition

Specialties:
- Fatal error detection (errors that cause instant rejection)
- Quantified emotional resonance (based on neuroscience research)
- Cognitive load measurement (based on dual-process theory)
- German-market optimization (conservative vs US-style aggressive)

Analysis Standards:
- Evidence-based: Every claim backed by research citation
- Actionable: Every error includes specific fix with example
- Quantified: Dimensions scored 0-100 with confidence levels
- German-optimized: Respect German business culture (data > story)
</system_context>`

// analysisExamples anchors the scoring scale with one weak pitch scored
// 18/100 and one strong pitch scored 82/100. Cache-friendly.
const analysisExamples = `<examples>
<example type="weak_pitch">
<pitch_text>Wir helfen Startups ihre Pitches zu verbessern. Unsere KI-Lösung macht Pitches besser. Wir haben schon Kunden. Kontaktiere uns für mehr Infos.</pitch_text>
<analysis>
{
  "overallScore": 18,
  "confidence": 0.95,
  "dimensions": {
    "clarity": {
      "score": 25,
      "confidence": 0.90,
      "reasoning": "Generic 'Startups' = keine Zielgruppe. 'Pitches besser machen' = kein Mechanismus."
    },
    "emotional": {
      "score": 10,
      "confidence": 0.95,
      "reasoning": "Null loss framing. Null Quantifizierung. Null Dringlichkeit."
    },
    "credibility": {
      "score": 15,
      "confidence": 0.92,
      "reasoning": "Keine Zahlen, keine Social Proof, vage Behauptungen."
    },
    "cta": {
      "score": 20,
      "confidence": 0.88,
      "reasoning": "'Kontaktiere uns' = vage, hohe Hürde, keine Spezifität."
    }
  },
  "fatalErrors": [
    {
      "id": "no_pain_quantification",
      "title": "Fehlende Schmerzpunkt-Quantifizierung",
      "severity": "critical",
      "evidence": "helfen Startups ihre Pitches zu verbessern",
      "impact": "Investoren sehen keinen messbaren ROI. Warum brauchen Startups Hilfe? Wie viel kostet das Problem in Zeit/Geld?",
      "fix": "Quantifiziere das Problem mit konkreten Zahlen. Beispiel: 'Deutsche SaaS-Gründer verlieren durchschnittlich 70 Tage pro Deal durch inkonsistente Pitches - das entspricht 40% niedrigerer Erfolgsrate als US-Konkurrenten und kostet durchschnittlich €85K in verlorener Opportunity.'",
      "scientificBasis": "Neuroscience (Kahneman, 2011): Quantified losses activate amygdala 2x more than generic pain statements. fMRI studies show 60% higher emotional encoding.",
      "costEstimate": 47000
    },
    {
      "id": "vague_solution",
      "title": "Unklarer Lösungsmechanismus",
      "severity": "critical",
      "evidence": "Unsere KI-Lösung macht Pitches besser",
      "impact": "Wie genau funktioniert die KI? Was ist der Mechanismus? Ohne Erklärung = nicht glaubwürdig.",
      "fix": "Erkläre den HOW, nicht nur das WHAT. Beispiel: 'PitchPerfect analysiert Pitches durch 9 wissenschaftliche Frameworks (Neuroscience, Behavioral Economics, etc.) und gibt konkrete, forschungsbasierte Optimierungsempfehlungen in 4 Dimensionen: Klarheit, emotionale Wirkung, Glaubwürdigkeit, CTA-Stärke.'",
      "scientificBasis": "Cognitive Psychology (Kahneman, 2011): Mechanism explanation reduces skepticism by 70% and increases perceived credibility.",
      "costEstimate": 35000
    },
    {
      "id": "zero_credibility_markers",
      "title": "Keine Glaubwürdigkeitssignale",
      "severity": "high",
      "evidence": "Wir haben schon Kunden",
      "impact": "Wie viele Kunden? Welche Erfolge? Ohne Zahlen = nicht vertrauenswürdig.",
      "fix": "Füge konkrete Social Proof + Authority Marker hinzu. Beispiel: '247 Gründer nutzen PitchPerfect bereits, darunter 3 Series-A Erfolge (€12M raised). Basierend auf 15 Jahren Pitch-Coaching-Erfahrung + 9 wissenschaftlichen Disziplinen.'",
      "scientificBasis": "Social Psychology (Cialdini, 2006): Specific numbers increase trust by 55%. Authority + Social Proof combined = 85% higher conversion.",
      "costEstimate": 28000
    },
    {
      "id": "vague_cta",
      "title": "Unklarer Call-to-Action",
      "severity": "high",
      "evidence": "Kontaktiere uns für mehr Infos",
      "impact": "Wie kontaktieren? Email? Anruf? Cognitive Load zu hoch → 50% Conversion-Drop.",
      "fix": "Definiere EINE spezifische Aktion: 'Buche jetzt deinen 15-Minuten Demo-Call: calendly.com/company/demo'",
      "scientificBasis": "Choice Paradox (Schwartz, 2004): Single CTA = 80% höhere Conversion.",
      "costEstimate": 17000
    }
  ],
  "strengths": [],
  "nextSteps": "Fokussiere sofort auf: (1) Problem quantifizieren, (2) Lösungsmechanismus erklären, (3) Social Proof hinzufügen. Diese 3 Fehler killen 90% der Pitches."
}
</analysis>
</example>

<example type="strong_pitch">
<pitch_text>Deutsche SaaS-Gründer verlieren durchschnittlich 70 unvorhersehbare Tage pro Deal durch inkonsistente Pitches - 40% niedrigere Erfolgsrate als US-Gründer, was €85K Opportunity Cost entspricht.

PitchPerfect nutzt KI + 9 wissenschaftliche Frameworks (Neuroscience, Behavioral Economics, Cognitive Psychology, etc.) für systematische Pitch-Optimierung in 4 Dimensionen: Klarheit, emotionale Wirkung, Glaubwürdigkeit, CTA-Stärke.

Bereits 247 Nutzer, darunter 3 Series-A Erfolge (€12M raised). 15 Jahre Pitch-Coaching-Erfahrung + forschungsbasierte Methodik.

Buche jetzt deine kostenlose 15-Minuten-Pitch-Analyse: pitchperfect.ai/demo</pitch_text>
<analysis>
{
  "overallScore": 82,
  "confidence": 0.92,
  "dimensions": {
    "clarity": {
      "score": 85,
      "confidence": 0.94,
      "reasoning": "Spezifisch: 'Deutsche SaaS-Gründer'. Mechanismus: '9 Frameworks + 4 Dimensionen'. Outcome klar."
    },
    "emotional": {
      "score": 78,
      "confidence": 0.90,
      "reasoning": "Starkes loss framing: '70 Tage verlieren', '40% schlechter', '€85K'. Vergleichsanker: US-Gründer."
    },
    "credibility": {
      "score": 80,
      "confidence": 0.91,
      "reasoning": "Multi-layered: 247 Nutzer (social proof), 3 Series-A (outcomes), 15 Jahre (authority), 9 Frameworks (expertise)."
    },
    "cta": {
      "score": 85,
      "confidence": 0.93,
      "reasoning": "Spezifisch: '15-Minuten', niedrige Hürde: 'kostenlos', direkter Link: pitchperfect.ai/demo"
    }
  },
  "fatalErrors": [],
  "strengths": [
    "Perfekte Quantifizierung: 70 Tage, 40%, €85K, 247, 3, €12M, 15 Jahre",
    "Loss framing aktiviert Amygdala (neuroscience research validated)",
    "Vergleichsanker ('US-Gründer') schafft Dringlichkeit + Kontext",
    "Multi-layered Credibility: Social Proof + Authority + Outcomes",
    "Mechanismus klar erklärt: '9 Frameworks + 4 Dimensionen'",
    "Zero-friction CTA: kostenlos, 15-Min, direkter Link"
  ],
  "minorImprovements": [
    "Könnte noch Urgency trigger hinzufügen: 'Nur 10 Demo-Slots diese Woche frei'",
    "Könnte Customer outcome quantifizieren: 'Durchschnittlich 40% höhere Erfolgsrate nach Workshop'"
  ],
  "nextSteps": "Pitch ist bereits sehr stark (82/100). Kleine Optimierungen möglich, aber bereit für Investor-Präsentation. Fokussiere auf Delivery (Tonfall, Pausen, Körpersprache) im Workshop."
}
</analysis>
</example>
</examples>`

// AnalyzePitch scores a pitch draft along fixed dimensions and derives the
// financial impact estimate. Validation failures surface; everything else
// degrades to the fixed demonstration payload so this flow always returns
// something displayable.
func (e *Engine) AnalyzePitch(ctx context.Context, req models.AnalyzePitchRequest) (*models.PitchAnalysis, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result, err := e.complete(ctx, genai.CompletionRequest{
		System:         []string{analysisSystemContext, analysisExamples},
		Messages:       []models.ChatMessage{{Role: models.RoleUser, Content: buildAnalysisTask(req.PitchText, req.DiagnosticData)}},
		Prefill:        analysisPrefill,
		MaxTokens:      analyzeMaxTokens,
		Temperature:    analyzeTemperature,
		HasTemperature: true,
	})
	if err != nil {
		slog.Warn("Engine.AnalyzePitch: model call failed, returning demonstration analysis", "error", err)
		return e.fallbackAnalysis(), nil
	}

	var analysis models.PitchAnalysis
	if err := extract.JSONWithPrefill(analysisPrefill, result.Text, &analysis); err != nil {
		slog.Warn("Engine.AnalyzePitch: reply did not parse, returning demonstration analysis", "error", err)
		return e.fallbackAnalysis(), nil
	}

	analysis.OverallScore = models.ClampScore(analysis.OverallScore)
	impact := ComputeFinancialImpact(analysis.OverallScore)
	analysis.FinancialImpact = &impact
	analysis.Metadata = &models.AnalysisMetadata{
		Timestamp:    time.Now().UTC(),
		Usage:        result.Usage,
		CachedTokens: result.Usage.CacheReadTokens,
		CostUSD:      e.pricing.Cost(result.Usage),
	}
	slog.Debug("Engine.AnalyzePitch: analysis complete", "overall_score", analysis.OverallScore, "fatal_errors", len(analysis.FatalErrors))
	return &analysis, nil
}

func (e *Engine) fallbackAnalysis() *models.PitchAnalysis {
	analysis := phase.FallbackAnalysis()
	impact := ComputeFinancialImpact(analysis.OverallScore)
	analysis.FinancialImpact = &impact
	analysis.Metadata = &models.AnalysisMetadata{
		Timestamp: time.Now().UTC(),
		Fallback:  true,
	}
	return &analysis
}

// buildAnalysisTask renders the per-request task prompt.
func buildAnalysisTask(pitchText string, ctx *models.DiagnosticContext) string {
	pitchType := "investor"
	businessStage := "unknown"
	targetAudience := "Unknown"
	var problem, solution, ctaType string
	if ctx != nil {
		if ctx.PitchPurpose != "" {
			pitchType = ctx.PitchPurpose
		}
		if ctx.BusinessStage != "" {
			businessStage = ctx.BusinessStage
		}
		if ctx.TargetAudience != "" {
			targetAudience = ctx.TargetAudience
		}
		problem = ctx.Problem
		solution = ctx.Solution
		ctaType = ctx.CTAType
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<task>\nAnalyze this pitch from a German %s-stage founder.\n\n<pitch_text>\n%s\n</pitch_text>\n\n", businessStage, strings.TrimSpace(pitchText))
	fmt.Fprintf(&b, "<pitch_context>\nPurpose: %s\nStage: %s\nTarget Audience: %s\n", pitchType, businessStage, targetAudience)
	if problem != "" {
		fmt.Fprintf(&b, "Problem Statement: %q\n", problem)
	}
	if solution != "" {
		fmt.Fprintf(&b, "Solution Statement: %q\n", solution)
	}
	if ctaType != "" {
		fmt.Fprintf(&b, "CTA Type: %s\n", ctaType)
	}
	b.WriteString(`</pitch_context>

<analysis_instructions>
Follow these steps:

1. **Think step-by-step** (internal reasoning - not in JSON output):
   - Clarity: Is persona specific? Mechanism explained? Outcome quantified?
   - Emotional: Loss framing? Pain quantified? Urgency signals?
   - Credibility: Social proof? Authority? Specificity?
   - CTA: Single action? Low friction? Specific?

2. **Calculate dimension scores** (0-100):
   - Use examples above as reference points
   - Weak pitch example = 18/100 overall
   - Strong pitch example = 82/100 overall
   - Assign confidence per dimension (0-1)

3. **Identify fatal errors** (3-5 max):
   - Focus on INSTANT rejection triggers
   - Quote exact problematic text as "evidence"
   - Explain WHY fatal (investor psychology)
   - Provide SPECIFIC fix with example
   - Include scientific research basis
   - Estimate cost of each error in euros (costEstimate field)

4. **Calculate total cost** of all errors combined:
   - Sum up costEstimate from all fatal errors
   - This represents annual opportunity cost

5. **Output JSON** in exact format shown in examples

**CRITICAL: ALL text must be in German language.**
</analysis_instructions>

Return ONLY the JSON analysis (no markdown, no explanation):
</task>`)
	return b.String()
}

// successRate maps an overall score to an investor meeting success rate via
// the fixed piecewise curve.
func successRate(score int) float64 {
	s := float64(score)
	switch {
	case score < 30:
		return 0.10
	case score < 50:
		return 0.15 + (s-30)/20*0.15
	case score < 70:
		return 0.30 + (s-50)/20*0.20
	case score < 85:
		return 0.50 + (s-70)/15*0.15
	default:
		return 0.65 + (s-85)/15*0.15
	}
}

// ComputeFinancialImpact derives the fundraising loss estimate from an
// overall pitch score. Pure function; the constants are part of the output
// contract.
func ComputeFinancialImpact(overallScore int) models.FinancialImpact {
	current := successRate(models.ClampScore(overallScore))

	currentDeals := avgInvestorMeetingsPerYear * current
	optimalDeals := avgInvestorMeetingsPerYear * optimalSuccessRate
	lostDeals := optimalDeals - currentDeals

	annualLoss := int(math.Round(lostDeals * avgDealSizeEUR * current))
	weeklyLoss := int(math.Round(float64(annualLoss) / 52))

	return models.FinancialImpact{
		AnnualLoss:         annualLoss,
		WeeklyLoss:         weeklyLoss,
		CurrentSuccessRate: int(math.Round(current * 100)),
		OptimalSuccessRate: int(math.Round(optimalSuccessRate * 100)),
		LostDealsPerYear:   math.Round(lostDeals*10) / 10,
		AvgDealSize:        avgDealSizeEUR,
	}
}
