// Package models defines the core data structures for PitchPerfect.
//
// It includes the coaching phase catalog types, conversation turns, pitch
// analysis results and the request/response payloads shared across modules.
package models

import (
	"errors"
	"math"
	"strings"
	"time"
)

// Validation constants for input validation
const (
	// MinPitchTextLength defines the minimum pitch text length accepted by the analyzer
	MinPitchTextLength = 50
	// ProceedScoreThreshold defines the evaluation score required to advance a phase
	ProceedScoreThreshold = 70
)

// Error variables for better error handling and testability
var (
	// ErrModelUnavailable indicates a timeout or transport failure calling the LLM.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrMalformedModelOutput indicates the model reply did not parse into the expected shape.
	ErrMalformedModelOutput = errors.New("malformed model output")
	// ErrPersistenceDegraded indicates a turn store read or write failed; never fatal.
	ErrPersistenceDegraded = errors.New("persistence degraded")
	// ErrConfigurationMissing indicates no API credential is configured.
	ErrConfigurationMissing = errors.New("configuration missing")

	// User-facing validation errors are returned verbatim in German.
	ErrMissingFields  = errors.New("Fehlende erforderliche Felder")
	ErrPitchTooShort  = errors.New("Pitch text zu kurz. Mindestens 50 Zeichen erforderlich.")
	ErrNoRubric       = errors.New("Keine Bewertungskriterien für diese Phase definiert")
	ErrMissingContext = errors.New("Fehlender Kontext für die Fragegenerierung")
)

// Phase describes one stage of the guided coaching dialogue.
type Phase struct {
	ID                 int      `json:"id" yaml:"id"`
	Name               string   `json:"name" yaml:"name"`
	Instructions       string   `json:"instructions" yaml:"instructions"`
	CompletionCriteria string   `json:"completion_criteria" yaml:"completion_criteria"`
	RequiredElements   []string `json:"required_elements" yaml:"required_elements"`
}

// Criterion is a single rubric entry used when evaluating phase completion.
type Criterion struct {
	ID     string `json:"id" yaml:"id"`
	Label  string `json:"label" yaml:"label"`
	Weight int    `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// Rubric defines the evaluation criteria for a phase. MustMeet criteria are
// binary; ShouldMeet criteria add their weight as bonus points.
type Rubric struct {
	PhaseID    int         `json:"phase_id" yaml:"phase_id"`
	Name       string      `json:"name" yaml:"name"`
	MustMeet   []Criterion `json:"must_meet" yaml:"must_meet"`
	ShouldMeet []Criterion `json:"should_meet" yaml:"should_meet"`
	MaxScore   int         `json:"max_score" yaml:"max_score"`
}

// ConversationTurn is one user/coach exchange within a (user, project, phase)
// triple. Turns are append-only and deleted in bulk only by a phase reset.
type ConversationTurn struct {
	UserID      string    `json:"user_id"`
	ProjectID   string    `json:"project_id"`
	PhaseNumber int       `json:"phase_number"`
	TurnNumber  int       `json:"turn_number"`
	UserMessage string    `json:"user_message"`
	AIResponse  string    `json:"ai_response"`
	AIThinking  string    `json:"ai_thinking,omitempty"`
	AIAnalysis  string    `json:"ai_analysis,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PhaseStatus is derived from the latest model reply every turn and never persisted.
type PhaseStatus struct {
	Complete        bool     `json:"complete"`
	CompletionScore int      `json:"completion_score"`
	MissingElements []string `json:"missing_elements"`
}

// ChatMessage is one role-tagged entry of a conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DimensionScore is one scored analysis dimension with model confidence.
type DimensionScore struct {
	Score      int     `json:"score"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// FatalError is a pitch defect judged severe enough to cause investor rejection.
type FatalError struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Severity        string `json:"severity"`
	Evidence        string `json:"evidence"`
	Impact          string `json:"impact"`
	Fix             string `json:"fix"`
	ScientificBasis string `json:"scientificBasis,omitempty"`
	CostEstimate    int    `json:"costEstimate,omitempty"`
}

// Fatal error severities.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
)

// PitchAnalysis is the result of a one-shot pitch scoring call.
type PitchAnalysis struct {
	OverallScore      int                       `json:"overallScore"`
	Confidence        float64                   `json:"confidence,omitempty"`
	Dimensions        map[string]DimensionScore `json:"dimensions,omitempty"`
	FatalErrors       []FatalError              `json:"fatalErrors"`
	Strengths         []string                  `json:"strengths"`
	MinorImprovements []string                  `json:"minorImprovements,omitempty"`
	NextSteps         string                    `json:"nextSteps"`
	FinancialImpact   *FinancialImpact          `json:"financialImpact,omitempty"`
	Metadata          *AnalysisMetadata         `json:"metadata,omitempty"`
}

// AnalysisMetadata carries per-request telemetry attached to an analysis.
type AnalysisMetadata struct {
	Timestamp    time.Time  `json:"timestamp"`
	Usage        TokenUsage `json:"apiUsage"`
	CachedTokens int64      `json:"cachedTokens"`
	CostUSD      float64    `json:"costEstimate"`
	Fallback     bool       `json:"fallback,omitempty"`
}

// FinancialImpact estimates fundraising losses attributable to pitch quality.
// Pure function of the overall score; see flow.ComputeFinancialImpact.
type FinancialImpact struct {
	AnnualLoss         int     `json:"annualLoss"`
	WeeklyLoss         int     `json:"weeklyLoss"`
	CurrentSuccessRate int     `json:"currentSuccessRate"`
	OptimalSuccessRate int     `json:"optimalSuccessRate"`
	LostDealsPerYear   float64 `json:"lostDealsPerYear"`
	AvgDealSize        int     `json:"avgDealSize"`
}

// AdaptiveQuestion is one generated diagnostic question with exactly three answer options.
type AdaptiveQuestion struct {
	Question         string   `json:"question"`
	Description      string   `json:"description"`
	SuggestedAnswers []string `json:"suggestedAnswers"`
}

// DiagnosticIssue is one finding of the personalized pitch diagnostic.
type DiagnosticIssue struct {
	Severity      string `json:"severity"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Impact        string `json:"impact"`
	WorkshopPhase string `json:"workshopPhase"`
}

// DiagnosticReport aggregates diagnostic issues by severity.
type DiagnosticReport struct {
	CriticalIssues int               `json:"criticalIssues"`
	WarningIssues  int               `json:"warningIssues"`
	StrongAreas    int               `json:"strongAreas"`
	Issues         []DiagnosticIssue `json:"issues"`
}

// PhaseEvaluation is the scored result of an evaluate-phase call.
type PhaseEvaluation struct {
	Score             int             `json:"score"`
	CanProceed        bool            `json:"canProceed"`
	MustMeetResults   map[string]bool `json:"mustMeetResults"`
	ShouldMeetResults map[string]bool `json:"shouldMeetResults"`
	Gaps              []string        `json:"gaps"`
	Feedback          string          `json:"feedback"`
	NextSteps         string          `json:"nextSteps"`
}

// TokenUsage captures the token counts reported by one model call.
type TokenUsage struct {
	InputTokens      int64 `json:"input_tokens"`
	OutputTokens     int64 `json:"output_tokens"`
	CacheReadTokens  int64 `json:"cache_read_tokens"`
	CacheWriteTokens int64 `json:"cache_write_tokens"`
}

// CallMetrics is the per-call telemetry returned alongside coaching replies.
type CallMetrics struct {
	LatencyMS        int64   `json:"latency_ms"`
	InputTokens      int64   `json:"input_tokens"`
	OutputTokens     int64   `json:"output_tokens"`
	CacheReadTokens  int64   `json:"cache_read_tokens"`
	CacheWriteTokens int64   `json:"cache_write_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// ModelPricing holds per-model token prices in USD per 1M tokens.
type ModelPricing struct {
	InputPer1M      float64
	OutputPer1M     float64
	CacheWritePer1M float64
	CacheReadPer1M  float64
}

// DefaultPricing is the fixed price table used for cost dashboards.
// Values must stay in sync with the billing dashboard's assumptions.
var DefaultPricing = ModelPricing{
	InputPer1M:      3.00,
	OutputPer1M:     15.00,
	CacheWritePer1M: 3.75,
	CacheReadPer1M:  0.30,
}

// Cost computes the USD cost of a call from its token usage, rounded to six
// decimal places.
func (p ModelPricing) Cost(u TokenUsage) float64 {
	cost := float64(u.InputTokens)/1_000_000*p.InputPer1M +
		float64(u.OutputTokens)/1_000_000*p.OutputPer1M +
		float64(u.CacheWriteTokens)/1_000_000*p.CacheWritePer1M +
		float64(u.CacheReadTokens)/1_000_000*p.CacheReadPer1M
	return math.Round(cost*1e6) / 1e6
}

// ClampScore clamps a score to the [0,100] range.
func ClampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// Identity identifies the caller for turn tracking. Optional: coaching works
// anonymously with turn tracking disabled.
type Identity struct {
	UserID    string `json:"userId"`
	ProjectID string `json:"projectId"`
}

// PitchContextError is one prior-analysis error carried into the coaching context.
type PitchContextError struct {
	Title    string `json:"title"`
	Impact   string `json:"impact"`
	Evidence string `json:"evidence,omitempty"`
}

// PitchContext carries the result of a prior pitch analysis into coaching turns.
type PitchContext struct {
	Draft  string              `json:"draft"`
	Score  int                 `json:"score"`
	Errors []PitchContextError `json:"errors,omitempty"`
}

// ChatTurnRequest is the payload for one coaching turn.
type ChatTurnRequest struct {
	Phase               int           `json:"phase"`
	Message             string        `json:"message"`
	ConversationHistory []ChatMessage `json:"conversationHistory,omitempty"`
	PitchContext        *PitchContext `json:"pitchContext,omitempty"`
	Identity            *Identity     `json:"identity,omitempty"`
}

// Validate checks that the required coaching turn fields are present.
func (r *ChatTurnRequest) Validate() error {
	if r.Phase == 0 || strings.TrimSpace(r.Message) == "" {
		return ErrMissingFields
	}
	return nil
}

// ChatTurnMetadata describes which phase produced a coaching reply.
type ChatTurnMetadata struct {
	Phase     int    `json:"phase"`
	PhaseName string `json:"phaseName"`
	Version   string `json:"version"`
}

// ChatTurnResult is the outcome of one coaching turn.
type ChatTurnResult struct {
	Content         string           `json:"content"`
	PhaseComplete   bool             `json:"phaseComplete"`
	CompletionScore int              `json:"completionScore"`
	MissingElements []string         `json:"missingElements"`
	Metadata        ChatTurnMetadata `json:"metadata"`
	Metrics         CallMetrics      `json:"metrics"`
}

// DiagnosticContext is the optional business context attached to an analysis request.
type DiagnosticContext struct {
	PitchPurpose   string `json:"pitch_purpose,omitempty"`
	BusinessStage  string `json:"business_stage,omitempty"`
	TargetAudience string `json:"target_audience,omitempty"`
	Problem        string `json:"problem,omitempty"`
	Solution       string `json:"solution,omitempty"`
	CTAType        string `json:"cta_type,omitempty"`
}

// AnalyzePitchRequest is the payload for a one-shot pitch analysis.
type AnalyzePitchRequest struct {
	PitchText      string             `json:"pitchText"`
	DiagnosticData *DiagnosticContext `json:"diagnosticData,omitempty"`
}

// Validate enforces the minimum pitch length before any model call.
func (r *AnalyzePitchRequest) Validate() error {
	if len(strings.TrimSpace(r.PitchText)) < MinPitchTextLength {
		return ErrPitchTooShort
	}
	return nil
}

// EvaluatePhaseRequest is the payload for a phase completion evaluation.
type EvaluatePhaseRequest struct {
	Phase               int           `json:"phase"`
	ConversationHistory []ChatMessage `json:"conversationHistory"`
}

// Validate checks that the required evaluation fields are present.
func (r *EvaluatePhaseRequest) Validate() error {
	if r.Phase == 0 || len(r.ConversationHistory) == 0 {
		return ErrMissingFields
	}
	return nil
}

// QuestionContext carries the diagnostic form state into question generation.
type QuestionContext struct {
	PitchType       string            `json:"pitchType,omitempty"`
	Stage           string            `json:"stage,omitempty"`
	PitchDraft      string            `json:"pitchDraft,omitempty"`
	PreviousAnswers map[string]string `json:"previousAnswers,omitempty"`
}

// AdaptiveQuestionRequest is the payload for generating one adaptive diagnostic question.
type AdaptiveQuestionRequest struct {
	StepNumber int             `json:"stepNumber"`
	Context    QuestionContext `json:"context"`
}

// DiagnosticForm is the free-form questionnaire feeding the personalized diagnostic.
type DiagnosticForm struct {
	PitchType  string `json:"pitchType,omitempty"`
	Stage      string `json:"stage,omitempty"`
	PitchDraft string `json:"pitchDraft,omitempty"`
	Question4  string `json:"question4,omitempty"`
	Question5  string `json:"question5,omitempty"`
	Question6  string `json:"question6,omitempty"`
	Question7  string `json:"question7,omitempty"`
}

// DiagnosticRequest is the payload for a personalized diagnostic.
type DiagnosticRequest struct {
	FormData *DiagnosticForm `json:"formData"`
}

// ResetPhaseRequest deletes all turns for one (user, project, phase) triple.
type ResetPhaseRequest struct {
	Phase    int      `json:"phase"`
	Identity Identity `json:"identity"`
}

// Validate checks that the reset targets a concrete triple.
func (r *ResetPhaseRequest) Validate() error {
	if r.Phase == 0 || r.Identity.UserID == "" {
		return ErrMissingFields
	}
	return nil
}
