// Package extract recovers structured data from semi-structured model output.
//
// Model replies are supposed to follow a prompted template (XML-ish tags,
// prefilled JSON) but are not guaranteed to. Every helper here degrades to
// "missing" rather than failing, except the top-level JSON parse, which
// reports MalformedModelOutput and is caught at the API boundary.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/LukaSashic/PitchPerfect/internal/models"
)

var (
	tagMarkerRe   = regexp.MustCompile(`</?[a-zA-Z_][a-zA-Z0-9_]*>`)
	phaseStatusRe = regexp.MustCompile(`(?s)<phase_status>(.*?)</phase_status>`)
	completeRe    = regexp.MustCompile(`<complete>(true|false)</complete>`)
	scoreRe       = regexp.MustCompile(`<completion_score>(\d+)</completion_score>`)
	itemRe        = regexp.MustCompile(`(?s)<item>(.*?)</item>`)
	fenceOpenRe   = regexp.MustCompile("(?m)^```(?:json)?[ \t]*\n?")
)

// Phase completion keywords used when the model omits the status block.
var completionKeywords = []string{
	"Phase abgeschlossen",
	"bereit für die nächste",
	"nächste Phase",
}

// Tag returns the trimmed content between the first <name> and the first
// subsequent </name>. Only the first occurrence is used.
func Tag(text, name string) (string, bool) {
	re, err := regexp.Compile(fmt.Sprintf(`(?s)<%s>(.*?)</%s>`, regexp.QuoteMeta(name), regexp.QuoteMeta(name)))
	if err != nil {
		return "", false
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// List locates the named container tag and returns the trimmed contents of
// its <item> children. Missing container or items yield an empty list.
func List(text, container string) []string {
	inner, ok := Tag(text, container)
	if !ok {
		return nil
	}
	var items []string
	for _, m := range itemRe.FindAllStringSubmatch(inner, -1) {
		if v := strings.TrimSpace(m[1]); v != "" {
			items = append(items, v)
		}
	}
	return items
}

// DelimitedList extracts a tag's content and splits it on commas, trimming
// and discarding empty tokens.
func DelimitedList(text, name string) []string {
	inner, ok := Tag(text, name)
	if !ok {
		return nil
	}
	return splitCommaList(inner)
}

func splitCommaList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// StripFences removes leading/trailing markdown code fences, with or without
// a json language tag.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// StripTags removes all XML-ish tag markers from the text. Idempotent on
// already tag-free text.
func StripTags(s string) string {
	return strings.TrimSpace(tagMarkerRe.ReplaceAllString(s, ""))
}

// JSONWithPrefill reconstructs a prefilled JSON reply by prepending the seed
// fragment the model was instructed to continue from, then unmarshals the
// result into v. Markdown fences are stripped first.
func JSONWithPrefill(prefill, modelText string, v interface{}) error {
	full := prefill + StripFences(modelText)
	if err := json.Unmarshal([]byte(full), v); err != nil {
		return fmt.Errorf("failed to parse model JSON (%v): %w", err, models.ErrMalformedModelOutput)
	}
	return nil
}

// JSONReply parses an unprefilled JSON model reply after fence stripping.
func JSONReply(modelText string, v interface{}) error {
	return JSONWithPrefill("", modelText, v)
}

// CoachingReply is a model reply decomposed into its prompted sections.
type CoachingReply struct {
	Thinking     string
	Analysis     string
	Question     string
	ProgressNote string
	Response     string
	HasStructure bool
}

// ParseCoachingReply splits a raw reply into internal sections and the
// user-visible response. When no <response> tag is present the full raw text
// is kept as the response and HasStructure is false.
func ParseCoachingReply(raw string) CoachingReply {
	if raw == "" {
		return CoachingReply{}
	}
	thinking, _ := Tag(raw, "thinking")
	analysis, _ := Tag(raw, "analysis")
	question, _ := Tag(raw, "question")
	progress, _ := Tag(raw, "progress_note")
	response, hasResponse := Tag(raw, "response")
	if !hasResponse {
		response = raw
	}
	return CoachingReply{
		Thinking:     thinking,
		Analysis:     analysis,
		Question:     question,
		ProgressNote: progress,
		Response:     response,
		HasStructure: hasResponse,
	}
}

// PhaseStatus extracts the <phase_status> block from a reply. When the block
// is absent, completion is derived from German keyword heuristics with fixed
// default scores (85 when a completion keyword matches, 50 otherwise).
func PhaseStatus(text string) models.PhaseStatus {
	m := phaseStatusRe.FindStringSubmatch(text)
	if m == nil {
		complete := false
		for _, kw := range completionKeywords {
			if strings.Contains(text, kw) {
				complete = true
				break
			}
		}
		score := 50
		if complete {
			score = 85
		}
		return models.PhaseStatus{Complete: complete, CompletionScore: score}
	}

	statusXML := m[1]
	complete := false
	if cm := completeRe.FindStringSubmatch(statusXML); cm != nil {
		complete = cm[1] == "true"
	}
	score := 50
	if sm := scoreRe.FindStringSubmatch(statusXML); sm != nil {
		if n, err := strconv.Atoi(sm[1]); err == nil {
			score = n
		}
	}
	var elements []string
	if inner, ok := Tag(statusXML, "missing_elements"); ok {
		elements = splitCommaList(inner)
	}
	return models.PhaseStatus{
		Complete:        complete,
		CompletionScore: models.ClampScore(score),
		MissingElements: elements,
	}
}

// RemovePhaseStatus strips all <phase_status> blocks from the text.
func RemovePhaseStatus(text string) string {
	return strings.TrimSpace(phaseStatusRe.ReplaceAllString(text, ""))
}
