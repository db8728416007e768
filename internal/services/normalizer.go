package services

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"ai-evaluator/internal/models"
)

// Placeholders substituted for absent model text. Scores are never
// defaulted the same way: they are always recomputed from the breakdown.
const (
	missingFeedbackText = "No feedback provided"
	missingSummaryText  = "No summary provided"
)

// ComputeCVMatchRate derives the match rate from the rubric breakdown:
// technical 40%, experience 25%, achievements 20%, cultural fit 15%, over
// the 1-5 scale mapped to [0.0, 1.0], rounded to 2 decimal places.
func ComputeCVMatchRate(bd models.CVBreakdown) float64 {
	weighted := (float64(bd.TechnicalSkills)*0.40 +
		float64(bd.ExperienceLevel)*0.25 +
		float64(bd.Achievements)*0.20 +
		float64(bd.CulturalFit)*0.15) / 5.0

	return math.Round(weighted*100) / 100
}

// ComputeProjectScore derives the project score from the rubric breakdown:
// correctness 30%, code quality 25%, resilience 20%, documentation 15%,
// creativity 10%, on the 1-5 scale, rounded to 1 decimal place.
func ComputeProjectScore(bd models.ProjectBreakdown) float64 {
	weighted := float64(bd.Correctness)*0.30 +
		float64(bd.CodeQuality)*0.25 +
		float64(bd.Resilience)*0.20 +
		float64(bd.Documentation)*0.15 +
		float64(bd.Creativity)*0.10

	return math.Round(weighted*10) / 10
}

// NormalizeCVResult converts arbitrary parsed model output into a CV
// evaluation. The model supplies qualitative breakdown values; the
// arithmetic is ours. A nil or shapeless input degrades to the all-minimum
// breakdown with a validation note, never to a null score.
func NormalizeCVResult(parsed map[string]interface{}) *models.CVEvaluation {
	res := &models.CVEvaluation{
		Breakdown: models.CVBreakdown{
			TechnicalSkills: 1,
			ExperienceLevel: 1,
			Achievements:    1,
			CulturalFit:     1,
		},
		ValidationNotes: []string{},
	}

	if parsed == nil {
		res.ValidationNotes = append(res.ValidationNotes, "parsed CV result missing or invalid")
		res.Feedback = "No structured CV result returned"
		res.MatchRate = ComputeCVMatchRate(res.Breakdown)
		return res
	}

	if bd, ok := parsed["breakdown"].(map[string]interface{}); ok {
		res.Breakdown.TechnicalSkills = coerceSubScore(bd["technical_skills"])
		res.Breakdown.ExperienceLevel = coerceSubScore(bd["experience_level"])
		res.Breakdown.Achievements = coerceSubScore(bd["achievements"])
		res.Breakdown.CulturalFit = coerceSubScore(bd["cultural_fit"])
	} else {
		res.ValidationNotes = append(res.ValidationNotes, "breakdown missing")
	}

	res.MatchRate = ComputeCVMatchRate(res.Breakdown)
	res.Feedback = normalizeFeedback(parsed["cv_feedback"])

	return res
}

// NormalizeProjectResult is the project-report counterpart of
// NormalizeCVResult.
func NormalizeProjectResult(parsed map[string]interface{}) *models.ProjectEvaluation {
	res := &models.ProjectEvaluation{
		Breakdown: models.ProjectBreakdown{
			Correctness:   1,
			CodeQuality:   1,
			Resilience:    1,
			Documentation: 1,
			Creativity:    1,
		},
		ValidationNotes: []string{},
	}

	if parsed == nil {
		res.ValidationNotes = append(res.ValidationNotes, "parsed project result missing or invalid")
		res.Feedback = "No structured project result returned"
		res.Score = ComputeProjectScore(res.Breakdown)
		return res
	}

	if bd, ok := parsed["breakdown"].(map[string]interface{}); ok {
		res.Breakdown.Correctness = coerceSubScore(bd["correctness"])
		res.Breakdown.CodeQuality = coerceSubScore(bd["code_quality"])
		res.Breakdown.Resilience = coerceSubScore(bd["resilience"])
		res.Breakdown.Documentation = coerceSubScore(bd["documentation"])
		res.Breakdown.Creativity = coerceSubScore(bd["creativity"])
	} else {
		res.ValidationNotes = append(res.ValidationNotes, "breakdown missing")
	}

	res.Score = ComputeProjectScore(res.Breakdown)
	res.Feedback = normalizeFeedback(parsed["project_feedback"])

	return res
}

// NormalizeSummary extracts the overall summary from the final model call,
// substituting a fixed placeholder when absent.
func NormalizeSummary(parsed map[string]interface{}) string {
	if parsed == nil {
		return missingSummaryText
	}

	if s, ok := parsed["overall_summary"].(string); ok {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			return trimmed
		}
	}

	return missingSummaryText
}

// coerceSubScore turns whatever the model put in a breakdown slot into an
// integer in [1, 5]. Non-numeric, missing, and zero values default to 1.
func coerceSubScore(v interface{}) int {
	var f float64

	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		f, _ = val.Float64()
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(val), 64)
	}

	if f == 0 || math.IsNaN(f) {
		f = 1
	}

	score := int(math.Round(f))
	if score < 1 {
		score = 1
	}
	if score > 5 {
		score = 5
	}

	return score
}

func normalizeFeedback(v interface{}) string {
	if s, ok := v.(string); ok {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			return trimmed
		}
	}
	return missingFeedbackText
}

func clampFloat(n, lo, hi float64) float64 {
	if math.IsNaN(n) {
		return lo
	}
	return math.Max(lo, math.Min(hi, n))
}
