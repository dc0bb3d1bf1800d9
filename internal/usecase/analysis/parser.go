package analysis

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kailas-cloud/riskrag/internal/domain/report"
)

// Section headers the model is asked to produce.
const (
	HeaderSummary         = "Executive Summary"
	HeaderVulnerabilities = "Identified Vulnerabilities"
	HeaderRecommendations = "Recommendations"
	HeaderRiskScore       = "Risk Score"
)

const (
	maxSectionItems  = 15
	maxFallbackItems = 10
	summaryFallback  = 500
)

// Fallback scores when no explicit "Risk Score:" line is present.
const (
	fallbackHighScore   = 8.0
	fallbackMediumScore = 5.0
	fallbackLowScore    = 3.0
)

var (
	bulletSplit  = regexp.MustCompile(`\n(?:\s*[-*]|\s*\d+\.)\s+`)
	scorePattern = regexp.MustCompile(`(?i)Risk Score:\s*(\d+(?:\.\d+)?)`)

	vulnerabilityKeywords  = []string{"vulnerability", "risk", "threat", "weakness", "exposure"}
	recommendationKeywords = []string{"recommend", "suggest", "should", "implement", "consider"}
	highRiskKeywords       = []string{"critical", "severe", "high risk", "urgent"}
	mediumRiskKeywords     = []string{"medium", "moderate", "significant"}

	sectionPatterns = map[string]*regexp.Regexp{}
)

func init() {
	for _, h := range []string{HeaderSummary, HeaderVulnerabilities, HeaderRecommendations, HeaderRiskScore} {
		sectionPatterns[h] = compileSection(h)
	}
}

func compileSection(header string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)## ` + regexp.QuoteMeta(header) + `(.*?)(?:## |$)`)
}

// ExtractSection returns the trimmed text between "## header" and the next
// "## " marker or the end of text. Matching is case-insensitive; a missing
// section yields "".
func ExtractSection(text, header string) string {
	re, ok := sectionPatterns[header]
	if !ok {
		re = compileSection(header)
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ExtractSummary returns the Executive Summary section, or the first 500
// characters of text followed by "..." when the section is absent.
func ExtractSummary(text string) string {
	if s := ExtractSection(text, HeaderSummary); s != "" {
		return s
	}
	r := []rune(strings.TrimSpace(text))
	if len(r) > summaryFallback {
		return string(r[:summaryFallback]) + "..."
	}
	return string(r)
}

// ExtractVulnerabilities returns the bullet items of the vulnerabilities section.
func ExtractVulnerabilities(text string) []string {
	return extractList(text, HeaderVulnerabilities, vulnerabilityKeywords)
}

// ExtractRecommendations returns the bullet items of the recommendations section.
func ExtractRecommendations(text string) []string {
	return extractList(text, HeaderRecommendations, recommendationKeywords)
}

func extractList(text, header string, keywords []string) []string {
	section := ExtractSection(text, header)
	if section == "" {
		return keywordLines(text, keywords)
	}

	lowerHeader := strings.ToLower(header)
	items := make([]string, 0, maxSectionItems)
	for _, raw := range bulletSplit.Split("\n"+section, -1) {
		item := strings.TrimSpace(raw)
		if item == "" || strings.HasPrefix(strings.ToLower(item), lowerHeader) {
			continue
		}
		items = append(items, item)
		if len(items) == maxSectionItems {
			break
		}
	}
	return items
}

// keywordLines is the fallback for responses without the expected sections.
func keywordLines(text string, keywords []string) []string {
	items := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || !containsAny(strings.ToLower(line), keywords) {
			continue
		}
		items = append(items, trimmed)
		if len(items) == maxFallbackItems {
			break
		}
	}
	return items
}

// ExtractRiskScore reads the first "Risk Score: N" line, clamped to [0,10].
// Without one it scores by keywords: 8 for high-risk wording, 5 for medium, else 3.
func ExtractRiskScore(text string) float64 {
	if m := scorePattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return clampScore(v)
		}
	}

	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, highRiskKeywords):
		return fallbackHighScore
	case containsAny(lower, mediumRiskKeywords):
		return fallbackMediumScore
	default:
		return fallbackLowScore
	}
}

// DetermineRiskLevel maps a score to its tier: >=8 critical, >=6 high, >=3 medium, else low.
func DetermineRiskLevel(score float64) report.Level {
	switch {
	case score >= 8:
		return report.Critical
	case score >= 6:
		return report.High
	case score >= 3:
		return report.Medium
	default:
		return report.Low
	}
}

// Parse extracts structured findings from a raw model response. The level is
// always derived from the score; a "Risk Level:" line in the text is ignored.
func Parse(raw string) report.Findings {
	score := ExtractRiskScore(raw)
	return report.Findings{
		Summary:         ExtractSummary(raw),
		Vulnerabilities: ExtractVulnerabilities(raw),
		Recommendations: ExtractRecommendations(raw),
		RiskScore:       score,
		RiskLevel:       DetermineRiskLevel(score),
	}
}

func clampScore(v float64) float64 {
	return max(report.MinScore, min(report.MaxScore, v))
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
