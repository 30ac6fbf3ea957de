package usecase

import (
	"strings"

	"github.com/kirillkom/euact-compliance/internal/core/domain"
)

// ScorerConfig selects which heuristic metrics contribute to the overall
// score. A disabled metric stays nil on the result and is excluded from the
// mean.
type ScorerConfig struct {
	Faithfulness     bool
	AnswerRelevance  bool
	ContextPrecision bool
	ContextRecall    bool
}

func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		Faithfulness:     true,
		AnswerRelevance:  true,
		ContextPrecision: true,
		ContextRecall:    true,
	}
}

// Scorer computes deterministic lexical quality metrics for a finished
// analysis against the retrieved context. No model calls are involved, so the
// same inputs always produce the same scores.
type Scorer struct {
	cfg ScorerConfig
}

func NewScorer(cfg ScorerConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

func (s *Scorer) Evaluate(documentText string, analysis *domain.Analysis, passages []domain.ContextPassage) *domain.EvaluationMetrics {
	metrics := &domain.EvaluationMetrics{}

	var sum float64
	var count int
	record := func(dst **float64, value float64) {
		v := value
		*dst = &v
		sum += value
		count++
	}

	if s.cfg.Faithfulness {
		record(&metrics.Faithfulness, s.Faithfulness(analysis, passages))
	}
	if s.cfg.AnswerRelevance {
		record(&metrics.AnswerRelevance, s.AnswerRelevance(documentText, analysis))
	}
	if s.cfg.ContextPrecision {
		record(&metrics.ContextPrecision, s.ContextPrecision(analysis, passages))
	}
	if s.cfg.ContextRecall {
		record(&metrics.ContextRecall, s.ContextRecall(analysis, passages))
	}

	if count > 0 {
		metrics.OverallScore = sum / float64(count)
	}
	return metrics
}

// Faithfulness is the share of claimed risks lexically supported by the
// retrieved passages. A risk counts as supported when at least two of its
// distinctive terms appear in the joined context.
func (s *Scorer) Faithfulness(analysis *domain.Analysis, passages []domain.ContextPassage) float64 {
	risks := analysis.AllRisks()
	if len(risks) == 0 {
		return 1.0
	}
	if len(passages) == 0 {
		return 0.0
	}

	contextText := strings.ToLower(joinPassages(passages))

	supported := 0
	for _, risk := range risks {
		matches := 0
		for _, term := range distinctiveTerms(risk.Description) {
			if strings.Contains(contextText, term) {
				matches++
			}
		}
		if matches >= 2 {
			supported++
		}
	}
	return float64(supported) / float64(len(risks))
}

// aiMarkers are checked by substring, so "ai" also fires on words that merely
// contain it. Kept that way to preserve score stability across versions.
var aiMarkers = []string{"ai", "machine learning", "neural", "model", "algorithm"}

// AnswerRelevance measures word overlap between the produced description and
// the source document, with a bonus when the AI-presence verdict agrees with
// lexical evidence in the document.
func (s *Scorer) AnswerRelevance(documentText string, analysis *domain.Analysis) float64 {
	descWords := wordSet(analysis.Description)
	if len(descWords) == 0 {
		return 0.0
	}

	docWords := wordSet(documentText)
	overlap := 0
	for word := range descWords {
		if _, ok := docWords[word]; ok {
			overlap++
		}
	}
	score := float64(overlap) / float64(len(descWords))

	docLower := strings.ToLower(documentText)
	mentionsAI := false
	for _, marker := range aiMarkers {
		if strings.Contains(docLower, marker) {
			mentionsAI = true
			break
		}
	}
	if mentionsAI == analysis.ContainsAI {
		score *= 1.2
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// ContextPrecision is the share of retrieved passages that ground at least one
// cited regulation reference.
func (s *Scorer) ContextPrecision(analysis *domain.Analysis, passages []domain.ContextPassage) float64 {
	if len(passages) == 0 {
		return 0.0
	}

	var refs []string
	for _, risk := range analysis.AllRisks() {
		if ref := strings.ToLower(strings.TrimSpace(risk.EUActReference)); ref != "" {
			refs = append(refs, ref)
		}
	}

	relevant := 0
	for _, passage := range passages {
		passageText := strings.ToLower(passage.Text)
		for _, ref := range refs {
			if strings.Contains(passageText, ref) {
				relevant++
				break
			}
		}
	}
	return float64(relevant) / float64(len(passages))
}

// ContextRecall is the share of risks the context could have informed: a risk
// counts when it cites an explicit reference or at least two of its terms
// appear in the passages.
func (s *Scorer) ContextRecall(analysis *domain.Analysis, passages []domain.ContextPassage) float64 {
	risks := analysis.AllRisks()
	if len(risks) == 0 {
		return 1.0
	}

	contextText := strings.ToLower(joinPassages(passages))

	covered := 0
	for _, risk := range risks {
		if strings.TrimSpace(risk.EUActReference) != "" {
			covered++
			continue
		}
		matches := 0
		for _, term := range distinctiveTerms(risk.Description) {
			if strings.Contains(contextText, term) {
				matches++
			}
		}
		if matches >= 2 {
			covered++
		}
	}
	return float64(covered) / float64(len(risks))
}

func joinPassages(passages []domain.ContextPassage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = p.Text
	}
	return strings.Join(parts, " ")
}

// distinctiveTerms keeps words longer than four characters, lowercased and
// deduplicated, preserving first-seen order.
func distinctiveTerms(text string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if len(word) <= 4 {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		terms = append(terms, word)
	}
	return terms
}

func wordSet(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		out[word] = struct{}{}
	}
	return out
}
