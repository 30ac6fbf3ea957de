package usecase

import (
	"math"
	"testing"

	"github.com/kirillkom/euact-compliance/internal/core/domain"
)

func passageList(texts ...string) []domain.ContextPassage {
	out := make([]domain.ContextPassage, len(texts))
	for i, t := range texts {
		out[i] = domain.ContextPassage{Text: t}
	}
	return out
}

func TestFaithfulnessPerfectWhenNoRisksClaimed(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())
	analysis := &domain.Analysis{ProjectName: "P"}

	got := s.Faithfulness(analysis, passageList("Article 6 classification rules for high-risk systems"))
	if got != 1.0 {
		t.Fatalf("Faithfulness() = %v, want 1.0 for zero risks", got)
	}
}

func TestFaithfulnessRequiresTwoSupportingTerms(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())
	analysis := &domain.Analysis{
		HighRisks: []domain.Risk{
			{Description: "Biometric identification in public spaces", Level: domain.RiskLevelHigh},
			{Description: "Unrelated quantum blockchain exposure", Level: domain.RiskLevelHigh},
		},
	}
	passages := passageList("Remote biometric identification systems in publicly accessible spaces are restricted.")

	got := s.Faithfulness(analysis, passages)
	if got != 0.5 {
		t.Fatalf("Faithfulness() = %v, want 0.5 with one supported risk of two", got)
	}
}

func TestAnswerRelevanceEmptyDescriptionScoresZero(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())
	got := s.AnswerRelevance("An AI system for scoring.", &domain.Analysis{Description: "   "})
	if got != 0.0 {
		t.Fatalf("AnswerRelevance() = %v, want 0.0 for empty description", got)
	}
}

func TestAnswerRelevanceBoostsAgreementOnAIPresence(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())
	document := "The platform uses machine learning to rank candidates."

	agreeing := &domain.Analysis{Description: "platform uses advanced machine learning techniques", ContainsAI: true}
	disagreeing := &domain.Analysis{Description: "platform uses advanced machine learning techniques", ContainsAI: false}

	boosted := s.AnswerRelevance(document, agreeing)
	plain := s.AnswerRelevance(document, disagreeing)
	if boosted <= plain {
		t.Fatalf("expected agreement boost: boosted=%v plain=%v", boosted, plain)
	}
	if boosted > 1.0 {
		t.Fatalf("AnswerRelevance() = %v, must be capped at 1.0", boosted)
	}
}

func TestContextPrecisionCountsPassagesGroundingReferences(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())
	analysis := &domain.Analysis{
		HighRisks: []domain.Risk{
			{Description: "Credit scoring", EUActReference: "Annex III", Level: domain.RiskLevelHigh},
		},
	}
	passages := passageList(
		"Annex III lists high-risk AI use cases including creditworthiness.",
		"Article 50 covers transparency obligations.",
	)

	got := s.ContextPrecision(analysis, passages)
	if got != 0.5 {
		t.Fatalf("ContextPrecision() = %v, want 0.5", got)
	}
}

func TestContextPrecisionEmptyContextScoresZero(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())
	analysis := &domain.Analysis{
		HighRisks: []domain.Risk{{Description: "x", EUActReference: "Article 5", Level: domain.RiskLevelHigh}},
	}
	if got := s.ContextPrecision(analysis, nil); got != 0.0 {
		t.Fatalf("ContextPrecision() = %v, want 0.0 for empty context", got)
	}
}

func TestContextRecallCountsExplicitReferencesAsCovered(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())
	analysis := &domain.Analysis{
		HighRisks: []domain.Risk{
			{Description: "Credit scoring of persons", EUActReference: "Annex III", Level: domain.RiskLevelHigh},
		},
		LowRisks: []domain.Risk{
			{Description: "Vague generic exposure nothing matches", Level: domain.RiskLevelLow},
		},
	}

	got := s.ContextRecall(analysis, passageList("Transparency requirements apply."))
	if got != 0.5 {
		t.Fatalf("ContextRecall() = %v, want 0.5", got)
	}
}

func TestEvaluateOverallIsMeanOfEnabledMetrics(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())
	analysis := &domain.Analysis{
		ProjectName: "Recruitment Screener",
		Description: "machine learning system ranking job candidates automatically",
		ContainsAI:  true,
		HighRisks: []domain.Risk{
			{Description: "Automated ranking of job candidates", EUActReference: "Annex III", Level: domain.RiskLevelHigh},
		},
	}
	document := "A machine learning system ranking job candidates automatically for recruiters."
	passages := passageList("Annex III: AI systems for recruitment, ranking and screening of candidates are high-risk.")

	m := s.Evaluate(document, analysis, passages)
	if m.Faithfulness == nil || m.AnswerRelevance == nil || m.ContextPrecision == nil || m.ContextRecall == nil {
		t.Fatalf("all metrics enabled by default, got %+v", m)
	}

	mean := (*m.Faithfulness + *m.AnswerRelevance + *m.ContextPrecision + *m.ContextRecall) / 4
	if math.Abs(m.OverallScore-mean) > 0.01 {
		t.Fatalf("OverallScore = %v, want mean %v", m.OverallScore, mean)
	}
}

func TestEvaluateDisabledMetricsStayNil(t *testing.T) {
	s := NewScorer(ScorerConfig{Faithfulness: true})
	m := s.Evaluate("doc", &domain.Analysis{}, nil)
	if m.Faithfulness == nil {
		t.Fatalf("faithfulness should be present")
	}
	if m.AnswerRelevance != nil || m.ContextPrecision != nil || m.ContextRecall != nil {
		t.Fatalf("disabled metrics must stay nil, got %+v", m)
	}
	if m.OverallScore != *m.Faithfulness {
		t.Fatalf("overall %v should equal single enabled metric %v", m.OverallScore, *m.Faithfulness)
	}
}

func TestEvaluateNoEnabledMetricsScoresZero(t *testing.T) {
	s := NewScorer(ScorerConfig{})
	m := s.Evaluate("doc", &domain.Analysis{}, nil)
	if m.OverallScore != 0.0 {
		t.Fatalf("OverallScore = %v, want 0.0 with no metrics enabled", m.OverallScore)
	}
}
