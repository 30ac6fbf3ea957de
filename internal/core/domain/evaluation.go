package domain

// EvaluationMetrics carries heuristic RAG quality scores. A nil component means
// the metric was disabled; OverallScore is the mean of the components present.
type EvaluationMetrics struct {
	Faithfulness     *float64 `json:"faithfulness,omitempty"`
	AnswerRelevance  *float64 `json:"answer_relevance,omitempty"`
	ContextPrecision *float64 `json:"context_precision,omitempty"`
	ContextRecall    *float64 `json:"context_recall,omitempty"`
	OverallScore     float64  `json:"overall_score"`
}

// JudgeVerdict is a model-produced quality assessment of a primary analysis.
// Advisory only: a job completes without one when the judge call fails.
type JudgeVerdict struct {
	Accuracy     float64 `json:"accuracy_score"`
	Completeness float64 `json:"completeness_score"`
	Consistency  float64 `json:"consistency_score"`
	Overall      float64 `json:"overall_score"`
	Reasoning    string  `json:"reasoning"`
}
