package azureopenai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kirillkom/euact-compliance/internal/core/domain"
)

const systemAnalyst = `You are an expert EU AI Act compliance analyst. You assess project descriptions against the regulation using the provided regulatory excerpts. Respond with a single JSON object and nothing else.`

const systemJudge = `You are an impartial reviewer of EU AI Act compliance analyses. You score a completed analysis against the source document and the regulatory excerpts it was grounded on. Respond with a single JSON object and nothing else.`

func buildAnalysisPrompt(documentText string, passages []domain.ContextPassage) string {
	var b strings.Builder

	b.WriteString("Relevant EU AI Act excerpts:\n\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[Context %d]\n%s\n\n", i+1, p.Text)
	}

	b.WriteString("Project document:\n\n")
	b.WriteString(documentText)

	b.WriteString(`

Analyze the project for EU AI Act compliance risks. Ground every risk in the excerpts above and cite the article or annex in eu_act_reference when one applies.

Return JSON with this shape:
{
  "project_name": "string",
  "description": "one-paragraph summary of the project",
  "contains_ai": true,
  "ai_confidence": 0.0,
  "high_risks": [
    {"description": "string", "category": "string", "eu_act_reference": "Article N", "confidence_score": 0.0}
  ],
  "low_risks": [
    {"description": "string", "category": "string", "eu_act_reference": "Article N", "confidence_score": 0.0}
  ]
}

Use empty arrays when no risks of that level exist. Scores are between 0 and 1.`)

	return b.String()
}

// buildJudgePrompt includes only the top passages so the verdict call stays
// within a smaller token budget than the analysis call.
const judgeContextLimit = 3

func buildJudgePrompt(documentText string, analysis *domain.Analysis, passages []domain.ContextPassage) (string, error) {
	encoded, err := json.Marshal(analysis)
	if err != nil {
		return "", domain.WrapError(domain.ErrParse, "encode analysis for judge", err)
	}

	var b strings.Builder

	b.WriteString("Regulatory excerpts used for the analysis:\n\n")
	limit := len(passages)
	if limit > judgeContextLimit {
		limit = judgeContextLimit
	}
	for i := 0; i < limit; i++ {
		fmt.Fprintf(&b, "[Context %d]\n%s\n\n", i+1, passages[i].Text)
	}

	b.WriteString("Source document:\n\n")
	b.WriteString(documentText)

	b.WriteString("\n\nCompleted analysis:\n\n")
	b.Write(encoded)

	b.WriteString(`

Evaluate the analysis. Return JSON with this shape:
{
  "accuracy_score": 0.0,
  "completeness_score": 0.0,
  "consistency_score": 0.0,
  "overall_score": 0.0,
  "reasoning": "short explanation"
}

All scores are between 0 and 1.`)

	return b.String(), nil
}
