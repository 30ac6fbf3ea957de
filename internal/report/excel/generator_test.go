package excel

import (
	"context"
	"os"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/euact-compliance/internal/core/domain"
)

func sampleAnalysis() *domain.Analysis {
	confidence := 0.9
	return &domain.Analysis{
		ProjectName:  "Screening Tool",
		Description:  "Ranks job candidates with a trained model.",
		ContainsAI:   true,
		AIConfidence: 0.95,
		HighRisks: []domain.Risk{
			{Description: "Automated candidate ranking", Category: "Employment", Level: domain.RiskLevelHigh, EUActReference: "Annex III", Confidence: &confidence},
		},
		LowRisks: []domain.Risk{
			{Description: "Chatbot transparency", Category: "Transparency", Level: domain.RiskLevelLow, EUActReference: "Article 50"},
		},
		Metadata: domain.AnalysisMetadata{TotalRisks: 2, HighRiskCount: 1, LowRiskCount: 1},
	}
}

func sampleMetrics() *domain.EvaluationMetrics {
	v := func(f float64) *float64 { return &f }
	return &domain.EvaluationMetrics{
		Faithfulness:     v(1.0),
		AnswerRelevance:  v(0.7),
		ContextPrecision: v(0.4),
		ContextRecall:    v(1.0),
		OverallScore:     0.775,
	}
}

func TestRenderWritesAllSheets(t *testing.T) {
	gen, err := NewGenerator(t.TempDir())
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	judge := &domain.JudgeVerdict{Accuracy: 0.9, Completeness: 0.8, Consistency: 0.85, Overall: 0.85, Reasoning: "solid grounding"}
	path, err := gen.Render(context.Background(), "job-1", sampleAnalysis(), sampleMetrics(), judge)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if path != gen.ReportPath("job-1") {
		t.Fatalf("returned path %q differs from ReportPath %q", path, gen.ReportPath("job-1"))
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open rendered workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := map[string]bool{"Summary": false, "High Risks": false, "Low Risks": false, "Evaluation": false}
	for _, s := range sheets {
		if _, ok := want[s]; ok {
			want[s] = true
		}
		if s == "Sheet1" {
			t.Fatalf("default sheet must be removed, got %v", sheets)
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("sheet %q missing, got %v", name, sheets)
		}
	}

	project, err := f.GetCellValue("Summary", "B2")
	if err != nil || project != "Screening Tool" {
		t.Fatalf("Summary!B2 = %q (err %v), want project name", project, err)
	}
	riskDesc, err := f.GetCellValue("High Risks", "B2")
	if err != nil || riskDesc != "Automated candidate ranking" {
		t.Fatalf("High Risks!B2 = %q (err %v)", riskDesc, err)
	}
	reference, err := f.GetCellValue("Low Risks", "D2")
	if err != nil || reference != "Article 50" {
		t.Fatalf("Low Risks!D2 = %q (err %v)", reference, err)
	}
	metricName, err := f.GetCellValue("Evaluation", "A2")
	if err != nil || metricName != "Faithfulness" {
		t.Fatalf("Evaluation!A2 = %q (err %v)", metricName, err)
	}
}

func TestRenderWithoutJudgeOmitsVerdictRows(t *testing.T) {
	gen, err := NewGenerator(t.TempDir())
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	path, err := gen.Render(context.Background(), "job-2", sampleAnalysis(), sampleMetrics(), nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open rendered workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Evaluation")
	if err != nil {
		t.Fatalf("read evaluation rows: %v", err)
	}
	for _, row := range rows {
		if len(row) > 0 && row[0] == "Judge Accuracy" {
			t.Fatalf("judge rows must be absent without a verdict")
		}
	}
}

func TestRenderNilAnalysisFails(t *testing.T) {
	gen, err := NewGenerator(t.TempDir())
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	if _, err := gen.Render(context.Background(), "job-3", nil, nil, nil); err == nil {
		t.Fatalf("expected error for nil analysis")
	}
}

func TestRenderOverwritesExistingReport(t *testing.T) {
	gen, err := NewGenerator(t.TempDir())
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	first, err := gen.Render(context.Background(), "job-4", sampleAnalysis(), sampleMetrics(), nil)
	if err != nil {
		t.Fatalf("first Render() error = %v", err)
	}
	second, err := gen.Render(context.Background(), "job-4", sampleAnalysis(), sampleMetrics(), nil)
	if err != nil {
		t.Fatalf("second Render() error = %v", err)
	}
	if first != second {
		t.Fatalf("re-render must reuse the same path: %q vs %q", first, second)
	}
	if _, err := os.Stat(second); err != nil {
		t.Fatalf("report file missing: %v", err)
	}
}
