package excel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/euact-compliance/internal/core/domain"
)

// Generator renders a finished analysis into a multi-sheet workbook. One file
// per job, named after the job id, so re-rendering overwrites the old report.
type Generator struct {
	outputDir string
}

func NewGenerator(outputDir string) (*Generator, error) {
	if outputDir == "" {
		outputDir = "./data/reports"
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	return &Generator{outputDir: outputDir}, nil
}

func (g *Generator) ReportPath(jobID string) string {
	return filepath.Join(g.outputDir, jobID+".xlsx")
}

const (
	headerFill = "4472C4"
	goodFill   = "92D050"
	midFill    = "FFEB9C"
	badFill    = "FFC7CE"
)

func (g *Generator) Render(ctx context.Context, jobID string, analysis *domain.Analysis, metrics *domain.EvaluationMetrics, judge *domain.JudgeVerdict) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if analysis == nil {
		return "", fmt.Errorf("render report: analysis is nil")
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
	})
	if err != nil {
		return "", fmt.Errorf("header style: %w", err)
	}

	if err := g.writeSummary(f, headerStyle, analysis, metrics, judge); err != nil {
		return "", err
	}
	if err := g.writeRisks(f, headerStyle, "High Risks", analysis.HighRisks, badFill); err != nil {
		return "", err
	}
	if err := g.writeRisks(f, headerStyle, "Low Risks", analysis.LowRisks, midFill); err != nil {
		return "", err
	}
	if err := g.writeEvaluation(f, headerStyle, metrics, judge); err != nil {
		return "", err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("drop default sheet: %w", err)
	}

	path := g.ReportPath(jobID)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	return path, nil
}

func (g *Generator) writeSummary(f *excelize.File, headerStyle int, analysis *domain.Analysis, metrics *domain.EvaluationMetrics, judge *domain.JudgeVerdict) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	rows := [][]any{
		{"Field", "Value"},
		{"Project Name", analysis.ProjectName},
		{"Description", analysis.Description},
		{"Contains AI", analysis.ContainsAI},
		{"AI Confidence", analysis.AIConfidence},
		{"Total Risks", analysis.Metadata.TotalRisks},
		{"High Risks", analysis.Metadata.HighRiskCount},
		{"Low Risks", analysis.Metadata.LowRiskCount},
	}
	if metrics != nil {
		rows = append(rows, []any{"Evaluation Overall Score", metrics.OverallScore})
	}
	if judge != nil {
		rows = append(rows, []any{"Judge Overall Score", judge.Overall})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}

	if err := f.SetCellStyle(sheet, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("style summary header: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", "A", 26); err != nil {
		return fmt.Errorf("summary col width: %w", err)
	}
	return f.SetColWidth(sheet, "B", "B", 80)
}

func (g *Generator) writeRisks(f *excelize.File, headerStyle int, sheet string, risks []domain.Risk, fill string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	header := []any{"#", "Description", "Category", "EU AI Act Reference", "Confidence"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	if err := f.SetCellStyle(sheet, "A1", "E1", headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}

	rowStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{fill}},
	})
	if err != nil {
		return fmt.Errorf("%s row style: %w", sheet, err)
	}

	for i, risk := range risks {
		rowNum := i + 2
		confidence := any("")
		if risk.Confidence != nil {
			confidence = *risk.Confidence
		}
		row := []any{i + 1, risk.Description, risk.Category, risk.EUActReference, confidence}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", rowNum), &row); err != nil {
			return fmt.Errorf("write %s row: %w", sheet, err)
		}
		if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("E%d", rowNum), rowStyle); err != nil {
			return fmt.Errorf("style %s row: %w", sheet, err)
		}
	}

	if err := f.SetColWidth(sheet, "B", "B", 70); err != nil {
		return fmt.Errorf("%s col width: %w", sheet, err)
	}
	return f.SetColWidth(sheet, "C", "D", 28)
}

func (g *Generator) writeEvaluation(f *excelize.File, headerStyle int, metrics *domain.EvaluationMetrics, judge *domain.JudgeVerdict) error {
	const sheet = "Evaluation"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	header := []any{"Metric", "Score"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write evaluation header: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("style evaluation header: %w", err)
	}

	type scored struct {
		name  string
		value float64
	}
	var entries []scored
	if metrics != nil {
		if metrics.Faithfulness != nil {
			entries = append(entries, scored{"Faithfulness", *metrics.Faithfulness})
		}
		if metrics.AnswerRelevance != nil {
			entries = append(entries, scored{"Answer Relevance", *metrics.AnswerRelevance})
		}
		if metrics.ContextPrecision != nil {
			entries = append(entries, scored{"Context Precision", *metrics.ContextPrecision})
		}
		if metrics.ContextRecall != nil {
			entries = append(entries, scored{"Context Recall", *metrics.ContextRecall})
		}
		entries = append(entries, scored{"Overall Score", metrics.OverallScore})
	}
	if judge != nil {
		entries = append(entries,
			scored{"Judge Accuracy", judge.Accuracy},
			scored{"Judge Completeness", judge.Completeness},
			scored{"Judge Consistency", judge.Consistency},
			scored{"Judge Overall", judge.Overall},
		)
	}

	for i, entry := range entries {
		rowNum := i + 2
		row := []any{entry.name, entry.value}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", rowNum), &row); err != nil {
			return fmt.Errorf("write evaluation row: %w", err)
		}

		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{scoreFill(entry.value)}},
		})
		if err != nil {
			return fmt.Errorf("score style: %w", err)
		}
		if err := f.SetCellStyle(sheet, fmt.Sprintf("B%d", rowNum), fmt.Sprintf("B%d", rowNum), style); err != nil {
			return fmt.Errorf("style evaluation score: %w", err)
		}
	}

	if judge != nil && judge.Reasoning != "" {
		rowNum := len(entries) + 3
		row := []any{"Judge Reasoning", judge.Reasoning}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", rowNum), &row); err != nil {
			return fmt.Errorf("write judge reasoning: %w", err)
		}
	}

	return f.SetColWidth(sheet, "A", "B", 30)
}

func scoreFill(score float64) string {
	switch {
	case score >= 0.8:
		return goodFill
	case score >= 0.5:
		return midFill
	default:
		return badFill
	}
}
