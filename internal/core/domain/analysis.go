package domain

type RiskLevel string

const (
	RiskLevelHigh RiskLevel = "high"
	RiskLevelLow  RiskLevel = "low"
	RiskLevelNone RiskLevel = "none"
)

type Risk struct {
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	Level          RiskLevel `json:"level"`
	EUActReference string    `json:"eu_act_reference,omitempty"`
	Confidence     *float64  `json:"confidence_score,omitempty"`
}

type AnalysisMetadata struct {
	TotalRisks    int `json:"total_risks"`
	HighRiskCount int `json:"high_risk_count"`
	LowRiskCount  int `json:"low_risk_count"`
}

type Analysis struct {
	ProjectName  string           `json:"project_name"`
	Description  string           `json:"description"`
	ContainsAI   bool             `json:"contains_ai"`
	AIConfidence float64          `json:"ai_confidence"`
	HighRisks    []Risk           `json:"high_risks"`
	LowRisks     []Risk           `json:"low_risks"`
	Metadata     AnalysisMetadata `json:"metadata"`
}

// AllRisks returns high risks followed by low risks, preserving order.
func (a *Analysis) AllRisks() []Risk {
	out := make([]Risk, 0, len(a.HighRisks)+len(a.LowRisks))
	out = append(out, a.HighRisks...)
	out = append(out, a.LowRisks...)
	return out
}
