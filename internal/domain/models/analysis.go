package models

// AnalysisRequest asks the analyst to annotate a symbol. It travels through
// the job queue, so it carries only plain fields.
type AnalysisRequest struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"tf"`
	Bars      int    `json:"n"`
}

// Analysis is the analyst output for one symbol.
type Analysis struct {
	Levels   KeyLevels
	Overlays OverlaySet
}
