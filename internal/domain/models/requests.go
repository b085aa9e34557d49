package models

// Requests for annotation HTTP endpoints. Durations are seconds as decimal
// strings so an explicit "0" stays distinguishable from "not given".

type PutLevelsRequest struct {
	Symbol      string    `param:"symbol" json:"-" validate:"required"`
	Supports    []float64 `json:"supports"`
	Resistances []float64 `json:"resistances"`
	Meta        Metadata  `json:"meta"`
}

type GetLevelsRequest struct {
	Symbol string `param:"symbol" json:"-" validate:"required"`
	MaxAge string `query:"max_age"`
}

type WaitLevelsRequest struct {
	Symbol  string `param:"symbol" json:"-" validate:"required"`
	Timeout string `query:"timeout"`
	Poll    string `query:"poll"`
}

type PutOverlaysRequest struct {
	Symbol   string    `param:"symbol" json:"-" validate:"required"`
	Overlays []Overlay `json:"overlays"`
	Meta     Metadata  `json:"meta"`
}

type GetOverlaysRequest struct {
	Symbol string `param:"symbol" json:"-" validate:"required"`
	MaxAge string `query:"max_age"`
}

type AnalysisHTTPRequest struct {
	Symbol string `json:"symbol" validate:"required"`
	TF     string `json:"tf" default:"1m" validate:"oneof=1s 1m 5m"`
	N      int    `json:"n" default:"240" validate:"gte=20,lte=5000"`
}
