package models

// Requests for dashboard HTTP endpoints. Defined in domain for consistency and reuse.

type ListAlertsRequest struct {
	Symbol    string `query:"symbol" json:"symbol"`
	Timeframe string `query:"timeframe" json:"timeframe"`
	Group     string `query:"group" json:"group" validate:"omitempty,oneof=G1 G2 G3 NA"`
	Direction string `query:"direction" json:"direction" validate:"omitempty,oneof=Long Short"`
	From      string `query:"from" json:"from"`
	To        string `query:"to" json:"to"`
	Limit     int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
	Offset    int    `query:"offset" json:"offset" validate:"gte=0"`
}

type GetAlertRequest struct {
	ID string `param:"id" json:"id" validate:"required,uuid4"`
}

type RecentSignalsRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}
