package models

// Requests for the actors HTTP endpoints. Defined in domain for consistency and reuse.

type ActorsRequest struct {
	Venue       string `query:"venue" json:"venue"`
	Symbol      string `query:"symbol" json:"symbol"`
	Pattern     string `query:"pattern" json:"pattern" validate:"omitempty,oneof=market_maker iceberg scalper institutional wash_trader interval"`
	IncludeGone bool   `query:"include_gone" json:"include_gone"`
	Limit       int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type ActorRequest struct {
	ID string `param:"id" json:"id" validate:"required,hexadecimal,len=16"`
}

type ActorHistoryRequest struct {
	ID    string `param:"id" json:"id" validate:"required,hexadecimal,len=16"`
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=5000"`
}

type RecentClassificationsRequest struct {
	Limit int `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}
