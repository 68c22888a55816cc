package dto

type SelectTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type ComponentResponse struct {
	Name     string           `json:"name"`
	Title    string           `json:"title"`
	Elements []map[string]any `json:"elements"`
}

type ComponentListResponse struct {
	Result     string              `json:"result"`
	Components []ComponentResponse `json:"components"`
}

type RouteResponse struct {
	Component string `json:"component"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	FetchAll  bool   `json:"fetch_all"`
}

type TraceQuery struct {
	Component string `query:"component" validate:"omitempty,max=100"`
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=500"`
}
