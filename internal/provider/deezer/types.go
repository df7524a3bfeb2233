package deezer

// searchResponse is the JSON response from the Deezer artist search endpoint.
type searchResponse struct {
	Data  []artistResult `json:"data"`
	Total int            `json:"total"`
	Next  string         `json:"next,omitempty"`
}

// artistResult is a single artist entry from a Deezer search or related endpoint.
type artistResult struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Link    string `json:"link"`
	Picture string `json:"picture"`
	NbFan   int    `json:"nb_fan"`
	Type    string `json:"type"`
}

// trackListResponse is the JSON response from /artist/{id}/top.
type trackListResponse struct {
	Data []trackResult `json:"data"`
}

// trackResult is one track; only the ID is kept.
type trackResult struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Readable bool   `json:"readable"`
}

// errorEnvelope is returned with HTTP 200 when a request fails.
type errorEnvelope struct {
	Error *apiError `json:"error"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Deezer error codes the adapter distinguishes.
const (
	codeQuota  = 4
	codeNoData = 800
)
