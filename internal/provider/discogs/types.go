package discogs

// Discogs API response types.

// SearchResponse is the top-level response from the search endpoint.
type SearchResponse struct {
	Results    []SearchResult `json:"results"`
	Pagination Pagination     `json:"pagination"`
}

// SearchResult represents a single master or release hit. Title is
// "Artist - Title".
type SearchResult struct {
	ID    int      `json:"id"`
	Title string   `json:"title"`
	Type  string   `json:"type"`
	Year  string   `json:"year"`
	Genre []string `json:"genre"`
	Style []string `json:"style"`
}

// Pagination holds pagination info.
type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Items   int `json:"items"`
}
