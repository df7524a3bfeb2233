package lastfm

// Last.fm API response types.

// ErrorResponse is returned in place of a payload on failure.
type ErrorResponse struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// Last.fm error codes the adapter distinguishes.
const (
	errInvalidParameters = 6 // artist not found
	errInvalidAPIKey     = 10
	errRateLimited       = 29
)

// TopTagsResponse is the top-level response from artist.getTopTags.
type TopTagsResponse struct {
	TopTags TopTags `json:"toptags"`
}

// TopTags wraps the tag array.
type TopTags struct {
	Tag []Tag `json:"tag"`
}

// Tag is a single tag with its relative weight (0-100).
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	URL   string `json:"url"`
}

// SimilarResponse is the top-level response from artist.getSimilar.
type SimilarResponse struct {
	SimilarArtists SimilarGroup `json:"similarartists"`
}

// SimilarGroup wraps the similar artists array.
type SimilarGroup struct {
	Artist []SimilarArtist `json:"artist"`
}

// SimilarArtist is a single similar artist. Match is a decimal string.
type SimilarArtist struct {
	Name  string `json:"name"`
	MBID  string `json:"mbid"`
	Match string `json:"match"`
	URL   string `json:"url"`
}
