package wikipedia

// MediaWiki action API response types (formatversion=2).

// queryResponse is the top-level response from action=query.
type queryResponse struct {
	Query struct {
		Pages []page `json:"pages"`
	} `json:"query"`
}

type page struct {
	Title     string     `json:"title"`
	Missing   bool       `json:"missing"`
	Invalid   bool       `json:"invalid"`
	Revisions []revision `json:"revisions"`
}

type revision struct {
	Slots struct {
		Main struct {
			Content string `json:"content"`
		} `json:"main"`
	} `json:"slots"`
}
