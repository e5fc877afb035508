package models

// Mention is a single unstructured web search hit, in search-engine rank
// order. Snippet may be empty when the source page had no snippet cell at
// the matching position.
type Mention struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source,omitempty"`
}
