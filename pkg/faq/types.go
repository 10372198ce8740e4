package faq

// Entry is one knowledge-base item. The corpus is loaded once at
// startup and immutable afterwards, so ranking needs no locking.
type Entry struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords"`
}

// Scored pairs an entry with its ranking score. Ordering is score
// descending with corpus order breaking ties.
type Scored struct {
	Entry
	Score int `json:"score"`
}
