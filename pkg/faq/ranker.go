package faq

import (
	"fmt"
	"sort"
	"strings"
)

// Ranker scores the static corpus against a query with additive
// heuristic signals. Deterministic for a fixed corpus and query: the
// sort is stable, so ties keep corpus load order.
type Ranker struct {
	entries []Entry
}

const (
	scoreFullQueryInQuestion = 10
	scoreEntryKeywordInQuery = 3
	scoreQueryWordInQuestion = 2
	scoreQueryWordInAnswer   = 1
	scoreCategoryTrigger     = 2
)

// categoryTriggers maps a category to the query keywords that boost
// entries of that category.
var categoryTriggers = map[string][]string{
	"booking": {"訂", "訂票", "機票", "預訂", "book"},
	"visa":    {"簽證", "簽", "護照", "visa"},
	"payment": {"付款", "刷卡", "發票", "匯款", "轉帳", "pay"},
	"baggage": {"行李", "托運", "超重", "baggage"},
	"change":  {"改", "退", "取消", "改期", "退票"},
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"to": true, "of": true, "in": true, "on": true, "for": true,
	"how": true, "what": true, "when": true, "can": true, "i": true,
	"we": true, "my": true, "do": true, "does": true, "please": true,
	"請問": true, "一下": true, "謝謝": true, "你好": true, "我想": true,
	"請": true, "的": true, "嗎": true, "呢": true, "是": true,
}

const punctuation = ",.!?;:()[]{}\"'，。！？；：（）「」『』、～…"

// NewRanker wraps a loaded corpus. The slice is not copied; callers
// must not mutate it afterwards.
func NewRanker(entries []Entry) *Ranker {
	return &Ranker{entries: entries}
}

func (r *Ranker) Len() int { return len(r.entries) }

// Search returns up to maxResults entries with score > 0, ordered by
// score descending, corpus order on ties.
func (r *Ranker) Search(query string, maxResults int) []Scored {
	query = strings.TrimSpace(query)
	if query == "" || maxResults <= 0 {
		return nil
	}

	queryLower := strings.ToLower(query)
	queryWords := extractKeywords(query)

	var results []Scored
	for _, e := range r.entries {
		score := r.scoreEntry(e, query, queryLower, queryWords)
		if score <= 0 {
			continue
		}
		results = append(results, Scored{Entry: e, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

func (r *Ranker) scoreEntry(e Entry, query, queryLower string, queryWords []string) int {
	score := 0
	questionLower := strings.ToLower(e.Question)
	answerLower := strings.ToLower(e.Answer)

	if strings.Contains(questionLower, queryLower) {
		score += scoreFullQueryInQuestion
	}

	for _, kw := range e.Keywords {
		if kw != "" && strings.Contains(queryLower, strings.ToLower(kw)) {
			score += scoreEntryKeywordInQuery
		}
	}

	for _, w := range queryWords {
		switch {
		case strings.Contains(questionLower, w):
			score += scoreQueryWordInQuestion
		case strings.Contains(answerLower, w):
			score += scoreQueryWordInAnswer
		}
	}

	for _, trigger := range categoryTriggers[e.Category] {
		if strings.Contains(queryLower, strings.ToLower(trigger)) {
			score += scoreCategoryTrigger
		}
	}

	return score
}

// extractKeywords strips punctuation, splits on whitespace and drops
// stop words and single-character tokens.
func extractKeywords(query string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return ' '
		}
		return r
	}, query)

	var words []string
	for _, tok := range strings.Fields(strings.ToLower(cleaned)) {
		if stopWords[tok] {
			continue
		}
		if len([]rune(tok)) <= 1 {
			continue
		}
		words = append(words, tok)
	}
	return words
}

// FormatContext renders ranked results into the bounded text block
// handed to the classifier prompt.
func FormatContext(results []Scored) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("相關問答：\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. Q: %s\n   A: %s\n", i+1, r.Question, r.Answer)
	}
	return b.String()
}
