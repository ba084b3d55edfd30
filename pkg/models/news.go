package models

import "time"

// Headline is a single news item used by the sentiment scorer.
type Headline struct {
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// SentimentSnapshot is the aggregated sentiment for one ticker at one
// point in time: a polarity score in [-1, 1] and a web-attention
// intensity in [0, 1] derived from coverage volume.
type SentimentSnapshot struct {
	Ticker       string    `json:"ticker"`
	Score        float64   `json:"score"`
	Attention    float64   `json:"attention"`
	ArticleCount int       `json:"article_count"`
	Timestamp    time.Time `json:"timestamp"`
}
