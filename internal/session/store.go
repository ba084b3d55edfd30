// Package session holds per-user collaborator state: favorite tickers,
// recent score history, and batch-over-batch score movement. The store
// is external to the analytical core; engines receive its contents as
// plain inputs and never reach into it.
package session

import (
	"sort"
	"sync"

	"github.com/hylle9/ai-stock-analytics/pkg/models"
)

// defaultHistoryCap bounds the per-ticker score history.
const defaultHistoryCap = 100

// Rising describes one ticker's score movement between the two most
// recent batches.
type Rising struct {
	Ticker  string  `json:"ticker"`
	Prev    float64 `json:"prev"`
	Current float64 `json:"current"`
	Delta   float64 `json:"delta"`
}

// Store is a concurrency-safe in-memory session store.
type Store struct {
	mu         sync.RWMutex
	favorites  map[string]struct{}
	history    map[string][]models.PressureScore
	lastBatch  map[string]float64
	historyCap int
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		favorites:  make(map[string]struct{}),
		history:    make(map[string][]models.PressureScore),
		lastBatch:  make(map[string]float64),
		historyCap: defaultHistoryCap,
	}
}

// AddFavorite marks a ticker as favorite. Adding twice is a no-op.
func (s *Store) AddFavorite(ticker string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.favorites[ticker] = struct{}{}
}

// RemoveFavorite unmarks a ticker. Removing an absent ticker is a no-op.
func (s *Store) RemoveFavorite(ticker string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.favorites, ticker)
}

// Favorites returns the favorite tickers in sorted order.
func (s *Store) Favorites() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.favorites))
	for t := range s.favorites {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// IsFavorite reports whether a ticker is marked.
func (s *Store) IsFavorite(ticker string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.favorites[ticker]
	return ok
}

// RecordScore appends a score to the ticker's history, trimming the
// oldest entries past the cap.
func (s *Store) RecordScore(score models.PressureScore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := append(s.history[score.Ticker], score)
	if len(h) > s.historyCap {
		h = h[len(h)-s.historyCap:]
	}
	s.history[score.Ticker] = h
}

// History returns a copy of the ticker's recorded scores, oldest first.
func (s *Store) History(ticker string) []models.PressureScore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.history[ticker]
	out := make([]models.PressureScore, len(h))
	copy(out, h)
	return out
}

// RecordBatch stores a batch of scores, records each in its history,
// and returns the movement versus the previous batch sorted by delta
// descending. Tickers absent from the previous batch are excluded from
// the movement list; their scores still seed the next comparison.
func (s *Store) RecordBatch(scores []models.PressureScore) []Rising {
	s.mu.Lock()
	defer s.mu.Unlock()

	var movement []Rising
	next := make(map[string]float64, len(scores))
	for _, sc := range scores {
		next[sc.Ticker] = sc.Value

		h := append(s.history[sc.Ticker], sc)
		if len(h) > s.historyCap {
			h = h[len(h)-s.historyCap:]
		}
		s.history[sc.Ticker] = h

		if prev, ok := s.lastBatch[sc.Ticker]; ok {
			movement = append(movement, Rising{
				Ticker:  sc.Ticker,
				Prev:    prev,
				Current: sc.Value,
				Delta:   sc.Value - prev,
			})
		}
	}
	s.lastBatch = next

	sort.Slice(movement, func(i, j int) bool {
		if movement[i].Delta != movement[j].Delta {
			return movement[i].Delta > movement[j].Delta
		}
		return movement[i].Ticker < movement[j].Ticker
	})
	return movement
}
