package discovery

import (
	"sort"
	"sync"
)

// SummaryStore keeps the most recent run summary per source, for
// operators asking "what happened last run" without log digging.
type SummaryStore struct {
	mu       sync.RWMutex
	bySource map[string]*RunSummary
}

func NewSummaryStore() *SummaryStore {
	return &SummaryStore{bySource: make(map[string]*RunSummary)}
}

func (s *SummaryStore) Record(summary *RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySource[summary.SourceID] = summary
}

func (s *SummaryStore) Get(sourceID string) (*RunSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.bySource[sourceID]
	return summary, ok
}

func (s *SummaryStore) All() []*RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]*RunSummary, 0, len(s.bySource))
	for _, summary := range s.bySource {
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].SourceID < summaries[j].SourceID
	})
	return summaries
}
