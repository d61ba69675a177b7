package sim

import "math"

// SoftFinalityStats summarizes how the soft-finality coin flips have landed
// since startup. Rates are whole percentages.
type SoftFinalityStats struct {
	Total         int `json:"total"`
	Permanent     int `json:"permanent"`
	Reverted      int `json:"reverted"`
	PermanentRate int `json:"permanent_rate"`
	RevertRate    int `json:"revert_rate"`
}

// SoftStats returns the all-time soft finality outcome tally.
func (s *Store) SoftStats() SoftFinalityStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := SoftFinalityStats{
		Permanent: s.softPermanent,
		Reverted:  s.softReverted,
		Total:     s.softPermanent + s.softReverted,
	}
	if stats.Total > 0 {
		stats.PermanentRate = int(math.Round(float64(stats.Permanent) / float64(stats.Total) * 100))
		stats.RevertRate = int(math.Round(float64(stats.Reverted) / float64(stats.Total) * 100))
	}
	return stats
}
