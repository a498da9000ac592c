package app

import (
	"sort"

	"quiz-live-service/internal/domain"
)

// rankParticipants derives the leaderboard from scratch: points descending,
// then average response time ascending. Ties on both keys keep roster order
// and still get distinct sequential ranks.
func rankParticipants(participants []*domain.Participant) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		entries = append(entries, domain.LeaderboardEntry{
			Name:              p.Name,
			Points:            p.Points,
			Accuracy:          p.Accuracy(),
			AvgResponseTimeMs: p.AvgResponseTimeMs(),
			AnsweredCount:     p.AnsweredCount,
			CorrectCount:      p.CorrectCount,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].AvgResponseTimeMs < entries[j].AvgResponseTimeMs
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
