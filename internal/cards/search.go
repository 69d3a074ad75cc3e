package cards

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/pindropapp/pindrop-backend/pkg/db/models"
)

// similarity returns a normalized match score in [0, 1], where 1 is an exact
// case-insensitive match.
func similarity(value, query string) float64 {
	a := strings.ToLower(strings.TrimSpace(value))
	b := strings.ToLower(strings.TrimSpace(query))
	if a == "" && b == "" {
		return 1
	}

	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}

	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// matchScore rates a card against the query by the closer of its two names.
func matchScore(card *models.Card, query string) float64 {
	to := similarity(card.ToName, query)
	from := similarity(card.FromName, query)
	if from > to {
		return from
	}
	return to
}

// rankByQuery orders cards by descending match score. The sort is stable, so
// equally scored cards keep their incoming (newest first) order.
func rankByQuery(cards []models.Card, query string) []models.Card {
	type scored struct {
		card  models.Card
		score float64
	}

	ranked := make([]scored, 0, len(cards))
	for i := range cards {
		ranked = append(ranked, scored{card: cards[i], score: matchScore(&cards[i], query)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]models.Card, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, s.card)
	}
	return out
}
