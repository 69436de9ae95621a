package services

import (
	"sort"

	"github.com/HSouheill/leadbridge_admin/models"
)

// HighestTierReached returns the tier with the largest leadsRequired that count satisfies.
// Tiers with a non-positive threshold never qualify. ok is false when no tier is reached.
func HighestTierReached(tiers []models.LevelTier, count int) (tier models.LevelTier, ok bool) {
	sorted := make([]models.LevelTier, 0, len(tiers))
	for _, t := range tiers {
		if t.LeadsRequired > 0 {
			sorted = append(sorted, t)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LeadsRequired < sorted[j].LeadsRequired
	})

	for _, t := range sorted {
		if t.LeadsRequired > count {
			break
		}
		tier, ok = t, true
	}
	return tier, ok
}
