package services

import (
	"sort"
	"strings"

	"github.com/saeid-a/AlumniNetworkBack/internal/models"
)

const (
	mutualConnectionScore = 10
	maxMutualScore        = 50
	crossRoleScore        = 30
	sameDepartmentScore   = 20
	nearbyCohortScore     = 10
	nearbyCohortYears     = 2
)

// rankRecommendations scores every candidate against the user and orders them
// best match first. Ties fall back to name, then email, so the order is stable
// between calls.
func rankRecommendations(user *models.User, candidates []models.User, mutual map[string]int) []models.RecommendedUser {
	ranked := make([]models.RecommendedUser, 0, len(candidates))
	for i := range candidates {
		candidate := &candidates[i]
		ranked = append(ranked, models.RecommendedUser{
			UserProjection:    models.ProjectUser(candidate),
			MutualConnections: mutual[candidate.Email],
			MatchScore:        calculateMatchScore(user, candidate, mutual[candidate.Email]),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MatchScore != ranked[j].MatchScore {
			return ranked[i].MatchScore > ranked[j].MatchScore
		}
		if ranked[i].Name != ranked[j].Name {
			return ranked[i].Name < ranked[j].Name
		}
		return ranked[i].Email < ranked[j].Email
	})
	return ranked
}

func calculateMatchScore(user, candidate *models.User, mutual int) int {
	score := mutual * mutualConnectionScore
	if score > maxMutualScore {
		score = maxMutualScore
	}
	if user == nil {
		return score
	}

	// Students and alumni are the pairing the network exists for.
	if user.Role != candidate.Role {
		score += crossRoleScore
	}
	if dept := normalize(stringValue(user.Department)); dept != "" && dept == normalize(stringValue(candidate.Department)) {
		score += sameDepartmentScore
	}
	if user.GraduationYear != nil && candidate.GraduationYear != nil {
		gap := intValue(user.GraduationYear) - intValue(candidate.GraduationYear)
		if gap < 0 {
			gap = -gap
		}
		if gap <= nearbyCohortYears {
			score += nearbyCohortScore
		}
	}
	return score
}

func normalize(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	value = strings.ReplaceAll(value, " ", "_")
	value = strings.ReplaceAll(value, "-", "_")
	return value
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func intValue(value *int) int {
	if value == nil {
		return 0
	}
	return *value
}
