package scoring

import (
	"sort"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-course-api/internal/models"
)

// SimilarityThreshold is the Jaccard similarity a peer must exceed to count
// as similar.
const SimilarityThreshold = 0.3

// DefaultTopN bounds recommendation lists when no limit is configured.
const DefaultTopN = 10

const recommendationReason = "Recommended based on similar students' preferences"

// Peer is another student's enrollment set.
type Peer struct {
	StudentID uuid.UUID
	ClassIDs  []uuid.UUID
}

// Candidate is a class that may be recommended.
type Candidate struct {
	ClassID uuid.UUID
	Name    string
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when both are empty.
func Jaccard(a, b []uuid.UUID) float64 {
	setA := make(map[uuid.UUID]struct{}, len(a))
	for _, id := range a {
		setA[id] = struct{}{}
	}
	setB := make(map[uuid.UUID]struct{}, len(b))
	for _, id := range b {
		setB[id] = struct{}{}
	}
	intersection := 0
	for id := range setA {
		if _, ok := setB[id]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Recommend ranks candidates the student has not taken by the share of
// similar peers enrolled in each. Zero scores are dropped; ties are ordered
// by class name, then id.
func Recommend(studentID uuid.UUID, enrolled []uuid.UUID, peers []Peer, candidates []Candidate, topN int) []models.ClassRecommendation {
	if topN <= 0 {
		topN = DefaultTopN
	}
	var similar []map[uuid.UUID]struct{}
	for _, peer := range peers {
		if peer.StudentID == studentID {
			continue
		}
		if Jaccard(enrolled, peer.ClassIDs) > SimilarityThreshold {
			set := make(map[uuid.UUID]struct{}, len(peer.ClassIDs))
			for _, id := range peer.ClassIDs {
				set[id] = struct{}{}
			}
			similar = append(similar, set)
		}
	}
	if len(similar) == 0 {
		return []models.ClassRecommendation{}
	}

	taken := make(map[uuid.UUID]struct{}, len(enrolled))
	for _, id := range enrolled {
		taken[id] = struct{}{}
	}
	out := make([]models.ClassRecommendation, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := taken[c.ClassID]; ok {
			continue
		}
		count := 0
		for _, set := range similar {
			if _, ok := set[c.ClassID]; ok {
				count++
			}
		}
		if count == 0 {
			continue
		}
		out = append(out, models.ClassRecommendation{
			ClassID:             c.ClassID,
			ClassName:           c.Name,
			RecommendationScore: float64(count) / float64(len(similar)),
			Reason:              recommendationReason,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RecommendationScore != out[j].RecommendationScore {
			return out[i].RecommendationScore > out[j].RecommendationScore
		}
		if out[i].ClassName != out[j].ClassName {
			return out[i].ClassName < out[j].ClassName
		}
		return out[i].ClassID.String() < out[j].ClassID.String()
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}
