package consensus

import (
	"strings"
	"unicode"

	"github.com/hyperdag/routing-plane/models"
)

// clusterSimilarityThreshold is the minimum pairwise similarity for two
// responses to land in the same cluster.
const clusterSimilarityThreshold = 0.5

// largestCluster groups responses by token similarity and returns the
// largest group together with its mean pairwise similarity. A single-member
// cluster has similarity 1.
func largestCluster(responses []models.ProviderResponse) ([]models.ProviderResponse, float64) {
	tokenSets := make([]map[string]bool, len(responses))
	for i, r := range responses {
		tokenSets[i] = tokenize(r.Response)
	}

	// Greedy clustering: each response joins the first cluster whose seed it
	// resembles, otherwise starts its own.
	var clusters [][]int
	for i := range responses {
		placed := false
		for ci, members := range clusters {
			if jaccard(tokenSets[members[0]], tokenSets[i]) >= clusterSimilarityThreshold {
				clusters[ci] = append(clusters[ci], i)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, []int{i})
		}
	}

	best := clusters[0]
	for _, c := range clusters[1:] {
		if len(c) > len(best) {
			best = c
		}
	}

	members := make([]models.ProviderResponse, len(best))
	for i, idx := range best {
		members[i] = responses[idx]
	}
	return members, meanPairwiseSimilarity(best, tokenSets)
}

// meanPairwiseSimilarity averages Jaccard similarity over all member pairs.
func meanPairwiseSimilarity(members []int, tokenSets []map[string]bool) float64 {
	if len(members) < 2 {
		return 1
	}
	total, pairs := 0.0, 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			total += jaccard(tokenSets[members[i]], tokenSets[members[j]])
			pairs++
		}
	}
	return total / float64(pairs)
}

// jaccard computes |a ∩ b| / |a ∪ b| over token sets.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	intersection := 0
	for tok := range a {
		if b[tok] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// tokenize lowercases the text and splits it into a set of alphanumeric
// tokens.
func tokenize(text string) map[string]bool {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		set[tok] = true
	}
	return set
}
