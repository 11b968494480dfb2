package match

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}

// BestMatch scores name against every candidate and returns the highest
// scoring candidate with its similarity. An empty candidate list or an
// untokenizable name returns ("", 0).
func BestMatch(name string, candidates []string) (string, float64) {
	target := NewFingerprint(name)
	if target == nil {
		return "", 0
	}
	var (
		best      string
		bestScore float64
	)
	for _, candidate := range candidates {
		score := CosineSimilarity(target, NewFingerprint(candidate))
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best, bestScore
}
