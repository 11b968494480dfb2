package match

import "testing"

func TestCosineSimilarityIdenticalNames(t *testing.T) {
	a := NewFingerprint("Some.Show.S01.1080p.WEB-DL")
	b := NewFingerprint("Some.Show.S01.1080p.WEB-DL")
	if score := CosineSimilarity(a, b); score < 0.999 {
		t.Errorf("identical names should score ~1, got %v", score)
	}
}

func TestCosineSimilarityDisjointNames(t *testing.T) {
	a := NewFingerprint("Some.Show.S01")
	b := NewFingerprint("Entirely.Different.Thing")
	if score := CosineSimilarity(a, b); score != 0 {
		t.Errorf("disjoint names should score 0, got %v", score)
	}
}

func TestCosineSimilarityNilSafe(t *testing.T) {
	if score := CosineSimilarity(nil, NewFingerprint("abc")); score != 0 {
		t.Errorf("nil fingerprint should score 0, got %v", score)
	}
	if NewFingerprint("!!") != nil {
		t.Error("untokenizable text should produce nil fingerprint")
	}
}

func TestTokenizeKeepsReleaseQualifiers(t *testing.T) {
	tokens := Tokenize("Some.Show.S01E02.x265-GRP")
	want := map[string]bool{"some": true, "show": true, "s01e02": true, "x265": true, "grp": true}
	if len(tokens) != len(want) {
		t.Fatalf("unexpected tokens %v", tokens)
	}
	for _, tok := range tokens {
		if !want[tok] {
			t.Errorf("unexpected token %q", tok)
		}
	}
}

func TestBestMatchPicksRenamedDirectory(t *testing.T) {
	candidates := []string{
		"Another Show S02",
		"Some Show S01 1080p WEB-DL",
		"Random Movie 2019",
	}
	best, score := BestMatch("Some.Show.S01.1080p.WEB-DL", candidates)
	if best != "Some Show S01 1080p WEB-DL" {
		t.Fatalf("expected renamed directory to win, got %q (%v)", best, score)
	}
	if score < 0.85 {
		t.Errorf("expected score above threshold, got %v", score)
	}
}

func TestBestMatchEmptyCandidates(t *testing.T) {
	if best, score := BestMatch("anything", nil); best != "" || score != 0 {
		t.Errorf("expected zero result, got %q %v", best, score)
	}
}
