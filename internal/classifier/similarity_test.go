package classifier

import "testing"

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{"exact match", "zomato", "zomato", 1.0},
		{"case and whitespace insensitive", "  ZOMATO  ", "zomato", 1.0},
		{"collapsed inner whitespace", "big  basket", "big basket", 1.0},
		{"containment lands in high band", "swiggy instamart", "swiggy", containmentScore},
		{"empty side scores zero", "", "zomato", 0},
		{"both empty scores zero", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Similarity(tt.a, tt.b); got != tt.want {
				t.Errorf("Similarity(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSimilarityRatioBands(t *testing.T) {
	// One edit in six runes.
	if got := Similarity("swigy", "swiggy"); got < merchantHighBand {
		t.Errorf("Similarity(swigy, swiggy) = %f, want >= %f", got, merchantHighBand)
	}

	// Unrelated strings stay below the fuzzy floor.
	if got := Similarity("netflix", "indian oil"); got >= fuzzyRuleFloor {
		t.Errorf("Similarity(netflix, indian oil) = %f, want < %f", got, fuzzyRuleFloor)
	}

	// Symmetry.
	if Similarity("amazon", "amazon pay") != Similarity("amazon pay", "amazon") {
		t.Error("Similarity should be symmetric")
	}
}
