package risk

import (
	"strings"
	"testing"
)

func TestClassify_Low(t *testing.T) {
	if got := Classify("Hello, welcome to the show."); got != Low {
		t.Errorf("Classify = %v, want Low", got)
	}
}

func TestClassify_MediumOnLength(t *testing.T) {
	text := strings.Repeat("a", 9001)
	if got := Classify(text); got != Medium {
		t.Errorf("Classify = %v, want Medium", got)
	}
}

func TestClassify_HighOnMarkers(t *testing.T) {
	text := "Our API uses HTTP over TLS with a SQL backend and JWT auth, costing $12.50 per GB under Article 5 of the Regulation, dosed at 5mg per patient."
	if got := Classify(text); got != High {
		t.Errorf("Classify = %v, want High", got)
	}
}
