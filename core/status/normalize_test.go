package status

import "testing"

func TestNormalizeHistoricalSpellings(t *testing.T) {
	cases := map[string]Display{
		"PUBLIEE":     Publiee,
		"Published":   Publiee,
		"publiée":     Publiee,
		"bloqué":      Bloque,
		"BLOQUEE":     Bloque,
		"DONE":        Termine,
		"Terminé":     Termine,
		"clôturée":    Termine,
		"en cours":    EnCours,
		"EN_COURS":    EnCours,
		"In Progress": EnCours,
		"Assignée":    Assignee,
		"attribuée":   Assignee,
		"Nouveau":     Nouveau,
		"draft":       Nouveau,
		"":            Nouveau,
		"  ":          Nouveau,
		"garbage-☃":   Nouveau,
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"PUBLIEE", "Published", "bloqué", "DONE", "", "en route", "whatever"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once.String()); twice != once {
			t.Errorf("Normalize not idempotent for %q: %v then %v", in, once, twice)
		}
	}
	// Every canonical spelling must map back to itself.
	for d := Nouveau; d <= Termine; d++ {
		if got := Normalize(d.String()); got != d {
			t.Errorf("canonical %q normalizes to %v", d.String(), got)
		}
	}
}

func TestLifecycleDisplay(t *testing.T) {
	cases := map[Lifecycle]Display{
		Draft:      Nouveau,
		Published:  Publiee,
		Assigned:   Assignee,
		Scheduled:  Assignee,
		EnRoute:    EnCours,
		InProgress: EnCours,
		Paused:     Bloque,
		Completed:  Termine,
		Invoiced:   Termine,
		Closed:     Termine,
		Cancelled:  Termine,
	}
	for lc, want := range cases {
		if got := lc.Display(); got != want {
			t.Errorf("%v.Display() = %v, want %v", lc, got, want)
		}
	}
}

func TestParseLifecycleRoundTrip(t *testing.T) {
	for st := Draft; st <= Cancelled; st++ {
		if got := ParseLifecycle(st.String()); got != st {
			t.Errorf("ParseLifecycle(%q) = %v", st.String(), got)
		}
	}
	if got := ParseLifecycle("bogus"); got != Draft {
		t.Errorf("ParseLifecycle(bogus) = %v, want Draft", got)
	}
}
