package needs

import (
	"testing"
	"time"

	statex "github.com/laserhenk/henk-agent/agent/state"
)

func TestApplySuitChoice(t *testing.T) {
	t.Parallel()

	boolPtr := func(v bool) *bool { return &v }

	tests := []struct {
		name          string
		input         string
		wantPieces    string
		wantVest      *bool
		wantConfirmed bool
	}{
		{name: "two piece word", input: "einen zweiteiler bitte", wantPieces: "two_piece"},
		{name: "three piece hyphen", input: "ich nehme den 3-teiler", wantPieces: "three_piece"},
		{name: "bare two", input: "2", wantPieces: "two_piece"},
		{name: "with vest", input: "gerne mit weste", wantVest: boolPtr(true)},
		{name: "without vest", input: "bitte ohne weste", wantVest: boolPtr(false)},
		{name: "both at once", input: "dreiteiler mit weste", wantPieces: "three_piece", wantVest: boolPtr(true), wantConfirmed: true},
		{name: "nothing parsed", input: "mal sehen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			session := statex.NewSessionState("s", time.Now())
			applySuitChoice(session, tt.input)

			if session.Progress.SuitPieces != tt.wantPieces {
				t.Fatalf("suit pieces = %q, want %q", session.Progress.SuitPieces, tt.wantPieces)
			}
			got := session.DesignPreferences.WantsVest
			switch {
			case tt.wantVest == nil && got != nil:
				t.Fatalf("wants vest = %v, want unset", *got)
			case tt.wantVest != nil && (got == nil || *got != *tt.wantVest):
				t.Fatalf("wants vest = %#v, want %v", got, *tt.wantVest)
			}
			if session.Progress.CutConfirmed != tt.wantConfirmed {
				t.Fatalf("cut confirmed = %v, want %v", session.Progress.CutConfirmed, tt.wantConfirmed)
			}
		})
	}
}

func TestApplySuitChoiceNeverOverwrites(t *testing.T) {
	t.Parallel()

	session := statex.NewSessionState("s", time.Now())
	session.Progress.SuitPieces = "three_piece"

	applySuitChoice(session, "doch lieber einen zweiteiler")
	if session.Progress.SuitPieces != "three_piece" {
		t.Fatalf("suit pieces = %q, want three_piece kept", session.Progress.SuitPieces)
	}
}

func TestDetectFabricChoice(t *testing.T) {
	t.Parallel()

	shown := shownPair()

	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "by code", input: "der lp-120 gefällt mir", want: 1},
		{name: "by number word", input: "nummer 1 bitte", want: 0},
		{name: "by nr abbreviation", input: "nr. 2", want: 1},
		{name: "bare digit", input: "die 2", want: 1},
		{name: "ordinal", input: "der erste", want: 0},
		{name: "ordinal declined", input: "den zweiten bitte", want: 1},
		{name: "right", input: "der rechts", want: 1},
		{name: "left", input: "der linke stoff", want: 0},
		{name: "out of range clamps", input: "nummer 9", want: 1},
		{name: "no choice", input: "beide schön", want: -1},
		{name: "empty", input: "", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := detectFabricChoice(tt.input, shown); got != tt.want {
				t.Fatalf("detectFabricChoice(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractColorsUsesCatalogVocabulary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "blau maps to navy", input: "gerne in blau", want: []string{"navy"}},
		{name: "dunkelblau not doubled", input: "dunkelblau oder navy", want: []string{"navy"}},
		{name: "hellgrau beats grau", input: "eher hellgrau", want: []string{"hellgrau"}},
		{name: "bordeaux maps to braun", input: "bordeaux wäre toll", want: []string{"braun"}},
		{name: "multiple", input: "schwarz oder beige", want: []string{"schwarz", "beige"}},
		{name: "none", input: "etwas elegantes", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := extractColors(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("extractColors(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("extractColors(%q) = %#v, want %#v", tt.input, got, tt.want)
				}
			}
		})
	}
}

func TestExtractPatternsWordBoundary(t *testing.T) {
	t.Parallel()

	if got := extractPatterns("im juni bitte"); len(got) != 0 {
		t.Fatalf("juni must not read as uni, got %#v", got)
	}
	got := extractPatterns("gerne uni oder fischgrat")
	if len(got) != 2 || got[0] != "fischgrat" || got[1] != "uni" {
		t.Fatalf("extractPatterns() = %#v, want [fischgrat uni]", got)
	}
}

func TestExtractBudget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		want     float64
		wantNone bool
	}{
		{name: "amount with euro sign", input: "so um 2000€ gedacht", want: 2000},
		{name: "amount with euro word", input: "maximal 1800 euro", want: 1800},
		{name: "budget prefix", input: "mein budget liegt bei 2500", want: 2500},
		{name: "explicitly none", input: "ich habe kein budget festgelegt", wantNone: true},
		{name: "bare number ignored", input: "in 6 wochen brauche ich ihn", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, none := extractBudget(tt.input)
			if got != tt.want || none != tt.wantNone {
				t.Fatalf("extractBudget(%q) = (%v, %v), want (%v, %v)", tt.input, got, none, tt.want, tt.wantNone)
			}
		})
	}
}

func TestIsNewFabricSearch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "explicit trigger", input: "zeig mehr davon", want: true},
		{name: "rejection with color", input: "nein, lieber in grau", want: true},
		{name: "rejection without color", input: "nein danke", want: false},
		{name: "color without rejection", input: "grau ist schön", want: false},
		{name: "ne inside a word", input: "eine feine auswahl", want: false},
		{name: "rejection with shade word", input: "nicht so hell bitte", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := isNewFabricSearch(tt.input); got != tt.want {
				t.Fatalf("isNewFabricSearch(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCaptureContact(t *testing.T) {
	t.Parallel()

	session := statex.NewSessionState("s", time.Now())
	if !captureContact(session, "erreichbar unter max@example.com oder +49 170 1234567") {
		t.Fatal("captureContact() = false, want true")
	}
	if session.Customer.Email != "max@example.com" {
		t.Fatalf("email = %q", session.Customer.Email)
	}
	if session.Customer.Phone == "" {
		t.Fatal("phone not captured")
	}
	if session.Progress.Contact != statex.ContactProvided {
		t.Fatalf("contact status = %q, want provided", session.Progress.Contact)
	}
}

func TestCaptureContactKeepsDecline(t *testing.T) {
	t.Parallel()

	session := statex.NewSessionState("s", time.Now())
	session.Progress.Contact = statex.ContactDeclined

	captureContact(session, "na gut: max@example.com")
	if session.Customer.Email != "max@example.com" {
		t.Fatalf("email = %q", session.Customer.Email)
	}
	if session.Progress.Contact != statex.ContactDeclined {
		t.Fatalf("contact status = %q, want declined kept", session.Progress.Contact)
	}
}
