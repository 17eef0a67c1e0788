package venue

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"upstairs prefix with article and plural", "Upstairs at The Voodoo Rooms", "voodoo room"},
		{"upstairs prefix without at", "Upstairs Sneaky Pete's", "sneaky pete"},
		{"leading article", "The Banshee Labyrinth", "banshee labyrinth"},
		{"punctuation removed", "Sneaky Pete's", "sneaky pete"},
		{"and conjunction", "Rock and Roll Bar & Grill", "rock roll bar grill"},
		{"n conjunction", "Nice N Sleazy", "nice sleazy"},
		{"trailing suffix noun", "Cathouse Rock Club", "cathouse rock"},
		{"repeated suffix nouns", "Leith Depot Bar Lounge", "leith depot"},
		{"two word name keeps its noun", "Liquid Room", "liquid room"},
		{"trailing city", "Stereo Cafe Glasgow", "stereo cafe"},
		{"city after suffix", "Mash House Bar Edinburgh", "mash house"},
		{"city only name kept", "Glasgow", "glasgow"},
		{"whitespace collapsed", "  The   Mash    House  ", "mash house"},
		{"double s is not a plural", "Bass Cave", "bass cave"},
		{"mixed case", "KING TUT'S WAH WAH HUT", "king tut wah wah hut"},
		{"empty", "", ""},
		{"only punctuation", "!!!", ""},
		{"non ascii stripped", "Café Müller", "caf mller"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Upstairs at The Voodoo Rooms",
		"The Voodoo Rooms",
		"Big Red Rooms",
		"The The Venue",
		"'The Venue",
		"Stereo Bar Glasgow",
		"Big Red Bar Glasgow",
		"Edinburgh Glasgow",
		"Rock n Roll and Blues Hall",
		"Upstairs at the Upstairs Bar",
		"The Queen's Hall",
		"Bars Pubs Clubs",
		"Sneaky Pete's",
		"A",
		"s",
		"",
		"   ",
		"Barrowland Ballroom",
		"St. Luke's & The Winged Ox",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestIdentity(t *testing.T) {
	n1, c1 := Identity("The Voodoo Rooms", "Edinburgh ")
	n2, c2 := Identity("Upstairs at the Voodoo Rooms", "edinburgh")

	if n1 != n2 || c1 != c2 {
		t.Errorf("Identity mismatch: (%q, %q) vs (%q, %q)", n1, c1, n2, c2)
	}
	if c1 != "edinburgh" {
		t.Errorf("city = %q, want edinburgh", c1)
	}
}

func TestKnownCapacity(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"Sneaky Pete's", 100},
		{"The Voodoo Rooms", 300},
		{"King Tut's Wah Wah Hut", 300},
		{"Somewhere New", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KnownCapacity(tt.name); got != tt.want {
				t.Errorf("KnownCapacity(%q) = %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestVenue_Prepare(t *testing.T) {
	v := &Venue{Name: "  The Liquid Room ", City: " Edinburgh"}
	v.Prepare()

	if v.Name != "The Liquid Room" {
		t.Errorf("Name = %q", v.Name)
	}
	if v.NormalizedName != "liquid room" {
		t.Errorf("NormalizedName = %q, want liquid room", v.NormalizedName)
	}
	if v.City != "Edinburgh" {
		t.Errorf("City = %q", v.City)
	}
	if v.Capacity != 800 {
		t.Errorf("Capacity = %d, want 800 from the known list", v.Capacity)
	}
}
