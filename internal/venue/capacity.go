package venue

// knownCapacities lists capacities for regular venues that listings rarely
// carry. Keys are normalized names.
var knownCapacities = map[string]int{
	"sneaky pete":          100,
	"voodoo room":          300,
	"banshee labyrinth":    200,
	"bannerman":            120,
	"cabaret voltaire":     350,
	"liquid room":          800,
	"usher hall":           2200,
	"queen hall":           900,
	"leith depot":          120,
	"mash house":           250,
	"king tut wah wah hut": 300,
	"nice sleazy":          200,
	"barrowland ballroom":  1900,
	"st luke":              500,
	"stereo":               300,
	"broadcast":            150,
	"garage":               700,
	"cathouse rock":        450,
	"tunnel":               600,
	"lemon tree":           550,
	"beat generator":       150,
	"cluny":                300,
}

// KnownCapacity returns the listed capacity for a venue name, or 0 when the
// venue is not in the list.
func KnownCapacity(name string) int {
	return knownCapacities[Normalize(name)]
}
