package venue

import (
	"regexp"
	"strings"
)

// SuffixNouns are generic venue-type words stripped from the end of a name.
var SuffixNouns = []string{
	"bar", "pub", "club", "venue", "hall", "hotel",
	"theatre", "theater", "lounge", "room", "warehouse",
}

// Cities are stripped when they appear as the final word of a name.
var Cities = []string{
	"edinburgh", "glasgow", "aberdeen", "dundee", "inverness",
	"perth", "stirling", "paisley", "falkirk", "leith",
}

var (
	upstairsPrefix = regexp.MustCompile(`^upstairs\s+(at\s+)?`)
	articlePrefix  = regexp.MustCompile(`^the\s+`)
	nonAlnum       = regexp.MustCompile(`[^a-z0-9\s]`)
	conjunction    = regexp.MustCompile(`\s(and|n)\s`)
	multiSpace     = regexp.MustCompile(`\s+`)
	pluralWord     = regexp.MustCompile(`([a-rt-z0-9])s\b`)

	suffixSet = toSet(SuffixNouns)
	citySet   = toSet(Cities)
)

// Normalize canonicalizes a venue name so that independently entered names
// for the same physical place collapse to one key ("The Voodoo Rooms",
// "Upstairs at the Voodoo Rooms" -> "voodoo room").
//
// Normalize is idempotent: the pipeline is re-applied until the output stops
// changing. A trailing venue noun is only stripped while at least two words
// remain, so a two-word name such as "Voodoo Room" keeps its noun and stays a
// fixed point. Unusable input yields "".
func Normalize(raw string) string {
	name := raw
	// Every pass either leaves the string alone or shortens it.
	for i := 0; i <= len(raw); i++ {
		next := normalizeOnce(name)
		if next == name {
			return next
		}
		name = next
	}
	return name
}

func normalizeOnce(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = upstairsPrefix.ReplaceAllString(s, "")
	s = articlePrefix.ReplaceAllString(s, "")
	s = nonAlnum.ReplaceAllString(s, "")

	// " and " / " n " overlap on shared spaces, so run until stable.
	for conjunction.MatchString(s) {
		s = conjunction.ReplaceAllString(s, " ")
	}
	s = strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))

	words := strings.Fields(s)
	for len(words) > 2 && suffixSet[words[len(words)-1]] {
		words = words[:len(words)-1]
	}

	s = pluralWord.ReplaceAllString(strings.Join(words, " "), "$1")

	words = strings.Fields(s)
	if len(words) > 1 && citySet[words[len(words)-1]] {
		words = words[:len(words)-1]
	}

	return strings.TrimSpace(strings.Join(words, " "))
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
