// Package vibe maps open-ended genre tags onto the eight fixed "vibe"
// categories used for search filtering.
package vibe

import "strings"

// Vibe is one of the eight genre clusters shown in search.
type Vibe string

const (
	RockBluesPunk Vibe = "rock_blues_punk"
	IndieAlt      Vibe = "indie_alt"
	Metal         Vibe = "metal"
	Pop           Vibe = "pop"
	Electronic    Vibe = "electronic"
	HipHop        Vibe = "hiphop"
	Acoustic      Vibe = "acoustic"
	Classical     Vibe = "classical"
)

// Default is returned when no genre matches.
const Default = IndieAlt

// All lists every vibe in display order.
var All = []Vibe{RockBluesPunk, IndieAlt, Metal, Pop, Electronic, HipHop, Acoustic, Classical}

// Genre is a single genre tag as delivered by a listing source.
type Genre struct {
	Name string `json:"name"`
}

type mapping struct {
	genre string
	vibe  Vibe
}

// table is scanned in order for substring matches, so its order decides
// ambiguous genres such as "pop punk". Keep it a slice.
var table = []mapping{
	{"rock", RockBluesPunk},
	{"punk", RockBluesPunk},
	{"blues", RockBluesPunk},
	{"garage", RockBluesPunk},
	{"grunge", RockBluesPunk},
	{"hardcore", RockBluesPunk},
	{"ska", RockBluesPunk},
	{"rockabilly", RockBluesPunk},
	{"psych", RockBluesPunk},
	{"stoner", RockBluesPunk},
	{"classic rock", RockBluesPunk},
	{"rock and roll", RockBluesPunk},
	{"indie", IndieAlt},
	{"alternative", IndieAlt},
	{"alt", IndieAlt},
	{"shoegaze", IndieAlt},
	{"post-punk", IndieAlt},
	{"new wave", IndieAlt},
	{"emo", IndieAlt},
	{"math rock", IndieAlt},
	{"lo-fi", IndieAlt},
	{"experimental", IndieAlt},
	{"metal", Metal},
	{"heavy metal", Metal},
	{"death metal", Metal},
	{"black metal", Metal},
	{"thrash", Metal},
	{"doom", Metal},
	{"metalcore", Metal},
	{"sludge", Metal},
	{"pop", Pop},
	{"synth-pop", Pop},
	{"disco", Pop},
	{"soul", Pop},
	{"funk", Pop},
	{"r&b", Pop},
	{"motown", Pop},
	{"tribute", Pop},
	{"covers", Pop},
	{"musical theatre", Pop},
	{"electronic", Electronic},
	{"techno", Electronic},
	{"house", Electronic},
	{"drum and bass", Electronic},
	{"dnb", Electronic},
	{"dubstep", Electronic},
	{"trance", Electronic},
	{"edm", Electronic},
	{"ambient", Electronic},
	{"garage house", Electronic},
	{"hip hop", HipHop},
	{"hip-hop", HipHop},
	{"rap", HipHop},
	{"grime", HipHop},
	{"drill", HipHop},
	{"reggae", HipHop},
	{"folk", Acoustic},
	{"acoustic", Acoustic},
	{"singer-songwriter", Acoustic},
	{"country", Acoustic},
	{"americana", Acoustic},
	{"bluegrass", Acoustic},
	{"trad", Acoustic},
	{"ceilidh", Acoustic},
	{"jazz", Classical},
	{"classical", Classical},
	{"orchestra", Classical},
	{"opera", Classical},
	{"choral", Classical},
	{"chamber", Classical},
}

var exact = func() map[string]Vibe {
	m := make(map[string]Vibe, len(table))
	for _, e := range table {
		if _, dup := m[e.genre]; !dup {
			m[e.genre] = e.vibe
		}
	}
	return m
}()

// MapGenreToVibe returns the vibe for the first genre in the list that
// matches the table. Each genre is tried as an exact match first and then as
// a substring in either direction against every table entry in order.
// Blank genres are ignored. The result is always one of the eight vibes.
func MapGenreToVibe(genres []Genre) Vibe {
	for _, g := range genres {
		name := strings.ToLower(strings.TrimSpace(g.Name))
		if name == "" {
			continue
		}
		if v, ok := exact[name]; ok {
			return v
		}
		for _, e := range table {
			if strings.Contains(e.genre, name) || strings.Contains(name, e.genre) {
				return e.vibe
			}
		}
	}
	return Default
}

// FromText maps a free-text genre field such as "Rock / Blues, Punk".
func FromText(text string) Vibe {
	return MapGenreToVibe(SplitGenres(text))
}

// SplitGenres breaks a free-text genre field into tags.
func SplitGenres(text string) []Genre {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '/' || r == ';' || r == '|'
	})
	genres := make([]Genre, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			genres = append(genres, Genre{Name: p})
		}
	}
	return genres
}

// Parse validates a vibe supplied as a query parameter.
func Parse(s string) (Vibe, bool) {
	candidate := Vibe(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range All {
		if v == candidate {
			return v, true
		}
	}
	return "", false
}

// Label returns a human-readable name for a vibe.
func (v Vibe) Label() string {
	switch v {
	case RockBluesPunk:
		return "Rock, Blues & Punk"
	case IndieAlt:
		return "Indie & Alternative"
	case Metal:
		return "Metal"
	case Pop:
		return "Pop"
	case Electronic:
		return "Electronic"
	case HipHop:
		return "Hip-Hop"
	case Acoustic:
		return "Acoustic & Folk"
	case Classical:
		return "Classical & Jazz"
	default:
		return string(v)
	}
}
