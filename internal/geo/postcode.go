package geo

import (
	"strings"
	"unicode"
)

// DefaultKey is the table entry used for unknown postcodes.
const DefaultKey = "DEFAULT"

// centroids maps outward-code prefixes to district centroids.
var centroids = map[string]Point{
	"EH1":  {55.9520, -3.1880},
	"EH2":  {55.9545, -3.1960},
	"EH3":  {55.9500, -3.2050},
	"EH6":  {55.9700, -3.1720},
	"EH7":  {55.9590, -3.1730},
	"EH8":  {55.9470, -3.1750},
	"EH9":  {55.9350, -3.1850},
	"EH10": {55.9250, -3.2100},
	"EH11": {55.9380, -3.2350},
	"EH12": {55.9430, -3.2700},
	"EH":   {55.9533, -3.1883},
	"G1":   {55.8600, -4.2500},
	"G2":   {55.8625, -4.2590},
	"G3":   {55.8650, -4.2800},
	"G4":   {55.8700, -4.2500},
	"G11":  {55.8730, -4.3100},
	"G12":  {55.8800, -4.2950},
	"G":    {55.8642, -4.2518},
	"AB10": {57.1400, -2.1100},
	"AB11": {57.1420, -2.0900},
	"AB":   {57.1497, -2.0943},
	"DD1":  {56.4620, -2.9700},
	"DD":   {56.4620, -2.9707},
	"IV1":  {57.4800, -4.2250},
	"IV":   {57.4778, -4.2247},
	"PH1":  {56.3960, -3.4370},
	"PH":   {56.3950, -3.4308},
	"FK8":  {56.1200, -3.9400},
	"FK":   {56.0019, -3.7839},
	"KY16": {56.3398, -2.7967},
	"KY":   {56.1100, -3.1600},
	"PA1":  {55.8450, -4.4230},
	"PA":   {55.8456, -4.4239},
	"ML":   {55.7800, -3.9800},
	DefaultKey: {55.9533, -3.1883},
}

// OutwardCode extracts the uppercase outward part of a postcode, e.g.
// "eh1 1ab" -> "EH1" and "G25AB" -> "G2".
func OutwardCode(postcode string) string {
	pc := strings.ToUpper(strings.TrimSpace(postcode))
	if pc == "" {
		return ""
	}
	if i := strings.IndexFunc(pc, unicode.IsSpace); i > 0 {
		return pc[:i]
	}
	// A full postcode without a space always ends in a three-character inward code.
	if len(pc) >= 5 {
		return pc[:len(pc)-3]
	}
	return pc
}

// ResolvePostcode returns the centroid for a postcode. It tries the full
// outward code, then the area letters alone ("EH13" -> "EH"). Unknown
// postcodes resolve to the DEFAULT centroid with ok=false.
func ResolvePostcode(postcode string) (Point, bool) {
	code := OutwardCode(postcode)
	if code == "" || code == DefaultKey {
		return centroids[DefaultKey], false
	}
	if p, found := centroids[code]; found {
		return p, true
	}
	if p, found := centroids[areaLetters(code)]; found {
		return p, true
	}
	return centroids[DefaultKey], false
}

func areaLetters(code string) string {
	if i := strings.IndexFunc(code, unicode.IsDigit); i >= 0 {
		return code[:i]
	}
	return code
}

// cityAreas maps town names to the outward code whose centroid stands in for
// the town centre.
var cityAreas = map[string]string{
	"edinburgh":  "EH",
	"leith":      "EH6",
	"glasgow":    "G",
	"aberdeen":   "AB",
	"dundee":     "DD",
	"inverness":  "IV",
	"perth":      "PH",
	"stirling":   "FK8",
	"falkirk":    "FK",
	"st andrews": "KY16",
	"paisley":    "PA1",
}

// ResolveCity returns the centroid for a town name, matched
// case-insensitively. Unknown towns resolve to the DEFAULT centroid with
// ok=false.
func ResolveCity(name string) (Point, bool) {
	key := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	if code, found := cityAreas[key]; found {
		return centroids[code], true
	}
	return centroids[DefaultKey], false
}
