// Package parse implements the streaming XML state machine that turns
// a decompressed DAW project document into a ParseResult, without ever
// materializing a DOM. Dispatch is a tag-identity state machine over
// encoding/xml's tokenizer, never reflection or virtual dispatch.
package parse

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Version is the project's schema version. The publicly reported Major is
// taken from the MinorVersion attribute's integer prefix, not from the raw
// MajorVersion attribute.
type Version struct {
	Major int
	Minor int
	Patch int
	Beta  bool
}

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Beta {
		s += "-beta"
	}
	return s
}

// TimeSignature is a numerator/denominator pair. Valid iff Numerator is in
// [1,99] and Denominator is one of {1,2,4,8,16}.
type TimeSignature struct {
	Numerator   int
	Denominator int
}

// Valid reports whether t satisfies the time-signature validity rule.
func (t TimeSignature) Valid() bool {
	if t.Numerator < 1 || t.Numerator > 99 {
		return false
	}
	switch t.Denominator {
	case 1, 2, 4, 8, 16:
		return true
	default:
		return false
	}
}

// Tonic is one of the 12 chromatic pitch classes.
type Tonic int

const (
	TonicC Tonic = iota
	TonicCSharp
	TonicD
	TonicDSharp
	TonicE
	TonicF
	TonicFSharp
	TonicG
	TonicGSharp
	TonicA
	TonicASharp
	TonicB
)

var tonicNames = [12]string{
	"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B",
}

func (t Tonic) String() string {
	if t < 0 || int(t) >= len(tonicNames) {
		return "?"
	}
	return tonicNames[t]
}

// TonicFromPitchClass maps a MIDI pitch class (0..11) to a Tonic.
func TonicFromPitchClass(pc int) (Tonic, bool) {
	if pc < 0 || pc > 11 {
		return 0, false
	}
	return Tonic(pc), true
}

// Scale is one of the enumerated modes recognized from a project's
// ScaleInformation/Name attribute.
type Scale int

const (
	ScaleMajor Scale = iota
	ScaleMinor
	ScaleDorian
	ScalePhrygian
	ScaleLydian
	ScaleMixolydian
	ScaleLocrian
	ScaleMinorPentatonic
	ScaleMajorPentatonic
	ScaleWholeTone
	ScaleChromatic
)

var scaleNames = map[string]Scale{
	"Major":            ScaleMajor,
	"Minor":            ScaleMinor,
	"Dorian":           ScaleDorian,
	"Phrygian":         ScalePhrygian,
	"Lydian":           ScaleLydian,
	"Mixolydian":       ScaleMixolydian,
	"Locrian":          ScaleLocrian,
	"Minor Pentatonic": ScaleMinorPentatonic,
	"Major Pentatonic": ScaleMajorPentatonic,
	"Whole Tone":       ScaleWholeTone,
	"Chromatic":        ScaleChromatic,
}

func (s Scale) String() string {
	for name, v := range scaleNames {
		if v == s {
			return name
		}
	}
	return "Unknown"
}

// ParseScale resolves a raw scale name read from XML to a Scale. ok is
// false for names the parser does not recognize. The name is normalized to
// NFC first since different OS locales can write the same scale name with
// combining-character sequences that would otherwise miss scaleNames.
func ParseScale(name string) (Scale, bool) {
	s, ok := scaleNames[norm.NFC.String(name)]
	return s, ok
}

// KeySignature is an optional (Tonic, Scale) pair recorded when a v12+
// project reports at least one in-key clip.
type KeySignature struct {
	Tonic Tonic
	Scale Scale
}

// PluginFormat is one of the four variants derived from a device
// identifier's vst/vst3 and audiofx/instr segments.
type PluginFormat int

const (
	FormatVST2Instrument PluginFormat = iota
	FormatVST2Effect
	FormatVST3Instrument
	FormatVST3Effect
)

func (f PluginFormat) String() string {
	switch f {
	case FormatVST2Instrument:
		return "VST2-Instrument"
	case FormatVST2Effect:
		return "VST2-Effect"
	case FormatVST3Instrument:
		return "VST3-Instrument"
	case FormatVST3Effect:
		return "VST3-Effect"
	default:
		return "Unknown"
	}
}

// Plugin is one device discovered in a project, keyed by its device
// identifier within this parse. Canonicalization against the catalog's
// global plugin table happens in the catalog layer, not here.
//
// Vendor, Version, SDKVersion and Flags are nil unless a plugin registry
// lookup enriched this plugin after parsing; the parser itself never
// populates them.
type Plugin struct {
	DeviceID   string
	Name       string
	Format     PluginFormat
	Vendor     *string
	Version    *string
	SDKVersion *string
	Flags      *string
}

// Sample is one referenced audio file discovered in a project.
type Sample struct {
	Path      string
	Name      string
	IsPresent bool
}

// Result is the complete output of one parse: everything the catalog layer
// needs to canonicalize and insert, plus the version and musical fields
// that land directly on the project row.
type Result struct {
	Version         Version
	Tempo           float64
	TimeSignature   TimeSignature
	KeySignature    *KeySignature // nil when no clip recorded one
	FurthestBar     *float64      // nil when no CurrentEnd was seen
	Plugins         []Plugin
	Samples         []Sample
}

// DurationSeconds derives the estimated project duration from furthest bar,
// time signature, and tempo. It returns (0, false) unless both tempo>0 and
// FurthestBar is present.
func (r Result) DurationSeconds() (float64, bool) {
	if r.Tempo <= 0 || r.FurthestBar == nil {
		return 0, false
	}
	return (*r.FurthestBar * float64(r.TimeSignature.Numerator) * 60) / r.Tempo, true
}
