package parse

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/fauli/dawidx/internal/util"
)

// parser holds the single-pass state machine over a project document. It wraps
// encoding/xml's token-based Decoder; dispatch is entirely by tag
// identity, never by reflection or virtual calls, and the decompressed
// buffer is never assembled into a DOM.
type parser struct {
	dec *xml.Decoder

	pendingDeviceID *string // stashed from a BranchSourceContext look-ahead

	plugins   map[string]Plugin // keyed by device id; first writer wins
	pluginsIn []string          // insertion order, for deterministic output

	samples   map[string]Sample // keyed by absolute path
	samplesIn []string

	tempo         float64
	tempoSet      bool
	inTempoDepth  int // >0 while inside a <Tempo> element
	timeSignature TimeSignature
	tsSet         bool

	pendingNumerator   *int
	pendingDenominator *int

	keys         keyTally
	pendingScale keySigCandidate

	maxCurrentEnd *float64

	existsOnDisk func(path string) bool
}

// Option configures optional parser behavior, primarily for testing.
type Option func(*parser)

// WithExistsFunc overrides the presence-on-disk check samples use (the
// parser delegates to the real filesystem by default); tests substitute a
// stub so seed fixtures don't depend on real paths existing.
func WithExistsFunc(fn func(path string) bool) Option {
	return func(p *parser) { p.existsOnDisk = fn }
}

// Parse runs the streaming state machine over a decompressed XML buffer
// and produces a Result, or a parse error.
func Parse(xmlData []byte, opts ...Option) (Result, error) {
	dec := xml.NewDecoder(bytes.NewReader(xmlData))
	p := &parser{
		dec:          dec,
		plugins:      make(map[string]Plugin),
		samples:      make(map[string]Sample),
		existsOnDisk: defaultExists,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p.run()
}

func (p *parser) run() (Result, error) {
	version, err := p.readRootVersion()
	if err != nil {
		return Result{}, err
	}

	for {
		tok, err := p.dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", util.ErrXML, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "BranchSourceContext":
			deviceID, ok, err := p.lookAheadBranchSourceContext(start)
			if err != nil {
				return Result{}, err
			}
			if ok {
				id := deviceID
				p.pendingDeviceID = &id
			} else {
				p.pendingDeviceID = nil
			}

		case "PluginDesc":
			if p.pendingDeviceID != nil {
				deviceID := *p.pendingDeviceID
				p.pendingDeviceID = nil
				if err := p.parsePluginDesc(start, deviceID); err != nil {
					return Result{}, err
				}
			} else {
				if err := p.skip(start); err != nil {
					return Result{}, err
				}
			}

		case "SampleRef":
			if err := p.parseSampleRef(start, version); err != nil {
				return Result{}, err
			}

		case "Tempo":
			if err := p.parseTempo(start); err != nil {
				return Result{}, err
			}

		case "EnumEvent":
			if v, ok := attrInt(start, "Value"); ok {
				ts := DecodeEnumEvent(v)
				if ts.Valid() {
					p.timeSignature = ts
					p.tsSet = true
				}
			}

		case "Numerator":
			if v, ok := attrInt(start, "Value"); ok {
				p.pendingNumerator = &v
			}

		case "Denominator":
			if v, ok := attrInt(start, "Value"); ok {
				p.pendingDenominator = &v
			}
			p.flushExplicitTimeSignature()

		case "ScaleInformation":
			root, scale, ok, err := p.parseScaleInformation(start)
			if err != nil {
				return Result{}, err
			}
			if ok {
				p.pendingScale = keySigCandidate{tonic: root, scale: scale, ok: true}
			}

		case "IsInKey":
			if v, ok := attrBool(start, "Value"); ok && v {
				if p.pendingScale.ok {
					tonic, tok := TonicFromPitchClass(p.pendingScale.tonic)
					if tok {
						p.keys.record(KeySignature{Tonic: tonic, Scale: p.pendingScale.scale})
					}
				}
			}
			p.pendingScale = keySigCandidate{}

		case "CurrentEnd":
			if v, ok := attrFloat(start, "Value"); ok {
				if p.maxCurrentEnd == nil || v > *p.maxCurrentEnd {
					cp := v
					p.maxCurrentEnd = &cp
				}
			}

		default:
			if p.pendingDeviceID != nil {
				// Anything other than an immediately-following PluginDesc
				// breaks the adjacency contract.
				p.pendingDeviceID = nil
			}
		}
	}

	return p.finalize(version)
}

// keySigCandidate is the ScaleInformation reading awaiting a matching
// IsInKey confirmation.
type keySigCandidate struct {
	tonic int
	scale Scale
	ok    bool
}

func (p *parser) finalize(version Version) (Result, error) {
	if !p.tempoSet {
		p.tempo = 0.0
	}
	if p.tempo <= 0 {
		return Result{}, fmt.Errorf("invalid tempo value: %v: %w", p.tempo, util.ErrInvalidProject)
	}
	if !p.tsSet || !p.timeSignature.Valid() {
		return Result{}, fmt.Errorf("invalid time signature: %w", util.ErrInvalidProject)
	}

	var furthestBar *float64
	if p.maxCurrentEnd != nil && p.timeSignature.Numerator > 0 {
		fb := *p.maxCurrentEnd / float64(p.timeSignature.Numerator)
		furthestBar = &fb
	}

	var key *KeySignature
	if k, ok := p.keys.resolve(); ok {
		key = &k
	}

	plugins := make([]Plugin, 0, len(p.pluginsIn))
	for _, id := range p.pluginsIn {
		plugins = append(plugins, p.plugins[id])
	}
	samples := make([]Sample, 0, len(p.samplesIn))
	for _, path := range p.samplesIn {
		samples = append(samples, p.samples[path])
	}

	return Result{
		Version:       version,
		Tempo:         p.tempo,
		TimeSignature: p.timeSignature,
		KeySignature:  key,
		FurthestBar:   furthestBar,
		Plugins:       plugins,
		Samples:       samples,
	}, nil
}

func (p *parser) flushExplicitTimeSignature() {
	if p.pendingNumerator == nil || p.pendingDenominator == nil {
		return
	}
	ts := TimeSignature{Numerator: *p.pendingNumerator, Denominator: *p.pendingDenominator}
	if ts.Valid() {
		p.timeSignature = ts
		p.tsSet = true
	}
	p.pendingNumerator = nil
	p.pendingDenominator = nil
}

func (p *parser) parseTempo(start xml.StartElement) error {
	p.inTempoDepth++
	depth := 1
	for depth > 0 {
		tok, err := p.dec.Token()
		if err == io.EOF {
			return fmt.Errorf("%w: unexpected eof in Tempo", util.ErrXML)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", util.ErrXML, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "Manual" {
				if v, ok := attrStr(t, "Value"); ok {
					f, err := strconv.ParseFloat(v, 64)
					if err != nil {
						p.tempo = 0.0
					} else {
						p.tempo = f
					}
					p.tempoSet = true
				}
				if err := skipSubtree(p.dec); err != nil {
					return err
				}
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	p.inTempoDepth--
	return nil
}

// lookAheadBranchSourceContext consumes the entire BranchSourceContext
// subtree, collecting the BrowserContentPath sentinel and BranchDeviceId
// value, and reports whether a nested PluginDesc was seen (which
// disqualifies the whole block).
func (p *parser) lookAheadBranchSourceContext(start xml.StartElement) (string, bool, error) {
	var sentinel bool
	var deviceID string
	var hasDeviceID bool
	var nestedPluginDesc bool

	depth := 1
	for depth > 0 {
		tok, err := p.dec.Token()
		if err == io.EOF {
			return "", false, fmt.Errorf("%w: unexpected eof in BranchSourceContext", util.ErrXML)
		}
		if err != nil {
			return "", false, fmt.Errorf("%w: %v", util.ErrXML, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "BrowserContentPath":
				sentinel = true
			case "BranchDeviceId":
				if v, ok := attrStr(t, "Value"); ok {
					deviceID = v
					hasDeviceID = true
				}
			case "PluginDesc":
				nestedPluginDesc = true
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}

	if nestedPluginDesc {
		return "", false, nil
	}
	if !sentinel || !hasDeviceID {
		return "", false, nil
	}
	if !isPluginDeviceID(deviceID) {
		return "", false, nil
	}
	return deviceID, true, nil
}

// parsePluginDesc consumes a PluginDesc subtree looking for the first
// Vst3PluginInfo or VstPluginInfo child and its Name/PlugName; subsequent
// siblings of either kind are ignored.
func (p *parser) parsePluginDesc(start xml.StartElement, deviceID string) error {
	bound := false
	depth := 1
	for depth > 0 {
		tok, err := p.dec.Token()
		if err == io.EOF {
			return fmt.Errorf("%w: unexpected eof in PluginDesc", util.ErrXML)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", util.ErrXML, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Vst3PluginInfo":
				if !bound {
					name, ok, err := firstChildAttr(p.dec, "Name", "Value")
					if err != nil {
						return err
					}
					if ok {
						p.bindPlugin(deviceID, name, pluginFormat(deviceID, true))
						bound = true
					}
					continue
				}
				if err := skipSubtree(p.dec); err != nil {
					return err
				}
				continue
			case "VstPluginInfo":
				if !bound {
					name, ok, err := firstChildAttr(p.dec, "PlugName", "Value")
					if err != nil {
						return err
					}
					if ok {
						p.bindPlugin(deviceID, name, pluginFormat(deviceID, false))
						bound = true
					}
					continue
				}
				if err := skipSubtree(p.dec); err != nil {
					return err
				}
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

func (p *parser) bindPlugin(deviceID, name string, format PluginFormat) {
	if _, exists := p.plugins[deviceID]; exists {
		return // dedup by device id within one parse; first wins
	}
	// NFC-normalize so a name read on one OS locale compares equal to the
	// same name read on another, before it ever reaches the catalog.
	p.plugins[deviceID] = Plugin{DeviceID: deviceID, Name: norm.NFC.String(name), Format: format}
	p.pluginsIn = append(p.pluginsIn, deviceID)
}

// parseSampleRef handles the three sample reference wire formats. The
// encoding is recognized by which child is present: a Path value is used
// directly, otherwise a Data hex blob is decoded. version is not consulted.
func (p *parser) parseSampleRef(start xml.StartElement, version Version) error {
	var path string
	var nameOverride string
	var haveDirectPath bool
	var haveData bool
	var dataHex string

	depth := 1
	for depth > 0 {
		tok, err := p.dec.Token()
		if err == io.EOF {
			return fmt.Errorf("%w: unexpected eof in SampleRef", util.ErrXML)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", util.ErrXML, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Path":
				if v, ok := attrStr(t, "Value"); ok {
					path = v
					haveDirectPath = true
				}
			case "Name":
				if v, ok := attrStr(t, "Value"); ok {
					nameOverride = v
				}
			case "Data":
				text, err := readCharData(p.dec)
				if err != nil {
					return err
				}
				dataHex = text
				haveData = true
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}

	if haveDirectPath {
		p.addSample(path, samplePathName(path))
		return nil
	}
	if haveData {
		decoded, err := decodeHexUTF16Path(dataHex)
		if err != nil {
			return err
		}
		name := nameOverride
		if name == "" {
			name = samplePathName(decoded)
		}
		p.addSample(decoded, name)
	}
	return nil
}

func (p *parser) addSample(path, name string) {
	if path == "" {
		return
	}
	if _, exists := p.samples[path]; exists {
		return
	}
	p.samples[path] = Sample{Path: path, Name: name, IsPresent: p.existsOnDisk(path)}
	p.samplesIn = append(p.samplesIn, path)
}

func (p *parser) parseScaleInformation(start xml.StartElement) (int, Scale, bool, error) {
	var root int
	var haveRoot bool
	var scale Scale
	var haveScale bool

	depth := 1
	for depth > 0 {
		tok, err := p.dec.Token()
		if err == io.EOF {
			return 0, 0, false, fmt.Errorf("%w: unexpected eof in ScaleInformation", util.ErrXML)
		}
		if err != nil {
			return 0, 0, false, fmt.Errorf("%w: %v", util.ErrXML, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "RootNote":
				if v, ok := attrInt(t, "Value"); ok {
					root = v
					haveRoot = true
				}
			case "Name":
				if v, ok := attrStr(t, "Value"); ok {
					if s, ok := ParseScale(v); ok {
						scale = s
						haveScale = true
					}
				}
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}

	if !haveRoot || !haveScale {
		return 0, 0, false, nil
	}
	return root, scale, true, nil
}

// readRootVersion reads the document's root element and extracts version
// attributes before the main loop begins.
func (p *parser) readRootVersion() (Version, error) {
	for {
		tok, err := p.dec.Token()
		if err == io.EOF {
			return Version{}, fmt.Errorf("%w: empty document", util.ErrXML)
		}
		if err != nil {
			return Version{}, fmt.Errorf("%w: %v", util.ErrXML, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		majorAttr, _ := attrStr(start, "MajorVersion")
		minorAttr, _ := attrStr(start, "MinorVersion")
		schemaChangeCount, _ := attrStr(start, "SchemaChangeCount")
		return ParseVersion(majorAttr, minorAttr, schemaChangeCount)
	}
}

// skip consumes start's subtree without interpreting it.
func (p *parser) skip(start xml.StartElement) error {
	return skipSubtree(p.dec)
}

func skipSubtree(dec *xml.Decoder) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err == io.EOF {
			return fmt.Errorf("%w: unexpected eof while skipping", util.ErrXML)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", util.ErrXML, err)
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

// firstChildAttr scans the current element's subtree for the first child
// named elemName and returns its attrName attribute; the remainder of the
// subtree is consumed so the caller's depth bookkeeping stays balanced.
func firstChildAttr(dec *xml.Decoder, elemName, attrName string) (string, bool, error) {
	var found string
	var ok bool
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", false, fmt.Errorf("%w: unexpected eof", util.ErrXML)
		}
		if err != nil {
			return "", false, fmt.Errorf("%w: %v", util.ErrXML, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !ok && t.Name.Local == elemName {
				if v, has := attrStr(t, attrName); has {
					found = v
					ok = true
				}
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return found, ok, nil
}

func readCharData(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", fmt.Errorf("%w: unexpected eof reading char data", util.ErrXML)
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", util.ErrXML, err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return sb.String(), nil
}

func attrStr(start xml.StartElement, name string) (string, bool) {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func attrInt(start xml.StartElement, name string) (int, bool) {
	v, ok := attrStr(start, name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func attrFloat(start xml.StartElement, name string) (float64, bool) {
	v, ok := attrStr(start, name)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func attrBool(start xml.StartElement, name string) (bool, bool) {
	v, ok := attrStr(start, name)
	if !ok {
		return false, false
	}
	return v == "true", true
}

func defaultExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
