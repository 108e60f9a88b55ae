package parse

import (
	"fmt"
	"testing"
)

func wrap(body string) string {
	return fmt.Sprintf(`<Ableton MajorVersion="5" MinorVersion="12.0_12049" SchemaChangeCount="0"><LiveSet>%s</LiveSet></Ableton>`, body)
}

func minimalValidProject(body string) string {
	return wrap(`<Tempo><Manual Value="120.0"/></Tempo><EnumEvent Value="201"/>` + body)
}

func TestParseVersionFromRoot(t *testing.T) {
	doc := minimalValidProject("")
	result, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if result.Version.Major != 12 || result.Version.Minor != 0 || result.Version.Patch != 12049 {
		t.Fatalf("unexpected version: %+v", result.Version)
	}
}

// Seed scenario 1: tempo happy path.
func TestTempoHappyPath(t *testing.T) {
	doc := wrap(`<Tempo><Manual Value="120.0"/></Tempo><EnumEvent Value="201"/>`)
	result, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if result.Tempo != 120.0 {
		t.Fatalf("expected tempo 120.0, got %v", result.Tempo)
	}
}

func TestTempoNonNumericYieldsInvalidProject(t *testing.T) {
	doc := wrap(`<Tempo><Manual Value="not-a-number"/></Tempo><EnumEvent Value="201"/>`)
	_, err := Parse([]byte(doc))
	if err == nil {
		t.Fatal("expected invalid project error for non-numeric tempo")
	}
}

// Seed scenario 2: EnumEvent 201 -> 4/4.
func TestDecodeEnumEvent201(t *testing.T) {
	ts := DecodeEnumEvent(201)
	if ts.Numerator != 4 || ts.Denominator != 4 {
		t.Fatalf("expected 4/4, got %d/%d", ts.Numerator, ts.Denominator)
	}
}

func TestDecodeEnumEventRoundTripAllValidN(t *testing.T) {
	for n := 0; n <= 494; n++ {
		ts := DecodeEnumEvent(n)
		if !ts.Valid() {
			t.Fatalf("N=%d produced invalid time signature %+v", n, ts)
		}
		k := 0
		for d := ts.Denominator; d > 1; d >>= 1 {
			k++
		}
		if back := (ts.Numerator - 1) + 99*k; back != n {
			t.Fatalf("N=%d round-tripped to %d via %+v", n, back, ts)
		}
	}
}

// Seed scenario 3: furthest bar derivation.
func TestFurthestBarDerivation(t *testing.T) {
	doc := wrap(`<Tempo><Manual Value="120.0"/></Tempo><EnumEvent Value="201"/>` +
		`<CurrentEnd Value="16.0"/><CurrentEnd Value="32.0"/><CurrentEnd Value="8.0"/>`)
	result, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if result.FurthestBar == nil {
		t.Fatal("expected furthest bar to be set")
	}
	if *result.FurthestBar != 8.0 {
		t.Fatalf("expected furthest bar 8.0, got %v", *result.FurthestBar)
	}
}

func TestNoCurrentEndYieldsNilFurthestBar(t *testing.T) {
	doc := minimalValidProject("")
	result, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if result.FurthestBar != nil {
		t.Fatalf("expected nil furthest bar, got %v", *result.FurthestBar)
	}
	if _, ok := result.DurationSeconds(); ok {
		t.Fatal("expected DurationSeconds to report false with no furthest bar")
	}
}

// Seed scenario 4: VST3 AudioFx plugin.
func TestVST3AudioFxPlugin(t *testing.T) {
	body := `<SourceContext><Value><BranchSourceContext>` +
		`<BrowserContentPath/>` +
		`<BranchDeviceId Value="device:vst3:audiofx:abc-123"/>` +
		`</BranchSourceContext></Value></SourceContext>` +
		`<PluginDesc><Vst3PluginInfo><Name Value="Pro-Q 3"/></Vst3PluginInfo></PluginDesc>`
	doc := minimalValidProject(body)
	result, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Plugins) != 1 {
		t.Fatalf("expected exactly one plugin, got %d", len(result.Plugins))
	}
	p := result.Plugins[0]
	if p.Name != "Pro-Q 3" || p.Format != FormatVST3Effect {
		t.Fatalf("unexpected plugin: %+v", p)
	}
}

// Seed scenario 5: v11 sample path.
func TestV11SamplePath(t *testing.T) {
	body := `<SampleRef><FileRef><Path Value="C:/x/y/file.wav"/></FileRef></SampleRef>`
	doc := minimalValidProject(body)
	result, err := Parse([]byte(doc), WithExistsFunc(func(string) bool { return true }))
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Samples) != 1 {
		t.Fatalf("expected exactly one sample, got %d", len(result.Samples))
	}
	s := result.Samples[0]
	if s.Path != "C:/x/y/file.wav" || s.Name != "file.wav" {
		t.Fatalf("unexpected sample: %+v", s)
	}
	if !s.IsPresent {
		t.Fatal("expected sample marked present via injected exists func")
	}
}

// Seed scenario 6: key signature majority vote.
func TestKeySignatureMajorityVote(t *testing.T) {
	clip := func(root int, scale string) string {
		return fmt.Sprintf(`<ScaleInformation><RootNote Value="%d"/><Name Value="%s"/></ScaleInformation><IsInKey Value="true"/>`, root, scale)
	}
	body := clip(0, "Major") + clip(0, "Major") + clip(9, "Minor")
	doc := minimalValidProject(body)
	result, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if result.KeySignature == nil {
		t.Fatal("expected a key signature to be recorded")
	}
	if result.KeySignature.Tonic != TonicC || result.KeySignature.Scale != ScaleMajor {
		t.Fatalf("expected C Major to win majority, got %+v", result.KeySignature)
	}
}

func TestKeySignatureNotInKeyIsNotRecorded(t *testing.T) {
	body := `<ScaleInformation><RootNote Value="0"/><Name Value="Major"/></ScaleInformation><IsInKey Value="false"/>`
	doc := minimalValidProject(body)
	result, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if result.KeySignature != nil {
		t.Fatalf("expected no key signature, got %+v", result.KeySignature)
	}
}

// Boundary case: nested PluginDesc inside BranchSourceContext disqualifies.
func TestNestedPluginDescYieldsZeroPlugins(t *testing.T) {
	body := `<SourceContext><Value><BranchSourceContext>` +
		`<BrowserContentPath/>` +
		`<BranchDeviceId Value="device:vst3:audiofx:abc-123"/>` +
		`<PluginDesc><Vst3PluginInfo><Name Value="Nested"/></Vst3PluginInfo></PluginDesc>` +
		`</BranchSourceContext></Value></SourceContext>` +
		`<PluginDesc><Vst3PluginInfo><Name Value="Outer"/></Vst3PluginInfo></PluginDesc>`
	doc := minimalValidProject(body)
	result, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Plugins) != 0 {
		t.Fatalf("expected zero plugins, got %d", len(result.Plugins))
	}
}

// Boundary case: missing BrowserContentPath sentinel yields zero plugins.
func TestMissingSentinelYieldsZeroPlugins(t *testing.T) {
	body := `<SourceContext><Value><BranchSourceContext>` +
		`<BranchDeviceId Value="device:vst3:audiofx:abc-123"/>` +
		`</BranchSourceContext></Value></SourceContext>` +
		`<PluginDesc><Vst3PluginInfo><Name Value="Should Not Appear"/></Vst3PluginInfo></PluginDesc>`
	doc := minimalValidProject(body)
	result, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Plugins) != 0 {
		t.Fatalf("expected zero plugins, got %d", len(result.Plugins))
	}
}

// Boundary case: non-plugin device id yields zero plugins.
func TestNonPluginDeviceIDYieldsZeroPlugins(t *testing.T) {
	body := `<SourceContext><Value><BranchSourceContext>` +
		`<BrowserContentPath/>` +
		`<BranchDeviceId Value="device:audio-effect:builtin:eq8"/>` +
		`</BranchSourceContext></Value></SourceContext>` +
		`<PluginDesc><Vst3PluginInfo><Name Value="Should Not Appear"/></Vst3PluginInfo></PluginDesc>`
	doc := minimalValidProject(body)
	result, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Plugins) != 0 {
		t.Fatalf("expected zero plugins, got %d", len(result.Plugins))
	}
}

// Boundary case: multiple Vst*PluginInfo siblings -> exactly one plugin.
func TestMultiplePluginInfoSiblingsYieldOne(t *testing.T) {
	body := `<SourceContext><Value><BranchSourceContext>` +
		`<BrowserContentPath/>` +
		`<BranchDeviceId Value="device:vst3:instr:xyz-789"/>` +
		`</BranchSourceContext></Value></SourceContext>` +
		`<PluginDesc>` +
		`<Vst3PluginInfo><Name Value="First"/></Vst3PluginInfo>` +
		`<Vst3PluginInfo><Name Value="Second"/></Vst3PluginInfo>` +
		`</PluginDesc>`
	doc := minimalValidProject(body)
	result, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Plugins) != 1 {
		t.Fatalf("expected exactly one plugin, got %d", len(result.Plugins))
	}
	if result.Plugins[0].Name != "First" {
		t.Fatalf("expected first sibling to win, got %q", result.Plugins[0].Name)
	}
}

func TestInvalidTempoFailsProject(t *testing.T) {
	doc := wrap(`<EnumEvent Value="201"/>`) // no Tempo at all
	_, err := Parse([]byte(doc))
	if err == nil {
		t.Fatal("expected error for missing/invalid tempo")
	}
}

func TestMissingVersionAttribute(t *testing.T) {
	doc := `<Ableton MajorVersion="5"><LiveSet/></Ableton>`
	_, err := Parse([]byte(doc))
	if err == nil {
		t.Fatal("expected missing version error")
	}
}

func TestInvalidVersionShape(t *testing.T) {
	doc := `<Ableton MajorVersion="5" MinorVersion="not-a-version"><LiveSet/></Ableton>`
	_, err := Parse([]byte(doc))
	if err == nil {
		t.Fatal("expected invalid version error")
	}
}
