package parse

import "strings"

// vst3Prefix and vstPrefix are the only device id prefixes recognized as
// plugins per the External Interfaces device identifier grammar:
// device:(vst|vst3):(audiofx|instr):<opaque>.
const (
	vst3Prefix = "device:vst3:"
	vstPrefix  = "device:vst:"
)

// isPluginDeviceID reports whether id carries a recognized plugin prefix.
func isPluginDeviceID(id string) bool {
	return strings.HasPrefix(id, vst3Prefix) || strings.HasPrefix(id, vstPrefix)
}

// pluginFormat derives the PluginFormat from a device id and the PluginDesc
// kind encountered (vst3 info vs vst info). instr=true means the device
// subtype segment was "instr"; false means "audiofx".
func pluginFormat(deviceID string, isVST3 bool) PluginFormat {
	instr := strings.Contains(deviceID, ":instr:")
	switch {
	case isVST3 && instr:
		return FormatVST3Instrument
	case isVST3 && !instr:
		return FormatVST3Effect
	case !isVST3 && instr:
		return FormatVST2Instrument
	default:
		return FormatVST2Effect
	}
}
