// Package protocol implements the romiserial framing and dispatch protocol:
// checksummed ASCII frames, a compact integer/string payload grammar, and
// the device-side engine that answers every request exactly once.
//
// The package has no dependencies beyond the checksum table so that it
// builds for TinyGo firmware as well as for the host.
package protocol

// Protocol version reported by the identify request
const (
	VersionMajor = 1
	VersionMinor = 0

	Version = "1.0"
)
