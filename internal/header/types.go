// Package header implements the plugin-header-parsing collaborator: given a
// plugin file it reports the facts the load-order core needs (master flag,
// light-master flag, declared masters) and nothing about load order itself.
package header

import "strings"

// Header contains the parsed header information from a plugin file.
type Header struct {
	// Filename is the original filename of the plugin.
	Filename string
	// IsMaster reports whether the TES4 record's master flag is set.
	IsMaster bool
	// IsLightMaster reports whether the TES4 record's light-master override
	// flag is set. Only meaningful for games that support light masters.
	IsLightMaster bool
	// Masters is the list of declared master filenames, in header order.
	Masters []string
	// Author is the CNAM subrecord string, if present.
	Author string
	// Description is the SNAM subrecord string, if present.
	Description string
	// FormVersion is the form version recorded in the header.
	FormVersion uint16
	// NumRecords is the record count from the HEDR subrecord, if present.
	NumRecords uint32
}

// Record flag constants for the TES4 record.
const (
	// FlagMaster indicates the plugin is a master file (.esm behavior).
	FlagMaster uint32 = 0x00000001
	// FlagLocalized indicates the plugin uses localized strings.
	FlagLocalized uint32 = 0x00000080
	// FlagLight indicates the plugin is a light plugin (.esl behavior).
	// This flag was added in Skyrim Special Edition.
	FlagLight uint32 = 0x00000200
)

// Common TES4 record type signatures.
const (
	SignatureTES4 = "TES4"
	SignatureHEDR = "HEDR"
	SignatureCNAM = "CNAM"
	SignatureSNAM = "SNAM"
	SignatureMAST = "MAST"
	SignatureDATA = "DATA"
)

// HasPluginExtension reports whether filename has one of the recognised
// plugin extensions, case-insensitively.
func HasPluginExtension(filename string) bool {
	ext := extOf(filename)
	return ext == ".esp" || ext == ".esm" || ext == ".esl"
}

// HasESLExtension reports whether filename has the light-master extension.
func HasESLExtension(filename string) bool {
	return extOf(filename) == ".esl"
}

func extOf(filename string) string {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i:])
}
