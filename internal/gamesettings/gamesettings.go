// Package gamesettings describes the fixed, per-game facts the load-order
// core needs to pick a persistence strategy and to know which plugins are
// implicitly active: a game does not change shape at runtime, so these are
// resolved once, validated, and then treated as immutable.
package gamesettings

import (
	"fmt"
	"path/filepath"
	"strings"
)

// GameID identifies one of the supported games.
type GameID int

const (
	Morrowind GameID = iota + 1
	Oblivion
	Fallout3
	FalloutNV
	Skyrim
	SkyrimSE
	SkyrimVR
	Fallout4
	Fallout4VR
)

func (g GameID) String() string {
	switch g {
	case Morrowind:
		return "Morrowind"
	case Oblivion:
		return "Oblivion"
	case Fallout3:
		return "Fallout3"
	case FalloutNV:
		return "FalloutNV"
	case Skyrim:
		return "Skyrim"
	case SkyrimSE:
		return "SkyrimSE"
	case SkyrimVR:
		return "SkyrimVR"
	case Fallout4:
		return "Fallout4"
	case Fallout4VR:
		return "Fallout4VR"
	default:
		return fmt.Sprintf("GameID(%d)", int(g))
	}
}

// SupportsLightMasters reports whether g treats .esl files (and the ESL
// header flag) as light masters, counted against a separate activation cap.
func (g GameID) SupportsLightMasters() bool {
	switch g {
	case SkyrimSE, SkyrimVR, Fallout4, Fallout4VR:
		return true
	default:
		return false
	}
}

// Method is the persistence strategy a game uses to read and write its
// load order.
type Method int

const (
	// MethodTimestamp derives order from plugin file modification times and
	// stores the active set in Morrowind.ini (Morrowind) or in a plain
	// plugins.txt (Oblivion, Fallout3, FalloutNV).
	MethodTimestamp Method = iota
	// MethodTextfile stores an explicit order in loadorder.txt and the
	// active set in a separate plugins.txt (Skyrim).
	MethodTextfile
	// MethodAsterisk stores both order and active state in one plugins.txt,
	// marking active entries with a leading asterisk (Skyrim Special
	// Edition and VR, Fallout 4 and VR).
	MethodAsterisk
)

func (m Method) String() string {
	switch m {
	case MethodTimestamp:
		return "timestamp"
	case MethodTextfile:
		return "textfile"
	case MethodAsterisk:
		return "asterisk"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

func methodForGame(id GameID) (Method, error) {
	switch id {
	case Morrowind, Oblivion, Fallout3, FalloutNV:
		return MethodTimestamp, nil
	case Skyrim:
		return MethodTextfile, nil
	case SkyrimSE, SkyrimVR, Fallout4, Fallout4VR:
		return MethodAsterisk, nil
	default:
		return 0, fmt.Errorf("gamesettings: unrecognised game id %d", int(id))
	}
}

// masterFileFor returns the game's own master file, which always loads
// first and is always active.
func masterFileFor(id GameID) string {
	switch id {
	case Morrowind:
		return "Morrowind.esm"
	case Oblivion:
		return "Oblivion.esm"
	case Fallout3:
		return "Fallout3.esm"
	case FalloutNV:
		return "FalloutNV.esm"
	case Skyrim, SkyrimSE, SkyrimVR:
		return "Skyrim.esm"
	case Fallout4, Fallout4VR:
		return "Fallout4.esm"
	default:
		return ""
	}
}

// defaultImplicitlyActivePlugins returns the hardcoded DLC/update plugins
// that the game engine always loads regardless of what a plugins list says,
// in the fixed order the engine imposes on them. The game's own master file
// is always first.
func defaultImplicitlyActivePlugins(id GameID) []string {
	master := masterFileFor(id)
	switch id {
	case Skyrim:
		return []string{master, "Update.esm"}
	case SkyrimSE, SkyrimVR:
		return []string{master, "Update.esm", "Dawnguard.esm", "HearthFires.esm", "Dragonborn.esm"}
	case Fallout4, Fallout4VR:
		return []string{master, "DLCRobot.esm", "DLCworkshop01.esm", "DLCCoast.esm",
			"DLCworkshop02.esm", "DLCworkshop03.esm", "DLCNukaWorld.esm", "DLCUltraHighResolution.esm"}
	default:
		return []string{master}
	}
}

// Settings describes the fixed, validated facts about a single game
// installation that the load-order core needs. It is constructed once via
// New and is immutable afterwards.
type Settings struct {
	id                      GameID
	method                  Method
	pluginsDirectory        string
	masterFile              string
	loadOrderFile           string
	activePluginsFile       string
	implicitlyActivePlugins []string
}

// New validates and constructs a Settings for game id, rooted at the given
// plugins directory and game-local-app-data directory (which holds
// plugins.txt, and for Skyrim loadorder.txt, for every game except
// Morrowind). gameLocalAppData may
// be empty for games whose strategy does not need it; New rejects that
// combination explicitly so the error surfaces at construction rather than
// at first save.
func New(id GameID, pluginsDirectory, gameLocalAppData string) (*Settings, error) {
	if pluginsDirectory == "" {
		return nil, fmt.Errorf("gamesettings: plugins directory must not be empty")
	}

	method, err := methodForGame(id)
	if err != nil {
		return nil, err
	}

	if gameLocalAppData == "" && id != Morrowind {
		return nil, fmt.Errorf("gamesettings: %s requires a local app data directory", id)
	}

	s := &Settings{
		id:                      id,
		method:                  method,
		pluginsDirectory:        pluginsDirectory,
		masterFile:              masterFileFor(id),
		implicitlyActivePlugins: defaultImplicitlyActivePlugins(id),
	}

	switch method {
	case MethodTimestamp:
		if id == Morrowind {
			s.activePluginsFile = filepath.Join(pluginsDirectory, "Morrowind.ini")
		} else {
			s.activePluginsFile = filepath.Join(gameLocalAppData, "plugins.txt")
		}
	case MethodTextfile:
		s.loadOrderFile = filepath.Join(gameLocalAppData, "loadorder.txt")
		s.activePluginsFile = filepath.Join(gameLocalAppData, "plugins.txt")
	case MethodAsterisk:
		s.activePluginsFile = filepath.Join(gameLocalAppData, "plugins.txt")
	}

	return s, nil
}

// ID returns the game this Settings describes.
func (s *Settings) ID() GameID { return s.id }

// Method returns the persistence strategy this game uses.
func (s *Settings) Method() Method { return s.method }

// PluginsDirectory returns the directory plugin files are installed into.
func (s *Settings) PluginsDirectory() string { return s.pluginsDirectory }

// MasterFile returns the game's own master file, e.g. "Skyrim.esm".
func (s *Settings) MasterFile() string { return s.masterFile }

// LoadOrderFile returns the path to the explicit order file, or "" for
// strategies that do not use one.
func (s *Settings) LoadOrderFile() string { return s.loadOrderFile }

// ActivePluginsFile returns the path to the file recording which plugins
// are active (and, for the asterisk strategy, their order too).
func (s *Settings) ActivePluginsFile() string { return s.activePluginsFile }

// SupportsLightMasters reports whether this game's settings treat light
// masters as a distinct, separately-capped category.
func (s *Settings) SupportsLightMasters() bool { return s.id.SupportsLightMasters() }

// ImplicitlyActivePlugins returns, in the fixed order the engine imposes,
// the plugins that are always active and cannot be deactivated. The
// returned slice is a copy, so mutating it does not affect s.
func (s *Settings) ImplicitlyActivePlugins() []string {
	out := make([]string, len(s.implicitlyActivePlugins))
	copy(out, s.implicitlyActivePlugins)
	return out
}

// IsImplicitlyActive reports whether name (compared case-insensitively)
// names one of the engine's implicitly active plugins.
func (s *Settings) IsImplicitlyActive(name string) bool {
	for _, p := range s.implicitlyActivePlugins {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}
