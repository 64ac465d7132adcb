// internal/models/zone.go
package models

import "fmt"

// Zone names a card collection belonging to a player. The set is closed;
// the authoritative engine rejects anything outside it.
type Zone string

const (
	ZoneHand        Zone = "hand"
	ZoneLibrary     Zone = "library"
	ZoneBattlefield Zone = "battlefield"
	ZoneGraveyard   Zone = "graveyard"
	ZoneExile       Zone = "exile"
	ZoneCommandZone Zone = "command_zone"

	// Pseudo-destinations offered by "send to" menus. On the wire they all
	// collapse to ZoneLibrary; ordering (top/bottom insert, shuffle) is the
	// engine's job.
	ZoneLibraryTop     Zone = "library_top"
	ZoneLibraryBottom  Zone = "library_bottom"
	ZoneLibraryShuffle Zone = "library_shuffle"
)

// Zones lists the real (non-pseudo) zones in their canonical order.
var Zones = []Zone{ZoneHand, ZoneLibrary, ZoneBattlefield, ZoneGraveyard, ZoneExile, ZoneCommandZone}

// Valid reports whether z is a known zone, pseudo-destinations included.
func (z Zone) Valid() bool {
	switch z {
	case ZoneHand, ZoneLibrary, ZoneBattlefield, ZoneGraveyard, ZoneExile,
		ZoneCommandZone, ZoneLibraryTop, ZoneLibraryBottom, ZoneLibraryShuffle:
		return true
	}
	return false
}

// Normalize maps the library pseudo-destinations to ZoneLibrary and leaves
// every real zone untouched. It errors on names outside the closed set.
func (z Zone) Normalize() (Zone, error) {
	if !z.Valid() {
		return "", fmt.Errorf("unknown zone %q", string(z))
	}
	switch z {
	case ZoneLibraryTop, ZoneLibraryBottom, ZoneLibraryShuffle:
		return ZoneLibrary, nil
	}
	return z, nil
}
