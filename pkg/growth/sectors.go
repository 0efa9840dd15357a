package growth

import "strings"

// SectorLimits bounds a suggested growth rate for one sector, in percent.
type SectorLimits struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultSector is the fallback key for sectors without an explicit entry.
const DefaultSector = "DEFAULT"

// sectorLimits caps suggestions by industry, acting as a risk control on
// histories that grew unusually fast or slow.
var sectorLimits = map[string]SectorLimits{
	"ENERGY":      {Min: 4, Max: 10},
	"IT":          {Min: 6, Max: 15},
	"BANKING":     {Min: 7, Max: 14},
	"FMCG":        {Min: 5, Max: 12},
	DefaultSector: {Min: 5, Max: 12},
}

// LimitsFor returns the growth bounds for a sector. Lookup is
// case-insensitive; unknown sectors fall back to the DEFAULT entry.
func LimitsFor(sector string) SectorLimits {
	if limits, ok := sectorLimits[strings.ToUpper(strings.TrimSpace(sector))]; ok {
		return limits
	}
	return sectorLimits[DefaultSector]
}

// KnownSector reports whether the sector has an explicit limit entry.
func KnownSector(sector string) bool {
	_, ok := sectorLimits[strings.ToUpper(strings.TrimSpace(sector))]
	return ok
}

// Sectors returns a copy of the full sector limit table.
func Sectors() map[string]SectorLimits {
	table := make(map[string]SectorLimits, len(sectorLimits))
	for sector, limits := range sectorLimits {
		table[sector] = limits
	}
	return table
}
