package spot

// BandInfo describes an amateur radio band by name and frequency range in MHz.
// Ranges are inclusive of Min and exclusive of Max.
type BandInfo struct {
	Name string  // canonical band name (e.g. "20m")
	Min  float64 // lower edge in MHz, inclusive
	Max  float64 // upper edge in MHz, exclusive
}

// BandOther tags any frequency outside the HF/6m allocation table.
const BandOther = "Other"

// BandAll is the filter value that bypasses band filtering.
const BandAll = "All"

var bandTable = []BandInfo{
	{Name: "160m", Min: 1.8, Max: 2.0},
	{Name: "80m", Min: 3.5, Max: 4.0},
	{Name: "60m", Min: 5.3305, Max: 5.4035},
	{Name: "40m", Min: 7.0, Max: 7.3},
	{Name: "30m", Min: 10.1, Max: 10.15},
	{Name: "20m", Min: 14.0, Max: 14.35},
	{Name: "17m", Min: 18.068, Max: 18.168},
	{Name: "15m", Min: 21.0, Max: 21.45},
	{Name: "12m", Min: 24.89, Max: 24.99},
	{Name: "10m", Min: 28.0, Max: 29.7},
	{Name: "6m", Min: 50.0, Max: 54.0},
}

// FreqToBand maps a feed frequency onto the band table. The feed reports kHz
// inside its Hz-named field, so the value is divided by 1000 to get MHz; that
// convention must not change without breaking feed compatibility.
func FreqToBand(freqHz float64) string {
	mhz := freqHz / 1000.0
	for _, band := range bandTable {
		if mhz >= band.Min && mhz < band.Max {
			return band.Name
		}
	}
	return BandOther
}

// BandNames returns the canonical names of all tracked bands in table order.
func BandNames() []string {
	names := make([]string, len(bandTable))
	for i, entry := range bandTable {
		names[i] = entry.Name
	}
	return names
}
