package spot

// Tier is one visual weight class for a reported SNR. Markers get a fixed
// color and radius per tier; tiers are ordered by ascending SNR and radii
// increase strictly with tier.
type Tier struct {
	Name   string
	Color  string  // hex color for the map marker
	Radius float64 // marker radius in pixels
}

// NoSNRTier styles spots whose report carries no SNR value.
var NoSNRTier = Tier{Name: "unknown", Color: "#9E9E9E", Radius: 3}

var snrTiers = []struct {
	upper float64 // tier applies while snr < upper
	tier  Tier
}{
	{0, Tier{Name: "very weak", Color: "#B71C1C", Radius: 4}},
	{10, Tier{Name: "weak", Color: "#E65100", Radius: 5}},
	{20, Tier{Name: "fair", Color: "#F9A825", Radius: 6}},
	{30, Tier{Name: "good", Color: "#2E7D32", Radius: 7}},
}

// strongTier catches everything at or above the last boundary.
var strongTier = Tier{Name: "strong", Color: "#1565C0", Radius: 8}

// TierFor maps an SNR report onto its visual tier. has=false selects the
// neutral no-report tier regardless of snr.
func TierFor(snr float64, has bool) Tier {
	if !has {
		return NoSNRTier
	}
	for _, boundary := range snrTiers {
		if snr < boundary.upper {
			return boundary.tier
		}
	}
	return strongTier
}

// ColorFor returns the marker color for an SNR report.
func ColorFor(snr float64, has bool) string {
	return TierFor(snr, has).Color
}

// SizeFor returns the marker radius for an SNR report.
func SizeFor(snr float64, has bool) float64 {
	return TierFor(snr, has).Radius
}
