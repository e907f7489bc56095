// Package spot defines the reception-report structure used across the overlay
// pipeline plus the pure classifiers that map a spot onto the map surface:
// frequency to band and SNR to marker style.
package spot

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"propmap/geo"
	"propmap/grid"
)

// Spot is one signal-reception report from the feed. The reporting station is
// identified by Reporter and locates itself with a raw Maidenhead locator.
type Spot struct {
	Reporter string    // reporting station callsign (e.g. "W3LPL")
	Grid     string    // raw Maidenhead locator as supplied by the feed
	FreqHz   float64   // frequency as supplied; the feed puts kHz in this field
	SNR      float64   // signal-to-noise ratio in dB, meaningful only when HasSNR
	HasSNR   bool      // distinguishes a real 0 dB report from "not reported"
	Time     time.Time // observation time (UTC)
}

// Band returns the amateur band tag for the spot's frequency.
func (s *Spot) Band() string {
	return FreqToBand(s.FreqHz)
}

// Position resolves the spot's locator to the center of its grid square.
// ok is false when the locator is malformed or absent.
func (s *Spot) Position() (geo.LatLon, bool) {
	return grid.Resolve(s.Grid)
}

// Hash64 returns a payload-dedup hash covering reporter, whole-kHz frequency,
// and time truncated to the minute. Fixed-layout buffer keeps it allocation
// free and byte-order deterministic.
func (s *Spot) Hash64() uint64 {
	var buf [24]byte
	t := s.Time.Truncate(time.Minute).Unix()
	binary.LittleEndian.PutUint64(buf[0:8], uint64(t))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(s.FreqHz))
	writeFixedCall(buf[12:24], strings.ToUpper(s.Reporter))
	return xxh3.Hash(buf[:])
}

// writeFixedCall assumes call is uppercased ASCII and fits into 12 bytes;
// longer calls are truncated, shorter ones zero padded.
func writeFixedCall(dst []byte, call string) {
	n := 0
	for i := 0; i < len(call) && n < len(dst); i++ {
		dst[n] = call[i]
		n++
	}
	for n < len(dst) {
		dst[n] = 0
		n++
	}
}
