package feed

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"propmap/spot"
)

// The feed is loose about field names: different deployments spell the same
// attribute differently, so every logical field accepts both spellings.
type rawRecord struct {
	Callsign  string     `json:"callsign"`
	DE        string     `json:"de"`
	Grid      string     `json:"grid"`
	DEGrid    string     `json:"de_grid"`
	Frequency *flexFloat `json:"frequency"`
	Freq      *flexFloat `json:"freq"`
	SNR       *flexFloat `json:"snr"`
	DB        *flexFloat `json:"db"`
	Timestamp *flexTime  `json:"timestamp"`
	Time      *flexTime  `json:"time"`
}

// toSpot collapses the field aliases into a Spot. ok is false when the record
// lacks a reporter callsign, a positive frequency, or a timestamp.
func (r *rawRecord) toSpot() (spot.Spot, bool) {
	call := strings.TrimSpace(r.Callsign)
	if call == "" {
		call = strings.TrimSpace(r.DE)
	}
	if call == "" {
		return spot.Spot{}, false
	}

	grid := strings.TrimSpace(r.Grid)
	if grid == "" {
		grid = strings.TrimSpace(r.DEGrid)
	}

	freq := r.Frequency
	if freq == nil {
		freq = r.Freq
	}
	if freq == nil || freq.value <= 0 {
		return spot.Spot{}, false
	}

	ts := r.Timestamp
	if ts == nil {
		ts = r.Time
	}
	if ts == nil || ts.value.IsZero() {
		return spot.Spot{}, false
	}

	s := spot.Spot{
		Reporter: strings.ToUpper(call),
		Grid:     strings.ToUpper(grid),
		FreqHz:   freq.value,
		Time:     ts.value.UTC(),
	}
	snr := r.SNR
	if snr == nil {
		snr = r.DB
	}
	if snr != nil {
		s.SNR = snr.value
		s.HasSNR = true
	}
	return s, true
}

// flexFloat accepts a JSON number or a numeric string.
type flexFloat struct {
	value float64
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if trimmed[0] == '"' {
		unquoted, err := strconv.Unquote(string(trimmed))
		if err != nil {
			return err
		}
		unquoted = strings.TrimSpace(unquoted)
		if unquoted == "" {
			return nil
		}
		val, err := strconv.ParseFloat(unquoted, 64)
		if err != nil {
			return err
		}
		f.value = val
		return nil
	}
	val, err := strconv.ParseFloat(string(trimmed), 64)
	if err != nil {
		return err
	}
	f.value = val
	return nil
}

// flexTime accepts an RFC 3339 string, a quoted epoch, or a bare epoch
// number. Epochs at or above 1e12 are treated as milliseconds.
type flexTime struct {
	value time.Time
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if trimmed[0] == '"' {
		unquoted, err := strconv.Unquote(string(trimmed))
		if err != nil {
			return err
		}
		unquoted = strings.TrimSpace(unquoted)
		if unquoted == "" {
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339, unquoted); err == nil {
			t.value = parsed
			return nil
		}
		epoch, err := strconv.ParseFloat(unquoted, 64)
		if err != nil {
			return err
		}
		t.value = epochToTime(epoch)
		return nil
	}
	epoch, err := strconv.ParseFloat(string(trimmed), 64)
	if err != nil {
		return err
	}
	t.value = epochToTime(epoch)
	return nil
}

func epochToTime(epoch float64) time.Time {
	if epoch >= 1e12 {
		return time.UnixMilli(int64(epoch))
	}
	return time.Unix(int64(epoch), 0)
}
