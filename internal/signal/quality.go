// Package signal grades LoRa link quality from SNR and RSSI readings.
package signal

import (
	"fmt"
	"strings"
)

// Link thresholds for a LoRa packet.
const (
	SNRGood  = -7.0
	SNRFair  = -15.0
	RSSIGood = -115
	RSSIFair = -126
)

// Quality is a coarse grade of a received link.
type Quality int

// Quality grades, worst first.
const (
	None Quality = iota
	Bad
	Fair
	Good
)

var qualityNames = [...]string{"none", "bad", "fair", "good"}

func (q Quality) String() string {
	if q < None || q > Good {
		return fmt.Sprintf("quality(%d)", int(q))
	}
	return qualityNames[q]
}

// MarshalText renders the lowercase grade name.
func (q Quality) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalText parses a grade name.
func (q *Quality) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for i, n := range qualityNames {
		if n == name {
			*q = Quality(i)
			return nil
		}
	}
	return fmt.Errorf("unknown signal quality %q", text)
}

// Determine grades a link from its SNR (dB) and RSSI (dBm).
func Determine(snr float64, rssi int) Quality {
	switch {
	case snr > SNRGood && rssi > RSSIGood:
		return Good
	case snr > SNRGood && rssi > RSSIFair:
		return Fair
	case snr > SNRFair && rssi > RSSIGood:
		return Fair
	case snr <= SNRFair && rssi <= RSSIFair:
		return None
	default:
		return Bad
	}
}

// Format renders the raw readings for a node list row.
func Format(snr float64, rssi int) string {
	return fmt.Sprintf("SNR %.2f dB · RSSI %d dBm", snr, rssi)
}
