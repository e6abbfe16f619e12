package gps

import (
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// maxSentence caps the line buffer; anything longer than a legal NMEA
// sentence is garbage (line noise, half-open serial port) and is dropped.
const maxSentence = 128

// Decoder accumulates a raw NMEA byte stream one byte at a time and merges
// RMC (date/time/speed/position) and GGA (satellites/HDOP/altitude)
// sentences into a single Fix. A fix is considered complete on each valid
// RMC carrying both a date and a time.
type Decoder struct {
	buf     []byte
	current Fix
}

func NewDecoder() *Decoder {
	return &Decoder{buf: make([]byte, 0, maxSentence)}
}

// Feed consumes one byte from the receiver and returns true when a complete
// fix just finished decoding. Partial or unparseable sentences are skipped
// silently; a noisy receiver is normal.
func (d *Decoder) Feed(b byte) bool {
	if b != '\n' {
		if len(d.buf) < maxSentence {
			d.buf = append(d.buf, b)
		}
		return false
	}

	line := strings.TrimSpace(string(d.buf))
	d.buf = d.buf[:0]

	if line == "" || !strings.HasPrefix(line, "$") {
		return false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return false
	}

	switch sentence.DataType() {
	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		if m.Validity != nmea.ValidRMC || !m.Date.Valid || !m.Time.Valid {
			return false
		}
		d.current.Year = 2000 + m.Date.YY
		d.current.Month = m.Date.MM
		d.current.Day = m.Date.DD
		d.current.Hour = m.Time.Hour
		d.current.Minute = m.Time.Minute
		d.current.Second = m.Time.Second
		d.current.Latitude = m.Latitude
		d.current.Longitude = m.Longitude
		d.current.SpeedKnots = m.Speed
		d.current.Received = time.Now()
		return true

	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		d.current.Satellites = int(m.NumSatellites)
		d.current.HDOP = m.HDOP
		d.current.Altitude = m.Altitude
	}

	return false
}

// Fix returns the latest merged fix. Only meaningful after Feed reported a
// completed fix at least once.
func (d *Decoder) Fix() Fix {
	return d.current
}

// Reset drops any partially accumulated sentence. Used when the consumer
// stops servicing the stream (dark power-save) and buffered bytes would
// only yield stale fixes.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
}
