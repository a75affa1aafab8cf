package device

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
)

const knotsToKmh = 1.852

// FixReader turns an NMEA 0183 stream into location fixes. Only RMC
// sentences with an active fix are used; everything else is skipped.
type FixReader struct {
	r   *bufio.Reader
	now func() time.Time
}

func NewFixReader(r io.Reader) *FixReader {
	return &FixReader{r: bufio.NewReader(r), now: time.Now}
}

// Next blocks until the next usable fix. It returns io.EOF when the stream
// ends cleanly.
func (fr *FixReader) Next() (domain.Fix, error) {
	for {
		line, err := fr.r.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				return domain.Fix{}, io.EOF
			}
			return domain.Fix{}, fmt.Errorf("read nmea: %w", err)
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, perr := nmea.Parse(line)
		if perr != nil {
			// partial sentences are common right after the port opens
			continue
		}
		if sentence.DataType() != nmea.TypeRMC {
			continue
		}

		m := sentence.(nmea.RMC)
		if m.Validity != nmea.ValidRMC {
			continue
		}
		return fr.toFix(m), nil
	}
}

func (fr *FixReader) toFix(m nmea.RMC) domain.Fix {
	speed := m.Speed * knotsToKmh
	course := m.Course
	return domain.Fix{
		Lat:        m.Latitude,
		Lon:        m.Longitude,
		Speed:      &speed,
		Heading:    &course,
		CapturedAt: fr.capturedAt(m),
	}
}

// capturedAt uses the receiver's UTC date and time, falling back to the
// local clock when the sentence carries neither.
func (fr *FixReader) capturedAt(m nmea.RMC) time.Time {
	if !m.Date.Valid || !m.Time.Valid {
		return fr.now()
	}
	return time.Date(2000+m.Date.YY, time.Month(m.Date.MM), m.Date.DD,
		m.Time.Hour, m.Time.Minute, m.Time.Second, m.Time.Millisecond*int(time.Millisecond), time.UTC)
}
