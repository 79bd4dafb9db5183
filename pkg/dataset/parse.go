package dataset

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/marmos91/cityfs/internal/logger"
	"github.com/marmos91/cityfs/pkg/dataset/source"
)

// recordFields is the number of comma separated fields per line:
// country code, city, latitude, longitude, population, timezone.
const recordFields = 6

// maxLineSize bounds a single input line.
const maxLineSize = 1 << 20

// ErrSourceUnavailable is returned by Load when the ingestion source cannot
// be opened or read. It is the only fatal error of cityfs.
var ErrSourceUnavailable = errors.New("dataset source unavailable")

// ParseStats summarises a parse run.
type ParseStats struct {
	Records int
	Skipped int
}

// ParseRecords reads comma separated city records from r and calls fn for
// each one.
//
// Lines are split into at most six fields, so the last field (timezone)
// may itself contain commas. Missing trailing fields are left empty. Blank
// lines and lines starting with '#' are ignored; lines without a country
// code or a city name are skipped and counted.
func ParseRecords(r io.Reader, fn func(Record) error) (ParseStats, error) {
	var stats ParseStats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if len(strings.TrimSpace(line)) == 0 || line[0] == '#' {
			continue
		}

		fields := strings.SplitN(line, ",", recordFields)
		for len(fields) < recordFields {
			fields = append(fields, "")
		}

		rec := Record{
			CountryCode: strings.TrimSpace(fields[0]),
			CityName:    strings.TrimSpace(fields[1]),
			Latitude:    strings.TrimSpace(fields[2]),
			Longitude:   strings.TrimSpace(fields[3]),
			Population:  strings.TrimSpace(fields[4]),
			Timezone:    strings.TrimSpace(fields[5]),
		}
		if rec.CountryCode == "" || rec.CityName == "" || strings.Contains(rec.CityName, "/") {
			stats.Skipped++
			continue
		}

		if err := fn(rec); err != nil {
			return stats, err
		}
		stats.Records++
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read records: %w", err)
	}

	return stats, nil
}

// Parse builds a Dataset from the records in r.
func Parse(r io.Reader) (*Dataset, ParseStats, error) {
	b := NewBuilder()
	stats, err := ParseRecords(r, func(rec Record) error {
		b.Add(rec)
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	return b.Build(), stats, nil
}

// Load opens src and builds a Dataset from it.
//
// Any failure to open or read the source is wrapped with
// ErrSourceUnavailable.
func Load(ctx context.Context, src source.Source) (*Dataset, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, src.Name(), err)
	}
	defer func() { _ = rc.Close() }()

	ds, stats, err := Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, src.Name(), err)
	}

	if stats.Skipped > 0 {
		logger.Warn("Skipped %d malformed record(s) in %s", stats.Skipped, src.Name())
	}
	logger.Info("Loaded %d record(s) from %s: %d countries, %d cities",
		stats.Records, src.Name(), ds.Len(), ds.CityCount())

	return ds, nil
}
