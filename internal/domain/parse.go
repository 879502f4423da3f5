package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"strconv"
	"strings"
	"time"
)

// Column names of the GEMS export header.
const (
	ColStation        = "GEMS.Station.Number"
	ColSampleDate     = "Sample.Date"
	ColSampleTime     = "Sample.Time"
	ColDepth          = "Depth"
	ColParameterCode  = "Parameter.Code"
	ColAnalysisMethod = "Analysis.Method.Code"
	ColValueFlags     = "Value.Flags"
	ColValue          = "Value"
	ColUnit           = "Unit"
	ColDataQuality    = "Data.Quality"
)

// Columns lists the header in export order.
var Columns = []string{
	ColStation, ColSampleDate, ColSampleTime, ColDepth, ColParameterCode,
	ColAnalysisMethod, ColValueFlags, ColValue, ColUnit, ColDataQuality,
}

// Parser reads semicolon-delimited GEMS rows lazily. Malformed rows are recorded
// in Errors and skipped; for a fully consumed input Parsed()+len(Errors()) == Rows().
type Parser struct {
	r     *csv.Reader
	index map[string]int
	width int

	rows   int
	parsed int
	errs   []*ParseError
	err    error
}

// NewParser reads the header row and returns a parser positioned at the first
// data row. A header lacking any of Columns yields ErrMissingColumn.
func NewParser(r io.Reader) (*Parser, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("parse header: empty input")
		}
		return nil, fmt.Errorf("parse header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = cleanField(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		index[h] = i
	}
	for _, col := range Columns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("parse header: %w: %s", ErrMissingColumn, col)
		}
	}

	return &Parser{r: cr, index: index, width: len(header)}, nil
}

// Measurements yields normalized records until the input is exhausted or a
// non-recoverable read error occurs (see Err).
func (p *Parser) Measurements() iter.Seq[Measurement] {
	return func(yield func(Measurement) bool) {
		for {
			record, err := p.r.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				var perr *csv.ParseError
				if !errors.As(err, &perr) {
					p.err = fmt.Errorf("read row: %w", err)
					return
				}
				p.rows++
				p.errs = append(p.errs, &ParseError{Line: perr.Line, Err: perr.Err})
				continue
			}

			p.rows++
			line, _ := p.r.FieldPos(0)
			m, err := p.parseRecord(record)
			if err != nil {
				p.errs = append(p.errs, &ParseError{Line: line, Err: err})
				continue
			}
			p.parsed++
			if !yield(m) {
				return
			}
		}
	}
}

// Collect drains the parser into a slice.
func (p *Parser) Collect() []Measurement {
	var out []Measurement
	for m := range p.Measurements() {
		out = append(out, m)
	}
	return out
}

// Rows returns the number of non-blank data rows read so far.
func (p *Parser) Rows() int { return p.rows }

// Parsed returns the number of rows that produced a Measurement.
func (p *Parser) Parsed() int { return p.parsed }

// Errors returns the row-level errors collected so far.
func (p *Parser) Errors() []*ParseError { return p.errs }

// Err returns the read error that stopped iteration, if any.
func (p *Parser) Err() error { return p.err }

func (p *Parser) parseRecord(record []string) (Measurement, error) {
	if len(record) != p.width {
		return Measurement{}, fmt.Errorf("expected %d fields, got %d", p.width, len(record))
	}

	field := func(col string) string { return cleanField(record[p.index[col]]) }

	station := field(ColStation)
	if station == "" {
		return Measurement{}, fmt.Errorf("empty %s", ColStation)
	}

	rawDate := field(ColSampleDate)
	date, err := time.Parse(DateLayout, rawDate)
	if err != nil {
		return Measurement{}, fmt.Errorf("invalid %s %q", ColSampleDate, rawDate)
	}

	return Measurement{
		StationID:     station,
		SampleDate:    date,
		SampleTime:    field(ColSampleTime),
		Depth:         parseOptionalFloat(field(ColDepth)),
		ParameterCode: field(ColParameterCode),
		Value:         parseOptionalFloat(field(ColValue)),
		Unit:          field(ColUnit),
		DataQuality:   field(ColDataQuality),
	}, nil
}

// cleanField strips quote characters and surrounding whitespace.
func cleanField(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}

// parseOptionalFloat returns nil for empty, non-numeric, or non-finite input.
func parseOptionalFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
