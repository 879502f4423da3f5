package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeader = `"GEMS.Station.Number";"Sample.Date";"Sample.Time";"Depth";"Parameter.Code";"Analysis.Method.Code";"Value.Flags";"Value";"Unit";"Data.Quality"`

func rows(lines ...string) string {
	return testHeader + "\n" + strings.Join(lines, "\n") + "\n"
}

func TestNewParser_Header(t *testing.T) {
	t.Run("quoted header accepted", func(t *testing.T) {
		_, err := NewParser(strings.NewReader(testHeader + "\n"))
		require.NoError(t, err)
	})

	t.Run("byte order mark stripped", func(t *testing.T) {
		_, err := NewParser(strings.NewReader("\ufeff" + testHeader + "\n"))
		require.NoError(t, err)
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := NewParser(strings.NewReader(`"GEMS.Station.Number";"Sample.Date";"Value"` + "\n"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingColumn))
		assert.Contains(t, err.Error(), ColSampleTime)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := NewParser(strings.NewReader(""))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty input")
	})
}

func TestParser_Measurements(t *testing.T) {
	input := rows(
		`"IND01116";"2019-03-12";"10:30";"0.3";"pH";"APHA 4500-H+";"";"7.9";"---";"Fair"`,
		`"IND01116";"2019-04-02";" 09:00 ";"";"Pb-Dis";"";"";" 0.02 ";"mg/l";"Good"`,
	)

	p, err := NewParser(strings.NewReader(input))
	require.NoError(t, err)
	got := p.Collect()

	require.Len(t, got, 2)
	assert.Empty(t, p.Errors())
	assert.Equal(t, 2, p.Rows())
	assert.Equal(t, 2, p.Parsed())

	first := got[0]
	assert.Equal(t, "IND01116", first.StationID)
	assert.Equal(t, time.Date(2019, 3, 12, 0, 0, 0, 0, time.UTC), first.SampleDate)
	assert.Equal(t, "10:30", first.SampleTime)
	require.NotNil(t, first.Depth)
	assert.Equal(t, 0.3, *first.Depth)
	assert.Equal(t, "pH", first.ParameterCode)
	require.NotNil(t, first.Value)
	assert.Equal(t, 7.9, *first.Value)
	assert.Equal(t, "---", first.Unit)
	assert.Equal(t, "Fair", first.DataQuality)

	second := got[1]
	assert.Equal(t, "09:00", second.SampleTime)
	assert.Nil(t, second.Depth)
	require.NotNil(t, second.Value)
	assert.Equal(t, 0.02, *second.Value)
}

func TestParser_ValueCoercion(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  *float64
	}{
		{"decimal", "8.6", ptr(8.6)},
		{"integer", "13", ptr(13)},
		{"empty", "", nil},
		{"non-numeric", "<0.01", nil},
		{"NaN literal", "NaN", nil},
		{"infinity literal", "Inf", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := rows(`"S1";"2020-01-01";"";"";"pH";"";"";"` + tt.value + `";"";""`)
			p, err := NewParser(strings.NewReader(input))
			require.NoError(t, err)

			got := p.Collect()
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Value)
		})
	}
}

func TestParser_MalformedRowsRecorded(t *testing.T) {
	input := rows(
		`"S1";"2020-01-01";"";"";"pH";"";"";"7";"";""`,
		`"S1";"2020-01-02";"";"";"pH"`,                         // too few fields
		`"";"2020-01-03";"";"";"pH";"";"";"7";"";""`,           // no station
		`"S1";"03/01/2020";"";"";"pH";"";"";"7";"";""`,         // bad date
		``,                                                     // blank, skipped
		`"S1";"2020-01-05";"";"";"TS";"";"";"12";"mg/l";"Good"`,
	)

	p, err := NewParser(strings.NewReader(input))
	require.NoError(t, err)
	got := p.Collect()

	require.NoError(t, p.Err())
	assert.Len(t, got, 2)
	require.Len(t, p.Errors(), 3)
	assert.Equal(t, 5, p.Rows())
	assert.Equal(t, p.Rows(), p.Parsed()+len(p.Errors()))

	assert.Equal(t, 3, p.Errors()[0].Line)
	assert.Contains(t, p.Errors()[0].Error(), "expected 10 fields")
	assert.Contains(t, p.Errors()[1].Error(), ColStation)
	assert.Contains(t, p.Errors()[2].Error(), ColSampleDate)
}

func TestParser_LazyStopsEarly(t *testing.T) {
	input := rows(
		`"S1";"2020-01-01";"";"";"pH";"";"";"7";"";""`,
		`"S1";"2020-01-02";"";"";"pH";"";"";"7";"";""`,
		`"S1";"2020-01-03";"";"";"pH";"";"";"7";"";""`,
	)
	p, err := NewParser(strings.NewReader(input))
	require.NoError(t, err)

	for range p.Measurements() {
		break
	}
	assert.Equal(t, 1, p.Rows())
}

func TestDecodePollutants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"json array", `["pH imbalance","Lead contamination"]`, []string{TagPH, TagLead}},
		{"empty json array", `[]`, []string{}},
		{"json null", `null`, []string{}},
		{"empty string", ``, []string{}},
		{"comma separated", `pH imbalance, Water hardness`, []string{TagPH, TagHardness}},
		{"postgres array literal", `{"pH imbalance","Low fluoride"}`, []string{TagPH, TagFluoride}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodePollutants(tt.input))
		})
	}
}

func TestEncodePollutants(t *testing.T) {
	assert.Equal(t, `[]`, EncodePollutants(nil))
	assert.Equal(t, `["pH imbalance"]`, EncodePollutants([]string{TagPH}))
}

func ptr(v float64) *float64 { return &v }
