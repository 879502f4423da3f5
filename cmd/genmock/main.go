// Command genmock writes a deterministic mock GEMS measurement export for the
// configured stations, then scores it with the domain package and prints the
// resulting summaries so test assertions can be kept in sync.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/gems_mock.csv
//	go run ./cmd/genmock -out /tmp/gems.csv -samples 200 -seed 7 -stations configs/stations.yaml
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aquaaware/water-quality-service/internal/domain"
	"github.com/aquaaware/water-quality-service/internal/stations"
	"github.com/jonboulle/clockwork"
)

var baseDate = time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC)

// unmappedStation appears in the output but in no station map, to exercise
// the dropped-measurement path.
const unmappedStation = "IND09999"

// paramDef describes how to draw values for one parameter code.
type paramDef struct {
	code   string
	unit   string
	method string
	min    float64
	max    float64
	digits int
}

var params = []paramDef{
	{code: "pH", unit: "---", method: "APHA 4500-H+", min: 6.1, max: 9.1, digits: 2},
	{code: "Pb-Dis", unit: "mg/l", method: "APHA 3111-B", min: 0, max: 0.03, digits: 4},
	{code: "Cl-Dis", unit: "mg/l", method: "APHA 4500-Cl", min: 0.5, max: 8, digits: 2},
	{code: "F-Dis", unit: "mg/l", method: "APHA 4500-F", min: 0.3, max: 1.4, digits: 2},
	{code: "TS", unit: "mg/l", method: "APHA 2540-B", min: 20, max: 90, digits: 1},
	{code: "H-T", unit: "mg/l", method: "APHA 2340-C", min: 60, max: 190, digits: 1},
	{code: "H-Ca", unit: "mg/l", method: "APHA 3500-Ca", min: 40, max: 160, digits: 1},
	{code: "EC", unit: "µS/cm", method: "APHA 2510-B", min: 150, max: 900, digits: 0},
	{code: "TEMP", unit: "°C", method: "APHA 2550-B", min: 18, max: 33, digits: 1},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the mock CSV")
	samples := flag.Int("samples", 60, "sampling visits per station")
	seed := flag.Uint64("seed", 1, "random seed")
	stationFile := flag.String("stations", "", "YAML station map (default: built-in map)")
	flag.Parse()

	if *out == "" || *samples <= 0 {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out, -samples > 0")
	}

	pairs, err := stations.Load(*stationFile)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	rows := generate(bw, stationIDs(pairs), *samples, *seed)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	log.Printf("wrote %d rows to %s", rows, *out)

	return printStats(*out, pairs)
}

func stationIDs(pairs []domain.CityStation) []string {
	ids := make([]string, 0, len(pairs)+1)
	for _, p := range pairs {
		ids = append(ids, p.StationID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)
	return append(ids, unmappedStation)
}

// generate writes the header and samples*len(params) rows per station, and
// returns the number of data rows written.
func generate(w io.Writer, ids []string, samples int, seed uint64) int {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	writeRow(w, domain.Columns)
	rows := 0
	for _, id := range ids {
		day := baseDate
		for range samples {
			day = day.AddDate(0, 0, 7+rng.IntN(21))
			sampleTime := fmt.Sprintf("%02d:%02d", 8+rng.IntN(8), rng.IntN(60))
			depth := strconv.FormatFloat(0.1+rng.Float64()*0.9, 'f', 1, 64)
			for _, p := range params {
				writeRow(w, []string{
					id,
					day.Format(domain.DateLayout),
					sampleTime,
					depth,
					p.code,
					p.method,
					"",
					drawValue(rng, p),
					p.unit,
					quality(rng),
				})
				rows++
			}
		}
	}
	return rows
}

// drawValue returns a value in the parameter's typical range. About 4% of
// values are blank and about 8% are pushed well outside the range so the
// deviation rules fire.
func drawValue(rng *rand.Rand, p paramDef) string {
	r := rng.Float64()
	switch {
	case r < 0.04:
		return ""
	case r < 0.08:
		return strconv.FormatFloat(p.min*0.5, 'f', p.digits, 64)
	case r < 0.12:
		return strconv.FormatFloat(p.max*1.6, 'f', p.digits, 64)
	}
	v := p.min + rng.Float64()*(p.max-p.min)
	return strconv.FormatFloat(v, 'f', p.digits, 64)
}

func quality(rng *rand.Rand) string {
	if rng.IntN(20) == 0 {
		return "Suspect"
	}
	return "Good"
}

func writeRow(w io.Writer, fields []string) {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = strconv.Quote(f)
	}
	fmt.Fprintln(w, strings.Join(quoted, ";"))
}

func printStats(path string, pairs []domain.CityStation) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	// Fixed clock so printed summaries are reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(baseDate))
	defer domain.SetClock(clockwork.NewRealClock())

	index, err := domain.NewStationIndex(pairs)
	if err != nil {
		return err
	}
	parser, err := domain.NewParser(f)
	if err != nil {
		return err
	}
	res := domain.NewScorer(domain.DefaultRules(), nil).ScoreCities(parser.Measurements(), index)
	if err := parser.Err(); err != nil {
		return err
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Rows: %d, parsed: %d, malformed: %d, dropped: %d\n",
		parser.Rows(), parser.Parsed(), len(parser.Errors()), res.Dropped)

	tags := make([]string, 0, len(res.ByTag))
	for tag := range res.ByTag {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	fmt.Print("Rule firings:")
	for _, tag := range tags {
		fmt.Printf(" %q=%d", tag, res.ByTag[tag])
	}
	fmt.Println()

	fmt.Println("\nSummaries:")
	for _, s := range domain.SummarizeAll(res) {
		fmt.Printf("  %-10s score=%3.0f quality=%-9s last=%s pollutants=%v\n",
			s.City, s.QualityScore, s.Quality, s.LastUpdated.Format(domain.DateLayout), s.MainPollutants)
	}
	return nil
}
