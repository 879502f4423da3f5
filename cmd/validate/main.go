// Command validate cross-checks the summaries served by a running API against
// a local recompute of the same GEMS export. It verifies that every mapped
// city is served with the expected score, label, date and pollutants, and that
// per-city detail responses are consistent with the list.
//
// Usage:
//
//	go run ./cmd/validate -api http://localhost:8080 -file data/mock/gems_mock.csv
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/aquaaware/water-quality-service/internal/domain"
	"github.com/aquaaware/water-quality-service/internal/stations"
)

const detailLimit = 100

type summaryJSON struct {
	City           string   `json:"city"`
	Quality        string   `json:"quality"`
	QualityScore   float64  `json:"qualityScore"`
	LastUpdated    *string  `json:"lastUpdated"`
	MainPollutants []string `json:"mainPollutants"`
}

type measurementJSON struct {
	StationID     string   `json:"station_id"`
	SampleDate    string   `json:"sample_date"`
	ParameterCode string   `json:"parameter_code"`
	Value         *float64 `json:"value"`
}

type detailJSON struct {
	Summary      *summaryJSON      `json:"summary"`
	Measurements []measurementJSON `json:"measurements"`
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	apiURL := flag.String("api", "http://localhost:8080", "base URL of the running API")
	file := flag.String("file", "", "GEMS CSV the API was ingested from")
	stationFile := flag.String("stations", "", "YAML station map (default: built-in map)")
	accumulation := flag.String("accumulation", "absolute", "score accumulation: absolute or clamped")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*apiURL, *file, *stationFile, *accumulation); code != 0 {
		os.Exit(code)
	}
}

func run(apiURL, file, stationFile, accumulation string) int {
	fmt.Println("=== Water Quality Summary Validation ===")
	fmt.Println()

	expected, err := recompute(file, stationFile, accumulation)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: recompute: %v\n", err)
		return 1
	}

	client := &http.Client{Timeout: 10 * time.Second}
	var served []summaryJSON
	if err := getJSON(client, apiURL+"/water-quality", &served); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: fetch summaries: %v\n", err)
		return 1
	}

	details := make(map[string]detailJSON, len(served))
	for _, s := range served {
		var d detailJSON
		if err := getJSON(client, apiURL+"/water-quality/"+url.PathEscape(s.City), &d); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: fetch detail %s: %v\n", s.City, err)
			return 1
		}
		details[s.City] = d
	}

	var unknown detailJSON
	if err := getJSON(client, apiURL+"/water-quality/"+url.PathEscape("No Such City"), &unknown); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: fetch unknown city: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSummaries(expected, served),
		validateDetails(served, details),
		validateUnknownCity(unknown),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Cities: %d expected, %d served\n", len(expected), len(served))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func recompute(file, stationFile, accumulation string) (map[string]domain.CitySummary, error) {
	index, err := stations.Index(stationFile)
	if err != nil {
		return nil, err
	}
	accumulate, err := domain.AccumulatorByName(accumulation)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	parser, err := domain.NewParser(f)
	if err != nil {
		return nil, err
	}
	res := domain.NewScorer(domain.DefaultRules(), accumulate).ScoreCities(parser.Measurements(), index)
	if err := parser.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]domain.CitySummary, len(res.Cities))
	for _, s := range domain.SummarizeAll(res) {
		out[s.City] = s
	}
	return out, nil
}

func validateSummaries(expected map[string]domain.CitySummary, served []summaryJSON) *phase {
	p := &phase{name: "Summaries match local recompute"}

	seen := make(map[string]bool, len(served))
	for _, got := range served {
		seen[got.City] = true
		want, ok := expected[got.City]
		if !ok {
			p.errorf("%s: served but not in station map", got.City)
			continue
		}
		if got.Quality != string(want.Quality) {
			p.errorf("%s: quality %q, want %q", got.City, got.Quality, want.Quality)
		}
		if math.Abs(got.QualityScore-want.QualityScore) > 1e-9 {
			p.errorf("%s: qualityScore %g, want %g", got.City, got.QualityScore, want.QualityScore)
		}
		if wantDate := dateOrEmpty(want.LastUpdated); deref(got.LastUpdated) != wantDate {
			p.errorf("%s: lastUpdated %q, want %q", got.City, deref(got.LastUpdated), wantDate)
		}
		if !slices.Equal(got.MainPollutants, want.MainPollutants) {
			p.errorf("%s: mainPollutants %v, want %v", got.City, got.MainPollutants, want.MainPollutants)
		}
	}
	for city := range expected {
		if !seen[city] {
			p.errorf("%s: expected but not served", city)
		}
	}
	return p
}

func validateDetails(served []summaryJSON, details map[string]detailJSON) *phase {
	p := &phase{name: "City detail consistent with list"}

	for _, s := range served {
		d := details[s.City]
		if d.Summary == nil {
			p.errorf("%s: detail summary is null", s.City)
			continue
		}
		if d.Summary.QualityScore != s.QualityScore || d.Summary.Quality != s.Quality {
			p.errorf("%s: detail summary %g/%s differs from list %g/%s",
				s.City, d.Summary.QualityScore, d.Summary.Quality, s.QualityScore, s.Quality)
		}
		if len(d.Measurements) > detailLimit {
			p.errorf("%s: %d measurements, limit is %d", s.City, len(d.Measurements), detailLimit)
		}
		if !slices.IsSortedFunc(d.Measurements, func(a, b measurementJSON) int {
			return strings.Compare(b.SampleDate, a.SampleDate)
		}) {
			p.errorf("%s: measurements not ordered by sample_date descending", s.City)
		}
		if len(d.Measurements) > 0 && s.LastUpdated != nil && d.Measurements[0].SampleDate != *s.LastUpdated {
			p.errorf("%s: newest measurement %s, lastUpdated %s", s.City, d.Measurements[0].SampleDate, *s.LastUpdated)
		}
	}
	return p
}

func validateUnknownCity(d detailJSON) *phase {
	p := &phase{name: "Unknown city returns empty detail"}
	if d.Summary != nil {
		p.errorf("summary is %+v, want null", *d.Summary)
	}
	if d.Measurements == nil {
		p.errorf("measurements is null, want []")
	} else if len(d.Measurements) != 0 {
		p.errorf("%d measurements, want 0", len(d.Measurements))
	}
	return p
}

func getJSON(client *http.Client, u string, dst any) error {
	resp, err := client.Get(u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func dateOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(domain.DateLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
