package http

import (
	"context"
	"net/http"

	"github.com/aquaaware/water-quality-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

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
	Unit          string   `json:"unit"`
	DataQuality   string   `json:"data_quality"`
}

type detailJSON struct {
	Summary      *summaryJSON      `json:"summary"`
	Measurements []measurementJSON `json:"measurements"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout)
	defer cancel()

	summaries, err := s.reader.ListCitySummaries(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]summaryJSON, len(summaries))
	for i := range summaries {
		out[i] = toSummaryJSON(summaries[i])
	}
	sharedobs.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout)
	defer cancel()

	city := r.PathValue("city")
	detail, err := s.reader.GetCityDetail(ctx, city)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := detailJSON{Measurements: make([]measurementJSON, len(detail.Measurements))}
	if detail.Summary != nil {
		sum := toSummaryJSON(*detail.Summary)
		out.Summary = &sum
	}
	for i, m := range detail.Measurements {
		out.Measurements[i] = measurementJSON{
			StationID:     m.StationID,
			SampleDate:    m.SampleDate.Format(domain.DateLayout),
			ParameterCode: m.ParameterCode,
			Value:         m.Value,
			Unit:          m.Unit,
			DataQuality:   m.DataQuality,
		}
	}
	sharedobs.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("query failed", "path", r.URL.Path, "error", err)
	sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func toSummaryJSON(s domain.CitySummary) summaryJSON {
	out := summaryJSON{
		City:           s.City,
		Quality:        string(s.Quality),
		QualityScore:   s.QualityScore,
		MainPollutants: s.MainPollutants,
	}
	if out.MainPollutants == nil {
		out.MainPollutants = []string{}
	}
	if !s.LastUpdated.IsZero() {
		d := s.LastUpdated.Format(domain.DateLayout)
		out.LastUpdated = &d
	}
	return out
}
