package main

import (
	"testing"
	"time"

	"github.com/aquaaware/water-quality-service/internal/domain"
	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func TestValidateSummaries(t *testing.T) {
	expected := map[string]domain.CitySummary{
		"Bangalore": {City: "Bangalore", Quality: domain.Excellent, QualityScore: 85,
			LastUpdated: time.Date(2021, 6, 3, 0, 0, 0, 0, time.UTC), MainPollutants: []string{domain.TagPH}},
		"Pune": {City: "Pune", Quality: domain.Excellent, QualityScore: 100, MainPollutants: []string{}},
	}

	ok := validateSummaries(expected, []summaryJSON{
		{City: "Bangalore", Quality: "Excellent", QualityScore: 85, LastUpdated: ptr("2021-06-03"), MainPollutants: []string{domain.TagPH}},
		{City: "Pune", Quality: "Excellent", QualityScore: 100, MainPollutants: []string{}},
	})
	assert.True(t, ok.passed(), ok.errors)

	bad := validateSummaries(expected, []summaryJSON{
		{City: "Bangalore", Quality: "Good", QualityScore: 70, LastUpdated: ptr("2021-06-03"), MainPollutants: []string{domain.TagPH}},
		{City: "Goa", Quality: "Excellent", QualityScore: 100},
	})
	assert.False(t, bad.passed())
	assert.Len(t, bad.errors, 4) // quality, score, unexpected Goa, missing Pune
}

func TestValidateDetails(t *testing.T) {
	served := []summaryJSON{{City: "Bangalore", Quality: "Excellent", QualityScore: 85, LastUpdated: ptr("2021-06-03")}}

	ok := validateDetails(served, map[string]detailJSON{
		"Bangalore": {
			Summary: &served[0],
			Measurements: []measurementJSON{
				{SampleDate: "2021-06-03"},
				{SampleDate: "2021-06-01"},
			},
		},
	})
	assert.True(t, ok.passed(), ok.errors)

	unordered := validateDetails(served, map[string]detailJSON{
		"Bangalore": {
			Summary: &served[0],
			Measurements: []measurementJSON{
				{SampleDate: "2021-06-01"},
				{SampleDate: "2021-06-03"},
			},
		},
	})
	assert.False(t, unordered.passed())
}

func TestValidateUnknownCity(t *testing.T) {
	assert.True(t, validateUnknownCity(detailJSON{Measurements: []measurementJSON{}}).passed())
	assert.False(t, validateUnknownCity(detailJSON{}).passed())
}
