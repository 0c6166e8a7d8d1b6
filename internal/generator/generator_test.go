package generator

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendash/internal/dataprocessing"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 42
	return cfg
}

func TestGenerator_Shape(t *testing.T) {
	cfg := testConfig()
	rows := New(cfg, nil).Generate()

	wantSundays := 0
	for _, year := range cfg.Years {
		wantSundays += len(sundaysOf(year))
	}
	assert.Len(t, rows, wantSundays*len(cfg.Services))

	for _, rec := range rows {
		assert.Equal(t, time.Sunday, rec.Date.Weekday())
		assert.GreaterOrEqual(t, rec.Attendance, 0)
		assert.GreaterOrEqual(t, rec.KidsCheckedIn, 0)
		assert.NotEmpty(t, rec.Site)
		assert.NotEmpty(t, rec.Service)
		assert.NotEmpty(t, rec.YearWeek, "generated records must come out hydrated")
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	first := New(testConfig(), nil).Generate()
	second := New(testConfig(), nil).Generate()
	assert.Equal(t, first, second)
}

func TestGenerator_GrowthAcrossYears(t *testing.T) {
	cfg := testConfig()
	rows := New(cfg, nil).Generate()

	totals := make(map[string]int)
	for _, rec := range rows {
		totals[rec.Year] += rec.Attendance
	}
	assert.Greater(t, totals["2023"], totals["2022"])
	assert.Greater(t, totals["2024"], totals["2023"])
}

func TestSundaysOf(t *testing.T) {
	sundays := sundaysOf(2024)
	require.NotEmpty(t, sundays)
	assert.Equal(t, "2024-01-07", sundays[0].Format("2006-01-02"))
	assert.Equal(t, "2024-12-29", sundays[len(sundays)-1].Format("2006-01-02"))
	assert.Len(t, sundays, 52)
}

func TestEasterOf(t *testing.T) {
	tests := map[int]string{
		2022: "2022-04-17",
		2023: "2023-04-09",
		2024: "2024-03-31",
	}
	for year, want := range tests {
		assert.Equal(t, want, easterOf(year).Format("2006-01-02"))
	}
}

func TestSeasonalMultiplier(t *testing.T) {
	christmas := time.Date(2024, time.December, 22, 0, 0, 0, 0, time.Local)
	july := time.Date(2024, time.July, 14, 0, 0, 0, 0, time.Local)
	ordinary := time.Date(2024, time.February, 11, 0, 0, 0, 0, time.Local)

	assert.Greater(t, seasonalMultiplier(christmas, 2024), seasonalMultiplier(ordinary, 2024))
	assert.Less(t, seasonalMultiplier(july, 2024), seasonalMultiplier(ordinary, 2024))
	assert.GreaterOrEqual(t, seasonalMultiplier(july, 2024), 0.6)
}

func TestWriteCSV_ReimportsCleanly(t *testing.T) {
	cfg := testConfig()
	cfg.Years = []int{2024}
	rows := New(cfg, nil).Generate()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	parsed, err := dataprocessing.NewParser(nil).Parse(buf.String())
	require.NoError(t, err)
	assert.Len(t, parsed, len(rows))
	assert.Equal(t, rows[0].DateKey(), parsed[0].DateKey())
	assert.Equal(t, rows[0].Attendance, parsed[0].Attendance)
}

func TestWriteJSON(t *testing.T) {
	cfg := testConfig()
	cfg.Years = []int{2024}
	cfg.Services = cfg.Services[:1]
	rows := New(cfg, nil).Generate()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, rows))
	assert.Contains(t, buf.String(), `"Kids Checked-in"`)
	assert.Contains(t, buf.String(), `"Date": "2024-01-07"`)
}
