// Package generator synthesizes a plausible multi-year attendance dataset for
// demos and load testing. The model layers yearly growth, holiday surges,
// summer slowdowns and gaussian weekly noise over per-service baselines.
package generator

import (
	"log/slog"
	"math"
	"math/rand"
	"time"

	"attendash/internal/dataprocessing"
	"attendash/pkg/contracts/domain"
)

// ServiceProfile is one recurring service with its baseline counts.
type ServiceProfile struct {
	Site           string
	Service        string
	BaseAttendance float64
	BaseKids       float64
}

// Config controls the synthesis model.
type Config struct {
	Years    []int
	Services []ServiceProfile

	// Year-over-year compound growth applied to the baselines.
	AttendanceGrowth float64
	KidsGrowth       float64

	// Standard deviation of the multiplicative weekly noise.
	AttendanceNoise float64
	KidsNoise       float64

	// Seed makes output reproducible. Zero seeds from the current time.
	Seed int64
}

// DefaultConfig returns the demo dataset model: four services across three
// years with moderate growth.
func DefaultConfig() Config {
	return Config{
		Years: []int{2022, 2023, 2024},
		Services: []ServiceProfile{
			{Site: "Central", Service: "9am", BaseAttendance: 200, BaseKids: 50},
			{Site: "Central", Service: "11am", BaseAttendance: 180, BaseKids: 30},
			{Site: "Central", Service: "6pm", BaseAttendance: 60, BaseKids: 5},
			{Site: "North", Service: "10am", BaseAttendance: 80, BaseKids: 20},
		},
		AttendanceGrowth: 0.13,
		KidsGrowth:       0.15,
		AttendanceNoise:  0.07,
		KidsNoise:        0.09,
	}
}

// Generator produces synthetic attendance records.
type Generator struct {
	cfg    Config
	rng    *rand.Rand
	logger *slog.Logger
}

// New creates a generator for the given config.
func New(cfg Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger.With(slog.String("component", "data_generator")),
	}
}

// Generate produces one hydrated record per (year, service, Sunday). Records
// are ordered year by year, service by service, week by week.
func (g *Generator) Generate() []domain.AttendanceRecord {
	var rows []domain.AttendanceRecord

	for yearIndex, year := range g.cfg.Years {
		sundays := sundaysOf(year)
		for _, profile := range g.cfg.Services {
			attendanceBase := profile.BaseAttendance * math.Pow(1+g.cfg.AttendanceGrowth, float64(yearIndex))
			kidsBase := profile.BaseKids * math.Pow(1+g.cfg.KidsGrowth, float64(yearIndex))

			for week, date := range sundays {
				seasonal := seasonalMultiplier(date, year)
				attendanceMean := attendanceBase * seasonal * (1 + float64(week)*0.0025)
				kidsMean := kidsBase * seasonal * (1 + float64(week)*0.003)

				attendance := g.sample(attendanceMean, g.cfg.AttendanceNoise)
				kids := g.sample(kidsMean, g.cfg.KidsNoise)

				rows = append(rows, dataprocessing.Hydrate(domain.AttendanceRecord{
					Week:          week + 1,
					Date:          date,
					Year:          date.Format("2006"),
					Month:         dataprocessing.MonthName(int(date.Month())),
					Site:          profile.Site,
					Service:       profile.Service,
					Attendance:    attendance,
					KidsCheckedIn: kids,
				}))
			}
		}
	}

	g.logger.Info("generated dataset",
		slog.Int("rows", len(rows)),
		slog.Int("years", len(g.cfg.Years)),
		slog.Int("services", len(g.cfg.Services)))
	return rows
}

// sample draws a non-negative count around the mean with gaussian noise.
func (g *Generator) sample(mean, noise float64) int {
	v := math.Round(mean * (1 + g.rng.NormFloat64()*noise))
	if v < 0 {
		return 0
	}
	return int(v)
}

// sundaysOf lists every Sunday of the year in order.
func sundaysOf(year int) []time.Time {
	date := time.Date(year, time.January, 1, 0, 0, 0, 0, time.Local)
	for date.Weekday() != time.Sunday {
		date = date.AddDate(0, 0, 1)
	}

	var sundays []time.Time
	for date.Year() == year {
		sundays = append(sundays, date)
		date = date.AddDate(0, 0, 7)
	}
	return sundays
}

// seasonalMultiplier layers Easter and Christmas surges over a summer
// slowdown, floored so no week collapses entirely.
func seasonalMultiplier(date time.Time, year int) float64 {
	multiplier := 1.0
	multiplier += gaussianBoost(date, easterOf(year), 10, 0.25)
	multiplier += gaussianBoost(date, time.Date(year, time.December, 24, 0, 0, 0, 0, time.Local), 8, 0.3)

	switch date.Month() {
	case time.June, time.July, time.August:
		multiplier -= 0.12
	case time.September:
		multiplier -= 0.05
	}

	return math.Max(multiplier, 0.6)
}

// gaussianBoost decays an amplitude with the squared distance in days from
// the center date.
func gaussianBoost(date, center time.Time, widthDays, amplitude float64) float64 {
	diffDays := math.Abs(date.Sub(center).Hours() / 24)
	return amplitude * math.Exp(-math.Pow(diffDays/widthDays, 2))
}

// easterOf computes Gregorian Easter Sunday (Meeus/Jones/Butcher algorithm).
func easterOf(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
}
