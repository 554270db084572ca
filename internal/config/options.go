package config

import (
	"os"
	"strconv"
	"strings"

	"payables-consolidation-backend/internal/models"
	"payables-consolidation-backend/internal/services/filterengine"
	"payables-consolidation-backend/internal/services/matching"
	"payables-consolidation-backend/internal/services/normalizer"
)

// Options is the pipeline configuration, read from the environment with the
// documented defaults. Recognized variables:
//
//	AMOUNT_TOLERANCE_MINOR_UNITS (default 0)
//	DATE_WINDOW_DAYS             (default 5)
//	VENDOR_SIMILARITY_THRESHOLD  (default 0.8)
//	INCLUDE_STATUSES             (comma-separated, default OPEN)
//	LOOKAHEAD_DAYS               (default 0)
//	MIN_DAYS_OVERDUE             (default 0)
//	DATE_FORMATS                 (comma-separated Go layouts, day-first default)
//	MATCH_WORKERS                (default 4)
type Options struct {
	Matching   matching.Config
	Filter     filterengine.Options
	Normalizer normalizer.Options
}

func LoadOptions() Options {
	opts := Options{
		Matching:   matching.DefaultConfig(),
		Filter:     filterengine.DefaultOptions(),
		Normalizer: normalizer.DefaultOptions(),
	}

	opts.Matching.AmountToleranceMinor = envInt64("AMOUNT_TOLERANCE_MINOR_UNITS", opts.Matching.AmountToleranceMinor)
	opts.Matching.DateWindowDays = envInt("DATE_WINDOW_DAYS", opts.Matching.DateWindowDays)
	opts.Matching.VendorSimilarityThreshold = envFloat("VENDOR_SIMILARITY_THRESHOLD", opts.Matching.VendorSimilarityThreshold)
	opts.Matching.Workers = envInt("MATCH_WORKERS", opts.Matching.Workers)

	opts.Filter.LookaheadDays = envInt("LOOKAHEAD_DAYS", opts.Filter.LookaheadDays)
	opts.Filter.MinDaysOverdue = envInt("MIN_DAYS_OVERDUE", opts.Filter.MinDaysOverdue)

	if raw := os.Getenv("INCLUDE_STATUSES"); raw != "" {
		statuses := make(map[models.InvoiceStatus]bool)
		for _, s := range strings.Split(raw, ",") {
			statuses[normalizer.ParseStatus(s)] = true
		}
		opts.Filter.IncludeStatuses = statuses
	}

	if raw := os.Getenv("DATE_FORMATS"); raw != "" {
		var formats []string
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				formats = append(formats, f)
			}
		}
		if len(formats) > 0 {
			opts.Normalizer.DateFormats = formats
		}
	}

	return opts
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}
