package config

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

func validateCpu(limit string) error {
	limit = strings.TrimSpace(limit)
	if limit == "" {
		return errors.New("cpu limit is empty")
	}

	parsed, err := strconv.ParseFloat(limit, 64)
	if err != nil || parsed <= 0 {
		return errors.New("cpu limit must be a positive number of cpus")
	}

	return nil
}

// normalizeMemoryLimit converts "512mb" style limits into the single-letter
// units docker accepts ("512m").
func normalizeMemoryLimit(limit string) (string, error) {
	limit = strings.TrimSpace(limit)
	if limit == "" {
		return "", errors.New("memory limit is empty")
	}

	lower := strings.ToLower(limit)
	value := strings.TrimRight(lower, "abcdefghijklmnopqrstuvwxyz")
	unit := strings.TrimSpace(lower[len(value):])
	value = strings.TrimSpace(value)

	const usage = "memory limit must be a number with optional unit (b, k, m, g, kb, mb, gb)"
	if value == "" {
		return "", errors.New(usage)
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return "", errors.New(usage)
	}

	switch unit {
	case "", "b":
		return value + "b", nil
	case "k", "kb":
		return value + "k", nil
	case "m", "mb":
		return value + "m", nil
	case "g", "gb":
		return value + "g", nil
	default:
		return "", errors.New(usage)
	}
}

func parseDuration(value, defaultValue string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		value = defaultValue
	}
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("must be >= 0")
	}
	return d, nil
}
