package discord

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PnDTnHnMn.nS: días, horas, minutos y segundos (con fracción), cada parte con signo opcional.
var reISODuration = regexp.MustCompile(`^([-+]?)P(?:([-+]?\d+)D)?(?:T(?:([-+]?\d+)H)?(?:([-+]?\d+)M)?(?:([-+]?\d+)(?:[.,](\d{1,9}))?S)?)?$`)

// parseDuration acepta ISO-8601 (PT30M, P1D, PT1H30M) y, como atajo, el formato de Go (90m).
func parseDuration(raw string) (time.Duration, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return 0, fmt.Errorf("duración vacía")
	}
	if d, err := parseISODuration(s); err == nil {
		return d, nil
	}
	if d, err := time.ParseDuration(strings.ToLower(s)); err == nil {
		return d, nil
	}
	return 0, fmt.Errorf("duración inválida %q: usá ISO-8601, por ejemplo `P1D` (1 día) o `PT30M` (30 minutos)", raw)
}

func parseISODuration(s string) (time.Duration, error) {
	m := reISODuration.FindStringSubmatch(s)
	// "P" y "PT" a secas no son válidos
	if m == nil || strings.HasSuffix(s, "P") || strings.HasSuffix(s, "T") {
		return 0, fmt.Errorf("not an ISO-8601 duration: %q", s)
	}

	var total time.Duration
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	for i, unit := range units {
		part := m[i+2]
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0, err
		}
		total += time.Duration(n) * unit
	}
	if frac := m[6]; frac != "" {
		ns, _ := strconv.ParseInt((frac + "000000000")[:9], 10, 64)
		if strings.HasPrefix(m[5], "-") {
			ns = -ns
		}
		total += time.Duration(ns)
	}
	if m[1] == "-" {
		total = -total
	}
	return total, nil
}
