package bench

import (
	"regexp"
	"strconv"
	"strings"
)

// TotalClientTime is the timing key holding the client-observed latency of a trial.
const TotalClientTime = "TOTAL_CLIENT_TIME"

type MarkerKind int

const (
	MarkerTiming MarkerKind = iota + 1
	MarkerInfo
)

func (k MarkerKind) String() string {
	switch k {
	case MarkerTiming:
		return "timing"
	case MarkerInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Marker is one parsed server log line.
//
//	BENCH: <name> <ms>       timing
//	BENCH: [<name>] <value>  frame information
type Marker struct {
	Kind   MarkerKind
	Name   string
	Millis int64
	Value  string
}

var markerPattern = regexp.MustCompile(`^BENCH: (?:(\w+) (\d+)|\[(\w+)\] (.+))$`)

// ParseMarker returns the marker carried by line. Lines that are not markers,
// including timings that overflow int64, report false.
func ParseMarker(line string) (Marker, bool) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "BENCH: ") {
		return Marker{}, false
	}

	m := markerPattern.FindStringSubmatch(line)
	if m == nil {
		return Marker{}, false
	}

	if m[1] != "" {
		ms, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return Marker{}, false
		}
		return Marker{Kind: MarkerTiming, Name: m[1], Millis: ms}, true
	}

	return Marker{Kind: MarkerInfo, Name: m[3], Value: m[4]}, true
}
