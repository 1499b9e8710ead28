package logger

import (
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// lokiPush is the body of a Loki /loki/api/v1/push request.
type lokiPush struct {
	Streams []lokiStream `json:"streams"`
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	// each value is a [unix-nanos, line] pair
	Values [][2]string `json:"values"`
}

// jobName labels the stream. APP_NAME wins when set.
func jobName() string {
	if name := os.Getenv("APP_NAME"); name != "" {
		return name
	}
	return "storefront"
}

func buildLogEntry(level, message string, attrs []slog.Attr, now time.Time) lokiPush {
	return lokiPush{Streams: []lokiStream{{
		Stream: map[string]string{"level": level, "job": jobName()},
		Values: [][2]string{{strconv.FormatInt(now.UnixNano(), 10), buildLogLine(level, message, attrs, now)}},
	}}}
}

// buildLogLine renders the record as one JSON object. Attributes go in first
// so they cannot shadow the fixed fields.
func buildLogLine(level, message string, attrs []slog.Attr, now time.Time) string {
	line := make(map[string]any, len(attrs)+3)
	for _, a := range attrs {
		line[a.Key] = a.Value.Resolve().Any()
	}
	line["level"] = level
	line["message"] = message
	line["time"] = now.Format(time.RFC3339)

	b, err := json.Marshal(line)
	if err != nil {
		b, _ = json.Marshal(map[string]string{"level": level, "message": message})
	}
	return string(b)
}
