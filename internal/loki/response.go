package loki

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/Amazomic/loki-analyzer/internal/classify"
	"github.com/Amazomic/loki-analyzer/internal/models"
)

// queryRangeResponse is the envelope returned by /loki/api/v1/query_range.
type queryRangeResponse struct {
	Status string `json:"status"`
	Data   *struct {
		ResultType string   `json:"resultType"`
		Result     []stream `json:"result"`
	} `json:"data"`
}

type stream struct {
	Stream map[string]string `json:"stream"`
	Values []json.RawMessage `json:"values"`
}

// decodeEntries converts a query_range body into classified entries sorted by
// timestamp, newest first. Anything other than a successful streams result
// yields no entries.
func decodeEntries(body []byte) ([]models.LogEntry, error) {
	var resp queryRangeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if resp.Status != "success" || resp.Data == nil || resp.Data.Result == nil {
		return []models.LogEntry{}, nil
	}
	if rt := resp.Data.ResultType; rt != "" && rt != "streams" {
		return []models.LogEntry{}, nil
	}

	entries := make([]models.LogEntry, 0)
	for _, s := range resp.Data.Result {
		for _, raw := range s.Values {
			var pair [2]string
			if err := json.Unmarshal(raw, &pair); err != nil {
				return nil, fmt.Errorf("decoding stream value: %w", err)
			}
			ts, err := decodeTimestamp(pair[0])
			if err != nil {
				return nil, err
			}
			level, line := classify.Classify(pair[1])
			entries = append(entries, models.NewLogEntry(ts, line, level))
		}
	}

	sortNewestFirst(entries)
	return entries, nil
}

// decodeTimestamp converts a nanosecond epoch string to a millisecond-precision time.
func decodeTimestamp(ns string) (time.Time, error) {
	n, err := strconv.ParseInt(ns, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", ns, err)
	}
	return time.UnixMilli(n / int64(time.Millisecond)).UTC(), nil
}

// sortNewestFirst orders entries by timestamp descending. Entries with equal
// timestamps keep their arrival order.
func sortNewestFirst(entries []models.LogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}
