package loki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Amazomic/loki-analyzer/internal/models"
)

// *For any* valid backend response, Fetch SHALL return entries sorted by
// descending timestamp, regardless of the order values arrived in across streams.
func TestPropertyFetchOrdersNewestFirst(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	genStream := gen.SliceOf(gen.Int64Range(0, 4_000_000_000_000_000_000))
	genStreams := gen.SliceOfN(3, genStream)

	properties.Property("entries are newest first and none are lost", prop.ForAll(
		func(streams [][]int64) bool {
			body := buildQueryRangeBody(streams)

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write(body)
			}))
			defer srv.Close()

			client := NewClient(WithHTTPClient(srv.Client()))
			entries, err := client.Fetch(context.Background(), models.QueryConfig{URL: srv.URL})
			if err != nil {
				t.Logf("Fetch error: %v", err)
				return false
			}

			total := 0
			for _, s := range streams {
				total += len(s)
			}
			if len(entries) != total {
				t.Logf("expected %d entries, got %d", total, len(entries))
				return false
			}
			for i := 1; i < len(entries); i++ {
				if entries[i].Timestamp.After(entries[i-1].Timestamp) {
					t.Logf("entry %d (%v) is newer than entry %d (%v)", i, entries[i].Timestamp, i-1, entries[i-1].Timestamp)
					return false
				}
			}
			return true
		},
		genStreams,
	))

	properties.Property("timestamps are truncated to milliseconds", prop.ForAll(
		func(ns int64) bool {
			ts, err := decodeTimestamp(strconv.FormatInt(ns, 10))
			if err != nil {
				return false
			}
			return ts.UnixMilli() == ns/int64(time.Millisecond) && ts.Nanosecond()%int(time.Millisecond) == 0
		},
		gen.Int64Range(0, 4_000_000_000_000_000_000),
	))

	properties.TestingRun(t)
}

func buildQueryRangeBody(streams [][]int64) []byte {
	type streamJSON struct {
		Stream map[string]string `json:"stream"`
		Values [][2]string       `json:"values"`
	}
	result := make([]streamJSON, 0, len(streams))
	for i, s := range streams {
		st := streamJSON{
			Stream: map[string]string{"stream": strconv.Itoa(i)},
			Values: make([][2]string, 0, len(s)),
		}
		for _, ns := range s {
			st.Values = append(st.Values, [2]string{strconv.FormatInt(ns, 10), "line " + strconv.FormatInt(ns, 10)})
		}
		result = append(result, st)
	}
	body, _ := json.Marshal(map[string]any{
		"status": "success",
		"data": map[string]any{
			"resultType": "streams",
			"result":     result,
		},
	})
	return body
}
