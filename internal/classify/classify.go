// Package classify assigns a severity level to raw log lines.
//
// Classification runs in two stages. The structured stage inspects lines that
// look like JSON objects and reads a severity field and a message field. The
// text stage searches the lower-cased raw line for severity keywords. The first
// stage that resolves a level wins; a line nothing matches is LevelUnknown.
package classify

import (
	"strings"

	"github.com/valyala/fastjson"

	"github.com/Amazomic/loki-analyzer/internal/models"
)

// Candidate keys, in lookup order.
var (
	levelKeys   = []string{"level", "lvl", "severity", "loglevel"}
	messageKeys = []string{"message", "msg"}
)

// rule maps a set of substrings to a level. Rules are checked in order.
type rule struct {
	level  models.Level
	tokens []string
}

// Structured severity values. "err" also covers "error".
var structuredRules = []rule{
	{models.LevelError, []string{"error", "err", "fatal", "panic", "crit"}},
	{models.LevelWarn, []string{"warn"}},
	{models.LevelDebug, []string{"debug"}},
	{models.LevelInfo, []string{"info"}},
}

// Free text uses a broader error vocabulary than severity fields do.
var textRules = []rule{
	{models.LevelError, []string{"error", "fatal", "crit", "err", "exception"}},
	{models.LevelWarn, []string{"warn"}},
	{models.LevelDebug, []string{"debug"}},
	{models.LevelInfo, []string{"info"}},
}

var parserPool fastjson.ParserPool

// Fields is what the structured stage extracted from a JSON line.
type Fields struct {
	// Level is LevelUnknown when no severity field resolved.
	Level models.Level
	// Message is the message field, empty when absent.
	Message string
}

// Structured parses line as a JSON object. It reports false when the line is
// not an object or fails to parse; that is an expected outcome, not an error.
func Structured(line string) (Fields, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return Fields{}, false
	}

	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.Parse(trimmed)
	if err != nil || v.Type() != fastjson.TypeObject {
		return Fields{}, false
	}

	f := Fields{Level: models.LevelUnknown}
	for _, key := range levelKeys {
		raw := v.Get(key)
		if raw == nil || raw.Type() != fastjson.TypeString {
			continue
		}
		if lvl := match(string(raw.GetStringBytes()), structuredRules); lvl != models.LevelUnknown {
			f.Level = lvl
			break
		}
	}
	for _, key := range messageKeys {
		raw := v.Get(key)
		if raw == nil || raw.Type() != fastjson.TypeString {
			continue
		}
		if msg := string(raw.GetStringBytes()); msg != "" {
			f.Message = msg
			break
		}
	}
	return f, true
}

// Text applies the keyword heuristic to a raw line.
func Text(line string) models.Level {
	return match(line, textRules)
}

// Classify returns the level and the display text for a raw line.
// The display text is the structured message when one was found.
func Classify(line string) (models.Level, string) {
	display := line
	if f, ok := Structured(line); ok {
		if f.Message != "" {
			display = f.Message
		}
		if f.Level != models.LevelUnknown {
			return f.Level, display
		}
	}
	return Text(line), display
}

// CountLevels tallies entries per level. Every level is present in the result.
func CountLevels(entries []models.LogEntry) map[models.Level]int {
	counts := make(map[models.Level]int, len(models.Levels()))
	for _, lvl := range models.Levels() {
		counts[lvl] = 0
	}
	for _, e := range entries {
		counts[e.Level]++
	}
	return counts
}

func match(s string, rules []rule) models.Level {
	lower := strings.ToLower(s)
	for _, r := range rules {
		for _, tok := range r.tokens {
			if strings.Contains(lower, tok) {
				return r.level
			}
		}
	}
	return models.LevelUnknown
}
