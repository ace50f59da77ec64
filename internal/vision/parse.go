package vision

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Stock refusal openers that mean the model declined instead of analyzing.
// A response starting with one of these is rejected outright.
var refusalPhrases = []string{
	"i can't",
	"i cannot",
	"i'm sorry",
	"i am sorry",
	"i'm unable",
	"i am unable",
	"as an ai",
	"unfortunately, i",
}

// ParseTakeoff strictly extracts a takeoff document from raw model output.
// It tolerates markdown code fencing and leading prose before the JSON
// object, rejects refusals, and requires the rooms key to be present (an
// empty list is valid).
func ParseTakeoff(raw string) (*Takeoff, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty response")
	}

	lower := strings.ToLower(trimmed)
	for _, phrase := range refusalPhrases {
		if strings.HasPrefix(lower, phrase) {
			return nil, fmt.Errorf("model refused: %q", firstLine(trimmed))
		}
	}

	payload, err := extractJSONObject(trimmed)
	if err != nil {
		return nil, err
	}

	// Decode into a raw map first so a missing rooms key can be told apart
	// from an explicit empty list.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &probe); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	if _, ok := probe["rooms"]; !ok {
		return nil, fmt.Errorf("response missing rooms list")
	}

	var takeoff Takeoff
	if err := json.Unmarshal([]byte(payload), &takeoff); err != nil {
		return nil, fmt.Errorf("response does not match takeoff schema: %w", err)
	}
	if takeoff.Rooms == nil {
		takeoff.Rooms = []RoomHint{}
	}
	if takeoff.Confidence < 0 {
		takeoff.Confidence = 0
	}
	if takeoff.Confidence > 1 {
		takeoff.Confidence = 1
	}
	return &takeoff, nil
}

// extractJSONObject pulls the outermost {...} from the text, stripping
// markdown fences along the way.
func extractJSONObject(text string) (string, error) {
	if strings.Contains(text, "```") {
		text = stripFences(text)
	}

	start := strings.Index(text, "{")
	if start < 0 {
		return "", fmt.Errorf("no JSON object in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON object in response")
}

func stripFences(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	if len(text) > 120 {
		return text[:120]
	}
	return text
}
