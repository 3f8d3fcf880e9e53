package announce

import (
	"strconv"
	"strings"
)

var buttonStyles = map[string]bool{
	"":          true, // defaults to link
	"primary":   true,
	"secondary": true,
	"danger":    true,
	"link":      true,
}

// ParseChannelID parses a provider channel id from its string form. Ids must
// be decimal integers (Telegram group/channel ids are negative).
func ParseChannelID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id == 0 {
		return 0, &ValidationError{Field: "channel_id", Reason: "must be a non-zero integer"}
	}
	return id, nil
}

func validateInput(in *Input) error {
	if strings.TrimSpace(in.Title) == "" && strings.TrimSpace(in.Description) == "" {
		return &ValidationError{Field: "content", Reason: "title or description is required"}
	}

	seen := make(map[int64]bool, len(in.Channels))
	for _, ch := range in.Channels {
		if ch == 0 {
			return &ValidationError{Field: "channels", Reason: "channel id must be non-zero"}
		}
		if seen[ch] {
			return &ValidationError{Field: "channels", Reason: "duplicate channel " + strconv.FormatInt(ch, 10)}
		}
		seen[ch] = true
	}

	for i, b := range in.Buttons {
		pos := "buttons[" + strconv.Itoa(i) + "]"
		if strings.TrimSpace(b.Label) == "" {
			return &ValidationError{Field: pos + ".label", Reason: "label is required"}
		}
		u := strings.TrimSpace(b.URL)
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return &ValidationError{Field: pos + ".url", Reason: "must be an http(s) URL"}
		}
		if !buttonStyles[strings.ToLower(strings.TrimSpace(b.Style))] {
			return &ValidationError{Field: pos + ".style", Reason: "unknown style " + strconv.Quote(b.Style)}
		}
	}
	return nil
}
