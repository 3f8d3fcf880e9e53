package announce

import (
	"html"
	"strings"

	kit "annobot/internal/transport"
)

// Render builds the provider message body for a config.
//
// Render is pure and never fails: absent optional fields are simply omitted.
// Platform constraints on a text-first provider:
//   - Color has no rendering and is carried only as stored data.
//   - Author/footer icon URLs are dropped; only names/text render.
//   - The image (or, failing that, the thumbnail) renders through the link
//     preview, anchored by a zero-width link at the top of the message.
//   - Every button renders as a link button regardless of its declared
//     style; styles need an interaction backend the provider does not give
//     link-only bots.
func Render(c *Config) kit.MessageBody {
	var lines []string

	previewURL := strings.TrimSpace(c.ImageURL)
	if previewURL == "" {
		previewURL = strings.TrimSpace(c.ThumbnailURL)
	}
	if previewURL != "" {
		// Zero-width anchor so the preview picks up the image without
		// showing the raw URL.
		lines = append(lines, `<a href="`+html.EscapeString(previewURL)+`">&#8203;</a>`+authorOrEmpty(c))
	} else if a := authorOrEmpty(c); a != "" {
		lines = append(lines, a)
	}

	if t := strings.TrimSpace(c.Title); t != "" {
		lines = append(lines, "<b>"+html.EscapeString(t)+"</b>")
	}
	if d := strings.TrimSpace(c.Description); d != "" {
		lines = append(lines, html.EscapeString(d))
	}

	var footer []string
	if text, _ := c.FooterFields(); strings.TrimSpace(text) != "" {
		footer = append(footer, html.EscapeString(strings.TrimSpace(text)))
	}
	if c.Timestamp != nil {
		footer = append(footer, c.Timestamp.UTC().Format("2006-01-02 15:04 UTC"))
	}
	if len(footer) > 0 {
		lines = append(lines, "", "<i>"+strings.Join(footer, " · ")+"</i>")
	}

	body := kit.MessageBody{
		Text:    strings.Join(lines, "\n"),
		Preview: previewURL != "",
	}

	if c.EnableButtons && len(c.Buttons) > 0 {
		body.Buttons = make([]kit.Button, len(c.Buttons))
		copy(body.Buttons, c.Buttons)
	}
	return body
}

func authorOrEmpty(c *Config) string {
	name, _ := c.AuthorFields()
	if strings.TrimSpace(name) == "" {
		return ""
	}
	return "<i>" + html.EscapeString(strings.TrimSpace(name)) + "</i>"
}
