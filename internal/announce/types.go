package announce

import (
	"time"

	kit "annobot/internal/transport"
)

// Author is the optional author block of an announcement.
type Author struct {
	Name    string
	IconURL string
}

// Footer is the optional footer block of an announcement.
type Footer struct {
	Text    string
	IconURL string
}

// Config is the declarative, persisted description of one announcement.
//
// Author/footer exist in two forms for compatibility with older rows: a
// nested block and flat fields. The nested block wins whenever it is present
// (see AuthorFields/FooterFields); storage always writes the normalized flat
// form.
type Config struct {
	ID      string
	ScopeID int64

	Title        string
	Description  string
	Color        int
	ImageURL     string
	ThumbnailURL string

	Author        *Author
	AuthorName    string
	AuthorIconURL string

	Footer        *Footer
	FooterText    string
	FooterIconURL string

	Timestamp *time.Time

	Enabled       bool
	Buttons       []kit.Button
	EnableButtons bool

	// PrimaryMessageID mirrors the first successfully delivered message of
	// the last pass, for single-channel consumers.
	PrimaryMessageID *int

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuthorFields resolves the effective author name and icon. The nested block
// wins only when present.
func (c *Config) AuthorFields() (name, icon string) {
	if c.Author != nil {
		return c.Author.Name, c.Author.IconURL
	}
	return c.AuthorName, c.AuthorIconURL
}

// FooterFields resolves the effective footer text and icon.
func (c *Config) FooterFields() (text, icon string) {
	if c.Footer != nil {
		return c.Footer.Text, c.Footer.IconURL
	}
	return c.FooterText, c.FooterIconURL
}

// Target links a config to one channel and, if published there, the
// provider-assigned message id. MessageID is nil while unpublished.
type Target struct {
	ConfigID  string
	ScopeID   int64
	ChannelID int64
	MessageID *int
}

// Input is the allow-listed set of updatable announcement fields. Create and
// Update both take the full record; updates replace, they never patch.
type Input struct {
	Title        string
	Description  string
	Color        int
	ImageURL     string
	ThumbnailURL string

	Author        *Author
	AuthorName    string
	AuthorIconURL string

	Footer        *Footer
	FooterText    string
	FooterIconURL string

	Timestamp *time.Time

	Enabled       bool
	Buttons       []kit.Button
	EnableButtons bool

	// Channels is the desired channel set, replaced as a whole on every
	// update.
	Channels []int64

	// CreatedBy is recorded on Create and ignored on Update.
	CreatedBy string
}

// SentMessage identifies one successfully delivered message of a pass.
type SentMessage struct {
	ScopeID   int64
	ChannelID int64
	MessageID int
}

// OpResult is the outcome of a Create/Update/SetEnabled call. A partially
// failed pass still reports Success=true with Warning set: the declarative
// config was saved, and re-issuing the operation retries the failed channels.
type OpResult struct {
	Success   bool
	ID        string
	MessageID *int
	Message   string
	Warning   string

	Attempted  int
	PerChannel []Outcome
	Sent       []SentMessage
}
