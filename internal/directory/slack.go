// Package directory resolves the roster of notification recipients from the
// workspace chat directory. The roster is best-effort input for recipient
// matching: any fetch or decode failure yields an empty roster and a warning,
// never an error, so a directory outage cannot block a check-in.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/visitor-kiosk/internal/application"
)

const defaultBaseURL = "https://slack.com/api"

// maxPages bounds cursor pagination so a misbehaving directory cannot
// keep the kiosk looping.
const maxPages = 10

// SlackDirectory lists workspace members via the users.list API.
type SlackDirectory struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option adjusts a SlackDirectory.
type Option func(*SlackDirectory)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(baseURL string) Option {
	return func(d *SlackDirectory) {
		d.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *SlackDirectory) {
		d.httpClient = client
	}
}

// NewSlackDirectory constructs a directory backed by the given bot token.
func NewSlackDirectory(token string, logger *slog.Logger, opts ...Option) *SlackDirectory {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := &SlackDirectory{
		baseURL:    defaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type member struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	RealName  string `json:"real_name"`
	Deleted   bool   `json:"deleted"`
	IsBot     bool   `json:"is_bot"`
	IsAppUser bool   `json:"is_app_user"`
	Profile   struct {
		Email string `json:"email"`
	} `json:"profile"`
}

type usersListResponse struct {
	OK               bool     `json:"ok"`
	Error            string   `json:"error"`
	Members          []member `json:"members"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

// ListRecipients returns the filtered roster of human workspace members.
// Failures degrade to an empty roster.
func (d *SlackDirectory) ListRecipients(ctx context.Context) []application.RecipientEntry {
	var roster []application.RecipientEntry

	cursor := ""
	for page := 0; page < maxPages; page++ {
		resp, err := d.fetchPage(ctx, cursor)
		if err != nil {
			d.logger.WarnContext(ctx, "recipient directory unavailable", slog.String("error", err.Error()))
			return nil
		}

		for _, m := range resp.Members {
			if entry, ok := recipientFromMember(m); ok {
				roster = append(roster, entry)
			}
		}

		cursor = resp.ResponseMetadata.NextCursor
		if cursor == "" {
			break
		}
	}

	return roster
}

func (d *SlackDirectory) fetchPage(ctx context.Context, cursor string) (*usersListResponse, error) {
	query := url.Values{"limit": []string{"200"}}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/users.list?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build users.list request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.token)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("users.list request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("users.list returned status %d", resp.StatusCode)
	}

	var decoded usersListResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode users.list response: %w", err)
	}
	if !decoded.OK {
		return nil, fmt.Errorf("users.list rejected: %s", decoded.Error)
	}
	return &decoded, nil
}

// recipientFromMember filters out accounts that cannot receive a visitor
// notification: deactivated users, bots, app integrations, the built-in
// slackbot, and entries with no real name to match against.
func recipientFromMember(m member) (application.RecipientEntry, bool) {
	if m.Deleted || m.IsBot || m.IsAppUser {
		return application.RecipientEntry{}, false
	}
	if m.Name == "slackbot" {
		return application.RecipientEntry{}, false
	}
	if strings.TrimSpace(m.RealName) == "" {
		return application.RecipientEntry{}, false
	}

	return application.RecipientEntry{
		ID:          m.ID,
		Handle:      m.Name,
		DisplayName: strings.TrimSpace(m.RealName),
		Contact:     m.Profile.Email,
	}, true
}
