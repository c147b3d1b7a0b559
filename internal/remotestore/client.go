// Package remotestore is the client for the remote record store, the
// authoritative home of visit sessions. It speaks the store's REST surface:
// row inserts return the assigned id, checkouts are column patches keyed by
// id. Any transport error or non-2xx response is surfaced to the caller; the
// lifecycle service decides what a failed write means.
package remotestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/example/visitor-kiosk/internal/application"
)

const (
	visitorsPath     = "/rest/v1/visitors"
	lateCheckinsPath = "/rest/v1/late_checkins"
)

// Client talks to the remote record store.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New constructs a record store client. The base URL must not end with a
// slash; the API key is sent as both the apikey header and a bearer token.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, httpClient: httpClient}
}

type visitorRow struct {
	FullName       string  `json:"full_name"`
	ReasonForVisit string  `json:"reason_for_visit"`
	PersonToMeet   string  `json:"person_to_meet"`
	PhotoBase64    string  `json:"photo_base64"`
	PhoneNumber    *string `json:"phone_number"`
	CheckedInAt    string  `json:"checked_in_at"`
}

type lateCheckinRow struct {
	FullName      string `json:"full_name"`
	ReasonForLate string `json:"reason_for_late"`
	Timestamp     string `json:"timestamp"`
}

// InsertVisitor writes a new visit session and returns the store-assigned id.
func (c *Client) InsertVisitor(ctx context.Context, record application.NewVisitorRecord) (string, error) {
	var phone *string
	if record.PhoneNumber != "" {
		phone = &record.PhoneNumber
	}

	row := visitorRow{
		FullName:       record.FullName,
		ReasonForVisit: record.ReasonForVisit,
		PersonToMeet:   record.PersonToMeet,
		PhotoBase64:    record.Photo,
		PhoneNumber:    phone,
		CheckedInAt:    record.CheckedInAt.UTC().Format(time.RFC3339),
	}

	return c.insertReturningID(ctx, visitorsPath, row)
}

// MarkCheckedOut patches the checkout timestamp onto an existing session.
func (c *Client) MarkCheckedOut(ctx context.Context, id string, at time.Time) error {
	payload, err := json.Marshal(map[string]string{
		"checked_out_at": at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("remotestore: failed to encode checkout patch: %w", err)
	}

	filter := url.Values{"id": []string{"eq." + id}}
	reqURL := c.baseURL + visitorsPath + "?" + filter.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("remotestore: failed to build checkout request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remotestore: checkout request failed: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("remotestore: checkout for %s rejected with status %d", id, resp.StatusCode)
	}
	return nil
}

// InsertLateArrival writes a late-arrival record and returns the assigned id.
func (c *Client) InsertLateArrival(ctx context.Context, record application.LateArrivalRecord) (string, error) {
	row := lateCheckinRow{
		FullName:      record.FullName,
		ReasonForLate: record.Reason,
		Timestamp:     record.Timestamp.UTC().Format(time.RFC3339),
	}

	return c.insertReturningID(ctx, lateCheckinsPath, row)
}

func (c *Client) insertReturningID(ctx context.Context, path string, row any) (string, error) {
	// The store expects inserts as a one-element batch.
	payload, err := json.Marshal([]any{row})
	if err != nil {
		return "", fmt.Errorf("remotestore: failed to encode insert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("remotestore: failed to build insert request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("remotestore: insert request failed: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("remotestore: insert rejected with status %d", resp.StatusCode)
	}

	var rows []struct {
		ID any `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return "", fmt.Errorf("remotestore: failed to decode insert response: %w", err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("remotestore: insert response carried no row")
	}

	id := stringifyID(rows[0].ID)
	if id == "" {
		return "", fmt.Errorf("remotestore: insert response carried no id")
	}
	return id, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Client-Info", "visitor-kiosk")
}

// stringifyID tolerates both uuid and numeric primary keys.
func stringifyID(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
