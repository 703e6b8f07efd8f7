package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// DefaultURL is the address AnkiConnect listens on
	DefaultURL = "http://127.0.0.1:8765"
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second
	// ProtocolVersion is the version of the AnkiConnect API
	ProtocolVersion = 6
)

// Client talks to the AnkiConnect add-on.
type Client struct {
	url        string
	key        string
	httpClient *http.Client
	retry      RetryPolicy
	logger     *log.Logger
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// WithURL sets the AnkiConnect address
func WithURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.url = url
		}
	}
}

// WithKey sets the API key when AnkiConnect requires one
func WithKey(key string) ClientOption {
	return func(c *Client) {
		c.key = key
	}
}

// WithTimeout sets a custom timeout for the HTTP client
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRetryPolicy overrides the default retry policy
func WithRetryPolicy(policy RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = policy
	}
}

// WithLogger traces requests
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new AnkiConnect client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		url: DefaultURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		retry: DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the AnkiConnect address.
func (c *Client) URL() string {
	return c.url
}

type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Key     string `json:"key,omitempty"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

func (r response) hasResult() bool {
	return len(r.Result) > 0 && string(r.Result) != "null"
}

// call sends an action and decodes the result into out (when not nil).
func (c *Client) call(ctx context.Context, action string, params any, out any) error {
	body, err := json.Marshal(request{
		Action:  action,
		Version: ProtocolVersion,
		Key:     c.key,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("%s: failed to marshal request: %w", action, err)
	}

	var raw []byte
	err = c.retry.Do(ctx, func() error {
		var err error
		raw, err = c.post(ctx, action, body)
		if err != nil && c.logger != nil {
			c.logger.Debug("AnkiConnect request failed", "action", action, "err", err)
		}
		return err
	}, IsTransport)
	if err != nil {
		return err
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", action, err)
	}

	switch {
	case resp.hasResult() && resp.Error != nil:
		return fmt.Errorf("%s: %w", action, ErrBothResultAndError)
	case resp.Error != nil:
		return &ProtocolError{Action: action, Message: *resp.Error}
	case !resp.hasResult():
		return fmt.Errorf("%s: %w", action, ErrNeitherResultNorError)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%s: unexpected result %s: %w", action, resp.Result, err)
	}
	return nil
}

// callVoid sends an action returning no result.
func (c *Client) callVoid(ctx context.Context, action string, params any) error {
	err := c.call(ctx, action, params, nil)
	if errors.Is(err, ErrNeitherResultNorError) {
		return nil
	}
	return err
}

func (c *Client) post(ctx context.Context, action string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	if c.logger != nil {
		c.logger.Debug("AnkiConnect request", "action", action)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", action, ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", action, ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{Action: action, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

/* Actions */

// Version returns the version of the AnkiConnect API.
func (c *Client) Version(ctx context.Context) (int, error) {
	var version int
	if err := c.call(ctx, "version", nil, &version); err != nil {
		return 0, err
	}
	return version, nil
}

// CreateDeck creates a deck if missing and returns its ID.
func (c *Client) CreateDeck(ctx context.Context, deck string) (int64, error) {
	var id int64
	err := c.call(ctx, "createDeck", map[string]any{"deck": deck}, &id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// AddNote creates a note. When an identical note already exists in the deck, its ID is returned instead.
func (c *Client) AddNote(ctx context.Context, note Note) (NoteID, error) {
	var id NoteID
	err := c.call(ctx, "addNote", map[string]any{"note": note}, &id)
	if err == nil {
		return id, nil
	}
	if !IsDuplicate(err) {
		return 0, err
	}

	ids, findErr := c.FindNotes(ctx, note.DuplicateQuery())
	if findErr != nil {
		return 0, findErr
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("duplicate note not found: %w", err)
	}
	if c.logger != nil {
		c.logger.Debug("Reusing duplicate note", "id", ids[0])
	}
	return ids[0], nil
}

// UpdateNote replaces the fields and the tags of an existing note.
func (c *Client) UpdateNote(ctx context.Context, id NoteID, fields map[string]string, tags []string, pictures []Picture) error {
	if tags == nil {
		tags = []string{}
	}
	note := map[string]any{
		"id":     id,
		"fields": fields,
		"tags":   tags,
	}
	if len(pictures) > 0 {
		note["picture"] = pictures
	}
	return c.callVoid(ctx, "updateNote", map[string]any{"note": note})
}

// DeleteNotes deletes notes and their cards.
func (c *Client) DeleteNotes(ctx context.Context, ids []NoteID) error {
	if len(ids) == 0 {
		return nil
	}
	return c.callVoid(ctx, "deleteNotes", map[string]any{"notes": ids})
}

// FindNotes returns the IDs of notes matching an Anki search query.
func (c *Client) FindNotes(ctx context.Context, query string) ([]NoteID, error) {
	var ids []NoteID
	if err := c.call(ctx, "findNotes", map[string]any{"query": query}, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// NotesInfo returns the content of notes.
func (c *Client) NotesInfo(ctx context.Context, ids []NoteID) ([]NoteInfo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var infos []NoteInfo
	if err := c.call(ctx, "notesInfo", map[string]any{"notes": ids}, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// FindNotesInfo searches notes and returns their content.
func (c *Client) FindNotesInfo(ctx context.Context, query string) ([]NoteInfo, error) {
	ids, err := c.FindNotes(ctx, query)
	if err != nil {
		return nil, err
	}
	return c.NotesInfo(ctx, ids)
}
