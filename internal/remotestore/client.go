package remotestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jonahr4/taskapp-sync/internal/model"
)

// Client is the HTTP implementation of Store.
//
// Documents live under /v1/users/{uid}/{kind}; the session token is sent
// as a bearer credential on every request. Server-side failures are
// classified into ErrNotFound (a 404 on update) and *UnavailableError
// (everything network- or auth-shaped).
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// NewClient creates a remote store client for the given endpoint.
//
// If logger is nil, a default logger writing to stderr is used.
//
// Example:
//
//	remote := remotestore.NewClient("https://sync.example.com", nil)
func NewClient(baseURL string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// CreateTask implements Store.CreateTask.
func (c *Client) CreateTask(ctx context.Context, session *model.AuthSession, task *model.Task) (*model.Task, error) {
	if !session.Valid() {
		return nil, ErrNoSession
	}
	var created model.Task
	path := fmt.Sprintf("/v1/users/%s/tasks", url.PathEscape(session.UserID))
	if err := c.do(ctx, session, http.MethodPost, path, task, &created, "create task"); err != nil {
		return nil, err
	}
	c.logger.Printf("Created remote task: %s (%s)", created.ID, created.Title)
	return &created, nil
}

// UpdateTask implements Store.UpdateTask.
func (c *Client) UpdateTask(ctx context.Context, session *model.AuthSession, id string, fields map[string]any) error {
	if !session.Valid() {
		return ErrNoSession
	}
	path := fmt.Sprintf("/v1/users/%s/tasks/%s", url.PathEscape(session.UserID), url.PathEscape(id))
	return c.do(ctx, session, http.MethodPatch, path, fields, nil, "update task")
}

// DeleteTask implements Store.DeleteTask.
func (c *Client) DeleteTask(ctx context.Context, session *model.AuthSession, id string) error {
	if !session.Valid() {
		return ErrNoSession
	}
	path := fmt.Sprintf("/v1/users/%s/tasks/%s", url.PathEscape(session.UserID), url.PathEscape(id))
	err := c.do(ctx, session, http.MethodDelete, path, nil, nil, "delete task")
	if err == ErrNotFound {
		// Deleting a missing document is not an error.
		return nil
	}
	return err
}

// ListTasks implements Store.ListTasks.
func (c *Client) ListTasks(ctx context.Context, session *model.AuthSession) ([]*model.Task, error) {
	if !session.Valid() {
		return nil, ErrNoSession
	}
	var out struct {
		Tasks []*model.Task `json:"tasks"`
	}
	path := fmt.Sprintf("/v1/users/%s/tasks", url.PathEscape(session.UserID))
	if err := c.do(ctx, session, http.MethodGet, path, nil, &out, "list tasks"); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// CreateGroup implements Store.CreateGroup.
func (c *Client) CreateGroup(ctx context.Context, session *model.AuthSession, group *model.TaskGroup) (*model.TaskGroup, error) {
	if !session.Valid() {
		return nil, ErrNoSession
	}
	var created model.TaskGroup
	path := fmt.Sprintf("/v1/users/%s/groups", url.PathEscape(session.UserID))
	if err := c.do(ctx, session, http.MethodPost, path, group, &created, "create group"); err != nil {
		return nil, err
	}
	c.logger.Printf("Created remote group: %s (%s)", created.ID, created.Name)
	return &created, nil
}

// UpdateGroup implements Store.UpdateGroup.
func (c *Client) UpdateGroup(ctx context.Context, session *model.AuthSession, id string, fields map[string]any) error {
	if !session.Valid() {
		return ErrNoSession
	}
	path := fmt.Sprintf("/v1/users/%s/groups/%s", url.PathEscape(session.UserID), url.PathEscape(id))
	return c.do(ctx, session, http.MethodPatch, path, fields, nil, "update group")
}

// DeleteGroup implements Store.DeleteGroup.
func (c *Client) DeleteGroup(ctx context.Context, session *model.AuthSession, id string) error {
	if !session.Valid() {
		return ErrNoSession
	}
	path := fmt.Sprintf("/v1/users/%s/groups/%s", url.PathEscape(session.UserID), url.PathEscape(id))
	err := c.do(ctx, session, http.MethodDelete, path, nil, nil, "delete group")
	if err == ErrNotFound {
		return nil
	}
	return err
}

// ListGroups implements Store.ListGroups.
func (c *Client) ListGroups(ctx context.Context, session *model.AuthSession) ([]*model.TaskGroup, error) {
	if !session.Valid() {
		return nil, ErrNoSession
	}
	var out struct {
		Groups []*model.TaskGroup `json:"groups"`
	}
	path := fmt.Sprintf("/v1/users/%s/groups", url.PathEscape(session.UserID))
	if err := c.do(ctx, session, http.MethodGet, path, nil, &out, "list groups"); err != nil {
		return nil, err
	}
	return out.Groups, nil
}

// BatchReorder implements Store.BatchReorder.
//
// The server applies the order rewrite in a single transaction; a partial
// reorder is never observable.
func (c *Client) BatchReorder(ctx context.Context, session *model.AuthSession, kind EntityKind, orderedIDs []string) error {
	if !session.Valid() {
		return ErrNoSession
	}
	body := struct {
		OrderedIDs []string `json:"ordered_ids"`
	}{OrderedIDs: orderedIDs}

	path := fmt.Sprintf("/v1/users/%s/%s/reorder", url.PathEscape(session.UserID), kind)
	return c.do(ctx, session, http.MethodPost, path, body, nil, fmt.Sprintf("reorder %s", kind))
}

// do performs one authenticated request and decodes the response into out
// (when out is non-nil and the response has a body).
func (c *Client) do(ctx context.Context, session *model.AuthSession, method, path string, body, out any, op string) error {
	if !session.Valid() {
		return ErrNoSession
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+session.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &UnavailableError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &UnavailableError{Op: op, Err: fmt.Errorf("auth rejected (status %d)", resp.StatusCode)}
	case resp.StatusCode >= 500:
		return &UnavailableError{Op: op, Err: fmt.Errorf("server error (status %d)", resp.StatusCode)}
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("remote store: %s failed (status %d): %s", op, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", op, err)
		}
	}

	return nil
}
