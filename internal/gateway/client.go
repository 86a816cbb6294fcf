// Package gateway is the HTTP client of the remote story API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/storysync/internal/domain"
	"github.com/MrSnakeDoc/storysync/internal/photo"
)

const defaultTimeout = 30 * time.Second

// Client talks to the story API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// NewClient creates a client for baseURL. A zero timeout means 30s and a
// nil token source makes every authenticated call fail with ErrAuthRequired.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tokens: tokens,
	}
}

// Upload is one story submission.
type Upload struct {
	Description string
	Photo       []byte
	PhotoType   string // MIME type, sniffed when empty
	Lat, Lon    *float64
}

// CreateResult is the normalized answer to a create call.
type CreateResult struct {
	Message string
	Story   *domain.Story // nil when the server did not echo the story
}

// LoginResult carries the session of a successful login.
type LoginResult struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Token  string `json:"token"`
}

// CreateStory uploads a story as the authenticated user.
func (c *Client) CreateStory(ctx context.Context, up Upload) (*CreateResult, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("create story: %w", err)
	}
	return c.create(ctx, "/stories", tok, up)
}

// CreateStoryGuest uploads a story without credentials.
func (c *Client) CreateStoryGuest(ctx context.Context, up Upload) (*CreateResult, error) {
	return c.create(ctx, "/stories/guest", "", up)
}

func (c *Client) create(ctx context.Context, path, token string, up Upload) (*CreateResult, error) {
	body, contentType, err := encodeUpload(up)
	if err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}

	respBody, err := c.do(ctx, "create story", http.MethodPost, path, token, contentType, body)
	if err != nil {
		return nil, err
	}
	return decodeCreateResponse(respBody)
}

// ListStories returns one page of the feed. location=true restricts it to
// stories carrying coordinates.
func (c *Client) ListStories(ctx context.Context, page, size int, location bool) ([]domain.Story, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	loc := "0"
	if location {
		loc = "1"
	}
	q.Set("location", loc)

	respBody, err := c.do(ctx, "list stories", http.MethodGet, "/stories?"+q.Encode(), tok, "", nil)
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &NetworkError{Op: "list stories", Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	if resp.Error {
		return nil, &APIError{StatusCode: http.StatusOK, Message: resp.Message}
	}
	if resp.ListStory == nil {
		return []domain.Story{}, nil
	}
	return resp.ListStory, nil
}

// GetStory fetches one story by ID.
func (c *Client) GetStory(ctx context.Context, id string) (*domain.Story, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("get story: %w", err)
	}

	respBody, err := c.do(ctx, "get story", http.MethodGet, "/stories/"+url.PathEscape(id), tok, "", nil)
	if err != nil {
		return nil, err
	}

	var resp storyEnvelope
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &NetworkError{Op: "get story", Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	if resp.Error {
		return nil, &APIError{StatusCode: http.StatusOK, Message: resp.Message}
	}
	if resp.Story == nil {
		return nil, fmt.Errorf("get story %s: %w", id, domain.ErrNotFound)
	}
	return resp.Story, nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	payload, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.do(ctx, "login", http.MethodPost, "/login", "", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &NetworkError{Op: "login", Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	if resp.Error || resp.LoginResult == nil || resp.LoginResult.Token == "" {
		msg := resp.Message
		if msg == "" {
			msg = "login failed"
		}
		return nil, &APIError{StatusCode: http.StatusOK, Message: msg}
	}
	return resp.LoginResult, nil
}

// do sends the request and classifies the outcome. Transport failures become
// NetworkError, non-2xx answers become APIError. A cancelled or expired ctx
// is returned as the context error itself.
func (c *Client) do(ctx context.Context, op, method, path, token, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The caller gave up; that says nothing about the network.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", op, ctxErr)
		}
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, respBody)}
	}
	return respBody, nil
}

// errorMessage prefers the server's "message" field over the raw body
func errorMessage(status int, body []byte) string {
	var env struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &env) == nil && env.Message != "" {
		return env.Message
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) <= 512 {
		return s
	}
	return http.StatusText(status)
}

func encodeUpload(up Upload) (io.Reader, string, error) {
	mimeType := up.PhotoType
	if mimeType == "" {
		mimeType = photo.DetectType(up.Photo)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("description", up.Description); err != nil {
		return nil, "", err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="photo"; filename="%s"`, photo.Filename(mimeType)))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(up.Photo); err != nil {
		return nil, "", err
	}

	// Coordinates travel only as a pair.
	if up.Lat != nil && up.Lon != nil {
		if err := w.WriteField("lat", strconv.FormatFloat(*up.Lat, 'f', -1, 64)); err != nil {
			return nil, "", err
		}
		if err := w.WriteField("lon", strconv.FormatFloat(*up.Lon, 'f', -1, 64)); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
