package mailtm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"telegram-tempmail-relay/internal/domain"
	"telegram-tempmail-relay/internal/domain/model"
	"telegram-tempmail-relay/internal/domain/ports/adapter"
	"telegram-tempmail-relay/internal/infra/metrics"
)

var _ adapter.MailProviderAdapter = (*Client)(nil)

// Client implements adapter.MailProviderAdapter against a mail.tm-style
// REST API using direct HTTP calls. It keeps no state; tokens are owned
// by the caller.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a provider client. timeout bounds every call; an
// exceeded deadline surfaces as domain.ErrTransient.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// tokenResponse is the response of POST /token.
type tokenResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// messageItem is one member of the paginated message collection.
type messageItem struct {
	ID   string `json:"id"`
	From struct {
		Address string `json:"address"`
		Name    string `json:"name"`
	} `json:"from"`
	Subject   string    `json:"subject"`
	Intro     string    `json:"intro"`
	Seen      bool      `json:"seen"`
	CreatedAt time.Time `json:"createdAt"`
}

// messageCollection is the hydra-style collection envelope.
type messageCollection struct {
	Member []messageItem `json:"hydra:member"`
}

// messageDetail is the response of GET /messages/{id}.
type messageDetail struct {
	messageItem
	Text string   `json:"text"`
	HTML []string `json:"html"`
}

// domainCollection is the response of GET /domains.
type domainCollection struct {
	Member []struct {
		Domain string `json:"domain"`
	} `json:"hydra:member"`
}

// accountResponse is the response of POST /accounts.
type accountResponse struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

func (c *Client) Authenticate(ctx context.Context, address, secret string) (string, error) {
	start := time.Now()
	body, err := json.Marshal(map[string]string{"address": address, "password": secret})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/token", body, "")
	metrics.ObserveProviderCall("token", msSince(start), err == nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var tr tokenResponse
		if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
			return "", fmt.Errorf("decode token response: %w", err)
		}
		return tr.Token, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return "", fmt.Errorf("token for %s: %w", address, domain.ErrInvalidCredentials)
	default:
		return "", statusError("token", resp)
	}
}

func (c *Client) ListMessages(ctx context.Context, token string) ([]model.MessageSummary, error) {
	start := time.Now()
	resp, err := c.do(ctx, http.MethodGet, "/messages", nil, token)
	metrics.ObserveProviderCall("list", msSince(start), err == nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var coll messageCollection
		if err := json.NewDecoder(resp.Body).Decode(&coll); err != nil {
			return nil, fmt.Errorf("decode message collection: %w", err)
		}
		out := make([]model.MessageSummary, 0, len(coll.Member))
		for _, m := range coll.Member {
			out = append(out, toSummary(m))
		}
		return out, nil
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("list messages: %w", domain.ErrAuthExpired)
	case http.StatusNotFound:
		// The account behind the token was deleted provider-side.
		return nil, fmt.Errorf("list messages: %w", domain.ErrMailboxGone)
	default:
		return nil, statusError("list messages", resp)
	}
}

func (c *Client) FetchMessage(ctx context.Context, token, id string) (*model.MessageDetail, error) {
	start := time.Now()
	resp, err := c.do(ctx, http.MethodGet, "/messages/"+id, nil, token)
	metrics.ObserveProviderCall("fetch", msSince(start), err == nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var d messageDetail
		if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
			return nil, fmt.Errorf("decode message %s: %w", id, err)
		}
		return &model.MessageDetail{
			MessageSummary: toSummary(d.messageItem),
			Text:           d.Text,
			HTML:           d.HTML,
		}, nil
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("fetch message %s: %w", id, domain.ErrAuthExpired)
	case http.StatusNotFound:
		return nil, fmt.Errorf("fetch message %s: %w", id, domain.ErrNotFound)
	default:
		return nil, statusError("fetch message", resp)
	}
}

func (c *Client) DeleteMessage(ctx context.Context, token, id string) error {
	start := time.Now()
	resp, err := c.do(ctx, http.MethodDelete, "/messages/"+id, nil, token)
	metrics.ObserveProviderCall("delete", msSince(start), err == nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		// Already gone; deletion is idempotent from the caller's view.
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("delete message %s: %w", id, domain.ErrAuthExpired)
	default:
		return statusError("delete message", resp)
	}
}

func (c *Client) CreateAccount(ctx context.Context, address, secret string) (string, error) {
	start := time.Now()
	body, err := json.Marshal(map[string]string{"address": address, "password": secret})
	if err != nil {
		return "", fmt.Errorf("marshal account request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/accounts", body, "")
	metrics.ObserveProviderCall("account", msSince(start), err == nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		var ar accountResponse
		if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
			return "", fmt.Errorf("decode account response: %w", err)
		}
		return ar.ID, nil
	case http.StatusUnprocessableEntity:
		return "", fmt.Errorf("account %s: %w", address, domain.ErrAlreadyExists)
	default:
		return "", statusError("create account", resp)
	}
}

func (c *Client) Domains(ctx context.Context) ([]string, error) {
	start := time.Now()
	resp, err := c.do(ctx, http.MethodGet, "/domains", nil, "")
	metrics.ObserveProviderCall("domains", msSince(start), err == nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("domains", resp)
	}
	var coll domainCollection
	if err := json.NewDecoder(resp.Body).Decode(&coll); err != nil {
		return nil, fmt.Errorf("decode domain collection: %w", err)
	}
	out := make([]string, 0, len(coll.Member))
	for _, d := range coll.Member {
		out = append(out, d.Domain)
	}
	return out, nil
}

// do issues one request. Network failures and timeouts map to
// domain.ErrTransient; status-code handling is the caller's.
func (c *Client) do(ctx context.Context, method, path string, body []byte, token string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %v: %w", method, path, err, domain.ErrTransient)
	}
	return resp, nil
}

func statusError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s: provider status %d: %s: %w", op, resp.StatusCode, string(b), domain.ErrTransient)
	}
	return fmt.Errorf("%s: provider status %d: %s", op, resp.StatusCode, string(b))
}

func toSummary(m messageItem) model.MessageSummary {
	from := m.From.Address
	if from == "" {
		from = m.From.Name
	}
	return model.MessageSummary{
		ID:         m.ID,
		From:       from,
		Subject:    m.Subject,
		Intro:      m.Intro,
		Seen:       m.Seen,
		ReceivedAt: m.CreatedAt,
	}
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Milliseconds())
}
