// Package pipedrive is a minimal Pipedrive CRM client covering the three
// calls the conversation needs: person lookup or creation, deal creation
// for a suit lead and activity creation for the fitting appointment.
package pipedrive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultDomain        = "api.pipedrive.com"
	maxResponseSizeBytes = 1 << 20
)

type Config struct {
	Domain  string        `split_words:"true" default:"api.pipedrive.com"`
	APIKey  string        `split_words:"true"`
	Timeout time.Duration `split_words:"true" default:"10s"`
}

// Enabled reports whether an API key is configured. Without one the CRM
// tools run in local mode and only write into the session.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("pipedrive api key is required")
	}

	domain := strings.TrimSpace(cfg.Domain)
	if domain == "" {
		domain = defaultDomain
	}
	baseURL := domain
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}
	baseURL = strings.TrimRight(baseURL, "/") + "/v1"
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// EnsurePerson returns the id of the person with the given email, creating
// the record when no exact match exists.
func (c *Client) EnsurePerson(ctx context.Context, name, email, phone string) (int64, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return 0, errors.New("email is required")
	}

	if id, ok, err := c.findPersonByEmail(ctx, email); err != nil {
		return 0, err
	} else if ok {
		return id, nil
	}

	if strings.TrimSpace(name) == "" {
		name = email
	}
	payload := map[string]any{
		"name":  name,
		"email": []string{email},
	}
	if phone = strings.TrimSpace(phone); phone != "" {
		payload["phone"] = []string{phone}
	}

	var resp personResponse
	if err := c.do(ctx, http.MethodPost, "persons", nil, payload, &resp); err != nil {
		return 0, fmt.Errorf("create person: %w", err)
	}
	return resp.Data.ID, nil
}

// CreateLead opens a deal in EUR attached to the person.
func (c *Client) CreateLead(ctx context.Context, title string, personID int64, valueEUR int) (int64, error) {
	payload := map[string]any{
		"title":     title,
		"person_id": personID,
		"value":     valueEUR,
		"currency":  "EUR",
	}

	var resp dealResponse
	if err := c.do(ctx, http.MethodPost, "deals", nil, payload, &resp); err != nil {
		return 0, fmt.Errorf("create deal: %w", err)
	}
	return resp.Data.ID, nil
}

// CreateAppointment books the fitting as a meeting activity. The date is
// expected as YYYY-MM-DD, the clock as HH:MM.
func (c *Client) CreateAppointment(ctx context.Context, subject, date, clock, location string, personID int64) (int64, error) {
	payload := map[string]any{
		"subject":  subject,
		"type":     "meeting",
		"due_date": date,
		"due_time": clock,
		"location": location,
	}
	if personID > 0 {
		payload["person_id"] = personID
	}

	var resp activityResponse
	if err := c.do(ctx, http.MethodPost, "activities", nil, payload, &resp); err != nil {
		return 0, fmt.Errorf("create activity: %w", err)
	}
	return resp.Data.ID, nil
}

func (c *Client) findPersonByEmail(ctx context.Context, email string) (int64, bool, error) {
	query := url.Values{}
	query.Set("term", email)
	query.Set("fields", "email")

	var resp searchResponse
	if err := c.do(ctx, http.MethodGet, "persons/search", query, nil, &resp); err != nil {
		return 0, false, fmt.Errorf("search person: %w", err)
	}

	for _, item := range resp.Data.Items {
		for _, e := range item.Item.Emails {
			if strings.EqualFold(strings.TrimSpace(e.Value), email) {
				return item.Item.ID, true, nil
			}
		}
	}
	return 0, false, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, payload any, out responseEnvelope) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_token", c.apiKey)
	target := c.baseURL + "/" + endpoint + "?" + query.Encode()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("pipedrive http status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !out.ok() {
		return fmt.Errorf("pipedrive: %s", out.errorText())
	}
	return nil
}

type responseEnvelope interface {
	ok() bool
	errorText() string
}

type apiEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (e *apiEnvelope) ok() bool { return e.Success }

func (e *apiEnvelope) errorText() string {
	if e.Error == "" {
		return "request not successful"
	}
	return e.Error
}

type personResponse struct {
	apiEnvelope
	Data struct {
		ID int64 `json:"id"`
	} `json:"data"`
}

type dealResponse struct {
	apiEnvelope
	Data struct {
		ID int64 `json:"id"`
	} `json:"data"`
}

type activityResponse struct {
	apiEnvelope
	Data struct {
		ID int64 `json:"id"`
	} `json:"data"`
}

type searchResponse struct {
	apiEnvelope
	Data struct {
		Items []struct {
			Item struct {
				ID     int64         `json:"id"`
				Emails []personEmail `json:"emails"`
			} `json:"item"`
		} `json:"items"`
	} `json:"data"`
}

// personEmail tolerates both wire shapes the search endpoint has shipped: a
// plain string and an object carrying a value field.
type personEmail struct {
	Value string
}

func (e *personEmail) UnmarshalJSON(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		return json.Unmarshal(trimmed, &e.Value)
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	e.Value = obj.Value
	return nil
}

func (e personEmail) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Value)
}
