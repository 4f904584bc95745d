package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"studyrooms/pkg/model"
)

// ReservationClient talks to the study room HTTP API. It is used by the
// end-to-end tests and by operators scripting against a running instance.
type ReservationClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewReservationClient(baseURL string) *ReservationClient {
	return &ReservationClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type Response struct {
	*http.Response
	Body []byte
}

func (r *Response) DecodeJSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int
	Message    string
	Details    map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("studyrooms api: %d %s", e.StatusCode, e.Message)
}

func (c *ReservationClient) Book(ctx context.Context, req *model.CreateReservationRequest) (*model.Reservation, error) {
	var out model.Reservation
	if err := c.call(ctx, http.MethodPost, "/api/bookings", req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BookIdempotent sends the booking with an Idempotency-Key so a retried
// request replays the first answer.
func (c *ReservationClient) BookIdempotent(ctx context.Context, key string, req *model.CreateReservationRequest) (*model.Reservation, error) {
	var out model.Reservation
	headers := map[string]string{"Idempotency-Key": key}
	if err := c.call(ctx, http.MethodPost, "/api/bookings", req, headers, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ReservationClient) List(ctx context.Context) ([]*model.Reservation, error) {
	var out []*model.Reservation
	if err := c.call(ctx, http.MethodGet, "/api/bookings", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReservationClient) Get(ctx context.Context, id string) (*model.Reservation, error) {
	var out model.Reservation
	if err := c.call(ctx, http.MethodGet, "/api/bookings/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ReservationClient) Cancel(ctx context.Context, id string, cred model.Credential) error {
	return c.call(ctx, http.MethodDelete, "/api/bookings/"+id, cred, nil, nil)
}

func (c *ReservationClient) CheckIn(ctx context.Context, id string, cred model.Credential) (*model.Reservation, error) {
	var out model.Reservation
	if err := c.call(ctx, http.MethodPost, "/api/bookings/"+id+"/checkin", cred, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ReservationClient) Rooms(ctx context.Context) ([]string, error) {
	var out struct {
		Rooms []string `json:"rooms"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/rooms", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Rooms, nil
}

func (c *ReservationClient) call(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	resp, err := c.do(ctx, method, path, body, headers)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := resp.DecodeJSON(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *ReservationClient) do(ctx context.Context, method, path string, body any, headers map[string]string) (*Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		Response: resp,
		Body:     respBody,
	}, nil
}

func (c *ReservationClient) WaitForHealthy(ctx context.Context, maxWait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		resp, err := c.do(ctx, http.MethodGet, "/health", nil, nil)
		if err == nil && resp.StatusCode == http.StatusOK {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("service did not become healthy within %v", maxWait)
		case <-ticker.C:
		}
	}
}

func apiError(resp *Response) error {
	var errResp struct {
		Error   string         `json:"error"`
		Details map[string]any `json:"details"`
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := resp.DecodeJSON(&errResp); err != nil {
		apiErr.Message = http.StatusText(resp.StatusCode)
		return apiErr
	}
	apiErr.Message = errResp.Error
	apiErr.Details = errResp.Details
	return apiErr
}
