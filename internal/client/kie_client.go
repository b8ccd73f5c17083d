package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/renderdeck/api/internal/config"
	"github.com/renderdeck/api/internal/model"
)

// JobGateway defines the operations the panel needs from the vendor jobs API.
type JobGateway interface {
	CreateTask(ctx context.Context, modelName string, input map[string]interface{}) (string, error)
	QueryTask(ctx context.Context, taskID string) (*model.TaskRecord, error)
	IsConfigured() bool
}

// GatewayErrorKind distinguishes the failure classes of a gateway call.
type GatewayErrorKind int

const (
	// ErrKindTransport covers network-level failures: timeout, DNS,
	// connection reset.
	ErrKindTransport GatewayErrorKind = iota
	// ErrKindHTTPStatus covers non-2xx HTTP responses.
	ErrKindHTTPStatus
	// ErrKindAPI covers 2xx responses whose envelope code is not 200.
	ErrKindAPI
)

// GatewayError is the typed failure of a vendor API call.
type GatewayError struct {
	Kind   GatewayErrorKind
	Status int    // HTTP status, for ErrKindHTTPStatus
	Code   int    // envelope code, for ErrKindAPI
	Msg    string // vendor message, surfaced verbatim to the operator
	Err    error
}

func (e *GatewayError) Error() string {
	switch e.Kind {
	case ErrKindHTTPStatus:
		return fmt.Sprintf("kie API error (status %d): %s", e.Status, e.Msg)
	case ErrKindAPI:
		return fmt.Sprintf("kie API rejected request (code %d): %s", e.Code, e.Msg)
	default:
		return fmt.Sprintf("kie API request failed: %v", e.Err)
	}
}

func (e *GatewayError) Unwrap() error { return e.Err }

// KieClient implements JobGateway for the kie.ai jobs API. It is stateless
// beyond the operator credential: no retries, no caching. Retry policy
// belongs to the polling engine.
type KieClient struct {
	httpClient *http.Client
	baseURL    string
	uploadURL  string
	creditsURL string

	mu     sync.RWMutex
	apiKey string
}

// envelope is the vendor's response wrapper. code == 200 signals acceptance.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// NewKieClient creates a new kie.ai jobs API client.
func NewKieClient(cfg *config.KieConfig) *KieClient {
	return &KieClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		uploadURL:  cfg.UploadURL,
		creditsURL: cfg.CreditsURL,
		apiKey:     cfg.APIKey,
	}
}

// IsConfigured returns true once the operator has supplied an API key.
func (c *KieClient) IsConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey != ""
}

// SetAPIKey replaces the session credential. The key lives only in process
// memory for the lifetime of the session.
func (c *KieClient) SetAPIKey(key string) {
	c.mu.Lock()
	c.apiKey = strings.TrimSpace(key)
	c.mu.Unlock()
}

// MaskedAPIKey returns the credential with all but the last 4 characters
// hidden, for the settings surface.
func (c *KieClient) MaskedAPIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.apiKey == "" {
		return ""
	}
	if len(c.apiKey) <= 4 {
		return "****"
	}
	return "****" + c.apiKey[len(c.apiKey)-4:]
}

func (c *KieClient) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

// CreateTask submits a job and returns the vendor-issued task id.
func (c *KieClient) CreateTask(ctx context.Context, modelName string, input map[string]interface{}) (string, error) {
	body := map[string]interface{}{
		"model": modelName,
		"input": input,
	}

	var data struct {
		TaskID string `json:"taskId"`
	}
	if err := c.post(ctx, c.baseURL+"/createTask", body, &data); err != nil {
		return "", err
	}
	if data.TaskID == "" {
		return "", &GatewayError{Kind: ErrKindAPI, Code: 500, Msg: "no taskId in response"}
	}
	return data.TaskID, nil
}

// QueryTask fetches the current record for a task.
func (c *KieClient) QueryTask(ctx context.Context, taskID string) (*model.TaskRecord, error) {
	var rec model.TaskRecord
	if err := c.get(ctx, c.baseURL+"/recordInfo?taskId="+taskID, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PollTask queries a task until it reaches a terminal state or maxWait
// elapses. Used by the UGC pipeline worker; the panel's polling engine has
// its own reconciliation loop.
func (c *KieClient) PollTask(ctx context.Context, taskID string, interval, maxWait time.Duration) (*model.TaskRecord, error) {
	deadline := time.Now().Add(maxWait)
	attempt := 0

	for time.Now().Before(deadline) {
		attempt++
		rec, err := c.QueryTask(ctx, taskID)
		if err != nil {
			log.Printf("[Kie API] Poll #%d (task=%s) — error: %v", attempt, taskID, err)
		} else if state, ok := model.StateFromWire(rec.State); ok && state.Terminal() {
			if state == model.TaskStateFailed {
				msg := "task failed"
				if rec.FailMsg != nil {
					msg = *rec.FailMsg
				}
				return rec, fmt.Errorf("task %s failed: %s", taskID, msg)
			}
			return rec, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}

	return nil, fmt.Errorf("task %s did not complete within %s", taskID, maxWait)
}

// GetCredits fetches the operator's remaining credit balance.
func (c *KieClient) GetCredits(ctx context.Context) (int, error) {
	var data struct {
		Credits *int `json:"credits"`
		Balance *int `json:"balance"`
	}
	if err := c.get(ctx, c.creditsURL, &data); err != nil {
		return 0, err
	}
	if data.Credits != nil {
		return *data.Credits, nil
	}
	if data.Balance != nil {
		return *data.Balance, nil
	}
	return 0, fmt.Errorf("no credit balance in response")
}

// UploadFile pushes a local file to the vendor's upload endpoint and returns
// a durable URL usable as job input. Vendor retention is short (days), which
// is enough for a processing pipeline.
func (c *KieClient) UploadFile(ctx context.Context, fileName string, content io.Reader, uploadPath string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("failed to read file content: %w", err)
	}
	_ = mw.WriteField("uploadPath", uploadPath)
	_ = mw.WriteField("fileName", fileName)
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.bearer())

	log.Printf("[Kie API] → POST %s (%s)", c.uploadURL, fileName)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &GatewayError{Kind: ErrKindTransport, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &GatewayError{Kind: ErrKindTransport, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &GatewayError{Kind: ErrKindHTTPStatus, Status: resp.StatusCode, Msg: string(respBody)}
	}

	var uploadResp struct {
		Success bool   `json:"success"`
		Msg     string `json:"msg"`
		Data    struct {
			FileURL string `json:"fileUrl"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &uploadResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal upload response: %w", err)
	}
	if !uploadResp.Success || uploadResp.Data.FileURL == "" {
		msg := uploadResp.Msg
		if msg == "" {
			msg = "no URL returned"
		}
		return "", &GatewayError{Kind: ErrKindAPI, Msg: "upload failed: " + msg}
	}

	return uploadResp.Data.FileURL, nil
}

// post sends a POST request with JSON body and unwraps the envelope.
func (c *KieClient) post(ctx context.Context, url string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// get sends a GET request and unwraps the envelope.
func (c *KieClient) get(ctx context.Context, url string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// doRequest executes an HTTP request, checks the vendor envelope and
// unmarshals its data field into result.
func (c *KieClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearer())

	log.Printf("[Kie API] → %s %s", req.Method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Kie API] ✗ %s %s — request failed: %v", req.Method, req.URL.String(), err)
		return &GatewayError{Kind: ErrKindTransport, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[Kie API] ✗ %s %s — failed to read response: %v", req.Method, req.URL.String(), err)
		return &GatewayError{Kind: ErrKindTransport, Err: err}
	}

	log.Printf("[Kie API] ← %d %s %s", resp.StatusCode, req.Method, req.URL.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &GatewayError{Kind: ErrKindHTTPStatus, Status: resp.StatusCode, Msg: string(respBody)}
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		log.Printf("[Kie API] ✗ unmarshal error for %s %s: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if env.Code != 200 {
		return &GatewayError{Kind: ErrKindAPI, Code: env.Code, Msg: env.Msg}
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to unmarshal response data: %w", err)
		}
	}
	return nil
}
