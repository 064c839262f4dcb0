package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cppla/wallpress/utils"
)

// HTTPBlobService calls the external storage service.
type HTTPBlobService struct {
	baseURL       string
	httpClient    *http.Client
	serviceName   string
	serviceKey    string
	serviceSecret string
	accountID     string
}

// HTTPOptions configures HTTPBlobService.
type HTTPOptions struct {
	BaseURL       string
	ServiceName   string
	ServiceKey    string
	ServiceSecret string
	AccountID     string
	Timeout       time.Duration
}

// NewHTTPBlobService constructs a storage service client.
func NewHTTPBlobService(opts HTTPOptions) *HTTPBlobService {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPBlobService{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		httpClient:    &http.Client{Timeout: timeout},
		serviceName:   opts.ServiceName,
		serviceKey:    opts.ServiceKey,
		serviceSecret: opts.ServiceSecret,
		accountID:     opts.AccountID,
	}
}

// Upload streams the file to POST /upload as multipart form field "file".
func (c *HTTPBlobService) Upload(ctx context.Context, in UploadInput) (*StoredObject, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("file", in.FileName)
		if err == nil {
			_, err = io.Copy(part, in.Body)
		}
		if err == nil {
			err = writer.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Content-Type", in.ContentType)
	if err := c.addIdentity(req, in.Owner); err != nil {
		_ = pr.Close()
		return nil, err
	}

	var obj StoredObject
	if err := c.do(req, &obj); err != nil {
		return nil, err
	}
	if obj.Key == "" {
		return nil, fmt.Errorf("storage service returned no key")
	}
	if obj.Size == 0 {
		obj.Size = in.Size
	}
	return &obj, nil
}

// Delete removes an object with DELETE /files/<key>.
func (c *HTTPBlobService) Delete(ctx context.Context, owner Identity, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/files/"+escapeKey(key), nil)
	if err != nil {
		return err
	}
	if err := c.addIdentity(req, owner); err != nil {
		return err
	}
	return c.do(req, nil)
}

// Usage reads GET /usage for the owner.
func (c *HTTPBlobService) Usage(ctx context.Context, owner Identity) (*Usage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/usage", nil)
	if err != nil {
		return nil, err
	}
	if err := c.addIdentity(req, owner); err != nil {
		return nil, err
	}
	var u Usage
	if err := c.do(req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPBlobService) addIdentity(req *http.Request, owner Identity) error {
	req.Header.Set("X-User-ID", owner.UserID)
	if owner.Role != "" {
		req.Header.Set("X-User-Role", owner.Role)
	}
	if owner.Email != "" {
		req.Header.Set("X-User-Email", owner.Email)
	}
	accountID := owner.AccountID
	if accountID == "" {
		accountID = c.accountID
	}
	if accountID != "" {
		req.Header.Set("X-Account-ID", accountID)
	}
	if c.serviceKey != "" {
		req.Header.Set("X-Service-Key", c.serviceKey)
	}
	if c.serviceSecret != "" {
		token, err := utils.GenerateServiceToken(c.serviceSecret, c.serviceName, owner.UserID, owner.Role, utils.DefaultServiceTokenTTL)
		if err != nil {
			return fmt.Errorf("sign service token: %w", err)
		}
		req.Header.Set("X-Service-Token", token)
	}
	return nil
}

func (c *HTTPBlobService) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var errResp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &errResp)
		msg := errResp.Error
		if msg == "" {
			msg = errResp.Message
		}
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func escapeKey(key string) string {
	parts := strings.Split(strings.TrimPrefix(key, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
