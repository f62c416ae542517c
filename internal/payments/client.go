package payments

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPClient implements Client against the provider's sessions endpoint.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the given provider base URL and secret
// API key.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// CreateSession POSTs the session payload and returns the redirect URL.
func (c *HTTPClient) CreateSession(ctx context.Context, req Request) (*Session, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/checkout/sessions", bytes.NewReader(encodeSessionRequest(req)))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "sessions request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.Wrapf(ErrSessionFailed, "sessions endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	return decodeSession(body)
}

func encodeSessionRequest(req Request) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("reference")
	e.Str(req.Reference)
	e.FieldStart("success_url")
	e.Str(req.SuccessURL)
	e.FieldStart("cancel_url")
	e.Str(req.CancelURL)
	e.FieldStart("shipping_minor")
	e.Int64(req.ShippingMinor)
	e.FieldStart("line_items")
	e.ArrStart()
	for _, it := range req.Items {
		e.ObjStart()
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("unit_amount")
		e.Int64(it.UnitMinor)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}

func decodeSession(body []byte) (*Session, error) {
	d := jx.DecodeBytes(body)
	var s Session
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			s.ID, err = d.Str()
		case "url":
			s.URL, err = d.Str()
		default:
			return d.Skip()
		}
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "decode session")
	}
	if s.ID == "" || s.URL == "" {
		return nil, errors.Wrap(ErrSessionFailed, "response missing id or url")
	}
	return &s, nil
}
