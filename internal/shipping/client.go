package shipping

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

// Client quotes shipping over the provider's HTTP rates endpoint. Identical
// concurrent quotes (same items, same destination) are deduplicated through
// a singleflight group so a burst of estimate requests from one cart page
// costs one upstream call.
type Client struct {
	baseURL string
	http    *http.Client
	group   singleflight.Group
}

var _ Estimator = (*Client)(nil)

// NewClient creates a Client for the given provider base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Estimate POSTs the items and destination to the rates endpoint and returns
// the quoted rate in minor units. The shared fetch runs on a detached
// context: one caller cancelling must not fail other callers riding the
// same flight. A cancelled caller still returns its own ctx.Err while the
// flight completes for the rest.
func (c *Client) Estimate(ctx context.Context, items []Item, dest Destination) (*Estimate, error) {
	ch := c.group.DoChan(quoteKey(items, dest), func() (interface{}, error) {
		return c.fetch(context.WithoutCancel(ctx), items, dest)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		est := res.Val.(Estimate)
		return &est, nil
	}
}

func (c *Client) fetch(ctx context.Context, items []Item, dest Destination) (Estimate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/shipping/rates", bytes.NewReader(encodeRateRequest(items, dest)))
	if err != nil {
		return Estimate{}, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Estimate{}, errors.Wrap(err, "rates request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Estimate{}, errors.Wrapf(ErrUnavailable, "rates endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Estimate{}, errors.Wrap(err, "read response")
	}

	minor, err := decodeRate(body)
	if err != nil {
		return Estimate{}, errors.Wrap(err, "decode rate")
	}
	return Estimate{Minor: minor}, nil
}

func encodeRateRequest(items []Item, dest Destination) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("recipient")
	e.ObjStart()
	e.FieldStart("country_code")
	e.Str(dest.Country)
	e.FieldStart("zip")
	e.Str(dest.PostalCode)
	e.ObjEnd()
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Int64(it.ProductID)
		e.FieldStart("variant_id")
		e.Str(it.VariantID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}

// decodeRate parses {"currency":"USD","rate":"12.30"} into minor units. The
// provider sends a decimal string.
func decodeRate(body []byte) (int64, error) {
	d := jx.DecodeBytes(body)
	var rate string
	found := false
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "rate" {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return err
		}
		rate = v
		found = true
		return nil
	}); err != nil {
		return 0, err
	}
	if !found {
		return 0, errors.New("response missing rate")
	}
	dec, err := decimal.NewFromString(rate)
	if err != nil {
		return 0, errors.Wrapf(err, "parse rate %q", rate)
	}
	if dec.IsNegative() {
		return 0, errors.Errorf("negative rate %q", rate)
	}
	return dec.Shift(2).IntPart(), nil
}

// quoteKey canonicalizes a quote request so identical quotes collapse to one
// upstream call regardless of item order.
func quoteKey(items []Item, dest Destination) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%d/%s/%d", it.ProductID, it.VariantID, it.Quantity)
	}
	sort.Strings(parts)
	return dest.Country + "|" + dest.PostalCode + "|" + strings.Join(parts, ",")
}
