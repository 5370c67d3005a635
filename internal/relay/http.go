package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"skep/internal/domain"
)

// HTTP talks JSON to the relay server.
type HTTP struct {
	Base string
	HTTP *http.Client
}

// NewHTTP returns a client for the relay at base.
func NewHTTP(base string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{Base: base, HTTP: client}
}

func (c *HTTP) Register(ctx context.Context, b domain.PublicBundle) error {
	return c.post(ctx, "/register", b, nil)
}

func (c *HTTP) PublicKeyBundle(ctx context.Context, user domain.UserID) (domain.PublicBundle, error) {
	var out domain.PublicBundle
	if err := c.getJSON(ctx, "/bundle/"+url.PathEscape(user.String()), &out); err != nil {
		return domain.PublicBundle{}, err
	}
	return out, nil
}

func (c *HTTP) SendEnvelope(ctx context.Context, env domain.Envelope) error {
	return c.post(ctx, "/msg/"+url.PathEscape(env.To.String()), env, nil)
}

func (c *HTTP) FetchEnvelopes(ctx context.Context, user domain.UserID, limit int) ([]domain.Envelope, error) {
	path := "/msg/" + url.PathEscape(user.String())
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var envs []domain.Envelope
	if err := c.getJSON(ctx, path, &envs); err != nil {
		return nil, err
	}
	return envs, nil
}

func (c *HTTP) AckEnvelopes(ctx context.Context, user domain.UserID, count int) error {
	return c.post(ctx, "/msg/"+url.PathEscape(user.String())+"/ack", struct {
		Count int `json:"count"`
	}{Count: count}, nil)
}

func (c *HTTP) post(ctx context.Context, path string, in, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("relay post %s: %s", path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *HTTP) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("relay get %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var (
	_ domain.RelayClient = (*HTTP)(nil)
	_ domain.Directory   = (*HTTP)(nil)
)
