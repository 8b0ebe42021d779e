// Package shopclient is a Go client for the storefront API. It keeps the
// session cookies in a jar, refreshes the access cookie on 401 and remembers
// the signed-in user in a SessionStore.
package shopclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

var ErrSessionExpired = errors.New("session expired")

// APIError is a non-2xx answer decoded from the {message, code} body.
type APIError struct {
	Status  int
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("storefront: %d %s (%s)", e.Status, e.Message, e.Code)
	}
	return fmt.Sprintf("storefront: %d %s", e.Status, e.Message)
}

type Options struct {
	BaseURL string
	// Store defaults to a MemorySessionStore.
	Store SessionStore
	// OnSessionExpired runs after a failed refresh, once the store is cleared.
	OnSessionExpired func()
	Timeout          time.Duration
	Transport        http.RoundTripper
}

type Client struct {
	baseURL    string
	store      SessionStore
	jar        http.CookieJar
	httpClient *http.Client
	rawClient  *http.Client
	onExpired  func()
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	store := opts.Store
	if store == nil {
		store = &MemorySessionStore{}
	}

	c := &Client{
		baseURL:   base.String(),
		store:     store,
		jar:       jar,
		onExpired: opts.OnSessionExpired,
		rawClient: &http.Client{Transport: transport, Jar: jar, Timeout: timeout},
	}
	c.httpClient = &http.Client{
		Transport: &refreshTransport{
			base:    transport,
			jar:     jar,
			refresh: c.refresh,
			expired: c.sessionExpired,
		},
		Jar:     jar,
		Timeout: timeout,
	}
	return c, nil
}

// Session returns the remembered user, or nil when signed out.
func (c *Client) Session() (*Session, error) { return c.store.Load() }

func (c *Client) Signup(ctx context.Context, username, email, password string) error {
	return c.do(ctx, c.rawClient, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, nil)
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var out struct {
		User Session `json:"user"`
	}
	err := c.do(ctx, c.rawClient, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	if err := c.store.Save(&out.User); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Logout forgets the local session even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, c.httpClient, http.MethodPost, "/api/auth/logout", nil, nil)
	if clearErr := c.store.Clear(); clearErr != nil && err == nil {
		err = clearErr
	}
	return err
}

type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Profile also restores the remembered session, so a client started with a
// live cookie jar regains it.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var out struct {
		User Profile `json:"user"`
	}
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/api/auth/profile", nil, &out); err != nil {
		return nil, err
	}
	if err := c.store.Save(&Session{ID: out.User.ID, Username: out.User.Username, Role: out.User.Role}); err != nil {
		return nil, err
	}
	return &out.User, nil
}

type Product struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	ImageURL      string  `json:"imageURL"`
	StockQuantity int     `json:"stockQuantity"`
	Status        string  `json:"status"`
}

type ProductPage struct {
	Data []Product `json:"data"`
	Meta struct {
		Page       int   `json:"page"`
		Size       int   `json:"size"`
		Total      int64 `json:"total"`
		TotalPages int64 `json:"total_pages"`
		HasPrev    bool  `json:"has_prev"`
		HasNext    bool  `json:"has_next"`
	} `json:"meta"`
}

func (c *Client) Products(ctx context.Context, page, size int) (*ProductPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var out ProductPage
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/api/products?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type Purchase struct {
	ID              string    `json:"id"`
	ProductID       string    `json:"productId"`
	ProductName     string    `json:"productName"`
	ProductPrice    float64   `json:"productPrice"`
	PaymentIntentID string    `json:"paymentIntentId"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	PaymentStatus   string    `json:"paymentStatus"`
	OrderStatus     string    `json:"orderStatus"`
	PurchaseDate    time.Time `json:"purchaseDate"`
}

type PurchaseHistory struct {
	Purchases   []Purchase `json:"purchases"`
	TotalPages  int64      `json:"totalPages"`
	CurrentPage int        `json:"currentPage"`
	Total       int64      `json:"total"`
}

func (c *Client) Purchases(ctx context.Context, page, limit int) (*PurchaseHistory, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var out PurchaseHistory
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/api/purchases?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// refresh bypasses the interceptor; it is the interceptor's own call.
func (c *Client) refresh(ctx context.Context) error {
	err := c.do(ctx, c.rawClient, http.MethodPost, "/api/auth/refresh", nil, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	return nil
}

func (c *Client) sessionExpired(error) {
	_ = c.store.Clear()
	if c.onExpired != nil {
		c.onExpired()
	}
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
