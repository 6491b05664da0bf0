package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saldo-app/saldo/internal/dataservice"
)

const defaultTimeout = 10 * time.Second

// Options configures the hosted data-service client.
type Options struct {
	BaseURL string
	// APIKey is the public (anon) key sent with every request.
	APIKey string
	// ServiceKey enables admin calls such as account removal. Optional.
	ServiceKey string
	Timeout    time.Duration
	// PersistSession keeps the signed-in session and uses its token for row
	// requests. Servers relaying many users leave it off.
	PersistSession bool
}

// Client talks to a Supabase-compatible hosted service: GoTrue auth under
// /auth/v1 and PostgREST rows under /rest/v1.
type Client struct {
	dataservice.Broadcaster

	base    string
	apiKey  string
	service string
	timeout time.Duration
	persist bool
}

// New creates a hosted data-service client.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("data service url is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("parse data service url: %w", err)
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("data service key is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		base:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		service: opts.ServiceKey,
		timeout: timeout,
		persist: opts.PersistSession,
	}, nil
}

// DataService exposes the client through the contract types.
func (c *Client) DataService() dataservice.Client {
	return dataservice.Client{Auth: c, Store: c}
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type signUpResponse struct {
	userPayload
	User *userPayload `json:"user"`
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	User        userPayload `json:"user"`
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp registers a new account.
func (c *Client) SignUp(ctx context.Context, creds dataservice.Credentials) (dataservice.User, error) {
	var resp signUpResponse
	err := c.do(ctx, "signup", fiber.MethodPost, "/auth/v1/signup", nil, c.apiKey, credentialsPayload{creds.Email, creds.Password}, &resp)
	if err != nil {
		return dataservice.User{}, err
	}
	u := resp.userPayload
	if resp.User != nil {
		u = *resp.User
	}
	if u.ID == "" {
		return dataservice.User{}, dataservice.Errorf("signup", "signup response without user")
	}
	return dataservice.User{ID: u.ID, Email: u.Email}, nil
}

// SignIn exchanges credentials for a session.
func (c *Client) SignIn(ctx context.Context, creds dataservice.Credentials) (dataservice.Session, error) {
	query := url.Values{"grant_type": {"password"}}
	var resp tokenResponse
	if err := c.do(ctx, "signin", fiber.MethodPost, "/auth/v1/token", query, c.apiKey, credentialsPayload{creds.Email, creds.Password}, &resp); err != nil {
		return dataservice.Session{}, err
	}
	session := dataservice.Session{
		AccessToken: resp.AccessToken,
		User:        dataservice.User{ID: resp.User.ID, Email: resp.User.Email},
	}
	if resp.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	if c.persist {
		c.SignedIn(session)
	}
	return session, nil
}

// SignOut ends the session on the service.
func (c *Client) SignOut(ctx context.Context, session dataservice.Session) error {
	if err := c.do(ctx, "signout", fiber.MethodPost, "/auth/v1/logout", nil, session.AccessToken, nil, nil); err != nil {
		return err
	}
	if c.persist {
		c.SignedOut()
	}
	return nil
}

// Verify resolves an access token to its user.
func (c *Client) Verify(ctx context.Context, token string) (dataservice.Session, error) {
	var user userPayload
	if err := c.do(ctx, "verify", fiber.MethodGet, "/auth/v1/user", nil, token, nil, &user); err != nil {
		return dataservice.Session{}, err
	}
	return dataservice.Session{AccessToken: token, User: dataservice.User{ID: user.ID, Email: user.Email}}, nil
}

// RemoveUser deletes an account through the admin API.
func (c *Client) RemoveUser(ctx context.Context, userID string) error {
	if c.service == "" {
		return dataservice.Errorf("remove_user", "account removal requires a service key")
	}
	return c.doWithKey(ctx, "remove_user", fiber.MethodDelete, "/auth/v1/admin/users/"+url.PathEscape(userID), nil, c.service, c.service, nil, nil)
}

// Insert creates a row and returns it as stored.
func (c *Client) Insert(ctx context.Context, table string, row dataservice.Row) (dataservice.Row, error) {
	var raw []map[string]any
	if err := c.rows(ctx, "insert", fiber.MethodPost, table, nil, []dataservice.Row{row}, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, dataservice.Errorf("insert", "insert into %s returned no row", table)
	}
	return toRow(raw[0]), nil
}

// Select lists rows matching filter.
func (c *Client) Select(ctx context.Context, table string, filter dataservice.Filter) ([]dataservice.Row, error) {
	var raw []map[string]any
	if err := c.rows(ctx, "select", fiber.MethodGet, table, filter, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]dataservice.Row, len(raw))
	for i, r := range raw {
		out[i] = toRow(r)
	}
	return out, nil
}

// Update applies values to rows matching filter.
func (c *Client) Update(ctx context.Context, table string, values dataservice.Row, filter dataservice.Filter) error {
	var raw []map[string]any
	if err := c.rows(ctx, "update", fiber.MethodPatch, table, filter, values, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return dataservice.NotFound("update", table)
	}
	return nil
}

// Delete removes rows matching filter.
func (c *Client) Delete(ctx context.Context, table string, filter dataservice.Filter) error {
	var raw []map[string]any
	if err := c.rows(ctx, "delete", fiber.MethodDelete, table, filter, nil, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return dataservice.NotFound("delete", table)
	}
	return nil
}

func (c *Client) rows(ctx context.Context, op, method, table string, filter dataservice.Filter, body any, out any) error {
	if err := filter.Validate(); err != nil {
		return dataservice.Wrap(op, err)
	}
	query := filterQuery(filter)
	if method == fiber.MethodGet {
		query.Set("select", "*")
	}
	return c.do(ctx, op, method, "/rest/v1/"+url.PathEscape(table), query, c.bearer(), body, out)
}

func (c *Client) bearer() string {
	if session, ok := c.Current(); ok && session.AccessToken != "" {
		return session.AccessToken
	}
	return c.apiKey
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, bearer string, body, out any) error {
	return c.doWithKey(ctx, op, method, path, query, c.apiKey, bearer, body, out)
}

func (c *Client) doWithKey(ctx context.Context, op, method, path string, query url.Values, apiKey, bearer string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return dataservice.Wrap(op, err)
	}

	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(target)
	agent.Set("apikey", apiKey)
	agent.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if strings.HasPrefix(path, "/rest/") && method != fiber.MethodGet {
		agent.Set("Prefer", "return=representation")
	}
	if body != nil {
		agent.JSON(body)
	}
	agent.Timeout(c.effectiveTimeout(ctx))
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return dataservice.Wrap(op, err)
	}

	status, payload, errs := agent.Bytes()
	if len(errs) > 0 {
		return dataservice.Wrap(op, errs[0])
	}
	if status < 200 || status > 299 {
		return &dataservice.ServiceError{Op: op, Message: errorMessage(status, payload)}
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return dataservice.Wrap(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) effectiveTimeout(ctx context.Context) time.Duration {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

func filterQuery(filter dataservice.Filter) url.Values {
	query := url.Values{}
	for _, cond := range filter {
		query.Add(cond.Column, string(cond.Op)+"."+cond.Value)
	}
	return query
}

type errorPayload struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
	Error            string `json:"error"`
}

func errorMessage(status int, payload []byte) string {
	var e errorPayload
	if err := json.Unmarshal(payload, &e); err == nil {
		for _, m := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
			if m != "" {
				return m
			}
		}
	}
	return fmt.Sprintf("data service responded with status %d", status)
}

func toRow(raw map[string]any) dataservice.Row {
	row := make(dataservice.Row, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			row[k] = val
		case json.Number:
			row[k] = val.String()
		case bool:
			row[k] = strconv.FormatBool(val)
		default:
			b, _ := json.Marshal(val)
			row[k] = string(b)
		}
	}
	return row
}
