package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tramontosereno/sereno/pkg/domain"
)

// Gateway operation names.
const (
	OpLogin           = "login"
	OpLogout          = "logout"
	OpValidateToken   = "validate-token"
	OpProfile         = "profile"
	OpPing            = "ping"
	OpServices        = "services-available"
	OpPlanning        = "pianificazione"
	OpDeleteAccount   = "profile-delete-account"
	OpPartnerSearch   = "partner-search"
	OpPartnerGet      = "partner-get"
	defaultPartnerCat = "funeral_operator"
)

// LoginRequest carries credentials plus the device descriptor. Role is the
// hint the gateway expects ("user" or "partner"); empty means "user".
type LoginRequest struct {
	Email    string
	Password string
	Role     string
	Device   domain.DeviceInfo
}

type loginData struct {
	Token  string         `json:"token"`
	Role   domain.FlexInt `json:"role"`
	Status domain.FlexInt `json:"status"`
}

// Login exchanges credentials for a session. No token is attached and the
// error is left to the caller, which shows its own message.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*domain.Session, error) {
	if req.Role == "" {
		req.Role = domain.RoleHintUser
	}
	body := map[string]any{
		"email":     req.Email,
		"password":  req.Password,
		"role":      req.Role,
		"device":    req.Device.Device,
		"os":        req.Device.OS,
		"browser":   req.Device.Browser,
		"userAgent": req.Device.UserAgent,
	}
	env, err := c.Post(ctx, OpLogin, body, &RequestOptions{SkipToken: true, ManualErrors: true})
	if err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	data, err := Decode[loginData](env)
	if err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	if data.Token == "" {
		return nil, fmt.Errorf("client.Login: %w", &APIError{
			Message:      "login response without token",
			Status:       int(env.Status),
			URL:          c.URL(OpLogin, nil),
			ResponseData: env,
		})
	}
	return &domain.Session{Token: data.Token, Role: int(data.Role), Status: int(data.Status)}, nil
}

// Logout ends the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.Post(ctx, OpLogout, map[string]any{}, &RequestOptions{ManualErrors: true}); err != nil {
		return fmt.Errorf("client.Logout: %w", err)
	}
	return nil
}

// ValidateToken reports whether the gateway still accepts token. A rejected
// token is (false, nil); transport and HTTP failures are returned as errors.
func (c *Client) ValidateToken(ctx context.Context, token string) (bool, error) {
	_, err := c.Post(ctx, OpValidateToken, map[string]any{"token": token}, &RequestOptions{ManualErrors: true})
	if err == nil {
		return true, nil
	}
	if apiErr, ok := AsAPIError(err); ok {
		if _, isEnvelope := apiErr.ResponseData.(*domain.RawEnvelope); isEnvelope {
			return false, nil
		}
	}
	return false, fmt.Errorf("client.ValidateToken: %w", err)
}

// Profile returns the authenticated user's profile.
func (c *Client) Profile(ctx context.Context) (*domain.UserProfile, error) {
	env, err := c.Get(ctx, OpProfile, nil)
	if err != nil {
		return nil, fmt.Errorf("client.Profile: %w", err)
	}
	p, err := Decode[domain.UserProfile](env)
	if err != nil {
		return nil, fmt.Errorf("client.Profile: %w", err)
	}
	return &p, nil
}

// Ping refreshes the server-side activity timestamp.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.Get(ctx, OpPing, &RequestOptions{ManualErrors: true}); err != nil {
		return fmt.Errorf("client.Ping: %w", err)
	}
	return nil
}

// ServicesAvailable lists the service catalog.
func (c *Client) ServicesAvailable(ctx context.Context) ([]domain.Service, error) {
	env, err := c.Get(ctx, OpServices, nil)
	if err != nil {
		return nil, fmt.Errorf("client.ServicesAvailable: %w", err)
	}
	services, err := Decode[[]domain.Service](env)
	if err != nil {
		return nil, fmt.Errorf("client.ServicesAvailable: %w", err)
	}
	return services, nil
}

// SubmitPlanning sends the planning contact form.
func (c *Client) SubmitPlanning(ctx context.Context, req domain.PlanningRequest) error {
	body := make(map[string]any)
	for k, v := range req.Fields() {
		if v != "" {
			body[k] = v
		}
	}
	if _, err := c.Post(ctx, OpPlanning, body, nil); err != nil {
		return fmt.Errorf("client.SubmitPlanning: %w", err)
	}
	return nil
}

// DeleteAccount permanently deletes the account after password confirmation.
func (c *Client) DeleteAccount(ctx context.Context, password string) error {
	if _, err := c.Post(ctx, OpDeleteAccount, map[string]any{"password": password}, &RequestOptions{ManualErrors: true}); err != nil {
		return fmt.Errorf("client.DeleteAccount: %w", err)
	}
	return nil
}

// PartnerPage is one page of partner-search results.
type PartnerPage struct {
	Partners []domain.Partner
	Total    int
}

// PartnerSearch looks up funeral operators. External listings are excluded.
func (c *Client) PartnerSearch(ctx context.Context, q domain.PartnerQuery) (*PartnerPage, error) {
	params := url.Values{}
	if q.Query != "" {
		params.Set("q", q.Query)
	}
	if q.Distance > 0 {
		params.Set("distance", strconv.Itoa(q.Distance))
	}
	if q.City != "" {
		params.Set("city", q.City)
	}
	if q.Province != "" {
		params.Set("province", q.Province)
	}
	category := q.Category
	if category == "" {
		category = defaultPartnerCat
	}
	params.Set("category", category)
	params.Set("excludeExternal", "0")
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.ItemsPerPage > 0 {
		params.Set("itemsPerPage", strconv.Itoa(q.ItemsPerPage))
	}

	env, err := c.Get(ctx, OpPartnerSearch, &RequestOptions{Query: params})
	if err != nil {
		return nil, fmt.Errorf("client.PartnerSearch: %w", err)
	}
	partners, err := Decode[[]domain.Partner](env)
	if err != nil {
		return nil, fmt.Errorf("client.PartnerSearch: %w", err)
	}
	page := &PartnerPage{Partners: partners, Total: len(partners)}
	if env.Count != nil {
		page.Total = *env.Count
	}
	return page, nil
}

// PartnerGet fetches one partner by id.
func (c *Client) PartnerGet(ctx context.Context, id int) (*domain.Partner, error) {
	params := url.Values{}
	params.Set("id", strconv.Itoa(id))
	env, err := c.Get(ctx, OpPartnerGet, &RequestOptions{Query: params})
	if err != nil {
		return nil, fmt.Errorf("client.PartnerGet: %w", err)
	}
	p, err := Decode[domain.Partner](env)
	if err != nil {
		return nil, fmt.Errorf("client.PartnerGet: %w", err)
	}
	return &p, nil
}
