package bungie

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL     = "https://www.bungie.net/Platform"
	defaultMaxAttempts = 3
	defaultBackoffBase = 2 * time.Second
	defaultTimeout     = 30 * time.Second
)

// APIError is an application-level error carried in a response envelope,
// or a non-200 transport status.
type APIError struct {
	StatusCode      int
	Code            int
	Status          string
	Message         string
	ThrottleSeconds int
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("bungie api error %d (%s): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("bungie api http status %d", e.StatusCode)
}

// IsPrivacyRestricted reports whether err is the privacy-gated profile
// code. This is a valid business outcome, not a fault.
func IsPrivacyRestricted(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == errorCodePrivateHistory
}

// IsTransient reports whether err is worth retrying: network faults,
// server-side statuses, and explicit throttle hints.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.ThrottleSeconds > 0
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

type Config struct {
	APIKey         string
	BaseURL        string
	MaxAttempts    int
	MaxConcurrent  int64
	MinInterval    time.Duration
	RequestTimeout time.Duration
}

// Client is a pooled, rate-limited client for the game-statistics API.
// Construct once and share; every call runs through a bounded retry with
// exponential backoff.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	limiter     *throttle
	maxAttempts int
	backoffBase time.Duration
}

func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		limiter:     newThrottle(maxConcurrent, cfg.MinInterval),
		maxAttempts: maxAttempts,
		backoffBase: defaultBackoffBase,
	}
}

// Close releases pooled transport resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// get performs one endpoint call with the bounded retry policy. Pagination
// state is never advanced by callers until this returns nil.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	var lastErr error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			wait := c.backoffBase << (attempt - 1)
			var apiErr *APIError
			if errors.As(lastErr, &apiErr) && apiErr.ThrottleSeconds > 0 {
				hinted := time.Duration(apiErr.ThrottleSeconds) * time.Second
				if hinted > wait {
					wait = hinted
				}
			}

			slog.Debug("Retrying api call",
				slog.String("type", "api"),
				slog.String("path", path),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", wait))

			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}

		err := c.once(ctx, path, out)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("retry budget exhausted after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) once(ctx context.Context, path string, out interface{}) error {
	if err := c.limiter.acquire(ctx); err != nil {
		return err
	}
	defer c.limiter.release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response envelope: %w", err)
	}

	if env.ErrorCode != errorCodeSuccess {
		return &APIError{
			StatusCode:      resp.StatusCode,
			Code:            env.ErrorCode,
			Status:          env.ErrorStatus,
			Message:         env.Message,
			ThrottleSeconds: env.ThrottleSeconds,
		}
	}

	if out == nil || len(env.Response) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return fmt.Errorf("failed to decode response payload: %w", err)
	}
	return nil
}

// GetProfile resolves the profile summary for one membership type. A type
// the account does not exist on yields a non-success error code.
func (c *Client) GetProfile(ctx context.Context, membershipType int, membershipID string) (*Profile, error) {
	var resp profileResponse
	path := fmt.Sprintf("/Destiny2/%d/Profile/%s/?components=100", membershipType, membershipID)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &Profile{
		UserInfo:     resp.Profile.Data.UserInfo,
		CharacterIDs: resp.Profile.Data.CharacterIDs,
	}, nil
}

// GetActivityHistory returns one page of a character's recorded sessions,
// newest first. An empty slice means the history is exhausted.
func (c *Client) GetActivityHistory(ctx context.Context, membershipType int, membershipID, characterID string, count, page int) ([]ActivityEntry, error) {
	var resp activityHistoryResponse
	path := fmt.Sprintf("/Destiny2/%d/Account/%s/Character/%s/Stats/Activities/?count=%d&page=%d",
		membershipType, membershipID, characterID, count, page)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Activities, nil
}

// GetPostGameCarnageReport returns the detailed participant report for one
// session instance.
func (c *Client) GetPostGameCarnageReport(ctx context.Context, instanceID string) (*CarnageReport, error) {
	var resp CarnageReport
	path := fmt.Sprintf("/Destiny2/Stats/PostGameCarnageReport/%s/", instanceID)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetGroupMembers pulls the full membership of a clan, following the
// paging cursor until the API reports no more pages.
func (c *Client) GetGroupMembers(ctx context.Context, groupID int64) ([]GroupMember, error) {
	var members []GroupMember

	for page := 1; ; page++ {
		var resp groupMembersResponse
		path := fmt.Sprintf("/GroupV2/%d/Members/?currentPage=%d", groupID, page)
		if err := c.get(ctx, path, &resp); err != nil {
			return nil, err
		}

		members = append(members, resp.Results...)
		if !resp.HasMore {
			break
		}
	}
	return members, nil
}

// GetGroupsForMember returns the clans a player currently belongs to.
func (c *Client) GetGroupsForMember(ctx context.Context, membershipType int, membershipID string) ([]GroupInfo, error) {
	var resp groupsForMemberResponse
	path := fmt.Sprintf("/GroupV2/User/%d/%s/0/1/", membershipType, membershipID)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	groups := make([]GroupInfo, 0, len(resp.Results))
	for _, result := range resp.Results {
		groups = append(groups, result.Group)
	}
	return groups, nil
}
