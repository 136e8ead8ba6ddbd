// Package client is the app side of the parental-control API: a typed HTTP
// transport, an observable state store and the Engine the UI drives.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"PinguinGuard/apperrors"
	"PinguinGuard/models"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodySize    = 1 << 20
	routePrefix    = "/parental-control"
)

// API calls the backend routes. Every call takes the caller's session; its
// Token becomes the bearer token.
type API struct {
	BaseURL string
	HTTP    *http.Client
	// Retry returns the policy for idempotent GETs. The default retries once.
	Retry func() backoff.BackOff
}

func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &API{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    httpClient,
		Retry: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewConstantBackOff(250*time.Millisecond), 1)
		},
	}
}

// notice is the warning of a write the backend kept but could not finish.
type notice struct {
	Code    apperrors.Code
	Message string
}

// err rebuilds the recoverable error the backend reported next to req.
func (n notice) err(req models.UnblockRequest) error {
	switch n.Code {
	case apperrors.CodePolicySyncFailed:
		return &apperrors.PolicySyncError{RequestID: req.ID, ChildID: req.ChildID, Err: errors.New(n.Message)}
	case apperrors.CodeHistoryFailed:
		return &apperrors.HistoryWriteError{Action: string(req.Status), RequestID: req.ID, Err: errors.New(n.Message)}
	}
	return nil
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Warning string          `json:"warning"`
	Code    apperrors.Code  `json:"code"`
}

func (a *API) GetPolicy(ctx context.Context, s models.Session, childID string) (models.ChildPolicy, error) {
	var policy models.ChildPolicy
	_, err := a.call(ctx, s, http.MethodGet, "/child/"+url.PathEscape(childID), nil, nil, &policy)
	return policy, err
}

func (a *API) SetBlock(ctx context.Context, s models.Session, childID string, isBlocked bool, reason *string) (models.ChildPolicy, error) {
	body := map[string]any{"isBlocked": isBlocked, "blockReason": reason}
	var policy models.ChildPolicy
	_, err := a.call(ctx, s, http.MethodPatch, "/child/"+url.PathEscape(childID)+"/block", nil, body, &policy)
	return policy, err
}

func (a *API) SetTimeSlots(ctx context.Context, s models.Session, childID string, slots []string) (models.ChildPolicy, error) {
	if slots == nil {
		slots = []string{}
	}
	body := map[string]any{"allowedTimeSlots": slots}
	var policy models.ChildPolicy
	_, err := a.call(ctx, s, http.MethodPatch, "/child/"+url.PathEscape(childID)+"/time-slots", nil, body, &policy)
	return policy, err
}

// SetScreenTimeLimit sends a nil limit as JSON null, which removes the quota.
func (a *API) SetScreenTimeLimit(ctx context.Context, s models.Session, childID string, limit *int) (models.ChildPolicy, error) {
	body := map[string]any{"dailyScreenTimeLimit": limit}
	var policy models.ChildPolicy
	_, err := a.call(ctx, s, http.MethodPatch, "/child/"+url.PathEscape(childID)+"/screen-time-limit", nil, body, &policy)
	return policy, err
}

func (a *API) ListUnblockRequests(ctx context.Context, s models.Session, status models.RequestStatus) ([]models.UnblockRequest, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", string(status))
	}
	var requests []models.UnblockRequest
	_, err := a.call(ctx, s, http.MethodGet, "/unblock-requests", query, nil, &requests)
	return requests, err
}

func (a *API) CreateUnblockRequest(ctx context.Context, s models.Session, reason string) (models.UnblockRequest, error) {
	var req models.UnblockRequest
	warn, err := a.call(ctx, s, http.MethodPost, "/unblock-requests", nil, map[string]string{"reason": reason}, &req)
	if err != nil {
		return models.UnblockRequest{}, err
	}
	return req, warn.err(req)
}

// RespondToUnblockRequest returns the resolved request. When the backend kept
// the resolution but could not lift the block or write its history, the
// request comes back together with a *apperrors.PolicySyncError or
// *apperrors.HistoryWriteError.
func (a *API) RespondToUnblockRequest(ctx context.Context, s models.Session, requestID string, approve bool, parentResponse *string) (models.UnblockRequest, error) {
	body := map[string]any{"approve": approve, "parentResponse": parentResponse}
	var req models.UnblockRequest
	warn, err := a.call(ctx, s, http.MethodPatch, "/unblock-requests/"+url.PathEscape(requestID), nil, body, &req)
	if err != nil {
		return models.UnblockRequest{}, err
	}
	return req, warn.err(req)
}

func (a *API) TodayScreenTime(ctx context.Context, s models.Session, childID string) (models.UsageRecord, error) {
	var record models.UsageRecord
	_, err := a.call(ctx, s, http.MethodGet, "/screen-time/today", childQuery(childID), nil, &record)
	return record, err
}

func (a *API) ScreenTimeHistory(ctx context.Context, s models.Session, childID string, days int) ([]models.UsageRecord, error) {
	query := childQuery(childID)
	if days > 0 {
		query.Set("days", strconv.Itoa(days))
	}
	var records []models.UsageRecord
	_, err := a.call(ctx, s, http.MethodGet, "/screen-time/history", query, nil, &records)
	return records, err
}

func (a *API) ReportScreenTime(ctx context.Context, s models.Session, totalMinutes, sessionCount int) (models.UsageRecord, error) {
	body := map[string]int{"totalMinutesUsed": totalMinutes, "sessionCount": sessionCount}
	var record models.UsageRecord
	_, err := a.call(ctx, s, http.MethodPost, "/screen-time/report", nil, body, &record)
	return record, err
}

func (a *API) History(ctx context.Context, s models.Session, limit int) ([]models.HistoryEntry, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var entries []models.HistoryEntry
	_, err := a.call(ctx, s, http.MethodGet, "/history", query, nil, &entries)
	return entries, err
}

func (a *API) MyStatus(ctx context.Context, s models.Session, childID string) (models.RestrictionStatus, error) {
	var status models.RestrictionStatus
	_, err := a.call(ctx, s, http.MethodGet, "/my-status", childQuery(childID), nil, &status)
	return status, err
}

func childQuery(childID string) url.Values {
	query := url.Values{}
	if childID != "" {
		query.Set("childId", childID)
	}
	return query
}

// call performs one request and decodes the data envelope into out. GETs
// are retried while the failure is temporary.
func (a *API) call(ctx context.Context, s models.Session, method, path string, query url.Values, body, out any) (notice, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return notice{}, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	if method != http.MethodGet || a.Retry == nil {
		return a.roundTrip(ctx, s, method, path, query, payload, out)
	}

	var warn notice
	err := backoff.Retry(func() error {
		w, err := a.roundTrip(ctx, s, method, path, query, payload, out)
		if err == nil {
			warn = w
			return nil
		}
		var tErr *apperrors.TransportError
		if errors.As(err, &tErr) && tErr.Temporary() && ctx.Err() == nil {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(a.Retry(), ctx))
	return warn, err
}

func (a *API) roundTrip(ctx context.Context, s models.Session, method, path string, query url.Values, payload []byte, out any) (notice, error) {
	op := method + " " + path
	target := a.BaseURL + routePrefix + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return notice{}, &apperrors.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return notice{}, &apperrors.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return notice{}, &apperrors.TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode >= http.StatusMultipleChoices {
		tErr := &apperrors.TransportError{Op: op, StatusCode: resp.StatusCode, Code: env.Code, Message: env.Error}
		if decodeErr != nil {
			tErr.Message = strings.TrimSpace(string(raw))
		}
		return notice{}, tErr
	}
	if decodeErr != nil {
		return notice{}, &apperrors.TransportError{Op: op, StatusCode: resp.StatusCode, Code: apperrors.CodeUnknown, Message: "malformed response: " + decodeErr.Error()}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return notice{}, &apperrors.TransportError{Op: op, StatusCode: resp.StatusCode, Code: apperrors.CodeUnknown, Message: "malformed data: " + err.Error()}
		}
	}
	if env.Warning != "" {
		return notice{Code: env.Code, Message: env.Warning}, nil
	}
	return notice{}, nil
}
