package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"PinguinGuard/interfaces"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Live follows the backend's websocket feed and reloads whatever an event
// says has changed.
type Live struct {
	Engine  *Engine
	BaseURL string
	Dialer  *websocket.Dialer
	Logger  *zap.Logger
	// Backoff paces reconnects. The default grows to a minute and never stops.
	Backoff func() backoff.BackOff
}

func NewLive(engine *Engine, baseURL string, logger *zap.Logger) *Live {
	return &Live{
		Engine:  engine,
		BaseURL: baseURL,
		Dialer:  websocket.DefaultDialer,
		Logger:  logger,
		Backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxInterval = time.Minute
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Run keeps a connection open until ctx is done.
func (l *Live) Run(ctx context.Context) error {
	err := backoff.RetryNotify(func() error {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}, backoff.WithContext(l.Backoff(), ctx), func(err error, next time.Duration) {
		l.Logger.Warn("live feed disconnected", zap.Error(err), zap.Duration("retry_in", next))
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (l *Live) listen(ctx context.Context) error {
	target, err := feedURL(l.BaseURL)
	if err != nil {
		return backoff.Permanent(err)
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+l.Engine.Session.Token)

	conn, _, err := l.Dialer.DialContext(ctx, target, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	// Reconnects may have missed events.
	l.refresh(ctx, "")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errors.New("server closed the feed")
			}
			return err
		}
		var msg interfaces.WebSocketMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			l.Logger.Debug("ignoring malformed event", zap.Error(err))
			continue
		}
		l.handle(ctx, msg)
	}
}

func (l *Live) handle(ctx context.Context, msg interfaces.WebSocketMessage) {
	switch msg.Type {
	case interfaces.EventPolicyChanged:
		l.refresh(ctx, msg.ChildID)
	case interfaces.EventUnblockRequestCreated, interfaces.EventUnblockRequestResolved:
		if _, err := l.Engine.LoadRequests(ctx); ignoreStale(err) != nil {
			l.Logger.Warn("reload unblock requests", zap.Error(err))
		}
		if msg.Type == interfaces.EventUnblockRequestResolved {
			l.refresh(ctx, msg.ChildID)
		}
	}
}

func (l *Live) refresh(ctx context.Context, childID string) {
	if childID == "" && !l.Engine.Session.IsChild() {
		if _, err := l.Engine.LoadRequests(ctx); ignoreStale(err) != nil {
			l.Logger.Warn("reload unblock requests", zap.Error(err))
		}
		return
	}
	if _, err := l.Engine.LoadPolicy(ctx, childID); ignoreStale(err) != nil {
		l.Logger.Warn("reload policy", zap.String("child_id", childID), zap.Error(err))
	}
}

// feedURL turns the API base URL into the websocket feed URL.
func feedURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + routePrefix + "/ws")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.New("unsupported scheme " + u.Scheme)
	}
	return u.String(), nil
}
