// Package wsclient is a small WebSocket client for the chess server.
package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/park285/chess-live-server/pkg/chessdto"
)

type MessageCallback func(msg chessdto.ServerMessage)

type callbackEntry struct {
	id       int
	callback MessageCallback
}

var ErrNotConnected = errors.New("websocket not connected")

type Client struct {
	url string

	conn  *websocket.Conn
	connM sync.Mutex

	cbs    []callbackEntry
	nextID int
	cbM    sync.RWMutex

	pingInterval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
	readErr  error

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func New(url string) *Client {
	return &Client{
		url:          url,
		pingInterval: 30 * time.Second,
		stopCh:       make(chan struct{}),
		done:         make(chan struct{}),
	}
}

func (c *Client) SetPingInterval(d time.Duration) {
	if d > 0 {
		c.pingInterval = d
	}
}

func (c *Client) Connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	c.rootCtx, c.rootCancel = context.WithCancel(context.Background())
	c.connM.Lock()
	c.conn = conn
	c.connM.Unlock()

	c.wg.Add(2)
	go c.listen()
	go c.pingLoop()
	return nil
}

// Send writes one command frame.
func (c *Client) Send(ctx context.Context, cmd chessdto.Command) error {
	c.connM.Lock()
	conn := c.conn
	c.connM.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	raw, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, raw)
}

func (c *Client) OnMessage(cb MessageCallback) int {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.nextID++
	c.cbs = append(c.cbs, callbackEntry{id: c.nextID, callback: cb})
	return c.nextID
}

func (c *Client) RemoveMessageCallback(id int) {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	for i, e := range c.cbs {
		if e.id == id {
			c.cbs = append(c.cbs[:i], c.cbs[i+1:]...)
			return
		}
	}
}

// Done is closed when the read loop ends; Err then reports why.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.readErr
	default:
		return nil
	}
}

func (c *Client) listen() {
	defer c.wg.Done()
	defer close(c.done)
	for {
		// Read then Unmarshal: a bad frame should not close the socket.
		_, data, err := c.conn.Read(c.rootCtx)
		if err != nil {
			if !c.isStopping() {
				c.readErr = err
			}
			return
		}
		var msg chessdto.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		c.cbM.RLock()
		callbacks := make([]callbackEntry, len(c.cbs))
		copy(callbacks, c.cbs)
		c.cbM.RUnlock()
		for _, e := range callbacks {
			if e.callback != nil {
				e.callback(msg)
			}
		}
	}
}

func (c *Client) pingLoop() {
	defer c.wg.Done()
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-c.stopCh:
			return
		case <-c.done:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(c.rootCtx, 3*time.Second)
			err := c.conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				_ = c.conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func (c *Client) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.connM.Lock()
	conn := c.conn
	c.connM.Unlock()
	if conn == nil {
		return nil
	}
	_ = conn.Close(websocket.StatusNormalClosure, "close")

	finished := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(finished)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-finished:
		c.rootCancel()
		return nil
	}
}

func (c *Client) isStopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}
