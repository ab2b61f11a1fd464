package peer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/checkers-relay/internal/checkers"
	"github.com/park285/checkers-relay/internal/obslog"
)

var ErrClosed = errors.New("peer client closed")

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 5 * time.Second
)

// Client connects a Session to the relay. All Session calls, including
// capture-lock releases and incoming messages, run on one loop
// goroutine. There is no reconnection.
type Client struct {
	conn    *websocket.Conn
	session *Session

	tasks chan func()
	stop  chan struct{}
	wg    sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc

	finishOnce sync.Once
	errM       sync.Mutex
	err        error
}

// Dial connects to url and starts the client loop. The session is built
// with opts plus a scheduler bound to the loop.
func Dial(ctx context.Context, url string, opts ...SessionOption) (*Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:  conn,
		tasks: make(chan func(), 32),
		stop:  make(chan struct{}),
	}
	c.rootCtx, c.rootCancel = context.WithCancel(context.Background())
	sopts := append([]SessionOption{}, opts...)
	sopts = append(sopts, WithGameOptions(checkers.WithScheduler(c.schedule)))
	c.session = NewSession(c, sopts...)

	c.wg.Add(2)
	go c.loop()
	go c.listen()
	obslog.L().Info("peer_connected", zap.String("url", url))
	return c, nil
}

// Send writes line to the relay. It is called from the loop goroutine.
func (c *Client) Send(ctx context.Context, line string) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(wctx, websocket.MessageText, []byte(line))
}

// Do runs fn on the loop goroutine and waits for it to return.
func (c *Client) Do(ctx context.Context, fn func(s *Session)) error {
	done := make(chan struct{})
	if !c.post(func() {
		defer close(done)
		fn(c.session)
	}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-c.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Context is cancelled when the client stops.
func (c *Client) Context() context.Context { return c.rootCtx }

// Done is closed once the connection has ended.
func (c *Client) Done() <-chan struct{} { return c.stop }

// Err is the reason the connection ended, nil after Close.
func (c *Client) Err() error {
	c.errM.Lock()
	defer c.errM.Unlock()
	return c.err
}

// Close ends the connection and waits for the client goroutines. It
// must not be called from a hook.
func (c *Client) Close() error {
	err := c.conn.Close(websocket.StatusNormalClosure, "")
	c.finish(nil)
	c.wg.Wait()
	return err
}

func (c *Client) schedule(d time.Duration, fire func()) {
	time.AfterFunc(d, func() { c.post(fire) })
}

func (c *Client) post(fn func()) bool {
	select {
	case <-c.stop:
		return false
	default:
	}
	select {
	case c.tasks <- fn:
		return true
	case <-c.stop:
		return false
	}
}

func (c *Client) loop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stop:
			return
		case fn := <-c.tasks:
			fn()
		}
	}
}

func (c *Client) listen() {
	defer c.wg.Done()
	for {
		typ, data, err := c.conn.Read(c.rootCtx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				err = nil
			}
			// queued behind frames already posted so they are handled first
			if !c.post(func() { c.finish(err) }) {
				c.finish(err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		frame := string(data)
		if !c.post(func() { c.session.Handle(c.rootCtx, frame) }) {
			return
		}
	}
}

func (c *Client) finish(err error) {
	c.finishOnce.Do(func() {
		c.errM.Lock()
		c.err = err
		c.errM.Unlock()
		if err != nil {
			obslog.L().Info("peer_disconnected", zap.Error(err))
		}
		close(c.stop)
		c.rootCancel()
	})
}
