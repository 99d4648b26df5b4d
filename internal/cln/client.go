// Package cln talks JSON-RPC 2.0 to a Core Lightning node over its unix
// socket. Only the calls the zap pipeline needs are implemented.
package cln

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/massmux/zapperd/internal/errors"
)

type Client struct {
	path string

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	id     uint64
}

func NewClient(rpcPath string) *Client {
	return &Client{path: rpcPath}
}

// WaitAnyInvoice blocks until the node reports an invoice settled after
// lastPayIndex, in ascending pay_index order. Cancelling ctx unblocks it.
func (c *Client) WaitAnyInvoice(ctx context.Context, lastPayIndex uint64) (*Invoice, error) {
	params, _ := sjson.Set(`{}`, "lastpay_index", lastPayIndex)
	result, err := c.call(ctx, "waitanyinvoice", params)
	if err != nil {
		return nil, err
	}
	return invoiceFromResult(result), nil
}

func (c *Client) call(ctx context.Context, method string, params string) (gjson.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(); err != nil {
		return gjson.Result{}, errors.New(errors.RpcError, err)
	}

	c.id++
	request, _ := sjson.Set(`{"jsonrpc":"2.0"}`, "id", c.id)
	request, _ = sjson.Set(request, "method", method)
	request, _ = sjson.SetRaw(request, "params", params)

	// unblock a pending read when the caller goes away
	conn := c.conn
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.SetDeadline(time.Unix(1, 0))
		case <-done:
		}
	}()

	if _, err := c.conn.Write([]byte(request + "\n\n")); err != nil {
		c.reset()
		return gjson.Result{}, c.rpcError(ctx, err)
	}

	raw, err := c.readResponse()
	if err != nil {
		c.reset()
		return gjson.Result{}, c.rpcError(ctx, err)
	}

	if rpcErr := gjson.Get(raw, "error"); rpcErr.Exists() && rpcErr.Type != gjson.Null {
		return gjson.Result{}, errors.New(errors.RpcError,
			fmt.Errorf("%s failed: %s (code %d)", method, rpcErr.Get("message").String(), rpcErr.Get("code").Int()))
	}
	return gjson.Get(raw, "result"), nil
}

func (c *Client) connect() error {
	if c.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("unix", c.path, 10*time.Second)
	if err != nil {
		return fmt.Errorf("could not connect to lightningd at %s: %v", c.path, err)
	}
	log.Debugf("[cln] connected to %s", c.path)
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// readResponse accumulates lines until they form a complete JSON document.
// lightningd terminates responses with a double newline but the exact
// framing is not guaranteed across versions, so validity is the delimiter.
func (c *Client) readResponse() (string, error) {
	var b strings.Builder
	for {
		line, err := c.reader.ReadString('\n')
		b.WriteString(line)
		if raw := strings.TrimSpace(b.String()); raw != "" && gjson.Valid(raw) {
			return raw, nil
		}
		if err != nil {
			return "", err
		}
	}
}

func (c *Client) reset() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.reader = nil
	}
}

// rpcError prefers the context error so shutdown is not reported as a
// transport failure.
func (c *Client) rpcError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errors.New(errors.RpcError, err)
}
