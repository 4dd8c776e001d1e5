//go:build !linux

package ws

import (
	"bufio"
	"io"
	"net"
	"sync"
	"time"
)

// Epoll is the portable stand-in for the Linux poller. Each connection gets
// a goroutine that peeks for the next byte through a buffered reader, so no
// frame bytes are lost, and then waits to be re-armed before peeking again.
type Epoll struct {
	mu      sync.Mutex
	conns   map[*Connection]chan struct{}
	readyCh chan *Connection
	done    chan struct{}
	once    sync.Once
}

// NewEpoll creates a new fallback poller.
func NewEpoll() (*Epoll, error) {
	return &Epoll{
		conns:   make(map[*Connection]chan struct{}),
		readyCh: make(chan *Connection, 128),
		done:    make(chan struct{}),
	}, nil
}

// Add starts monitoring c.
func (e *Epoll) Add(c *Connection) error {
	stop := make(chan struct{})
	e.mu.Lock()
	e.conns[c] = stop
	e.mu.Unlock()

	go e.monitor(c, stop)
	return nil
}

func (e *Epoll) monitor(c *Connection, stop chan struct{}) {
	br, ok := c.rd.(*bufio.Reader)
	for {
		var err error
		if ok {
			_, err = br.Peek(1)
		}
		select {
		case e.readyCh <- c:
		case <-stop:
			return
		case <-e.done:
			return
		}
		if err != nil || !ok {
			return
		}
		select {
		case <-c.rearm:
		case <-stop:
			return
		case <-e.done:
			return
		}
	}
}

// Remove stops monitoring c.
func (e *Epoll) Remove(c *Connection) error {
	e.mu.Lock()
	if stop, ok := e.conns[c]; ok {
		close(stop)
		delete(e.conns, c)
	}
	e.mu.Unlock()
	return nil
}

// Rearm lets the monitor of c report readiness again once the previous
// frame has been consumed.
func (e *Epoll) Rearm(c *Connection) {
	select {
	case c.rearm <- struct{}{}:
	default:
	}
}

// Wait blocks for at most timeoutMs milliseconds (-1 blocks indefinitely)
// and returns every connection that is ready.
func (e *Epoll) Wait(timeoutMs int) ([]*Connection, error) {
	var timeout <-chan time.Time
	if timeoutMs >= 0 {
		t := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
		defer t.Stop()
		timeout = t.C
	}

	var first *Connection
	select {
	case first = <-e.readyCh:
	case <-timeout:
		return nil, nil
	case <-e.done:
		return nil, net.ErrClosed
	}

	conns := []*Connection{first}
	for {
		select {
		case c := <-e.readyCh:
			conns = append(conns, c)
		default:
			return conns, nil
		}
	}
}

// Close shuts down the fallback poller.
func (e *Epoll) Close() error {
	e.once.Do(func() { close(e.done) })
	e.mu.Lock()
	e.conns = make(map[*Connection]chan struct{})
	e.mu.Unlock()
	return nil
}

// frameReader buffers the connection so the monitor can peek without
// consuming frame bytes.
func frameReader(conn net.Conn) io.Reader {
	return bufio.NewReader(conn)
}

func socketFD(net.Conn) int {
	return -1
}

func isEINTR(error) bool {
	return false
}
