//go:build linux

package ws

import (
	"io"
	"net"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// Epoll wraps Linux epoll syscalls for WebSocket I/O multiplexing. Instead of
// parking a goroutine per connection, file descriptors are registered with
// the kernel and reported only when data is ready to read.
type Epoll struct {
	fd     int
	conns  map[int]*Connection
	mu     sync.RWMutex
	events []unix.EpollEvent
}

// NewEpoll creates a new epoll instance using epoll_create1.
func NewEpoll() (*Epoll, error) {
	fd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &Epoll{
		fd:     fd,
		conns:  make(map[int]*Connection),
		events: make([]unix.EpollEvent, 128),
	}, nil
}

// Add registers a connection for read and hang-up readiness.
func (e *Epoll) Add(c *Connection) error {
	if err := unix.EpollCtl(e.fd, syscall.EPOLL_CTL_ADD, c.Fd, &unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLHUP,
		Fd:     int32(c.Fd),
	}); err != nil {
		return err
	}

	e.mu.Lock()
	e.conns[c.Fd] = c
	e.mu.Unlock()
	return nil
}

// Remove unregisters a connection.
func (e *Epoll) Remove(c *Connection) error {
	e.mu.Lock()
	delete(e.conns, c.Fd)
	e.mu.Unlock()
	return unix.EpollCtl(e.fd, syscall.EPOLL_CTL_DEL, c.Fd, nil)
}

// Rearm is a no-op: epoll is level-triggered, so unread data is reported
// again on the next Wait.
func (e *Epoll) Rearm(*Connection) {}

// Wait blocks for at most timeoutMs milliseconds (-1 blocks indefinitely)
// and returns the connections with pending data. A timeout returns an empty
// slice and no error.
func (e *Epoll) Wait(timeoutMs int) ([]*Connection, error) {
	n, err := unix.EpollWait(e.fd, e.events, timeoutMs)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	conns := make([]*Connection, 0, n)
	for i := 0; i < n; i++ {
		if c, ok := e.conns[int(e.events[i].Fd)]; ok {
			conns = append(conns, c)
		}
	}
	e.mu.RUnlock()
	return conns, nil
}

// Close closes the epoll file descriptor.
func (e *Epoll) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conns = nil
	return unix.Close(e.fd)
}

// frameReader reads straight from the socket; epoll never consumes bytes.
func frameReader(conn net.Conn) io.Reader {
	return conn
}

// socketFD extracts the file descriptor from a net.Conn using SyscallConn,
// which unlike File() does not duplicate it.
func socketFD(conn net.Conn) int {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return -1
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return -1
	}

	fd := -1
	_ = raw.Control(func(sfd uintptr) {
		fd = int(sfd)
	})
	return fd
}

func isEINTR(err error) bool {
	return err == unix.EINTR
}
