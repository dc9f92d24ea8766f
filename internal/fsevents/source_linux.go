//go:build linux

package fsevents

import (
	"errors"
	"strings"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

var eventHeaderSize = int(unsafe.Sizeof(syscall.InotifyEvent{}))

// Source owns a single inotify instance. It is safe for concurrent use.
type Source struct {
	mu     sync.Mutex
	fd     int
	pipeR  int
	pipeW  int
	closed bool
	buf    []byte
}

// New opens a fresh inotify instance.
func New() (*Source, error) {
	fd, err := syscall.InotifyInit1(inCloexecFlag)
	if err != nil {
		return nil, err
	}
	var pipeFds [2]int
	if err := syscall.Pipe2(pipeFds[:], syscall.O_CLOEXEC|syscall.O_NONBLOCK); err != nil {
		syscall.Close(fd)
		return nil, err
	}
	return &Source{
		fd:    fd,
		pipeR: pipeFds[0],
		pipeW: pipeFds[1],
		buf:   make([]byte, 64*1024),
	}, nil
}

// Watch registers dir for the selected event classes and returns its watch
// descriptor.
func (s *Source) Watch(dir string, mask Mask) (int, error) {
	if s == nil {
		return 0, ErrClosed
	}
	s.mu.Lock()
	closed := s.closed
	fd := s.fd
	s.mu.Unlock()
	if closed {
		return 0, ErrClosed
	}

	wd, err := syscall.InotifyAddWatch(fd, dir, toInotifyMask(mask))
	if err != nil {
		return 0, classifyErr(err)
	}
	return wd, nil
}

// Unwatch removes a previously registered watch descriptor. It is not an
// error to unwatch a descriptor the kernel already retired (e.g. because
// the watched directory was removed).
func (s *Source) Unwatch(wd int) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	closed := s.closed
	fd := s.fd
	s.mu.Unlock()
	if closed {
		return nil
	}
	if _, err := syscall.InotifyRmWatch(fd, uint32(wd)); err != nil {
		if errors.Is(err, syscall.EINVAL) {
			return nil
		}
		return err
	}
	return nil
}

// Poll blocks up to timeout waiting for events. timeout of zero performs a
// non-blocking drain. It may return early with zero or more events.
func (s *Source) Poll(timeout time.Duration) ([]RawEvent, error) {
	if s == nil {
		return nil, ErrClosed
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	fd := s.fd
	pipeR := s.pipeR
	s.mu.Unlock()

	timeoutMs := int(timeout / time.Millisecond)
	if timeout > 0 && timeoutMs == 0 {
		timeoutMs = 1
	}
	if timeout < 0 {
		timeoutMs = -1
	}

	pollFds := []unix.PollFd{
		{Fd: int32(fd), Events: unix.POLLIN},
		{Fd: int32(pipeR), Events: unix.POLLIN},
	}

	for {
		n, err := unix.Poll(pollFds, timeoutMs)
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
		break
	}

	if pollFds[1].Revents&unix.POLLIN != 0 {
		return nil, ErrClosed
	}
	if pollFds[0].Revents&unix.POLLIN == 0 {
		return nil, nil
	}

	s.mu.Lock()
	n, err := syscall.Read(fd, s.buf)
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, syscall.EAGAIN) {
			return nil, nil
		}
		return nil, err
	}
	return decode(s.buf[:n]), nil
}

// Close releases the inotify file descriptor. All registered watches
// become invalid.
func (s *Source) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	fd, pipeR, pipeW := s.fd, s.pipeR, s.pipeW
	s.mu.Unlock()

	syscall.Write(pipeW, []byte{0})
	syscall.Close(pipeW)
	syscall.Close(pipeR)
	return syscall.Close(fd)
}

func decode(buf []byte) []RawEvent {
	var events []RawEvent
	for offset := 0; offset+eventHeaderSize <= len(buf); {
		raw := (*syscall.InotifyEvent)(unsafe.Pointer(&buf[offset]))
		offset += eventHeaderSize

		var name string
		if raw.Len > 0 {
			end := offset + int(raw.Len)
			if end > len(buf) {
				break
			}
			name = strings.TrimRight(string(buf[offset:end]), "\x00")
			offset += int(raw.Len)
		}

		if raw.Mask&inQOverflow != 0 {
			continue
		}
		events = append(events, RawEvent{
			Wd:    int(raw.Wd),
			Mask:  raw.Mask,
			Name:  name,
			IsDir: raw.Mask&inIsDir != 0,
		})
	}
	return events
}

func classifyErr(err error) error {
	switch {
	case errors.Is(err, syscall.ENOSPC):
		return ErrNoSpace
	case errors.Is(err, syscall.ENOENT):
		return ErrNotFound
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return ErrPermission
	default:
		return err
	}
}
