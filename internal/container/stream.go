package container

import (
	"fmt"
	"io"
	"sync"

	"github.com/docker/docker/pkg/stdcopy"
)

// logStream is the lazy, pull-driven stream of a detached container's
// combined output. The daemon multiplexes stdout and stderr into one log
// stream; a pipe goroutine demultiplexes it so callers read plain bytes.
//
// Cleanup of the container runs exactly once, whether the stream is read
// to exhaustion, fails mid-read, or is closed early.
type logStream struct {
	runner *Runner
	id     string
	logs   io.ReadCloser
	pr     *io.PipeReader
	remove bool
	once   sync.Once
}

func newLogStream(r *Runner, id string, logs io.ReadCloser, remove bool) *logStream {
	pr, pw := io.Pipe()
	s := &logStream{
		runner: r,
		id:     id,
		logs:   logs,
		pr:     pr,
		remove: remove,
	}
	go func() {
		_, err := stdcopy.StdCopy(pw, pw, logs)
		if err != nil {
			pw.CloseWithError(fmt.Errorf("error while running command: %w", err))
			return
		}
		pw.Close()
	}()
	return s
}

func (s *logStream) Read(p []byte) (int, error) {
	n, err := s.pr.Read(p)
	if err != nil {
		// Cleanup runs before the stream end or error reaches the caller.
		s.cleanup()
	}
	return n, err
}

func (s *logStream) Close() error {
	s.logs.Close()
	s.pr.Close()
	s.cleanup()
	return nil
}

func (s *logStream) cleanup() {
	s.once.Do(func() {
		if s.remove {
			s.runner.remove(s.id)
		}
	})
}
