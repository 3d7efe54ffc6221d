package main

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// ProcessStatus forwards the output of a child process to the log
type ProcessStatus struct {
	Stdout io.Reader
	Stderr io.Reader

	Logger *logrus.Entry

	wg sync.WaitGroup
}

// Start listening for std out and err
func (s *ProcessStatus) Start() {
	if s.Stdout != nil {
		s.forward(s.Stdout, "stdout")
	}
	if s.Stderr != nil {
		s.forward(s.Stderr, "stderr")
	}
}

func (s *ProcessStatus) forward(pipe io.Reader, name string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		debugger(pipe, s.Logger.WithField("status", name))
	}()
}

// Wait blocks until both streams reached EOF. exec.Cmd.Wait closes the pipes,
// so it must only be called after Wait returns.
func (s *ProcessStatus) Wait() {
	s.wg.Wait()
}

// omxplayer redraws its progress line with '\r', so split on both
func scanOutputLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func debugger(pipe io.Reader, logger *logrus.Entry) {
	scanner := bufio.NewScanner(pipe)
	scanner.Split(scanOutputLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			logger.Debug(line)
		}
	}
}
