package main

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Screen shows still images behind and between videos.
type Screen interface {
	ShowImage(path string) error
	// LoadBackground (re)reads the background image, reporting whether one
	// is available.
	LoadBackground() bool
	ShowBackground() error
	Blank() error
	Message(text string)
}

// ViewerScreen hands images to an external framebuffer viewer such as fbi.
type ViewerScreen struct {
	command    string
	args       []string
	background string
	fs         afero.Fs
	log        *logrus.Entry

	mu     sync.Mutex
	viewer *exec.Cmd
	hasBg  bool
}

func NewViewerScreen(cfg ViewerConfig, background string, fs afero.Fs, log *logrus.Entry) *ViewerScreen {
	return &ViewerScreen{
		command:    cfg.Command,
		args:       cfg.Args(),
		background: background,
		fs:         fs,
		log:        log,
	}
}

func (s *ViewerScreen) ShowImage(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeViewer()

	cmd := exec.Command(s.command, append(append([]string{}, s.args...), path)...)
	err := cmd.Start()
	if err != nil {
		return fmt.Errorf("start %s: %w", s.command, err)
	}
	s.viewer = cmd

	go func() {
		err := cmd.Wait()
		if err != nil {
			s.log.Debugf("%s exited: %s", s.command, err)
		}
	}()

	return nil
}

func (s *ViewerScreen) LoadBackground() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hasBg = false
	if s.background == "" {
		return false
	}
	if _, err := s.fs.Stat(s.background); err != nil {
		s.log.Info("Background image not found")
		return false
	}
	s.hasBg = true
	return true
}

func (s *ViewerScreen) ShowBackground() error {
	s.mu.Lock()
	hasBg := s.hasBg
	s.mu.Unlock()

	if !hasBg {
		return s.Blank()
	}
	return s.ShowImage(s.background)
}

func (s *ViewerScreen) Blank() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeViewer()
	return nil
}

func (s *ViewerScreen) Message(text string) {
	s.log.Info(text)
}

func (s *ViewerScreen) closeViewer() {
	if s.viewer == nil || s.viewer.Process == nil {
		return
	}
	err := s.viewer.Process.Kill()
	if err != nil {
		s.log.Debugf("failed to stop viewer: %s", err)
	}
	s.viewer = nil
}
