package main

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// Commands mapping to control OMXPlayer, these are piped via STDIN to omxplayer process
	Commands = map[string]string{
		"pause":             "p",            // Pause/continue playback
		"stop":              "q",            // Stop playback and exit
		"volume_up":         "+",            // Change volume by +3dB
		"volume_down":       "-",            // Change volume by -3dB
		"subtitles":         "s",            // Enable/disable subtitles
		"seek_back":         "\x1b\x5b\x44", // Seek -30 seconds
		"seek_back_fast":    "\x1b\x5b\x42", // Seek -600 second
		"seek_forward":      "\x1b\x5b\x43", // Seek +30 second
		"seek_forward_fast": "\x1b\x5b\x41", // Seek +600 seconds
	}

	ErrNotInstalled = errors.New("omxplayer is not installed")
	ErrNotPlaying   = errors.New("player is not running")
)

// VideoPlayer plays one video at a time.
type VideoPlayer interface {
	Play(path string, loop bool, volume int) error
	IsPlaying() bool
	Stop(timeout time.Duration)
	Command(name string) error
}

// OmxPlayer runs omxplayer as a child process.
type OmxPlayer struct {
	path  string
	sound string
	args  []string
	log   *logrus.Entry

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
	done  chan struct{}
}

// NewOmxPlayer determines the full path to the omxplayer executable. Returns
// ErrNotInstalled if not found.
func NewOmxPlayer(cfg OmxConfig, log *logrus.Entry) (*OmxPlayer, error) {
	buff, err := exec.Command("which", "omxplayer").Output()
	if err != nil {
		return nil, ErrNotInstalled
	}

	p := &OmxPlayer{
		path:  strings.TrimSpace(string(buff)),
		sound: cfg.Sound,
		args:  cfg.Args(),
		log:   log,
	}

	// Make sure nothing is running
	omxKill()

	return p, nil
}

func (p *OmxPlayer) buildArgs(path string, loop bool, volume int) []string {
	args := []string{
		"--no-osd",
		"--adev", p.sound, // audio out device
		"--vol", strconv.Itoa(volume), // millibels
	}
	if loop {
		args = append(args, "--loop")
	}
	args = append(args, p.args...)
	return append(args, path)
}

// Play starts playback of a video file and returns once the process is
// running. The process is reaped in the background.
func (p *OmxPlayer) Play(path string, loop bool, volume int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return fmt.Errorf("player is already running")
	}

	cmd := exec.Command(p.path, p.buildArgs(path, loop, volume)...)

	// Grab child process STDIN
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	err = cmd.Start()
	if err != nil {
		return fmt.Errorf("start omxplayer: %w", err)
	}

	status := &ProcessStatus{Stdout: stdout, Stderr: stderr, Logger: p.log}
	status.Start()

	done := make(chan struct{})
	p.cmd = cmd
	p.stdin = stdin
	p.done = done

	go func() {
		// Drain the output before reaping, Wait closes the pipes
		status.Wait()
		err := cmd.Wait()
		if err != nil {
			p.log.Debugf("Process exited with error: %s", err)
		}

		p.mu.Lock()
		if p.cmd == cmd {
			p.cmd = nil
			p.stdin = nil
		}
		p.mu.Unlock()
		close(done)
	}()

	return nil
}

// IsPlaying checks if player is currently active
func (p *OmxPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil
}

// Command writes a command to the omxplayer process's STDIN
func (p *OmxPlayer) Command(name string) error {
	key, ok := Commands[name]
	if !ok {
		return fmt.Errorf("unknown player command %q", name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stdin == nil {
		return ErrNotPlaying
	}
	_, err := io.WriteString(p.stdin, key)
	return err
}

// Stop asks the player to quit and kills it if it is still running after
// timeout.
func (p *OmxPlayer) Stop(timeout time.Duration) {
	p.mu.Lock()
	cmd, stdin, done := p.cmd, p.stdin, p.done
	p.mu.Unlock()

	if cmd == nil {
		return
	}

	if stdin != nil {
		io.WriteString(stdin, Commands["stop"])
	}

	select {
	case <-done:
	case <-time.After(timeout):
		err := cmd.Process.Kill()
		if err != nil {
			p.log.Error(err.Error())
		}
		// omxplayer.bin holds the output pipes open
		omxKill()
		<-done
	}

	omxKill()
}

// Terminate any running omxplayer processes. Fixes random hangs.
func omxKill() {
	exec.Command("killall", "omxplayer.bin").Output()
	exec.Command("killall", "omxplayer").Output()
}
