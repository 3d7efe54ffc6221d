package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dpfg/omx-looper/playlist"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const (
	tickInterval = 20 * time.Millisecond
	stopTimeout  = 3 * time.Second
	// content copies emit bursts of events; wait for them to settle
	rebuildDelay = time.Second
	// retry delay after the player failed to start
	playRetryDelay = time.Second
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrCommandDisabled = errors.New("command is disabled")
	ErrBusy            = errors.New("too many pending commands")
)

// Status describes what the looper is showing right now.
type Status struct {
	Running bool           `json:"running"`
	Entry   *playlist.Item `json:"entry,omitempty"`
	Index   int            `json:"index"`
	Picture bool           `json:"picture"`
	Loop    bool           `json:"loop"`
	Items   int            `json:"items"`
	Idle    bool           `json:"idle"`
}

// LooperOptions wires the looper to its collaborators.
type LooperOptions struct {
	// Build loads the playlist; called at start and after content changes.
	Build    func() (*playlist.Cursor, error)
	Player   VideoPlayer
	Screen   Screen
	Feedback *feedback
	Clock    clockwork.Clock
	Log      *logrus.Entry
	// Changes signals that the content directory changed.
	Changes <-chan struct{}

	Volume     int
	IdleWait   time.Duration
	Navigation bool
	AllowQuit  bool
	Device     string
}

// Looper is the main control loop. The cursor and playback state are only
// touched from the goroutine calling Step; other goroutines talk to it
// through Command, Status and Subscribe.
type Looper struct {
	opts     LooperOptions
	log      *logrus.Entry
	clock    clockwork.Clock
	commands chan string

	cursor         *playlist.Cursor
	pictureShown   bool
	movieLoop      bool
	hasBackground  bool
	current        *playlist.Item
	index          int
	startedAt      time.Time
	screenTime     time.Duration
	hasScreenTime  bool
	idleUntil      time.Time
	rebuildPending bool
	rebuildAt      time.Time

	mu          sync.Mutex
	cancel      context.CancelFunc
	status      Status
	items       []playlist.Item
	subscribers map[chan Status]struct{}
}

func NewLooper(opts LooperOptions) *Looper {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.Feedback == nil {
		opts.Feedback = &feedback{log: opts.Log}
	}
	if opts.IdleWait <= 0 {
		opts.IdleWait = time.Second
	}

	return &Looper{
		opts:        opts,
		log:         opts.Log,
		clock:       opts.Clock,
		commands:    make(chan string, 8),
		index:       -1,
		subscribers: make(map[chan Status]struct{}),
	}
}

// Load builds the playlist and resets playback state.
func (l *Looper) Load() {
	cursor, err := l.opts.Build()
	if err != nil {
		l.log.Errorf("failed to build playlist: %s", err)
		cursor = playlist.New(nil, false)
	}

	l.cursor = cursor
	l.pictureShown = false
	l.movieLoop = false
	l.current = nil
	l.index = -1
	l.idleUntil = time.Time{}

	n := cursor.Len()
	suffix := ""
	if n != 1 {
		suffix = "s"
	}
	l.log.Infof("Found %d movie%s.", n, suffix)
	playlistItems.Set(float64(n))
	playlistIndex.Set(-1)

	l.mu.Lock()
	l.items = cursor.Items()
	l.mu.Unlock()

	if n > 0 {
		l.blank()
	} else {
		l.opts.Screen.Message("No content found in playlist")
	}
	l.publish()
}

// Run steps the loop until ctx is done or a quit command is received.
func (l *Looper) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	l.Load()

	ticker := l.clock.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.opts.Player.Stop(stopTimeout)
			l.blank()
			return nil
		case <-ticker.Chan():
			l.Step()
		}
	}
}

// Step runs a single iteration of the control loop.
func (l *Looper) Step() {
	now := l.clock.Now()

	l.checkContent(now)

	if !l.rebuildPending && !l.opts.Player.IsPlaying() && !l.pictureShown && !now.Before(l.idleUntil) {
		l.advance(now)
	}

	select {
	case cmd := <-l.commands:
		l.handleCommand(cmd)
	default:
	}

	l.checkLoop(now)
	l.checkPicture(now)
}

func (l *Looper) checkContent(now time.Time) {
	select {
	case <-l.opts.Changes:
		l.log.Info("content changed, rebuilding playlist")
		l.opts.Player.Stop(stopTimeout)
		l.pictureShown = false
		l.movieLoop = false
		l.rebuildPending = true
		l.rebuildAt = now.Add(rebuildDelay)
	default:
	}

	if l.rebuildPending && !now.Before(l.rebuildAt) {
		l.rebuildPending = false
		playlistRebuildsTotal.Inc()
		l.Load()
	}
}

func (l *Looper) reloadBackground() {
	if !l.cursor.IsNewIteration() {
		return
	}
	l.hasBackground = l.opts.Screen.LoadBackground()
	l.cursor.AcknowledgeIteration()
	playlistIterationsTotal.Inc()
}

func (l *Looper) advance(now time.Time) {
	item := l.cursor.Next()
	l.reloadBackground()

	if item == nil {
		idleTotal.Inc()
		l.current = nil
		l.index = l.cursor.CurrentIndex()
		l.blank()
		l.opts.Screen.Message(fmt.Sprintf("%s is waiting for content", l.opts.Device))
		l.idleUntil = now.Add(l.opts.IdleWait)
		l.publish()
		return
	}

	l.current = item
	l.index = l.cursor.CurrentIndex()
	l.startedAt = now
	l.screenTime, l.hasScreenTime = l.cursor.ScreenTime(l.index)
	if !l.hasScreenTime && playlist.IsImage(item.Path) {
		// only videos may run to completion
		l.screenTime = playlist.DefaultScreenTime * time.Second
		l.hasScreenTime = true
	}
	playlistIndex.Set(float64(l.index))

	name := filepath.Base(item.Path)
	send := l.cursor.SendFeedback(l.index)
	l.log.Debugf("---------------------------%d-%s-------------------------", l.index, item.Path)

	if playlist.IsImage(item.Path) {
		err := l.opts.Screen.ShowImage(item.Path)
		if err != nil {
			l.log.Errorf("failed to show %s: %s", item.Path, err)
		}
		l.pictureShown = true
		l.movieLoop = false
		playsTotal.WithLabelValues("image").Inc()
		l.opts.Feedback.send(Play{Time: now, File: name, Index: l.index, Kind: "image"}, send)
		l.publish()
		return
	}

	loop := l.cursor.OnlyOneActive()
	l.movieLoop = loop && l.hasScreenTime

	err := l.opts.Player.Play(item.Path, loop, l.opts.Volume)
	if err != nil {
		l.log.Errorf("failed to play %s: %s", item.Path, err)
		l.movieLoop = false
		l.idleUntil = now.Add(playRetryDelay)
		l.publish()
		return
	}

	kind := "video"
	if loop {
		kind = "loop"
	}
	playsTotal.WithLabelValues(kind).Inc()
	l.opts.Feedback.send(Play{Time: now, File: name, Index: l.index, Kind: kind}, send)

	l.prestage()
	l.publish()
}

// prestage paints what comes next behind the running video to avoid a
// black screen between items.
func (l *Looper) prestage() {
	var err error
	next := l.cursor.Peek()
	switch {
	case next != nil && playlist.IsImage(next.Path):
		l.log.Debugf("Display next image in order to prevent black screen : %s", next.Path)
		err = l.opts.Screen.ShowImage(next.Path)
	case l.hasBackground:
		err = l.opts.Screen.ShowBackground()
	default:
		err = l.opts.Screen.Blank()
	}
	if err != nil {
		l.log.Errorf("failed to prepare screen: %s", err)
	}
}

func (l *Looper) blank() {
	if err := l.opts.Screen.Blank(); err != nil {
		l.log.Errorf("failed to blank screen: %s", err)
	}
}

func (l *Looper) handleCommand(cmd string) {
	switch cmd {
	case "next":
		l.log.Info("Go forward")
		l.skipCurrent()
	case "prev":
		l.blank()
		prev := l.cursor.Prev()
		if prev != nil {
			l.log.Infof("Go back: %s", prev.Path)
		} else {
			l.log.Info("Go back")
		}
		l.skipCurrent()
	case "quit":
		l.log.Info("Exit")
		l.mu.Lock()
		cancel := l.cancel
		l.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	default:
		err := l.opts.Player.Command(cmd)
		if err != nil {
			l.log.Warnf("command %s: %s", cmd, err)
		}
	}
}

func (l *Looper) skipCurrent() {
	if l.pictureShown {
		l.pictureShown = false
	} else if l.opts.Player.IsPlaying() {
		l.movieLoop = false
		l.opts.Player.Stop(stopTimeout)
	}
	l.publish()
}

// checkLoop reports feedback for a looping video every screen time and stops
// it once it falls out of its schedule.
func (l *Looper) checkLoop(now time.Time) {
	if !l.movieLoop || !l.hasScreenTime {
		return
	}
	if now.Sub(l.startedAt) < l.screenTime {
		return
	}

	l.startedAt = now
	l.opts.Feedback.send(Play{
		Time:  now,
		File:  filepath.Base(l.current.Path),
		Index: l.index,
		Kind:  "loop",
	}, l.cursor.SendFeedback(l.index))

	if !l.cursor.IsOnSchedule(l.index) {
		l.log.Infof("%s left its schedule, stopping", l.current.Path)
		scheduleDropoutsTotal.Inc()
		l.movieLoop = false
		l.opts.Player.Stop(stopTimeout)
		l.publish()
	}
}

func (l *Looper) checkPicture(now time.Time) {
	if !l.pictureShown || !l.hasScreenTime {
		return
	}
	if now.Sub(l.startedAt) >= l.screenTime {
		l.log.Debug("Picture time's up")
		l.pictureShown = false
		l.publish()
	}
}

// Command queues a remote command for the loop.
func (l *Looper) Command(name string) error {
	switch name {
	case "next", "prev":
		if !l.opts.Navigation {
			return ErrCommandDisabled
		}
	case "quit":
		if !l.opts.AllowQuit {
			return ErrCommandDisabled
		}
	default:
		if _, ok := Commands[name]; !ok {
			return ErrUnknownCommand
		}
	}

	select {
	case l.commands <- name:
		return nil
	default:
		return ErrBusy
	}
}

// Status returns the last published status.
func (l *Looper) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Playlist returns the items of the loaded playlist.
func (l *Looper) Playlist() []playlist.Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]playlist.Item(nil), l.items...)
}

// Subscribe returns a channel receiving the latest status after each change.
// Slow readers only see the most recent one.
func (l *Looper) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	l.mu.Lock()
	l.subscribers[ch] = struct{}{}
	l.mu.Unlock()

	return ch, func() {
		l.mu.Lock()
		delete(l.subscribers, ch)
		l.mu.Unlock()
	}
}

func (l *Looper) publish() {
	s := Status{
		Running: l.opts.Player.IsPlaying(),
		Index:   l.index,
		Picture: l.pictureShown,
		Loop:    l.movieLoop,
		Items:   l.cursor.Len(),
		Idle:    l.current == nil,
	}
	if l.current != nil {
		item := *l.current
		s.Entry = &item
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.status = s
	for ch := range l.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}
