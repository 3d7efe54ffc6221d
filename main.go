package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"github.com/dpfg/omx-looper/playlist"
)

const version = "0.1.0"

func terminate(message string, code int) {
	fmt.Println(message)
	os.Exit(code)
}

func main() {
	fmt.Printf("omx-looper v%v\n", version)

	app := cli.NewApp()
	app.Name = "omx-looper"
	app.Usage = "loop a scheduled playlist of videos and pictures"
	app.UsageText = "omx-looper [options] [config.ini]"
	app.Version = version
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to the looper ini file",
		},
		cli.IntFlag{
			Name:  "port, p",
			Usage: "HTTP port, overrides api.port",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
	}
	app.Action = run

	err := app.Run(os.Args)
	if err != nil {
		terminate(err.Error(), 1)
	}
}

func run(c *cli.Context) error {
	path := c.String("config")
	if path == "" {
		path = c.Args().First()
	}

	cfg, err := LoadConfig(ConfigPath(path))
	if err != nil {
		return err
	}
	if c.IsSet("port") {
		cfg.API.Port = c.Int("port")
	}
	if c.Bool("debug") {
		cfg.Looper.Debug = true
	}

	log := newLogger(cfg.Looper)
	log.Infof("using configuration %s", cfg.Path)

	fs := afero.NewOsFs()
	device := deviceID(fs)
	log.Infof("device id %s", device)

	player, err := NewOmxPlayer(cfg.Omx, log.WithField("prefix", "omxplayer"))
	if err != nil {
		return err
	}

	screen := NewViewerScreen(cfg.Viewer, cfg.Looper.BackgroundImage, fs, log.WithField("prefix", "screen"))

	fb := &feedback{device: device, log: log.WithField("prefix", "feedback")}
	var store *FeedbackStore
	if cfg.API.FeedbackDB != "" {
		store, err = OpenFeedbackStore(cfg.API.FeedbackDB)
		if err != nil {
			return err
		}
		defer store.Close()
		fb.recorder = store
	}

	var changes <-chan struct{}
	watcher, err := WatchContent(cfg.Directory.Path, log.WithField("prefix", "watcher"))
	if err != nil {
		log.Warnf("content changes will not be detected: %s", err)
	} else {
		defer watcher.Close()
		changes = watcher.Changes()
	}

	clock := clockwork.NewRealClock()
	buildLog := log.WithField("prefix", "playlist")
	looper := NewLooper(LooperOptions{
		Build: func() (*playlist.Cursor, error) {
			return playlist.Build(fs, cfg.Directory.Path, playlist.BuildOptions{
				Random: cfg.Looper.IsRandom,
				Log:    buildLog,
				Cursor: []playlist.Option{playlist.WithClock(clock)},
			})
		},
		Player:     player,
		Screen:     screen,
		Feedback:   fb,
		Clock:      clock,
		Log:        log.WithField("prefix", "looper"),
		Changes:    changes,
		Volume:     cfg.Omx.ResolveVolume(fs),
		IdleWait:   cfg.IdleWait(),
		Navigation: cfg.Looper.KeyboardControl,
		AllowQuit:  cfg.Looper.AllowEscExit,
		Device:     device,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Disable debugging mode
	gin.SetMode(gin.ReleaseMode)

	var lister FeedbackLister
	if store != nil {
		lister = store
	}
	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.API.Port),
		Handler: newRouter(looper, lister, device, log),
	}

	go func() {
		log.Infof("Starting server on 0.0.0.0:%d", cfg.API.Port)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("http server: %s", err)
		}
	}()

	if cfg.API.Zeroconf {
		zc, err := startZeroConfService(cfg.API.Port, version, device, log)
		if err != nil {
			log.Warnf("zeroconf: %s", err)
		} else {
			defer zc.Shutdown()
		}
	}

	err = looper.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)

	return err
}
