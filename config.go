package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"gopkg.in/ini.v1"
)

const (
	// ConfigEnv overrides the location of the ini file.
	ConfigEnv = "LOOPER_CONFIG"

	defaultConfigPath = "/boot/video_looper.ini"
)

// LooperConfig is the [video_looper] section.
type LooperConfig struct {
	IsRandom        bool   `ini:"is_random"`
	KeyboardControl bool   `ini:"keyboard_control"`
	AllowEscExit    bool   `ini:"allow_esc_exit"`
	BackgroundImage string `ini:"bk_image_path"`
	ConsoleOutput   bool   `ini:"console_output"`
	Debug           bool   `ini:"debug"`
	LogFile         string `ini:"log_file"`
	IdleWait        int    `ini:"idle_wait"`
}

// DirectoryConfig is the [directory] section.
type DirectoryConfig struct {
	Path string `ini:"path"`
}

// OmxConfig is the [omxplayer] section.
type OmxConfig struct {
	ExtraArgs  string `ini:"extra_args"`
	Sound      string `ini:"sound"`
	Volume     int    `ini:"volume"`
	VolumeFile string `ini:"sound_vol_file"`
}

// ViewerConfig is the [viewer] section, the program used to show still images.
type ViewerConfig struct {
	Command   string `ini:"command"`
	ExtraArgs string `ini:"extra_args"`
}

// APIConfig is the [api] section.
type APIConfig struct {
	Port       int    `ini:"port"`
	Zeroconf   bool   `ini:"zeroconf"`
	FeedbackDB string `ini:"feedback_db"`
}

// Config holds everything read from the looper ini file.
type Config struct {
	Path      string          `ini:"-"`
	Looper    LooperConfig    `ini:"video_looper"`
	Directory DirectoryConfig `ini:"directory"`
	Omx       OmxConfig       `ini:"omxplayer"`
	Viewer    ViewerConfig    `ini:"viewer"`
	API       APIConfig       `ini:"api"`
}

// DefaultConfig returns the values used for keys missing from the ini file.
func DefaultConfig() *Config {
	return &Config{
		Looper: LooperConfig{
			KeyboardControl: true,
			AllowEscExit:    true,
			ConsoleOutput:   true,
			IdleWait:        10,
		},
		Directory: DirectoryConfig{
			Path: "/home/pi",
		},
		Omx: OmxConfig{
			Sound: "hdmi",
		},
		Viewer: ViewerConfig{
			Command:   "fbi",
			ExtraArgs: "-T 1 -noverbose -a",
		},
		API: APIConfig{
			Port:     8080,
			Zeroconf: true,
		},
	}
}

// ConfigPath picks the ini file: an explicit path wins over the environment,
// which wins over the default location.
func ConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(ConfigEnv); p != "" {
		return p
	}
	return defaultConfigPath
}

// LoadConfig reads the ini file at path on top of the defaults. A .env file
// in the working directory is loaded first, and PORT overrides api.port.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	cfg.Path = path

	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration %s: %w", path, err)
	}

	err = f.MapTo(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.API.Port = p
	}

	return cfg, nil
}

// IdleWait is how long to wait before looking for content again.
func (c *Config) IdleWait() time.Duration {
	if c.Looper.IdleWait <= 0 {
		return time.Second
	}
	return time.Duration(c.Looper.IdleWait) * time.Second
}

// ResolveVolume returns the player volume in millibels. A readable volume
// file overrides the configured value.
func (c OmxConfig) ResolveVolume(fs afero.Fs) int {
	if c.VolumeFile == "" {
		return c.Volume
	}
	data, err := afero.ReadFile(fs, c.VolumeFile)
	if err != nil {
		return c.Volume
	}
	vol, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return c.Volume
	}
	return vol
}

// Args splits the extra player arguments.
func (c OmxConfig) Args() []string {
	return strings.Fields(c.ExtraArgs)
}

// Args splits the extra viewer arguments.
func (c ViewerConfig) Args() []string {
	return strings.Fields(c.ExtraArgs)
}
