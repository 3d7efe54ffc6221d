package main

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const cpuInfoPath = "/proc/cpuinfo"

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// deviceID identifies this player in feedback records and announcements.
// It is the tail of the board serial number, or a random id on machines
// that do not report one.
func deviceID(fs afero.Fs) string {
	if serial := cpuSerial(fs); serial != "" {
		if len(serial) > 8 {
			serial = serial[len(serial)-8:]
		}
		return unsafeIDChars.ReplaceAllString(serial, "_")
	}
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

func cpuSerial(fs afero.Fs) string {
	data, err := afero.ReadFile(fs, cpuInfoPath)
	if err != nil {
		return ""
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if ok && strings.TrimSpace(key) == "Serial" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
