package playlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	// IniFile is the line based definition file looked up in the content root.
	IniFile = "playlist.ini"
	// CSVFile is the alternative definition file with a header row.
	CSVFile = "playlist.csv"

	// DefaultScreenTime is used when a record carries an unparsable screen time
	// and for images without one.
	DefaultScreenTime = 10

	fieldSeparator = ":=:"
	noScreenTime   = "-"
	periodLayout   = "20060102150405"
	dailyLayout    = "150405"
)

// BuildOptions controls how a content root is turned into a cursor.
type BuildOptions struct {
	Random   bool
	Location *time.Location
	Log      logrus.FieldLogger
	Cursor   []Option
}

// csvRecord mirrors one row of playlist.csv.
type csvRecord struct {
	Order        string `csv:"order"`
	File         string `csv:"file"`
	Start        string `csv:"start"`
	End          string `csv:"end"`
	DailyStart   string `csv:"daily_start"`
	DailyEnd     string `csv:"daily_end"`
	ScreenTime   string `csv:"screen_time"`
	SendFeedback string `csv:"send_feedback"`
}

func (r csvRecord) fields() []string {
	return []string{r.Order, r.File, r.Start, r.End, r.DailyStart, r.DailyEnd, r.ScreenTime, r.SendFeedback}
}

// Build reads the playlist definition in root and returns a cursor over the
// items whose files exist. Without a definition file every supported media
// file in root is played in name order. Only an unreadable root is an error.
func Build(fs afero.Fs, root string, opts BuildOptions) (*Cursor, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Log = l
	}

	if _, err := fs.Stat(root); err != nil {
		return nil, fmt.Errorf("content root %s: %w", root, err)
	}

	var (
		items []Item
		err   error
	)
	switch {
	case exists(fs, filepath.Join(root, IniFile)):
		items, err = readIni(fs, root, opts)
	case exists(fs, filepath.Join(root, CSVFile)):
		items, err = readCSV(fs, root, opts)
	default:
		opts.Log.Debugf("no playlist definition in %s, scanning directory", root)
		items, err = readDir(fs, root)
	}
	if err != nil {
		return nil, err
	}

	opts.Log.Infof("loaded %d playlist item(s) from %s", len(items), root)
	return New(items, opts.Random, opts.Cursor...), nil
}

func exists(fs afero.Fs, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}

func readIni(fs afero.Fs, root string, opts BuildOptions) ([]Item, error) {
	f, err := fs.Open(filepath.Join(root, IniFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var items []Item
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, fieldSeparator)
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		item, ok := parseRecord(fs, root, fields, opts)
		if !ok {
			opts.Log.Debugf("%s:%d skipped", IniFile, lineNo)
			continue
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", IniFile, err)
	}

	return items, nil
}

func readCSV(fs afero.Fs, root string, opts BuildOptions) ([]Item, error) {
	f, err := fs.Open(filepath.Join(root, CSVFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records := make([]csvRecord, 0)
	err = gocsv.Unmarshal(f, &records)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", CSVFile, err)
	}

	var items []Item
	for i, record := range records {
		fields := record.fields()
		for j := range fields {
			fields[j] = strings.TrimSpace(fields[j])
		}
		item, ok := parseRecord(fs, root, fields, opts)
		if !ok {
			opts.Log.Debugf("%s row %d skipped", CSVFile, i+1)
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

func readDir(fs afero.Fs, root string) ([]Item, error) {
	infos, err := afero.ReadDir(fs, root)
	if err != nil {
		return nil, fmt.Errorf("content root %s: %w", root, err)
	}

	var names []string
	for _, info := range infos {
		if info.IsDir() || strings.HasPrefix(info.Name(), ".") || !IsSupported(info.Name()) {
			continue
		}
		names = append(names, info.Name())
	}
	sort.Strings(names)

	items := make([]Item, 0, len(names))
	for _, name := range names {
		items = append(items, Item{Path: filepath.Join(root, name)})
	}
	return items, nil
}

// parseRecord turns the fields of one definition record into an item. Fields
// that fail to parse fall back to their defaults; the record is dropped only
// when it has no file name or the file does not exist.
func parseRecord(fs afero.Fs, root string, fields []string, opts BuildOptions) (Item, bool) {
	log := opts.Log
	if len(fields) < 2 || fields[1] == "" {
		log.Warnf("playlist record %q has no file name", strings.Join(fields, fieldSeparator))
		return Item{}, false
	}

	name := fields[1]
	path := filepath.Join(root, name)
	if _, err := fs.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Infof("%s does not exist, skipping", path)
		} else {
			log.Warnf("%s: %s, skipping", path, err)
		}
		return Item{}, false
	}

	var r Restriction

	if period, err := parsePeriod(field(fields, 2), field(fields, 3), opts.Location); err != nil {
		log.Debugf("%s: no date window: %s", name, err)
	} else {
		r.Period = period
	}

	if daily, err := parseDaily(field(fields, 4), field(fields, 5)); err != nil {
		log.Debugf("%s: no daily window: %s", name, err)
	} else {
		r.Daily = daily
	}

	// "-" leaves the item without a fixed duration
	if screen := field(fields, 6); screen != noScreenTime {
		seconds, err := strconv.Atoi(screen)
		if err != nil || seconds <= 0 {
			log.Debugf("%s: invalid screen time %q, using %ds", name, screen, DefaultScreenTime)
			seconds = DefaultScreenTime
		}
		r.ScreenTime = &seconds
	}

	if feedback := field(fields, 7); feedback != "" {
		send := feedback == "T"
		r.SendFeedback = &send
	}

	log.Debugf("%s - %s - %+v", field(fields, 0), name, r)
	return Item{Path: path, Restriction: r}, true
}

func field(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

func parsePeriod(start, end string, loc *time.Location) (*Period, error) {
	s, err := time.ParseInLocation(periodLayout, start, loc)
	if err != nil {
		return nil, err
	}
	e, err := time.ParseInLocation(periodLayout, end, loc)
	if err != nil {
		return nil, err
	}
	return &Period{Start: s, End: e}, nil
}

func parseDaily(start, end string) (*Daily, error) {
	s, err := time.Parse(dailyLayout, start)
	if err != nil {
		return nil, err
	}
	e, err := time.Parse(dailyLayout, end)
	if err != nil {
		return nil, err
	}
	return &Daily{Start: ClockOf(s), End: ClockOf(e)}, nil
}
