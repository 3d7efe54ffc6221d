package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const bucketPlays = "plays"

// Play is a single play event of a playlist item.
type Play struct {
	Time   time.Time `json:"time"`
	Device string    `json:"device"`
	File   string    `json:"file"`
	Index  int       `json:"index"`
	Kind   string    `json:"kind"`
}

// Recorder stores play events.
type Recorder interface {
	Record(p Play) error
}

// FeedbackStore keeps play events in a bolt database.
type FeedbackStore struct {
	bdb *bolt.DB
}

// OpenFeedbackStore opens or creates the database at path.
func OpenFeedbackStore(path string) (*FeedbackStore, error) {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open feedback db: %w", err)
	}

	err = db.Update(func(txn *bolt.Tx) error {
		_, err := txn.CreateBucketIfNotExists([]byte(bucketPlays))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &FeedbackStore{bdb: db}, nil
}

func (s *FeedbackStore) Close() error {
	return s.bdb.Close()
}

// Record appends a play event.
func (s *FeedbackStore) Record(p Play) error {
	return s.bdb.Update(func(txn *bolt.Tx) error {
		b := txn.Bucket([]byte(bucketPlays))

		id, err := b.NextSequence()
		if err != nil {
			return err
		}

		data, err := json.Marshal(p)
		if err != nil {
			return err
		}

		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, id)
		return b.Put(key, data)
	})
}

// Recent returns up to limit play events, newest first.
func (s *FeedbackStore) Recent(limit int) ([]Play, error) {
	plays := make([]Play, 0)

	err := s.bdb.View(func(txn *bolt.Tx) error {
		c := txn.Bucket([]byte(bucketPlays)).Cursor()
		for k, v := c.Last(); k != nil && len(plays) < limit; k, v = c.Prev() {
			var p Play
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			plays = append(plays, p)
		}
		return nil
	})

	return plays, err
}

// feedback reports play events of items that ask for it.
type feedback struct {
	device   string
	recorder Recorder
	log      logrus.FieldLogger
}

func (f *feedback) send(p Play, enabled bool) {
	if !enabled {
		feedbackTotal.WithLabelValues("disabled").Inc()
		return
	}

	p.Device = f.device
	f.log.Infof("Play started: %s", p.File)

	if f.recorder == nil {
		feedbackTotal.WithLabelValues("recorded").Inc()
		return
	}

	err := f.recorder.Record(p)
	if err != nil {
		feedbackTotal.WithLabelValues("error").Inc()
		f.log.Errorf("failed to record play of %s: %s", p.File, err)
		return
	}
	feedbackTotal.WithLabelValues("recorded").Inc()
}
