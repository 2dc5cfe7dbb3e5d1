// Package backup copies the store's on-disk state to a backup directory on
// a cron schedule, so a corrupted device database can be rolled back.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Scheduler struct {
	source string
	dest   string
	log    *zap.Logger
	cron   *cron.Cron
}

// New schedules a copy of sourceFile into destDir at the given cron spec.
func New(sourceFile, destDir, spec string, log *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		source: sourceFile,
		dest:   destDir,
		log:    log,
		cron:   cron.New(),
	}
	if _, err := s.cron.AddFunc(spec, func() {
		if err := s.Run(time.Now()); err != nil {
			log.Warn("backup failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("backup: bad schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() { s.cron.Start() }
func (s *Scheduler) Stop()  { s.cron.Stop() }

// Run copies the source file into the destination directory with a
// timestamped name. A missing source is not an error; there is simply
// nothing to back up yet.
func (s *Scheduler) Run(now time.Time) error {
	src, err := os.Open(s.source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(s.dest, 0o700); err != nil {
		return err
	}

	name := fmt.Sprintf("%s.%s", filepath.Base(s.source), now.Format("20060102-150405"))
	path := filepath.Join(s.dest, name)
	dst, err := os.CreateTemp(s.dest, name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := dst.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	s.log.Info("backup written", zap.String("path", path))
	return nil
}
