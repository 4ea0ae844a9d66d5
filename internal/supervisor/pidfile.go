package supervisor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ReadPidFile returns the pid stored at path. It returns 0 without an error
// if the file does not exist.
func ReadPidFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("failed to read pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("malformed pid file %s", path)
	}

	return pid, nil
}

// readPidFile returns the pid remembered from a previous session, or 0.
func (s *Supervisor) readPidFile() int {
	if s.cfg.PidFile == "" {
		return 0
	}

	pid, err := ReadPidFile(s.cfg.PidFile)
	if err != nil {
		s.log.Warn("ignoring pid file", zap.String("path", s.cfg.PidFile), zap.Error(err))
		return 0
	}

	return pid
}

func (s *Supervisor) writePidFile(pid int) {
	if s.cfg.PidFile == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.cfg.PidFile), 0o755); err != nil {
		s.log.Warn("failed to create pid file directory", zap.Error(err))
		return
	}

	tmp := s.cfg.PidFile + ".tmp"

	if err := os.WriteFile(tmp, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		s.log.Warn("failed to write pid file", zap.String("path", tmp), zap.Error(err))
		return
	}

	if err := os.Rename(tmp, s.cfg.PidFile); err != nil {
		s.log.Warn("failed to write pid file", zap.String("path", s.cfg.PidFile), zap.Error(err))
		_ = os.Remove(tmp)
		return
	}

	s.wrotePidFile = true
}

func (s *Supervisor) removePidFile() {
	if s.cfg.PidFile == "" {
		return
	}

	if err := os.Remove(s.cfg.PidFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("failed to remove pid file", zap.String("path", s.cfg.PidFile), zap.Error(err))
		return
	}

	s.wrotePidFile = false
}
