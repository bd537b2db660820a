/***********************************************************************************************************************
 *
 *   MIT License
 *
 *   Copyright (c) 2021 Nicolas JUHEL
 *
 *   Permission is hereby granted, free of charge, to any person obtaining a copy
 *   of this software and associated documentation files (the "Software"), to deal
 *   in the Software without restriction, including without limitation the rights
 *   to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 *   copies of the Software, and to permit persons to whom the Software is
 *   furnished to do so, subject to the following conditions:
 *
 *   The above copyright notice and this permission notice shall be included in all
 *   copies or substantial portions of the Software.
 *
 *   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 *   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 *   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 *   AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 *   LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 *   OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 *   SOFTWARE.
 *
 *
 **********************************************************************************************************************/

package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HookFile is a logrus.Hook that appends formatted entries to a file on
// disk, syncing at most every 30s so a crash loses at most one window of
// buffered writes.
type HookFile interface {
	logrus.Hook
	io.WriteCloser
	RegisterHook(log *logrus.Logger)
}

type hookFile struct {
	m sync.Mutex
	h *os.File
	w time.Time

	path   string
	create bool
	mode   os.FileMode
	levels []logrus.Level
}

// NewHookFile opens (creating parent directories if createPath is true)
// the file at path for append, validating it can be opened before
// returning, and registers it only for the given levels (all levels if
// none given).
func NewHookFile(path string, createPath bool, mode os.FileMode, levels ...Level) (HookFile, error) {
	if path == "" {
		return nil, fmt.Errorf("logger: missing hook file path")
	}

	if mode == 0 {
		mode = 0644
	}

	lvl := make([]logrus.Level, 0, len(levels))
	for _, l := range levels {
		lvl = append(lvl, l.Logrus())
	}
	if len(lvl) < 1 {
		lvl = logrus.AllLevels
	}

	o := &hookFile{
		path:   path,
		create: createPath,
		mode:   mode,
		levels: lvl,
	}

	h, err := o.openCreate()
	if err != nil {
		return nil, err
	}
	_ = h.Close()

	return o, nil
}

func (o *hookFile) openCreate() (*os.File, error) {
	if o.create {
		if err := os.MkdirAll(filepath.Dir(o.path), 0755); err != nil {
			return nil, err
		}
	}

	h, err := os.OpenFile(o.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, o.mode)
	if err != nil {
		return nil, err
	}
	if _, err = h.Seek(0, io.SeekEnd); err != nil {
		return nil, err
	}
	return h, nil
}

func (o *hookFile) RegisterHook(log *logrus.Logger) {
	log.AddHook(o)
}

func (o *hookFile) Levels() []logrus.Level {
	return o.levels
}

func (o *hookFile) Fire(entry *logrus.Entry) error {
	p, err := entry.Bytes()
	if err != nil {
		return err
	}

	_, err = o.Write(p)
	return err
}

func (o *hookFile) write(p []byte) (int, error) {
	o.m.Lock()
	defer o.m.Unlock()

	var err error

	if o.h == nil {
		if o.h, err = o.openCreate(); err != nil {
			return 0, fmt.Errorf("logger: cannot open hook file '%s': %v", o.path, err)
		}
	} else if _, err = o.h.Seek(0, io.SeekEnd); err != nil {
		return 0, fmt.Errorf("logger: cannot seek hook file '%s': %v", o.path, err)
	}

	return o.h.Write(p)
}

func (o *hookFile) Write(p []byte) (int, error) {
	n, err := o.write(p)
	if err != nil {
		_ = o.Close()
		n, err = o.write(p)
	}
	if err != nil {
		return n, err
	}

	o.m.Lock()
	defer o.m.Unlock()

	if o.w.IsZero() || time.Since(o.w) > 30*time.Second {
		_ = o.h.Sync()
		o.w = time.Now()
	}

	return n, err
}

func (o *hookFile) Close() error {
	o.m.Lock()
	defer o.m.Unlock()

	if o.h == nil {
		return nil
	}

	var err error
	if e := o.h.Sync(); e != nil {
		err = fmt.Errorf("logger: sync hook file '%s': %v", o.path, e)
	}
	if e := o.h.Close(); e != nil {
		if err != nil {
			err = fmt.Errorf("%v, close hook file '%s': %v", err, o.path, e)
		} else {
			err = fmt.Errorf("logger: close hook file '%s': %v", o.path, e)
		}
	}

	o.h = nil
	return err
}
