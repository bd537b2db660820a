/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package logger

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// FuncLog returns a Logger instance, used for dependency injection so a
// component can resolve its logger lazily instead of storing a pointer
// captured before logging is fully configured.
type FuncLog func() Logger

// Logger is the logging surface every proxy component is handed at
// construction time; nothing in the core calls logrus or the standard
// log package directly.
type Logger interface {
	SetLevel(lvl Level)
	GetLevel() Level

	SetFields(f Fields)
	GetFields() Fields

	Debug(message string, args ...interface{})
	Info(message string, args ...interface{})
	Warning(message string, args ...interface{})
	Error(message string, args ...interface{})
	Fatal(message string, args ...interface{})
	Panic(message string, args ...interface{})

	Entry(lvl Level, message string, args ...interface{}) *Entry

	Clone() Logger
}

type lgr struct {
	m sync.RWMutex
	l *logrus.Logger
	v Level
	f Fields
}

// New returns a Logger writing to w with InfoLevel as the default floor.
func New(w io.Writer) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{FieldMap: logrus.FieldMap{logrus.FieldKeyMsg: FieldMessage}})

	g := &lgr{
		l: l,
		f: NewFields(),
	}
	g.SetLevel(InfoLevel)

	return g
}

func (g *lgr) SetLevel(lvl Level) {
	g.m.Lock()
	defer g.m.Unlock()

	g.v = lvl
	g.l.SetLevel(lvl.Logrus())
}

func (g *lgr) GetLevel() Level {
	g.m.RLock()
	defer g.m.RUnlock()

	return g.v
}

func (g *lgr) SetFields(f Fields) {
	g.m.Lock()
	defer g.m.Unlock()

	g.f = f
}

func (g *lgr) GetFields() Fields {
	g.m.RLock()
	defer g.m.RUnlock()

	return g.f
}

func (g *lgr) Entry(lvl Level, message string, args ...interface{}) *Entry {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}

	g.m.RLock()
	fields := g.f
	backend := g.l
	g.m.RUnlock()

	return &Entry{
		log:     func() *logrus.Logger { return backend },
		Level:   lvl,
		Message: message,
		Fields:  fields,
	}
}

func (g *lgr) Debug(message string, args ...interface{})   { g.Entry(DebugLevel, message, args...).Log() }
func (g *lgr) Info(message string, args ...interface{})    { g.Entry(InfoLevel, message, args...).Log() }
func (g *lgr) Warning(message string, args ...interface{}) { g.Entry(WarnLevel, message, args...).Log() }
func (g *lgr) Error(message string, args ...interface{})   { g.Entry(ErrorLevel, message, args...).Log() }
func (g *lgr) Fatal(message string, args ...interface{})   { g.Entry(FatalLevel, message, args...).Log() }
func (g *lgr) Panic(message string, args ...interface{})   { g.Entry(PanicLevel, message, args...).Log() }

func (g *lgr) Clone() Logger {
	g.m.RLock()
	defer g.m.RUnlock()

	return &lgr{
		l: g.l,
		v: g.v,
		f: g.f,
	}
}
