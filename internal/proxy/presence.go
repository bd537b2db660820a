/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
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

package proxy

import "github.com/sabouaram/pmproxy/pkg/logger"

// Presence is a service-discovery advertisement keyed by listening port:
// the core calls it, the concrete advertisement transport is out of scope.
type Presence interface {
	Announce(port int) error
	Withdraw(port int) error
}

// LoggingPresence is the no-op/logging stub named in the Non-goals: it
// satisfies Presence without advertising anything over the network.
type LoggingPresence struct {
	log logger.FuncLog
}

func NewLoggingPresence(log logger.FuncLog) *LoggingPresence {
	return &LoggingPresence{log: log}
}

func (l *LoggingPresence) Announce(port int) error {
	if lg := callLog(l.log); lg != nil {
		lg.Info("presence: announcing port %d", port)
	}
	return nil
}

func (l *LoggingPresence) Withdraw(port int) error {
	if lg := callLog(l.log); lg != nil {
		lg.Info("presence: withdrawing port %d", port)
	}
	return nil
}
