// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package mzbin

import "go.uber.org/zap"

// log is the package-wide logger, silent until SetLogger or a *File with
// a non-default Options wires one in. Decode consults it for warn-level
// diagnostics that aren't fatal (§9 Open Question a); Encode does not
// log.
var log = zap.NewNop()

// SetLogger replaces the package logger. nil resets to a no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	log = l
}
