// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package addonsdk is the API addon authors program against.
//
// An addon is a value produced by a zero-argument constructor. The host never
// requires any method on it: every interaction is an optional capability the
// host probes for with a type assertion. An addon that wants its own metadata
// implements InfoReceiver, one that wants to run code when it is switched on
// implements Enabler, and so on.
//
// In-process addons register their constructor under the identifier written
// on the first line of their addon.info entry:
//
//	package ticker
//
//	import "github.com/holomush/addonkit/pkg/addonsdk"
//
//	func init() {
//		addonsdk.Register("com.example.Ticker", func() (any, error) {
//			return &Ticker{}, nil
//		})
//	}
//
//	type Ticker struct{ dir string }
//
//	func (t *Ticker) SetDirectory(dir string) error { t.dir = dir; return nil }
//	func (t *Ticker) OnEnable(ctx context.Context) error { ... }
//
// Registered constructors are linked into the host binary, so installing a
// new builtin addon means rebuilding the host. Packages of the lua and process
// kinds carry their own code and can be dropped into a running host.
//
// Out-of-process addons call Serve from their main function instead.
package addonsdk
