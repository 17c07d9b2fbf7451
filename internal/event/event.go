// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package event provides the synchronous lifecycle event bus.
package event

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/addonkit/pkg/addonsdk"
)

// Type identifies the kind of event.
type Type string

// Lifecycle event types. The addon types are vetoable; Exception is only
// ever reported.
const (
	AddonLoad    Type = "AddonLoad"
	AddonUnload  Type = "AddonUnload"
	AddonEnable  Type = "AddonEnable"
	AddonDisable Type = "AddonDisable"
	Exception    Type = "Exception"
)

// Event is one notification passed to listeners.
type Event struct {
	ID     ulid.ULID
	Type   Type
	Time   time.Time
	Source string            // component that raised the event
	Addon  addonsdk.Metadata // zero for events not tied to an addon
	Err    error             // set on Exception events
}

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// NewID generates a new event ULID.
func NewID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// New creates an addon lifecycle event.
func New(t Type, source string, addon addonsdk.Metadata) Event {
	return Event{
		ID:     NewID(),
		Type:   t,
		Time:   time.Now(),
		Source: source,
		Addon:  addon,
	}
}

// NewException creates an Exception event carrying err.
func NewException(source string, addon addonsdk.Metadata, err error) Event {
	e := New(Exception, source, addon)
	e.Err = err
	return e
}
