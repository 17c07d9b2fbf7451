// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Command heartbeat is an example process addon. While enabled it rewrites a
// timestamp file in its working directory at a fixed interval.
//
// Build it into bin/heartbeat inside a package directory whose info entry
// names bin/heartbeat as the main entry.
package main

import "github.com/holomush/addonkit/pkg/addonsdk"

func main() {
	addonsdk.Serve(newHeartbeat())
}
