// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build tools

// Package main pins the tools used to run the test suites, so that
// `go run github.com/onsi/ginkgo/v2/ginkgo -tags integration ./test/...`
// uses the version in go.mod.
package main

import (
	_ "github.com/onsi/ginkgo/v2/ginkgo"
	_ "github.com/onsi/gomega/gexec"
)
