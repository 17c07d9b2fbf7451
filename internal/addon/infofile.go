// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package addon

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/holomush/addonkit/pkg/addonsdk"
)

// DefaultInfoFile is the name of the metadata entry inside a package.
const DefaultInfoFile = "addon.info"

// minInfoLines is the number of significant lines an info entry needs:
// main entry, name, version and at least one author.
const minInfoLines = 4

// ParseInfoEntry reads a metadata entry. The format is line oriented UTF-8:
//
//	line 1     main-entry identifier
//	line 2     display name
//	line 3     version string
//	line 4..N  one author per line
//
// Lines starting with '#' are comments and do not count. Package and Kind of
// the result are left empty for the caller to fill in.
func ParseInfoEntry(r io.Reader) (addonsdk.Metadata, error) {
	var meta addonsdk.Metadata

	scanner := bufio.NewScanner(r)
	count := 0
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.HasPrefix(line, "#") {
			continue
		}

		switch count {
		case 0:
			meta.Main = line
		case 1:
			meta.Name = line
		case 2:
			meta.Version = line
		default:
			meta.Authors = append(meta.Authors, line)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return addonsdk.Metadata{}, fmt.Errorf("read info entry: %w", err)
	}

	if count < minInfoLines {
		return addonsdk.Metadata{}, fmt.Errorf("info entry has %d significant lines, need at least %d", count, minInfoLines)
	}
	return meta, nil
}
