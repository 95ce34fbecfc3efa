// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package codegen

import (
	"crypto/sha256"
	"encoding/hex"
)

// CalculateCodeHash returns the lowercase hex SHA-256 digest of the
// composed module text. Identical code always hashes identically; any
// single-character change produces a different digest. Hash equality is
// only meaningful within one strategy instance.
func CalculateCodeHash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
