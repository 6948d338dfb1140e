// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package compact

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/HoKim98/n3/internal/program"
)

// Save writes p's canonical wire form to w.
func Save(w io.Writer, p program.Program) error {
	return msgpack.NewEncoder(w).Encode(Compact(p))
}

// SaveToBinary compacts p directly to an in-memory buffer.
func SaveToBinary(p program.Program) ([]byte, error) {
	return msgpack.Marshal(Compact(p))
}

// Load reads a Program previously written by Save.
func Load(r io.Reader) (program.Program, error) {
	var wp WireProgram
	if err := msgpack.NewDecoder(r).Decode(&wp); err != nil {
		return program.Program{}, err
	}
	return Decompact(wp), nil
}

// LoadFromBinary decompacts a Program from a buffer previously produced by
// SaveToBinary.
func LoadFromBinary(data []byte) (program.Program, error) {
	var wp WireProgram
	if err := msgpack.Unmarshal(data, &wp); err != nil {
		return program.Program{}, err
	}
	return Decompact(wp), nil
}
