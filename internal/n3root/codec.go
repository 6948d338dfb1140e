// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package n3root

import (
	"io"

	"github.com/HoKim98/n3/internal/compact"
	"github.com/HoKim98/n3/internal/program"
)

// CompactInto writes p's canonical wire form to w.
func (r *Root) CompactInto(w io.Writer, p program.Program) error {
	return compact.Save(w, p)
}

// CompactToBinary compacts p directly to an in-memory buffer.
func (r *Root) CompactToBinary(p program.Program) ([]byte, error) {
	return compact.SaveToBinary(p)
}

// DecompactFrom reads a Program previously written by CompactInto.
func (r *Root) DecompactFrom(rd io.Reader) (program.Program, error) {
	return compact.Load(rd)
}

// DecompactFromBinary reads a Program previously written by
// CompactToBinary.
func (r *Root) DecompactFromBinary(data []byte) (program.Program, error) {
	return compact.LoadFromBinary(data)
}
