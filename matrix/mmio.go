// SPDX-License-Identifier: MIT

package matrix

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// mmBanner is the mandatory first token of a Matrix Market file.
const mmBanner = "%%MatrixMarket"

// ReadMatrixMarket parses a Matrix Market "matrix coordinate" stream with
// real, integer or pattern fields and general or symmetric symmetry.
// Indices in the file are 1-based. Symmetric files store one triangle; the
// mirrored entries are added here. Pattern entries read as 1.
// The result has ascending column indices within each row.
func ReadMatrixMarket(r io.Reader) (*CSR, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	if !sc.Scan() {
		return nil, mmErrorf("missing header")
	}
	hdr := strings.Fields(strings.ToLower(sc.Text()))
	if len(hdr) != 5 || hdr[0] != strings.ToLower(mmBanner) || hdr[1] != "matrix" {
		return nil, mmErrorf("bad banner %q", sc.Text())
	}
	if hdr[2] != "coordinate" {
		return nil, mmErrorf("unsupported format %q", hdr[2])
	}
	field, symmetry := hdr[3], hdr[4]
	switch field {
	case "real", "integer", "pattern":
	default:
		return nil, mmErrorf("unsupported field %q", field)
	}
	switch symmetry {
	case "general", "symmetric":
	default:
		return nil, mmErrorf("unsupported symmetry %q", symmetry)
	}

	// Skip comments up to the size line.
	var rows, cols, entries int
	for {
		if !sc.Scan() {
			return nil, mmErrorf("missing size line")
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		if _, err := fmt.Sscan(line, &rows, &cols, &entries); err != nil {
			return nil, mmErrorf("size line %q: %v", line, err)
		}
		break
	}
	if rows <= 0 || cols <= 0 || entries < 0 {
		return nil, mmErrorf("size %d %d %d", rows, cols, entries)
	}

	ts := make([]Triplet, 0, entries)
	for read := 0; read < entries; {
		if !sc.Scan() {
			return nil, mmErrorf("expected %d entries, got %d", entries, read)
		}
		f := strings.Fields(sc.Text())
		if len(f) == 0 || strings.HasPrefix(f[0], "%") {
			continue
		}
		want := 3
		if field == "pattern" {
			want = 2
		}
		if len(f) < want {
			return nil, mmErrorf("entry %d: %d fields", read+1, len(f))
		}
		i, err1 := strconv.Atoi(f[0])
		j, err2 := strconv.Atoi(f[1])
		if err1 != nil || err2 != nil || i < 1 || i > rows || j < 1 || j > cols {
			return nil, mmErrorf("entry %d: bad index %q %q", read+1, f[0], f[1])
		}
		v := 1.0
		if field != "pattern" {
			var err error
			if v, err = strconv.ParseFloat(f[2], 64); err != nil {
				return nil, mmErrorf("entry %d: %v", read+1, err)
			}
		}
		ts = append(ts, Triplet{Row: i - 1, Col: j - 1, Val: v})
		if symmetry == "symmetric" && i != j {
			ts = append(ts, Triplet{Row: j - 1, Col: i - 1, Val: v})
		}
		read++
	}
	if err := sc.Err(); err != nil {
		return nil, mmErrorf("%v", err)
	}

	sort.SliceStable(ts, func(a, b int) bool {
		if ts[a].Row != ts[b].Row {
			return ts[a].Row < ts[b].Row
		}
		return ts[a].Col < ts[b].Col
	})

	out, err := TripletsToCSR(rows, cols, ts)
	if err != nil {
		return nil, matrixErrorf(opMatrixMarket, err)
	}

	return out, nil
}

func mmErrorf(format string, args ...any) error {
	return matrixErrorf(opMatrixMarket, fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrMatrixMarket))
}
