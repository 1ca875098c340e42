package dataset

import (
	"fmt"

	"github.com/zeebo/xxh3"
)

// Duplicated marks every row that repeats an earlier row on the given
// columns (all columns when none are given), like pandas'
// DataFrame.duplicated(keep="first"). Nulls compare equal to each other.
// Rejected rows never take part. An unknown column name is an error.
func (s *Snapshot) Duplicated(columns ...string) ([]bool, error) {
	cols, err := s.pick(columns)
	if err != nil {
		return nil, err
	}

	dup := make([]bool, s.nrow)
	seen := make(map[uint64][]int, s.nrow)
	var h xxh3.Hasher

	for row := 0; row < s.nrow; row++ {
		if s.IsRejected(row) {
			continue
		}
		sum := rowHash(&h, cols, row)
		first := -1
		for _, prev := range seen[sum] {
			if rowsEqual(cols, prev, row) {
				first = prev
				break
			}
		}
		if first >= 0 {
			dup[row] = true
			continue
		}
		seen[sum] = append(seen[sum], row)
	}
	return dup, nil
}

// CountDuplicated returns the number of rows Duplicated marks.
func (s *Snapshot) CountDuplicated(columns ...string) (int, error) {
	dup, err := s.Duplicated(columns...)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, d := range dup {
		if d {
			n++
		}
	}
	return n, nil
}

func (s *Snapshot) pick(columns []string) ([]Column, error) {
	if len(columns) == 0 {
		return s.cols, nil
	}
	out := make([]Column, 0, len(columns))
	for _, name := range columns {
		c, ok := s.Column(name)
		if !ok {
			return nil, fmt.Errorf("dataset: unknown column %q", name)
		}
		out = append(out, c)
	}
	return out, nil
}

// rowHash feeds the selected cells of row into an xxh3 hasher. Cells are
// separated by 0x1f and nulls are written as a lone 0x00 marker so that null
// and "" never collide.
func rowHash(h *xxh3.Hasher, cols []Column, row int) uint64 {
	h.Reset()
	for i, c := range cols {
		if i > 0 {
			_, _ = h.Write([]byte{0x1f})
		}
		if c.IsNull(row) {
			_, _ = h.Write([]byte{0x00})
			continue
		}
		_, _ = h.WriteString(c.Text(row))
	}
	return h.Sum64()
}

func rowsEqual(cols []Column, a, b int) bool {
	for _, c := range cols {
		na, nb := c.IsNull(a), c.IsNull(b)
		if na != nb {
			return false
		}
		if !na && c.Text(a) != c.Text(b) {
			return false
		}
	}
	return true
}
