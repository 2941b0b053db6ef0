package keyword

// Set is the deduplicated keyword set of one run plus the per-row mapping back to it
type Set struct {
	keys    []string
	display map[string]string
	rows    []Record
}

// Keys returns the unique valid keys in first-seen order
func (s *Set) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len is the number of unique valid keys
func (s *Set) Len() int {
	return len(s.keys)
}

// Contains reports whether key is one of the fetchable keys
func (s *Set) Contains(key string) bool {
	_, ok := s.display[key]
	return ok
}

// Display returns the first-seen raw form for key, or key itself when unknown
func (s *Set) Display(key string) string {
	if d, ok := s.display[key]; ok && d != "" {
		return d
	}
	return key
}

// RowKey returns the matching key for input row i. ok is false when the row
// was rejected, in which case reason explains why.
func (s *Set) RowKey(i int) (key string, ok bool, reason string) {
	if i < 0 || i >= len(s.rows) {
		return "", false, "row out of range"
	}
	rec := s.rows[i]
	if !rec.Valid {
		return "", false, rec.Reason
	}
	return rec.Normalized, true, ""
}

// Records returns the normalization record of every input row, in row order
func (s *Set) Records() []Record {
	out := make([]Record, len(s.rows))
	copy(out, s.rows)
	return out
}

// Rejected returns the records that failed validation
func (s *Set) Rejected() []Record {
	var out []Record
	for _, rec := range s.rows {
		if !rec.Valid {
			out = append(out, rec)
		}
	}
	return out
}
