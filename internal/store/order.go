package store

// sequence is an assembly's entry ids in position order: the entry at index
// i has position i. Operations return a new slice and leave the receiver
// untouched; callers validate indexes first.
type sequence []int64

func (s sequence) insert(pos int, id int64) sequence {
	out := make(sequence, 0, len(s)+1)
	out = append(out, s[:pos]...)
	out = append(out, id)
	return append(out, s[pos:]...)
}

func (s sequence) removeAt(pos int) sequence {
	out := make(sequence, 0, len(s)-1)
	out = append(out, s[:pos]...)
	return append(out, s[pos+1:]...)
}

// move removes the entry at from, closing the gap, then inserts it at to in
// the shortened sequence.
func (s sequence) move(from, to int) sequence {
	id := s[from]
	return s.removeAt(from).insert(to, id)
}

// positions maps every entry id to its index.
func (s sequence) positions() map[int64]int {
	m := make(map[int64]int, len(s))
	for i, id := range s {
		m[id] = i
	}
	return m
}
