package interpreter

import (
	"strconv"
	"strings"
)

// Location is a path of child indices from the program root to the next
// atomic statement. The program itself sits at index 0, so [] and [0] both
// mean "start" and a location whose head is non-zero means "done".
type Location []int

// Start is the location of the first statement of any program.
func Start() Location { return Location{} }

// Finished is the sentinel returned once a program has run past its end.
func Finished() Location { return Location{1} }

// Done reports whether l points past the end of the program.
func (l Location) Done() bool {
	return len(l) > 0 && l[0] != 0
}

// head returns the first index, treating the empty path as 0.
func (l Location) head() int {
	if len(l) == 0 {
		return 0
	}
	return l[0]
}

func (l Location) tail() Location {
	if len(l) <= 1 {
		return nil
	}
	return l[1:]
}

// within prefixes a child location with the index of its parent.
func within(index int, child Location) Location {
	out := make(Location, 0, len(child)+1)
	out = append(out, index)
	return append(out, child...)
}

// Clone returns a copy that does not share storage with l.
func (l Location) Clone() Location {
	if l == nil {
		return nil
	}
	out := make(Location, len(l))
	copy(out, l)
	return out
}

// Equal compares two locations, treating [] and [0] as the same start.
func (l Location) Equal(other Location) bool {
	a, b := l.normalize(), other.normalize()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (l Location) normalize() Location {
	if len(l) == 0 {
		return Location{0}
	}
	return l
}

func (l Location) String() string {
	parts := make([]string, len(l))
	for i, idx := range l {
		parts[i] = strconv.Itoa(idx)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// ParseLocation reads the form produced by String, e.g. "[0 2 1 0]".
func ParseLocation(text string) (Location, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "[")
	text = strings.TrimSuffix(text, "]")
	fields := strings.FieldsFunc(text, func(r rune) bool { return r == ' ' || r == ',' })
	loc := make(Location, 0, len(fields))
	for _, field := range fields {
		idx, err := strconv.Atoi(field)
		if err != nil || idx < 0 {
			return nil, &strconv.NumError{Func: "ParseLocation", Num: field, Err: strconv.ErrSyntax}
		}
		loc = append(loc, idx)
	}
	return loc, nil
}
