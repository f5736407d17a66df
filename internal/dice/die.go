// Package dice provides the die domain model and its persistent repository.
//
// A Die accumulates a histogram of observed throws. Index i of the histogram counts throws
// that showed face i+1.
package dice

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultFaces is the face count used when none is specified.
const DefaultFaces = 6

var (
	// ErrNoData is returned by Average when the die has no recorded throws.
	ErrNoData = errors.New("no throws recorded")
	// ErrInvalidFaces is returned when a face count is below 1.
	ErrInvalidFaces = errors.New("invalid number of faces")
	// ErrInvalidName is returned for names that cannot identify a die record.
	ErrInvalidName = errors.New("invalid die name")
)

// Die is one named die and its throw histogram.
//
// Invariant: len(Histogram) == Faces; every entry is >= 0.
type Die struct {
	Name      string
	Faces     int
	Histogram []int
}

// New returns a die with an empty histogram.
//
// Precondition: name must satisfy ValidateName; faces must be >= 1.
// Postcondition: Returns a Die with len(Histogram) == faces and all counts zero, or
// ErrInvalidName / ErrInvalidFaces.
func New(name string, faces int) (Die, error) {
	if err := ValidateName(name); err != nil {
		return Die{}, err
	}
	if faces < 1 {
		return Die{}, fmt.Errorf("%w: %d", ErrInvalidFaces, faces)
	}
	return Die{Name: name, Faces: faces, Histogram: make([]int, faces)}, nil
}

// ValidateName reports whether name can be used as a die name. Names become file names and
// YAML scalars, so they must be a single non-hidden path segment of printable UTF-8 text.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	case !utf8.ValidString(name):
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q must not start with '.'", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\"):
		return fmt.Errorf("%w: %q must not contain path separators", ErrInvalidName, name)
	case strings.IndexFunc(name, notGraphic) >= 0:
		return fmt.Errorf("%w: %q must not contain control or line break characters", ErrInvalidName, name)
	}
	return nil
}

func notGraphic(r rune) bool {
	return !unicode.IsGraphic(r)
}

// Valid reports whether value is a face of d.
//
// Postcondition: Returns true iff 1 <= value <= d.Faces.
func (d Die) Valid(value int) bool {
	return value >= 1 && value <= d.Faces
}

// Throw records one throw showing value.
//
// Invalid values are ignored: callers that must reject them check Valid first.
// Postcondition: If Valid(value), the result equals d with Histogram[value-1] incremented by
// one; otherwise the result equals d. d's histogram is never modified.
func (d Die) Throw(value int) Die {
	if !d.Valid(value) {
		return d
	}
	hist := make([]int, len(d.Histogram))
	copy(hist, d.Histogram)
	hist[value-1]++
	d.Histogram = hist
	return d
}

// TotalThrows returns the number of recorded throws.
func (d Die) TotalThrows() int {
	total := 0
	for _, n := range d.Histogram {
		total += n
	}
	return total
}

// Average returns the mean face value over all recorded throws.
//
// Postcondition: Returns ErrNoData iff TotalThrows() == 0.
func (d Die) Average() (float64, error) {
	total := d.TotalThrows()
	if total == 0 {
		return 0, ErrNoData
	}
	sum := 0
	for i, n := range d.Histogram {
		sum += (i + 1) * n
	}
	return float64(sum) / float64(total), nil
}

// Share returns the fraction of throws that showed face, or 0 if face is not valid or no
// throws are recorded.
func (d Die) Share(face int) float64 {
	total := d.TotalThrows()
	if total == 0 || !d.Valid(face) {
		return 0
	}
	return float64(d.Histogram[face-1]) / float64(total)
}

// Validate checks the record invariants of a die loaded from storage.
func (d Die) Validate() error {
	if err := ValidateName(d.Name); err != nil {
		return err
	}
	if d.Faces < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidFaces, d.Faces)
	}
	if len(d.Histogram) != d.Faces {
		return fmt.Errorf("die %q has %d faces but %d histogram entries", d.Name, d.Faces, len(d.Histogram))
	}
	for i, n := range d.Histogram {
		if n < 0 {
			return fmt.Errorf("die %q has negative count %d for face %d", d.Name, n, i+1)
		}
	}
	return nil
}
