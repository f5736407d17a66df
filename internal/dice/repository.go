package dice

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dice/internal/storage/filestore"
)

// Namespace is the key prefix under which die records are stored.
const Namespace = "dice/"

var (
	// ErrUnknownDie is returned when an operation names a die that does not exist.
	ErrUnknownDie = errors.New("unknown die")
	// ErrInvalidValue is returned when a throw value is non-numeric or not a face of its die.
	ErrInvalidValue = errors.New("invalid value")
	// ErrUnpairedArgs is returned by ParseThrows when a name has no value.
	ErrUnpairedArgs = errors.New("every die name needs a value")
	// ErrAlreadyExists is returned by Create when the name is taken.
	ErrAlreadyExists = filestore.ErrAlreadyExists
)

var numeric = regexp.MustCompile(`^\d+$`)

// Store is the keyed record storage the repository persists dice in.
type Store interface {
	Get(key string) (Die, bool, error)
	CreateIfAbsent(key string, supply func() (Die, error)) (Die, error)
	Update(key string, mutate func(Die) (Die, error)) (Die, error)
	ListKeys(prefix string) ([]string, error)
}

// Throw is one observed value for a named die.
type Throw struct {
	Name  string
	Value int
}

// ParseThrows converts alternating <name> <value> arguments into throws.
//
// Postcondition: Returns one Throw per pair, ErrUnpairedArgs for an odd argument count, or
// ErrInvalidValue for a value that is not a non-negative decimal integer.
func ParseThrows(args []string) ([]Throw, error) {
	if len(args)%2 != 0 {
		return nil, ErrUnpairedArgs
	}
	throws := make([]Throw, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		name, raw := args[i], args[i+1]
		if !numeric.MatchString(raw) {
			return nil, fmt.Errorf("%w %s for dice %s", ErrInvalidValue, raw, name)
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w %s for dice %s: %w", ErrInvalidValue, raw, name, err)
		}
		throws = append(throws, Throw{Name: name, Value: v})
	}
	return throws, nil
}

// Repository persists dice in a Store and enforces name uniqueness and existence rules.
type Repository struct {
	store  Store
	logger *zap.Logger
}

// NewRepository creates a Repository backed by store.
//
// Precondition: store and logger must be non-nil.
func NewRepository(store Store, logger *zap.Logger) *Repository {
	return &Repository{store: store, logger: logger}
}

// Key returns the store key holding the die called name.
func Key(name string) string {
	return Namespace + name
}

// ListAll returns every die sorted by name.
//
// Postcondition: Returns an empty slice when no dice exist.
func (r *Repository) ListAll() ([]Die, error) {
	keys, err := r.store.ListKeys(Namespace)
	if err != nil {
		return nil, fmt.Errorf("listing dice: %w", err)
	}
	dice := make([]Die, 0, len(keys))
	for _, key := range keys {
		if strings.Contains(strings.TrimPrefix(key, Namespace), "/") {
			continue
		}
		d, ok, err := r.store.Get(key)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", key, err)
		}
		// Removed between listing and reading.
		if !ok {
			continue
		}
		dice = append(dice, d)
	}
	sort.SliceStable(dice, func(i, j int) bool { return dice[i].Name < dice[j].Name })
	return dice, nil
}

// Create stores a new die with an empty histogram.
//
// Postcondition: Returns the stored Die, ErrInvalidName, ErrInvalidFaces, or ErrAlreadyExists
// (checked with errors.Is) without touching the existing die.
func (r *Repository) Create(name string, faces int) (Die, error) {
	fresh, err := New(name, faces)
	if err != nil {
		return Die{}, err
	}
	d, err := r.store.CreateIfAbsent(Key(name), func() (Die, error) { return fresh, nil })
	if err != nil {
		return Die{}, err
	}
	r.logger.Info("die created", zap.String("name", name), zap.Int("faces", faces))
	return d, nil
}

// Find returns the die called name.
//
// Postcondition: Returns (die, true, nil), (zero, false, nil) if absent, or a non-nil error.
func (r *Repository) Find(name string) (Die, bool, error) {
	if err := ValidateName(name); err != nil {
		return Die{}, false, err
	}
	return r.store.Get(Key(name))
}

// RecordThrow atomically records one throw of value for the die called name.
//
// Values outside the die's faces are ignored, matching Die.Throw.
// Postcondition: Returns the updated Die, ErrUnknownDie, or a storage error.
func (r *Repository) RecordThrow(name string, value int) (Die, error) {
	if err := ValidateName(name); err != nil {
		return Die{}, fmt.Errorf("%w %s: %w", ErrUnknownDie, name, err)
	}
	d, err := r.store.Update(Key(name), func(d Die) (Die, error) {
		return d.Throw(value), nil
	})
	if errors.Is(err, filestore.ErrNotFound) {
		return Die{}, fmt.Errorf("%w %s", ErrUnknownDie, name)
	}
	if err != nil {
		return Die{}, fmt.Errorf("recording throw for %s: %w", name, err)
	}
	r.logger.Debug("throw recorded", zap.String("name", name), zap.Int("value", value))
	return d, nil
}

// ValidateBatch checks every throw without mutating anything.
//
// Postcondition: Returns nil iff every named die exists and every value is one of its faces;
// otherwise ErrUnknownDie or ErrInvalidValue for the first offending throw.
func (r *Repository) ValidateBatch(throws []Throw) error {
	for _, t := range throws {
		d, ok, err := r.Find(t.Name)
		if errors.Is(err, ErrInvalidName) || (err == nil && !ok) {
			return fmt.Errorf("%w %s", ErrUnknownDie, t.Name)
		}
		if err != nil {
			return fmt.Errorf("loading %s: %w", t.Name, err)
		}
		if !d.Valid(t.Value) {
			return fmt.Errorf("%w %d for dice %s", ErrInvalidValue, t.Value, t.Name)
		}
	}
	return nil
}

// ThrowBatch records every throw, or none of them if any throw is invalid.
//
// All throws are validated before the first one is applied; each is then applied as its own
// atomic update in order.
func (r *Repository) ThrowBatch(throws []Throw) error {
	if err := r.ValidateBatch(throws); err != nil {
		r.logger.Info("throw batch rejected", zap.Int("throws", len(throws)), zap.Error(err))
		return err
	}
	for _, t := range throws {
		if _, err := r.RecordThrow(t.Name, t.Value); err != nil {
			return err
		}
	}
	return nil
}
