package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// V is a protocol version packed as major.minor.patch. Packing the segments
// into a single integer keeps ordering a plain numeric comparison.
type V uint32

// New packs the given segments into a V.
func New(major, minor, patch uint8) V {
	return V(uint32(major)<<16 | uint32(minor)<<8 | uint32(patch))
}

// Parse parses a version of the form "major.minor.patch".
func Parse(s string) (V, error) {
	segments := strings.Split(s, ".")
	if len(segments) != 3 {
		return 0, errors.Newf("invalid version %q", s)
	}
	parsed := [3]uint8{}
	for i, seg := range segments {
		v, err := strconv.ParseUint(seg, 10, 8)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid version %q", s)
		}
		parsed[i] = uint8(v)
	}
	return New(parsed[0], parsed[1], parsed[2]), nil
}

// MustParse parses a version of the form "major.minor.patch", panicking if
// the value is malformed.
func MustParse(s string) V {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v V) Major() uint8 { return uint8(v >> 16) }

func (v V) Minor() uint8 { return uint8(v >> 8) }

func (v V) Patch() uint8 { return uint8(v) }

func (v V) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}

// AtLeast returns true if v is greater than or equal to other.
func (v V) AtLeast(other V) bool { return v >= other }

// Span is the range of protocol versions a node declares it can interoperate
// with: the version it currently runs and the oldest version it still
// understands.
type Span struct {
	Current V `json:"current"`
	Minimum V `json:"minimum"`
}

// NewSpan builds a Span from string forms of the current and minimum
// versions.
func NewSpan(current, minimum string) (Span, error) {
	cur, err := Parse(current)
	if err != nil {
		return Span{}, err
	}
	min, err := Parse(minimum)
	if err != nil {
		return Span{}, err
	}
	if min > cur {
		return Span{}, errors.Newf("minimum version %s is newer than current version %s", min, cur)
	}
	return Span{Current: cur, Minimum: min}, nil
}

// Compatible returns true if two nodes declaring the given spans can
// interoperate. Compatibility is mutual: each side's current version must be
// at least the other side's minimum.
func (s Span) Compatible(other Span) bool {
	return s.Current.AtLeast(other.Minimum) && other.Current.AtLeast(s.Minimum)
}

// Zero returns true if the span carries no version information.
func (s Span) Zero() bool { return s.Current == 0 && s.Minimum == 0 }

func (s Span) String() string {
	return fmt.Sprintf("%s (>=%s)", s.Current, s.Minimum)
}
