// Package codec turns sigma.Repr trees into bytes and back. The encoding is
// JSON with base64 leaves; decoding enforces the caps from internal/config
// before any value is restored.
package codec

import (
	"fmt"

	"github.com/goccy/go-json"

	"sigmakit/internal/config"
	"sigmakit/internal/sigma"
)

type Limits struct {
	MaxDepth int
	MaxItems int
	MaxBytes int
}

// DefaultLimits reads the caps from the environment.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth: config.MaxReprDepth(),
		MaxItems: config.MaxReprItems(),
		MaxBytes: config.MaxFrameBytes(),
	}
}

func LimitsFrom(c *config.Config) Limits {
	return Limits{MaxDepth: c.MaxReprDepth, MaxItems: c.MaxReprItems, MaxBytes: c.MaxFrameBytes}
}

func Marshal(r sigma.Repr) ([]byte, error) {
	return MarshalWithLimits(r, DefaultLimits())
}

func MarshalWithLimits(r sigma.Repr, lim Limits) ([]byte, error) {
	if err := lim.check(r); err != nil {
		return nil, err
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	if len(b) > lim.MaxBytes {
		return nil, fmt.Errorf("encoded repr is %d bytes, cap %d", len(b), lim.MaxBytes)
	}
	return b, nil
}

func Unmarshal(b []byte) (sigma.Repr, error) {
	return UnmarshalWithLimits(b, DefaultLimits())
}

// UnmarshalWithLimits rejects oversized or over-nested input before decoding
// it.
func UnmarshalWithLimits(b []byte, lim Limits) (sigma.Repr, error) {
	if len(b) == 0 {
		return sigma.Repr{}, fmt.Errorf("%w: empty input", sigma.ErrMalformed)
	}
	if len(b) > lim.MaxBytes {
		return sigma.Repr{}, fmt.Errorf("%w: input is %d bytes, cap %d", sigma.ErrMalformed, len(b), lim.MaxBytes)
	}
	// each Repr level costs one object and one array
	if depth := nesting(b); depth > 2*lim.MaxDepth+1 {
		return sigma.Repr{}, fmt.Errorf("%w: nesting %d exceeds cap", sigma.ErrMalformed, depth)
	}
	var r sigma.Repr
	if err := json.Unmarshal(b, &r); err != nil {
		return sigma.Repr{}, fmt.Errorf("%w: %v", sigma.ErrMalformed, err)
	}
	if err := lim.check(r); err != nil {
		return sigma.Repr{}, err
	}
	return r, nil
}

func (lim Limits) check(r sigma.Repr) error {
	items := 0
	var walk func(r sigma.Repr, depth int) error
	walk = func(r sigma.Repr, depth int) error {
		if depth > lim.MaxDepth {
			return fmt.Errorf("%w: repr deeper than %d", sigma.ErrMalformed, lim.MaxDepth)
		}
		if len(r.Bytes) != 0 && len(r.List) != 0 {
			return fmt.Errorf("%w: repr node is both bytes and list", sigma.ErrMalformed)
		}
		items += len(r.List)
		if items > lim.MaxItems {
			return fmt.Errorf("%w: repr has more than %d items", sigma.ErrMalformed, lim.MaxItems)
		}
		for _, c := range r.List {
			if err := walk(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(r, 0)
}

// nesting returns the maximum bracket depth of b, ignoring string contents.
func nesting(b []byte) int {
	depth, max := 0, 0
	inString, escaped := false, false
	for _, c := range b {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
			if depth > max {
				max = depth
			}
		case '}', ']':
			depth--
		}
	}
	return max
}
