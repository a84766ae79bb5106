package device

import (
	"context"
	"fmt"
)

// Resolver maps a wire-level device target to the canonical device ID.
//
// A target may be the ID itself, the current number or the legacy number.
// Implementations return ErrDeviceNotFound for unknown targets. When a
// legacy number stops being honoured is an implementation decision of the
// Resolver; nothing else in the service assumes a sunset policy.
type Resolver interface {
	Resolve(ctx context.Context, target string) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, target string) (string, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, target string) (string, error) {
	return f(ctx, target)
}

// StaticResolver is a fixed, map-backed Resolver. It is read-only after
// construction and safe for concurrent use.
type StaticResolver struct {
	ids map[string]string
}

// NewStaticResolver builds a resolver from device declarations.
// It fails if an alias is claimed by two different devices.
func NewStaticResolver(devices ...Device) (*StaticResolver, error) {
	ids := make(map[string]string)
	for i := range devices {
		d := &devices[i]
		if err := ValidateDevice(d); err != nil {
			return nil, err
		}
		for _, alias := range d.Aliases() {
			if owner, ok := ids[alias]; ok && owner != d.ID {
				return nil, fmt.Errorf("%w: %q used by %q and %q", ErrAliasConflict, alias, owner, d.ID)
			}
			ids[alias] = d.ID
		}
	}
	return &StaticResolver{ids: ids}, nil
}

// Resolve looks target up among the declared aliases.
func (s *StaticResolver) Resolve(_ context.Context, target string) (string, error) {
	if id, ok := s.ids[target]; ok {
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", ErrDeviceNotFound, target)
}
