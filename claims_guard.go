package auth

import (
	"fmt"
	"reflect"
)

var immutableClaimKeys = []string{
	ClaimSubject,
	ClaimIssuedAt,
	ClaimName,
	ClaimEmail,
	ClaimRole,
}

type immutableClaimsSnapshot map[string]claimValue

type claimValue struct {
	value any
	set   bool
}

func captureImmutableClaims(claims Claims) immutableClaimsSnapshot {
	snap := make(immutableClaimsSnapshot, len(immutableClaimKeys))
	for _, key := range immutableClaimKeys {
		v, ok := claims[key]
		snap[key] = claimValue{value: v, set: ok}
	}
	return snap
}

func (snap immutableClaimsSnapshot) validate(claims Claims) error {
	for _, key := range immutableClaimKeys {
		expected := snap[key]
		v, ok := claims[key]
		if ok != expected.set || !reflect.DeepEqual(v, expected.value) {
			return immutableClaimViolation(key)
		}
	}
	return nil
}

func immutableClaimViolation(field string) error {
	clone := ErrImmutableClaimMutation.Clone()
	if clone == nil {
		return ErrImmutableClaimMutation
	}
	clone.Message = fmt.Sprintf("immutable claim mutated: %s", field)
	clone.Source = ErrImmutableClaimMutation
	return clone.WithMetadata(map[string]any{"claim": field})
}
