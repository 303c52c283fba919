package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestSequenceTaken(t *testing.T) {
	sequenceViolation := &pq.Error{Code: "23505", Constraint: "audit_events_sequence_key"}

	cases := map[string]struct {
		err  error
		want bool
	}{
		"sequence unique violation": {
			err:  sequenceViolation,
			want: true,
		},
		"wrapped sequence violation": {
			err:  fmt.Errorf("insert audit event: %w", sequenceViolation),
			want: true,
		},
		"duplicate event id": {
			err:  &pq.Error{Code: "23505", Constraint: "audit_events_pkey"},
			want: false,
		},
		"other postgres error": {
			err:  &pq.Error{Code: "40001", Constraint: "audit_events_sequence_key"},
			want: false,
		},
		"plain error": {
			err:  errors.New("connection reset"),
			want: false,
		},
		"nil": {
			err:  nil,
			want: false,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, sequenceTaken(tc.err))
		})
	}
}
