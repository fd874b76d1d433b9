package routing

import (
	"context"
	"io/fs"
	"testing"

	"github.com/pkg/errors"

	"offline_router/pkg/store"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Outcome
	}{
		{nil, OutcomeOK},
		{errors.Wrap(ErrNodeNotFound, "at 1,2"), OutcomeNotFound},
		{errors.Wrapf(ErrNoRoute, "%d -> %d", 1, 2), OutcomeNoRoute},
		{context.Canceled, OutcomeCancelled},
		{errors.Wrap(context.DeadlineExceeded, "load core graph"), OutcomeCancelled},
		{errors.Wrap(store.ErrFormat, "bad edge"), OutcomeCorrupt},
		{ErrNegativeWeight, OutcomeCorrupt},
		{errors.Wrap(fs.ErrNotExist, "open graph file"), OutcomeIO},
		{errors.New("something else"), OutcomeIO},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestOutcomeString(t *testing.T) {
	if OutcomeNoRoute.String() != "no_route" {
		t.Errorf("got %q", OutcomeNoRoute.String())
	}
	if Outcome(42).String() != "unknown" {
		t.Errorf("got %q", Outcome(42).String())
	}
}
