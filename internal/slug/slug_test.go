package slug

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOf(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "punctuation and padding", input: "  Acme, Inc! ", expected: "acme-inc"},
		{name: "empty", input: "", expected: "workspace"},
		{name: "only symbols", input: "!!! ---", expected: "workspace"},
		{name: "already a slug", input: "acme-inc", expected: "acme-inc"},
		{name: "underscores and dots", input: "foo_bar.baz", expected: "foo-bar-baz"},
		{name: "digits kept", input: "Team 42", expected: "team-42"},
		{name: "non ascii collapses", input: "Café Zürich", expected: "caf-z-rich"},
		{name: "leading and trailing symbols", input: "--Hello--", expected: "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, Of(tt.input))
		})
	}
}

func TestOf_Truncation(t *testing.T) {
	// 49 letters then a separator lands the cut on a hyphen.
	name := strings.Repeat("a", 49) + " bcd"
	got := Of(name)
	require.Equal(t, strings.Repeat("a", 49), got)
	require.False(t, strings.HasSuffix(got, "-"))

	long := Of(strings.Repeat("word ", 30))
	require.LessOrEqual(t, len(long), MaxLength)
	require.False(t, strings.HasSuffix(long, "-"))
}

func TestCandidate(t *testing.T) {
	require.Equal(t, "acme", Candidate("acme", 0))
	require.Equal(t, "acme-1", Candidate("acme", 1))
	require.Equal(t, "acme-12", Candidate("acme", 12))
}

func TestAssign(t *testing.T) {
	ctx := context.Background()

	t.Run("first free candidate", func(t *testing.T) {
		used := map[string]bool{"acme": true, "acme-1": true}
		var claimed []string

		got, err := Assign(ctx, "acme", 0,
			func(_ context.Context, s string) (bool, error) { return used[s], nil },
			func(_ context.Context, s string) error {
				claimed = append(claimed, s)
				return nil
			},
		)
		require.NoError(t, err)
		require.Equal(t, "acme-2", got)
		require.Equal(t, []string{"acme-2"}, claimed)
	})

	t.Run("lost race moves to next suffix", func(t *testing.T) {
		got, err := Assign(ctx, "acme", 0,
			func(context.Context, string) (bool, error) { return false, nil },
			func(_ context.Context, s string) error {
				if s == "acme" {
					return ErrTaken
				}
				return nil
			},
		)
		require.NoError(t, err)
		require.Equal(t, "acme-1", got)
	})

	t.Run("claim error is returned", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Assign(ctx, "acme", 0,
			func(context.Context, string) (bool, error) { return false, nil },
			func(context.Context, string) error { return boom },
		)
		require.ErrorIs(t, err, boom)
	})

	t.Run("exists error is returned", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Assign(ctx, "acme", 0,
			func(context.Context, string) (bool, error) { return false, boom },
			func(context.Context, string) error { return nil },
		)
		require.ErrorIs(t, err, boom)
	})

	t.Run("exhausted", func(t *testing.T) {
		_, err := Assign(ctx, "acme", 3,
			func(context.Context, string) (bool, error) { return true, nil },
			func(context.Context, string) error { return nil },
		)
		require.ErrorIs(t, err, ErrExhausted)
	})
}
