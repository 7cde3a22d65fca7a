package tools

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/dgnsrekt/web_agent/internal/fault"
)

// countSession overrides Count to answer from a fixed selector set.
type countSession struct {
	stubSession
	matches map[string]int
	queried []string
}

func (s *countSession) Count(ctx context.Context, selector string) (int, error) {
	s.queried = append(s.queried, selector)
	if strings.HasPrefix(selector, "css-error") {
		return 0, fmt.Errorf("invalid selector")
	}
	return s.matches[selector], nil
}

func TestResolveFieldStrategyOrder(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		matches map[string]int
		want    string
	}{
		{
			name:    "raw css wins when it matches",
			field:   "#login input",
			matches: map[string]int{"#login input": 1, `[name="#login input"]`: 1},
			want:    "#login input",
		},
		{
			name:    "falls through to name attribute",
			field:   "email",
			matches: map[string]int{`[name="email"]`: 1},
			want:    `[name="email"]`,
		},
		{
			name:    "name beats placeholder",
			field:   "email",
			matches: map[string]int{`[name="email"]`: 1, `[placeholder="email"]`: 1},
			want:    `[name="email"]`,
		},
		{
			name:    "label text resolves a nested input",
			field:   "Password",
			matches: map[string]int{`label:has-text("Password") input`: 1, `[aria-label="Password"]`: 1},
			want:    `label:has-text("Password") input`,
		},
		{
			name:    "aria-label is the last resort",
			field:   "Search",
			matches: map[string]int{`[aria-label="Search"]`: 2},
			want:    `[aria-label="Search"]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &countSession{matches: tt.matches}
			got, err := resolveField(context.Background(), sess, tt.field)
			if err != nil {
				t.Fatalf("resolveField(%q) failed: %v", tt.field, err)
			}
			if got != tt.want {
				t.Errorf("resolveField(%q) = %q; want %q", tt.field, got, tt.want)
			}
		})
	}
}

func TestResolveFieldNoMatch(t *testing.T) {
	sess := &countSession{matches: map[string]int{}}
	_, err := resolveField(context.Background(), sess, "missing")
	if !fault.IsKind(err, fault.KindInvalidParameter) {
		t.Fatalf("error = %v; want INVALID_PARAMETER", err)
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("error should name the field: %v", err)
	}
}

func TestResolveFieldSkipsInvalidCSS(t *testing.T) {
	sess := &countSession{matches: map[string]int{`[name="css-error"]`: 1}}
	got, err := resolveField(context.Background(), sess, "css-error")
	if err != nil {
		t.Fatalf("resolveField() failed: %v", err)
	}
	if got != `[name="css-error"]` {
		t.Errorf("resolveField() = %q; a Count error on raw CSS must not abort resolution", got)
	}
}
