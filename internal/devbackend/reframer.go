package devbackend

import (
	"context"
	"fmt"
	"strings"
)

// Reframes are the three rewrites of one thought.
type Reframes struct {
	Stoic    string
	Optimist string
	Realist  string
}

// Reframer rewrites a negative thought from the stoic, optimist and realist
// perspectives. Production backends put a text generator behind it.
type Reframer interface {
	Reframe(ctx context.Context, thought string) (Reframes, error)
}

// TemplateReframer produces fixed-template reframes. It is deterministic,
// which keeps the dev backend usable offline and in tests.
type TemplateReframer struct{}

func (TemplateReframer) Reframe(ctx context.Context, thought string) (Reframes, error) {
	t := strings.TrimSpace(thought)
	return Reframes{
		Stoic:    fmt.Sprintf("%q is a judgement, not an event. Focus on what is within your control and let the rest be.", t),
		Optimist: fmt.Sprintf("Even if %q feels heavy now, it is a chance to learn something and come out stronger.", t),
		Realist:  fmt.Sprintf("%q is one interpretation. What evidence supports it, and what would you tell a friend?", t),
	}, nil
}
