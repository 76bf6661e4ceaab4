package detectors

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/catherinevee/tenantcleaner/internal/models"
)

// OlderThan prevents deletion of items at or below a threshold age. Only
// items strictly older than the threshold are eligible: an item registered
// exactly seven days ago is still protected by a seven-day threshold.
type OlderThan struct {
	threshold time.Duration
}

// NewOlderThan creates an age detector. The threshold must be positive;
// misconfiguration surfaces here, before anything is deleted.
func NewOlderThan(threshold time.Duration) (*OlderThan, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("age threshold must be positive, got %s", threshold)
	}
	return &OlderThan{threshold: threshold}, nil
}

func (d *OlderThan) Name() string { return "older-than" }

func (d *OlderThan) Evaluate(ctx context.Context, item models.Item, env Env) (Result, error) {
	age, ok, err := env.Tracker.Age(item)
	if err != nil {
		return Result{}, fmt.Errorf("older-than detector: %w", err)
	}
	// A never-tracked item counts as just created (age zero): it stays
	// protected until it has been observed for longer than the threshold.
	if !ok {
		age = 0
	}
	prevent := age <= d.threshold
	if prevent {
		return Result{
			Prevent: true,
			Reason:  fmt.Sprintf("Item age: %s - not older than: %s", age, d.threshold),
		}, nil
	}
	return Result{
		Prevent: false,
		Reason:  fmt.Sprintf("Item age: %s - older than: %s", age, d.threshold),
	}, nil
}

// Exclude prevents deletion of items whose name fully matches one of the
// configured patterns. Matching is anchored start to end; a pattern never
// matches a substring of the name.
type Exclude struct {
	patterns []string
	compiled []*regexp.Regexp
}

// NewExclude creates an exclude detector from regular expression texts.
// Bad patterns are rejected here, before anything is deleted.
func NewExclude(patterns []string) (*Exclude, error) {
	detector := &Exclude{
		patterns: append([]string{}, patterns...),
		compiled: make([]*regexp.Regexp, 0, len(patterns)),
	}
	for _, pattern := range patterns {
		re, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		detector.compiled = append(detector.compiled, re)
	}
	return detector, nil
}

func (d *Exclude) Name() string { return "exclude" }

func (d *Exclude) Evaluate(ctx context.Context, item models.Item, env Env) (Result, error) {
	for i, re := range d.compiled {
		if re.MatchString(item.Name()) {
			return Result{
				Prevent: true,
				Reason:  fmt.Sprintf("Exclude matched: %s", d.patterns[i]),
			}, nil
		}
	}
	return Result{
		Prevent: false,
		Reason:  fmt.Sprintf("Excludes not matched: %v", d.patterns),
	}, nil
}
