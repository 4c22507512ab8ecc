package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRules_Match(t *testing.T) {
	t.Parallel()

	masterOnly := &Rules{
		Events:   []string{"push", "pull_request"},
		Branches: []string{"master"},
	}

	tests := []struct {
		name  string
		rules *Rules
		event Event
		want  bool
	}{
		{
			name:  "push to allowed branch matches",
			rules: masterOnly,
			event: Event{Kind: Push, Branch: "master"},
			want:  true,
		},
		{
			name:  "pull request to allowed branch matches",
			rules: masterOnly,
			event: Event{Kind: PullRequest, Branch: "master"},
			want:  true,
		},
		{
			name:  "push to other branch is rejected",
			rules: masterOnly,
			event: Event{Kind: Push, Branch: "feature/foo"},
			want:  false,
		},
		{
			name:  "event kind outside the list is rejected",
			rules: &Rules{Events: []string{"push"}},
			event: Event{Kind: PullRequest, Branch: "master"},
			want:  false,
		},
		{
			name:  "empty branch list matches any branch",
			rules: &Rules{Events: []string{"push"}},
			event: Event{Kind: Push, Branch: "anything"},
			want:  true,
		},
		{
			name:  "empty event list matches any kind",
			rules: &Rules{Branches: []string{"master"}},
			event: Event{Kind: PullRequest, Branch: "master"},
			want:  true,
		},
		{
			name:  "nil rules match everything",
			rules: nil,
			event: Event{Kind: Push, Branch: "whatever"},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.rules.Match(tt.event))
		})
	}
}
