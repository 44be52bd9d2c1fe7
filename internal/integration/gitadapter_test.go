package integration

import "testing"

func TestParseRemoteOwnerRepo(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
	}{
		{
			name:      "https url",
			url:       "https://github.com/acme/widgets.git",
			wantOwner: "acme",
			wantRepo:  "widgets",
		},
		{
			name:      "https url without suffix",
			url:       "https://github.com/acme/widgets",
			wantOwner: "acme",
			wantRepo:  "widgets",
		},
		{
			name:      "ssh url",
			url:       "git@github.com:acme/widgets.git",
			wantOwner: "acme",
			wantRepo:  "widgets",
		},
		{
			name:      "trailing newline from git output",
			url:       "https://github.com/acme/widgets.git\n",
			wantOwner: "acme",
			wantRepo:  "widgets",
		},
		{
			name:      "nested group path keeps the last two segments",
			url:       "https://gitlab.example.com/group/subgroup/project.git",
			wantOwner: "subgroup",
			wantRepo:  "project",
		},
		{
			name: "bare name is not owner/repo shaped",
			url:  "widgets",
		},
		{
			name: "empty input",
			url:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo := ParseRemoteOwnerRepo(tt.url)
			if owner != tt.wantOwner || repo != tt.wantRepo {
				t.Errorf("ParseRemoteOwnerRepo(%q) = (%q, %q), want (%q, %q)",
					tt.url, owner, repo, tt.wantOwner, tt.wantRepo)
			}
		})
	}
}

func TestGitAdapterRun(t *testing.T) {
	git := NewGitAdapter()

	t.Run("non-zero exit is data", func(t *testing.T) {
		result, err := git.Run([]string{"rev-parse", "--verify", "HEAD"}, t.TempDir())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if result.ExitCode == 0 {
			t.Error("expected non-zero exit outside a repository")
		}
	})

	t.Run("captures stdout", func(t *testing.T) {
		result, err := git.Run([]string{"--version"}, "")
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if result.ExitCode != 0 || result.Stdout == "" {
			t.Errorf("result = %+v", result)
		}
	})
}
