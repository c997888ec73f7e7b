package tools

import (
	"context"
	"testing"

	"cratehealth/internal/runner"
)

type bannerRunner struct {
	stdout string
	code   int
}

func (b bannerRunner) Run(_ context.Context, command string, _ []string, _ runner.RunOptions) (runner.Output, error) {
	return runner.Output{Command: command, ExitCode: b.code, Stdout: []byte(b.stdout)}, nil
}

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"cargo 1.78.0 (54d8815d0 2024-03-26)", "1.78.0"},
		{"GNU patch 2.7.6", "2.7.6"},
		{"cargo 1.80.0-nightly (abc 2024-05-01)", "1.80.0-nightly"},
		{"no version here", ""},
	}
	for _, tt := range tests {
		if got := normalizeVersion(tt.line); got != tt.want {
			t.Errorf("normalizeVersion(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestMeetsMinimum(t *testing.T) {
	tests := []struct {
		version string
		minimum string
		want    bool
	}{
		{"1.78.0", "1.70.0", true},
		{"1.70.0", "1.70.0", true},
		{"1.69.1", "1.70.0", false},
		{"2.7.6", "", true},
		{"garbage", "1.0.0", false},
	}
	for _, tt := range tests {
		if got := meetsMinimum(tt.version, tt.minimum); got != tt.want {
			t.Errorf("meetsMinimum(%q, %q) = %v, want %v", tt.version, tt.minimum, got, tt.want)
		}
	}
}

func TestReadVersion(t *testing.T) {
	def, _ := Definition("cargo")
	got, err := readVersion(context.Background(), bannerRunner{stdout: "cargo 1.78.0 (54d8815d0 2024-03-26)\n"}, def, "/usr/bin/cargo")
	if err != nil {
		t.Fatalf("readVersion: %v", err)
	}
	if got != "1.78.0" {
		t.Errorf("readVersion = %q, want 1.78.0", got)
	}

	if _, err := readVersion(context.Background(), bannerRunner{code: 1}, def, "/usr/bin/cargo"); err == nil {
		t.Error("expected error for failing version command")
	}
}

func TestDetectMissingTool(t *testing.T) {
	statuses := Detect(context.Background(), bannerRunner{}, map[string]string{
		"cargo": "definitely-not-a-real-cargo-binary",
	})
	var found bool
	for _, st := range statuses {
		if st.Tool != "cargo" {
			continue
		}
		found = true
		if st.Satisfied {
			t.Error("expected missing cargo to be unsatisfied")
		}
		if st.Error == "" {
			t.Error("expected an error for missing cargo")
		}
	}
	if !found {
		t.Fatal("cargo missing from statuses")
	}

	missing := Missing(statuses)
	if len(missing) == 0 {
		t.Error("expected cargo to be reported missing")
	}
}

func TestKnownToolsSorted(t *testing.T) {
	got := KnownTools()
	want := []string{"cargo", "cargo_embargo", "patch"}
	if len(got) != len(want) {
		t.Fatalf("KnownTools() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("KnownTools()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
