package cmd

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestUniqueFilesEmpty(t *testing.T) {
	if got := uniqueFiles(nil); got != nil {
		t.Errorf("uniqueFiles(nil) = %v, want nil", got)
	}
}

func TestUniqueFilesDuplicatePaths(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.yaml", "a: 1")
	b := writeTemp(t, dir, "b.yaml", "b: 2")

	got := uniqueFiles([]string{a, b, a})
	if want := []string{a, b}; !slices.Equal(got, want) {
		t.Errorf("uniqueFiles = %v, want %v", got, want)
	}
}

func TestUniqueFilesRelativeAbsoluteDuplicates(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.yaml", "a: 1")

	t.Chdir(dir)

	got := uniqueFiles([]string{"a.yaml", a, "./a.yaml"})
	if want := []string{"a.yaml"}; !slices.Equal(got, want) {
		t.Errorf("uniqueFiles = %v, want %v", got, want)
	}
}

func TestUniqueFilesSymlinkDuplicates(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.yaml", "a: 1")
	link := filepath.Join(dir, "link.yaml")

	if err := os.Symlink(a, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	got := uniqueFiles([]string{link, a})
	if want := []string{link}; !slices.Equal(got, want) {
		t.Errorf("uniqueFiles = %v, want %v", got, want)
	}
}

func TestUniqueFilesStdinLast(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.yaml", "a: 1")

	got := uniqueFiles([]string{"-", a, "-"})
	if want := []string{a, "-"}; !slices.Equal(got, want) {
		t.Errorf("uniqueFiles = %v, want %v", got, want)
	}
}

func TestUniqueFilesKeepsMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	got := uniqueFiles([]string{missing, missing})
	if want := []string{missing, missing}; !slices.Equal(got, want) {
		t.Errorf("uniqueFiles = %v, want %v", got, want)
	}
}

func TestCutSetting(t *testing.T) {
	tests := []struct {
		in          string
		name, value string
		ok          bool
	}{
		{"locale=de_DE", "locale", "de_DE", true},
		{" number_format = 0.00 ", "number_format", "0.00", true},
		{"a=b=c", "a", "b=c", true},
		{"locale", "locale", "", false},
		{"=x", "", "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, value, ok := cutSetting(tt.in)
			if name != tt.name || value != tt.value || ok != tt.ok {
				t.Errorf("cutSetting(%q) = %q, %q, %v; want %q, %q, %v",
					tt.in, name, value, ok, tt.name, tt.value, tt.ok)
			}
		})
	}
}
