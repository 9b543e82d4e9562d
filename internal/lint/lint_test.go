package lint

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func write(t *testing.T, dir string, name string, contents string) string {
	path := filepath.Join(dir, name)

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		panic(err)
	}

	err = ioutil.WriteFile(path, []byte(contents), 0o644)
	if err != nil {
		panic(err)
	}

	return path
}

func rulesOf(violations []Violation) []string {
	rules := []string{}
	for _, violation := range violations {
		rules = append(rules, violation.Rule)
	}
	return rules
}

func TestCheckFile_CleanFile(t *testing.T) {
	test := assert.New(t)

	dir := t.TempDir()
	path := write(t, dir, "clean.py", "x = 1\ny = 2\n")

	violations, err := CheckFile(path, DefaultRules())
	test.NoError(err)
	test.Empty(violations)
}

func TestCheckFile_MissingEOFNewline(t *testing.T) {
	test := assert.New(t)

	dir := t.TempDir()
	path := write(t, dir, "bad.py", "x = 1")

	violations, err := CheckFile(path, DefaultRules())
	test.NoError(err)
	test.Equal([]string{"eof-newline"}, rulesOf(violations))
	test.Equal(1, violations[0].Line)
}

func TestCheckFile_TrailingWhitespace(t *testing.T) {
	test := assert.New(t)

	dir := t.TempDir()
	path := write(t, dir, "bad.py", "x = 1 \ny = 2\t\nz = 3\n")

	violations, err := CheckFile(path, DefaultRules())
	test.NoError(err)
	test.Equal(
		[]string{"trailing-whitespace", "trailing-whitespace"},
		rulesOf(violations),
	)
	test.Equal(1, violations[0].Line)
	test.Equal(2, violations[1].Line)
}

func TestCheckFile_MaxLineLengthAndTabs(t *testing.T) {
	test := assert.New(t)

	rules := DefaultRules()
	rules.MaxLineLength = 10
	rules.ForbidTabs = true

	dir := t.TempDir()
	path := write(t, dir, "bad.py", "short = 1\n\tindented_with_tab = 2\n")

	violations, err := CheckFile(path, rules)
	test.NoError(err)

	found := rulesOf(violations)
	test.Contains(found, "forbid-tabs")
	test.Contains(found, "max-line-length")
}

func TestCheck_ViolationSetIndependentOfRootOrder(t *testing.T) {
	test := assert.New(t)

	dir := t.TempDir()
	write(t, dir, "src/a.py", "a = 1 \n")
	write(t, dir, "tests/b.py", "b = 2")

	forward, err := Check(
		[]string{filepath.Join(dir, "src"), filepath.Join(dir, "tests")},
		DefaultRules(),
	)
	test.NoError(err)

	backward, err := Check(
		[]string{filepath.Join(dir, "tests"), filepath.Join(dir, "src")},
		DefaultRules(),
	)
	test.NoError(err)

	test.ElementsMatch(forward, backward)
	test.Len(forward, 2)
}

func TestCheck_ExtensionsFilter(t *testing.T) {
	test := assert.New(t)

	rules := DefaultRules()
	rules.Extensions = []string{".py"}

	dir := t.TempDir()
	write(t, dir, "a.py", "a = 1")
	write(t, dir, "README.md", "no trailing newline")

	violations, err := Check([]string{dir}, rules)
	test.NoError(err)
	test.Len(violations, 1)
	test.Contains(violations[0].Path, "a.py")
}

func TestLoadRules(t *testing.T) {
	test := assert.New(t)

	dir := t.TempDir()
	path := write(t, dir, "rules.yaml", `
max-line-length: 79
forbid-tabs: true
extensions: [".py"]
`)

	rules, err := LoadRules(path)
	test.NoError(err)
	test.Equal(79, rules.MaxLineLength)
	test.True(rules.ForbidTabs)
	test.True(rules.RequireEOFNewline)
	test.Equal([]string{".py"}, rules.Extensions)
}

func TestViolation_String(t *testing.T) {
	test := assert.New(t)

	violation := Violation{
		Path:    "pygot/static.py",
		Line:    7,
		Rule:    "trailing-whitespace",
		Message: "line has trailing whitespace",
	}

	test.Equal(
		"pygot/static.py:7: [trailing-whitespace] "+
			"line has trailing whitespace",
		violation.String(),
	)
}
