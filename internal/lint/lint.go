package lint

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/reconquest/karma-go"
	"gopkg.in/yaml.v3"
)

// Rules is the shared rule-configuration file of the built-in linter.
type Rules struct {
	MaxLineLength            int      `yaml:"max-line-length"`
	ForbidTabs               bool     `yaml:"forbid-tabs"`
	RequireEOFNewline        bool     `yaml:"require-eof-newline"`
	ForbidTrailingWhitespace bool     `yaml:"forbid-trailing-whitespace"`
	Extensions               []string `yaml:"extensions"`
}

func DefaultRules() Rules {
	return Rules{
		RequireEOFNewline:        true,
		ForbidTrailingWhitespace: true,
	}
}

func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()

	contents, err := ioutil.ReadFile(path)
	if err != nil {
		return rules, karma.Format(
			err,
			"unable to read lint rules file: %s", path,
		)
	}

	err = yaml.Unmarshal(contents, &rules)
	if err != nil {
		return rules, karma.Format(
			err,
			"unable to unmarshal lint rules file: %s", path,
		)
	}

	return rules, nil
}

type Violation struct {
	Path    string
	Line    int
	Rule    string
	Message string
}

func (violation Violation) String() string {
	return fmt.Sprintf(
		"%s:%d: [%s] %s",
		violation.Path,
		violation.Line,
		violation.Rule,
		violation.Message,
	)
}

// Check walks the given roots and applies the rules to every matching
// file. The violation set does not depend on the order of the roots or
// of the rules.
func Check(roots []string, rules Rules) ([]Violation, error) {
	violations := []Violation{}

	for _, root := range roots {
		err := filepath.Walk(
			root,
			func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}

				if info.IsDir() {
					if info.Name() == ".git" {
						return filepath.SkipDir
					}

					return nil
				}

				if !rules.matches(path) {
					return nil
				}

				found, err := CheckFile(path, rules)
				if err != nil {
					return err
				}

				violations = append(violations, found...)

				return nil
			},
		)
		if err != nil {
			return nil, karma.Format(
				err,
				"unable to walk lint root: %s", root,
			)
		}
	}

	return violations, nil
}

func CheckFile(path string, rules Rules) ([]Violation, error) {
	contents, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, karma.Format(
			err,
			"unable to read file: %s", path,
		)
	}

	return checkContents(path, string(contents), rules), nil
}

func (rules Rules) matches(path string) bool {
	if len(rules.Extensions) == 0 {
		return true
	}

	for _, extension := range rules.Extensions {
		if strings.HasSuffix(path, extension) {
			return true
		}
	}

	return false
}

func checkContents(path string, contents string, rules Rules) []Violation {
	violations := []Violation{}

	if rules.RequireEOFNewline &&
		contents != "" && !strings.HasSuffix(contents, "\n") {
		violations = append(violations, Violation{
			Path:    path,
			Line:    strings.Count(contents, "\n") + 1,
			Rule:    "eof-newline",
			Message: "file does not end with a newline",
		})
	}

	lines := strings.Split(contents, "\n")
	for index, line := range lines {
		number := index + 1

		if rules.ForbidTrailingWhitespace &&
			line != strings.TrimRight(line, " \t") {
			violations = append(violations, Violation{
				Path:    path,
				Line:    number,
				Rule:    "trailing-whitespace",
				Message: "line has trailing whitespace",
			})
		}

		if rules.ForbidTabs && strings.Contains(line, "\t") {
			violations = append(violations, Violation{
				Path:    path,
				Line:    number,
				Rule:    "forbid-tabs",
				Message: "line contains a tab character",
			})
		}

		if rules.MaxLineLength > 0 && len(line) > rules.MaxLineLength {
			violations = append(violations, Violation{
				Path: path,
				Line: number,
				Rule: "max-line-length",
				Message: fmt.Sprintf(
					"line is %d characters long, the limit is %d",
					len(line), rules.MaxLineLength,
				),
			})
		}
	}

	return violations
}
