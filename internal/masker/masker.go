// Package masker censors secret values in job logs before they reach the
// report or the terminal. Multi-line secrets such as deploy keys are
// masked line by line, since executors hand output over in chunks that
// rarely align with the whole value.
package masker

import (
	"io"
	"sort"
	"strings"

	"github.com/reconquest/gate-runner/internal/env"
)

type Masker interface {
	Mask(string) string
}

var _ Masker = (*Writer)(nil)

// Writer masks the values of the given secret variables in everything
// written through it.
//
//go:generate gonstructor --type Writer --init init
type Writer struct {
	env      *env.Env
	secrets  []string
	replacer *strings.Replacer `gonstructor:"-"`
	dst      io.WriteCloser
}

func (writer *Writer) init() {
	values := map[string]struct{}{}
	for _, secret := range writer.secrets {
		value, ok := writer.env.Get(secret)
		if !ok {
			continue
		}

		for _, line := range strings.Split(value, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				values[line] = struct{}{}
			}
		}
	}

	if len(values) == 0 {
		return
	}

	plain := make([]string, 0, len(values))
	for value := range values {
		plain = append(plain, value)
	}

	// longer values first, otherwise a secret that contains another
	// secret as a substring leaks its tail
	sort.Slice(plain, func(i, j int) bool {
		return len(plain[i]) > len(plain[j])
	})

	pairs := make([]string, 0, len(plain)*2)
	for _, value := range plain {
		pairs = append(pairs, value, strings.Repeat("*", len(value)))
	}

	writer.replacer = strings.NewReplacer(pairs...)
}

func (writer *Writer) Mask(buf string) string {
	if writer.replacer == nil {
		return buf
	}

	return writer.replacer.Replace(buf)
}

func (writer *Writer) Write(buf []byte) (int, error) {
	if writer.replacer == nil {
		return writer.dst.Write(buf)
	}

	return writer.replacer.WriteString(writer.dst, string(buf))
}

func (writer *Writer) Close() error {
	return writer.dst.Close()
}
