package coverage

import (
	"encoding/xml"
	"io/ioutil"
	"math"

	"github.com/reconquest/karma-go"
)

// Report is a parsed Cobertura-style coverage artifact. Only the summary
// attributes are read, per-file data stays untouched and is uploaded
// verbatim.
type Report struct {
	XMLName      xml.Name `xml:"coverage"`
	LineRate     float64  `xml:"line-rate,attr"`
	LinesValid   int      `xml:"lines-valid,attr"`
	LinesCovered int      `xml:"lines-covered,attr"`
}

func Parse(data []byte) (*Report, error) {
	var report Report

	err := xml.Unmarshal(data, &report)
	if err != nil {
		return nil, karma.Format(
			err,
			"unable to unmarshal coverage artifact",
		)
	}

	return &report, nil
}

func ParseFile(path string) (*Report, []byte, error) {
	contents, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, nil, karma.Format(
			err,
			"unable to read coverage artifact: %s", path,
		)
	}

	report, err := Parse(contents)
	if err != nil {
		return nil, nil, err
	}

	return report, contents, nil
}

// Percent returns the line coverage in percent. The line counters win
// over the precomputed rate when both are present.
func (report *Report) Percent() float64 {
	if report.LinesValid > 0 {
		return round2(
			float64(report.LinesCovered) / float64(report.LinesValid) * 100,
		)
	}

	return round2(report.LineRate * 100)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
