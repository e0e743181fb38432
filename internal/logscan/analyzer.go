package logscan

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strings"
)

// Analyzer holds the tallies from one pass over a log file. Lines are
// expected to carry a bracketed severity tag: [LEVEL] message.
type Analyzer struct {
	LevelCounts map[string]int
	ErrorCounts map[string]int
}

type ErrorCount struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

func ScanFile(path string) (*Analyzer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Scan(f)
}

// Scan makes a single pass over the input, counting severity tags and, for
// ERROR lines, the frequency of each distinct message.
func Scan(r io.Reader) (*Analyzer, error) {
	a := &Analyzer{
		LevelCounts: map[string]int{},
		ErrorCounts: map[string]int{},
	}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		open := strings.Index(line, "[")
		if open < 0 {
			continue
		}
		closing := strings.Index(line[open:], "]")
		if closing < 0 {
			continue
		}
		level := line[open+1 : open+closing]
		a.LevelCounts[level]++
		if level == "ERROR" {
			message := strings.TrimSpace(line[open+closing+1:])
			a.ErrorCounts[message]++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return a, nil
}

// TopErrors returns the n most frequent error messages, count descending,
// ties broken alphabetically so the order is stable.
func (a *Analyzer) TopErrors(n int) []ErrorCount {
	results := make([]ErrorCount, 0, len(a.ErrorCounts))
	for message, count := range a.ErrorCounts {
		results = append(results, ErrorCount{Message: message, Count: count})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Count != results[j].Count {
			return results[i].Count > results[j].Count
		}
		return results[i].Message < results[j].Message
	})
	if n >= 0 && len(results) > n {
		results = results[:n]
	}
	return results
}
