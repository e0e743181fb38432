// Command loggen writes a randomized sample log file for exercising the
// log analyzer.
package main

import (
	"bufio"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"
)

var messages = map[string][]string{
	"INFO": {
		"Application started successfully",
		"User login successful",
		"Request processed",
		"Cache updated",
		"Task completed",
		"Service health check passed",
		"Configuration loaded",
		"Database connection established",
	},
	"WARN": {
		"High memory usage detected",
		"Slow query performance",
		"API rate limit approaching",
		"Cache miss",
		"Deprecated function used",
		"Connection retry attempted",
	},
	"ERROR": {
		"Database connection failed",
		"Authentication failed",
		"File not found",
		"Network timeout",
		"Invalid input received",
		"Permission denied",
		"Service unavailable",
		"Null pointer exception",
	},
}

// pickLevel draws a level with a 70/20/10 INFO/WARN/ERROR split.
func pickLevel(rng *rand.Rand) string {
	switch n := rng.Intn(100); {
	case n < 70:
		return "INFO"
	case n < 90:
		return "WARN"
	default:
		return "ERROR"
	}
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	filename := flag.String("out", "sample.log", "output file")
	entries := flag.Int("n", 200, "number of log entries")
	flag.Parse()

	f, err := os.Create(*filename)
	if err != nil {
		logger.Error("failed to create file", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer f.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	w := bufio.NewWriter(f)
	ts := time.Now().Add(-2 * time.Hour)
	for i := 0; i < *entries; i++ {
		level := pickLevel(rng)
		message := messages[level][rng.Intn(len(messages[level]))]
		w.WriteString(ts.Format("2006-01-02 15:04:05") + " [" + level + "] " + message + "\n")
		ts = ts.Add(time.Duration(1+rng.Intn(30)) * time.Second)
	}
	if err := w.Flush(); err != nil {
		logger.Error("failed to write file", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("generated sample log", slog.String("file", *filename), slog.Int("entries", *entries))
}
