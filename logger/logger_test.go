package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, WARN)

	Debug("hidden debug")
	Infof("hidden %s", "info")
	Warnf("shown %d", 1)
	Error("shown error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected DEBUG and INFO to be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN]  ") || !strings.Contains(out, "shown 1") {
		t.Errorf("Expected WARN line, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] ") || !strings.Contains(out, "shown error") {
		t.Errorf("Expected ERROR line, got %q", out)
	}
	if !strings.Contains(out, "logger_test.go") {
		t.Errorf("Expected caller file in output, got %q", out)
	}

	SetLevel(DEBUG)
	Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Error("Expected DEBUG after SetLevel")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DEBUG,
		" INFO ":  INFO,
		"warning": WARN,
		"warn":    WARN,
		"error":   ERROR,
		"loud":    INFO,
		"":        INFO,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestInitWritesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "vidframe.log")
	if err := Init(file, false, INFO); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Info("to the file")
	Close()

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "[INFO]  ") || !strings.Contains(string(data), "to the file") {
		t.Errorf("Unexpected log file contents: %q", data)
	}
	if strings.Contains(string(data), "\033[") {
		t.Error("Expected no color codes in the log file")
	}
}

func TestInitRequiresDestination(t *testing.T) {
	if err := Init("", false, INFO); err == nil {
		t.Error("Expected error without any output destination")
	}
}

func TestConcurrentLoggingAndClose(t *testing.T) {
	file := filepath.Join(t.TempDir(), "race.log")
	if err := Init(file, false, INFO); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				Infof("worker %d line %d", n, j)
			}
		}(i)
	}
	Close()
	wg.Wait()

	SetOutput(&bytes.Buffer{}, INFO)
}
