// File: cmd/nettestrunner/main.go
// Author: momentics <momentics@gmail.com>
//
// A test-suite launcher grounded on original_source/test/all/main.c:
// discover every sibling "test-*" executable next to this binary,
// skip itself, run each with inherited stdio, and stop at the first
// non-zero exit code. Discovered paths are fed through an
// eapache/queue FIFO so run order matches directory listing order
// without an extra slice-shift on each dequeue.
package main

import (
	"flag"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/eapache/queue"
)

func testPattern() string {
	if runtime.GOOS == "windows" {
		return "test-*.exe"
	}
	return "test-*"
}

func discover(dir, self string) (*queue.Queue, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	q := queue.New()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		matched, err := filepath.Match(testPattern(), e.Name())
		if err != nil {
			return nil, err
		}
		if !matched || e.Name() == self {
			continue
		}
		q.Add(filepath.Join(dir, e.Name()))
	}
	return q, nil
}

func run(log *slog.Logger) int {
	exeDir := flag.String("dir", "", "directory to search for test-* executables (defaults to this binary's directory)")
	flag.Parse()

	self, err := os.Executable()
	if err != nil {
		log.Error("resolve self path failed", slog.String("err", err.Error()))
		return -1
	}
	dir := *exeDir
	if dir == "" {
		dir = filepath.Dir(self)
	}

	q, err := discover(dir, filepath.Base(self))
	if err != nil {
		log.Error("discover test executables failed", slog.String("err", err.Error()))
		return -1
	}

	if q.Length() == 0 {
		log.Warn("no test-* executables found", slog.String("dir", dir))
		return 0
	}

	for q.Length() > 0 {
		path := q.Remove().(string)
		log.Info("running test executable", slog.String("path", path))

		cmd := exec.Command(path)
		cmd.Dir = dir
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Stdin = os.Stdin

		if err := cmd.Run(); err != nil {
			log.Warn("test executable failed", slog.String("path", path), slog.String("err", err.Error()))
			return -1
		}
		log.Info("test executable passed", slog.String("path", path))
	}

	log.Info("all tests passed")
	return 0
}

func main() {
	os.Exit(run(slog.Default()))
}
