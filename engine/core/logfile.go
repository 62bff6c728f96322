package core

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultLogFileMaxSize is the size, in megabytes, at which the log file is
// rotated.
const DefaultLogFileMaxSize = 1

const logQueueSize = 8192

type logEntry struct {
	data   []byte
	rotate bool
}

// RotatingFile is an io.Writer that hands every write to a background
// goroutine, which appends to a lumberjack logger rotating the file once it
// grows past maxSize megabytes. Only one backup is kept.
type RotatingFile struct {
	out *lumberjack.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan logEntry
	done   chan struct{}
}

func NewRotatingFile(path string, maxSize int) (*RotatingFile, error) {
	if maxSize <= 0 {
		maxSize = DefaultLogFileMaxSize
	}
	out := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: 1,
	}
	// an empty write opens (or creates) the file so a bad path fails here
	if _, err := out.Write(nil); err != nil {
		return nil, errors.Wrapf(err, "failed to open log file %s", path)
	}
	rf := &RotatingFile{
		out:   out,
		queue: make(chan logEntry, logQueueSize),
		done:  make(chan struct{}),
	}
	go rf.run()
	return rf, nil
}

// Write copies p and queues it. It blocks when the queue is full so no line
// is dropped.
func (rf *RotatingFile) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)
	if err := rf.enqueue(logEntry{data: buf}); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Rotate queues a rotation behind the writes already queued.
func (rf *RotatingFile) Rotate() error {
	return rf.enqueue(logEntry{rotate: true})
}

func (rf *RotatingFile) enqueue(e logEntry) error {
	rf.mu.RLock()
	defer rf.mu.RUnlock()
	if rf.closed {
		return os.ErrClosed
	}
	rf.queue <- e
	return nil
}

func (rf *RotatingFile) run() {
	defer close(rf.done)
	for e := range rf.queue {
		var err error
		if e.rotate {
			err = rf.out.Rotate()
		} else {
			_, err = rf.out.Write(e.data)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file: %v\n", err)
		}
	}
}

// Close drains pending writes and closes the file. Safe to call twice.
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	if rf.closed {
		rf.mu.Unlock()
		return nil
	}
	rf.closed = true
	close(rf.queue)
	rf.mu.Unlock()
	<-rf.done
	return rf.out.Close()
}

var (
	logFileMu sync.Mutex
	logFile   *RotatingFile
)

// OpenLogFile mirrors the engine log into a rotating file next to stderr.
func OpenLogFile(path string, maxSize int) error {
	logFileMu.Lock()
	defer logFileMu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	rf, err := NewRotatingFile(path, maxSize)
	if err != nil {
		return err
	}
	logFile = rf
	SetLogOutput(io.MultiWriter(os.Stderr, rf))
	return nil
}

// CloseLogFile flushes the file sink and restores stderr-only output.
func CloseLogFile() {
	logFileMu.Lock()
	defer logFileMu.Unlock()

	if logFile == nil {
		return
	}
	SetLogOutput(os.Stderr)
	logFile.Close()
	logFile = nil
}
