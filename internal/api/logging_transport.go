package api

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	activeLoggingTransports []*LoggingTransport
	transportsMu            sync.Mutex
)

// LoggingTransport wraps an http.RoundTripper and appends every request and
// response to a log file. JSON bodies are logged; archive downloads are not.
type LoggingTransport struct {
	Transport http.RoundTripper
	logFile   *os.File
	writer    *bufio.Writer
	mu        sync.Mutex
}

// NewLoggingTransport opens logFilePath for appending and wraps transport.
func NewLoggingTransport(transport http.RoundTripper, logFilePath string) (*LoggingTransport, error) {
	// #nosec G304
	f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open API log file %s: %w", logFilePath, err)
	}

	if transport == nil {
		transport = http.DefaultTransport
	}

	lt := &LoggingTransport{
		Transport: transport,
		logFile:   f,
		writer:    bufio.NewWriter(f),
	}

	transportsMu.Lock()
	activeLoggingTransports = append(activeLoggingTransports, lt)
	transportsMu.Unlock()
	log.Debugf("Registered LoggingTransport for %s", logFilePath)

	return lt, nil
}

// RoundTrip implements http.RoundTripper.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	startTime := time.Now()

	reqDump, err := httputil.DumpRequestOut(req, false)
	if err != nil {
		log.WithError(err).Error("[LogTransport] Failed to dump API request for logging")
	} else {
		t.mu.Lock()
		t.writeLog(fmt.Sprintf("--- Request (%s) ---\n%s", startTime.Format(time.RFC3339), string(reqDump)))
		t.mu.Unlock()
	}

	resp, err := t.Transport.RoundTrip(req)
	duration := time.Since(startTime)

	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		t.writeLog(fmt.Sprintf("--- Response Error (Duration: %v) ---\n%s", duration, err.Error()))
	} else {
		contentType := resp.Header.Get("Content-Type")
		headerDump, _ := httputil.DumpResponse(resp, false)

		if strings.Contains(contentType, "json") {
			bodyBytes, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if readErr != nil {
				log.WithError(readErr).Error("[LogTransport] Failed to read response body for logging")
				t.writeLog(fmt.Sprintf("--- Response (Duration: %v) ---\n%s(Body read failed)", duration, string(headerDump)))
				resp.Body = io.NopCloser(bytes.NewReader(nil))
				// Surface the read failure to the caller instead of an empty body.
				return nil, fmt.Errorf("reading response body: %w", readErr)
			}
			resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			t.writeLog(fmt.Sprintf("--- Response (Duration: %v) ---\n%s%s", duration, string(headerDump), string(bodyBytes)))
		} else {
			t.writeLog(fmt.Sprintf("--- Response (Duration: %v, Type: %s) ---\n%s(Body not logged)", duration, contentType, string(headerDump)))
		}
	}

	if errFlush := t.writer.Flush(); errFlush != nil {
		log.WithError(errFlush).Error("[LogTransport] Failed to flush log writer")
	}
	return resp, err
}

func (t *LoggingTransport) writeLog(entry string) {
	if _, err := t.writer.WriteString(entry + "\n\n"); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing to API log file: %v\n", err)
	}
}

// Close flushes and closes the log file.
func (t *LoggingTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	errFlush := t.writer.Flush()
	errClose := t.logFile.Close()
	if errFlush != nil {
		return fmt.Errorf("failed to flush API log buffer: %w", errFlush)
	}
	return errClose
}

// CloseAllLoggingTransports closes every transport created by NewLoggingTransport.
func CloseAllLoggingTransports() {
	transportsMu.Lock()
	defer transportsMu.Unlock()

	for _, t := range activeLoggingTransports {
		if err := t.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing logging transport for %s: %v\n", t.logFile.Name(), err)
		}
	}
	activeLoggingTransports = nil
}
