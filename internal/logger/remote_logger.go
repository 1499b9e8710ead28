package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

var (
	remoteClient = &http.Client{Timeout: 5 * time.Second}
	pending      sync.WaitGroup
)

// sendLog ships one entry in the background when REMOTE_LOG_HTTP_URI is set.
func sendLog(level, message string, attrs []slog.Attr) {
	remoteURI := os.Getenv("REMOTE_LOG_HTTP_URI")
	if remoteURI == "" {
		return
	}

	pending.Add(1)
	go func() {
		defer pending.Done()
		if err := push(remoteURI, buildLogEntry(level, message, attrs, time.Now())); err != nil {
			// stderr only, shipping must not break the flow
			fmt.Fprintf(os.Stderr, "remote log: %v\n", err)
		}
	}()
}

func push(uri string, entry lokiPush) error {
	jsonData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, uri, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := remoteClient.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("remote returned status %d", resp.StatusCode)
	}
	return nil
}

// Flush waits for in-flight remote log shipments. The CLI calls it before exit
// since a short-lived process would otherwise drop them.
func Flush(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
