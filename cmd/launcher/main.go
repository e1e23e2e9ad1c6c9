package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	backendHost  = "127.0.0.1"
	backendPort  = "8000"
	pollInterval = 250 * time.Millisecond
)

// main starts the API in the background, waits until its health endpoint
// answers, then runs the frontend in the foreground. When the frontend
// exits the API is stopped and its exit code is propagated.
func main() {
	backendCmd := commandFromEnv("BACKEND_CMD", "./api")
	frontendCmd := commandFromEnv("FRONTEND_CMD", "npm start")

	backend := exec.Command(backendCmd[0], backendCmd[1:]...)
	backend.Env = append(os.Environ(),
		"HOST="+backendHost,
		"PORT="+backendPort,
	)
	backend.Stdout = os.Stdout
	backend.Stderr = os.Stderr

	log.Printf("Starting API: %s", strings.Join(backendCmd, " "))
	if err := backend.Start(); err != nil {
		log.Fatalf("Failed to start API: %v", err)
	}

	healthURL := fmt.Sprintf("http://%s:%s/api/health", backendHost, backendPort)
	if err := waitForReady(healthURL, readyDeadline()); err != nil {
		backend.Process.Kill()
		log.Fatalf("API did not become ready: %v", err)
	}
	log.Println("API is ready")

	frontend := exec.Command(frontendCmd[0], frontendCmd[1:]...)
	frontend.Env = append(os.Environ(),
		fmt.Sprintf("BACKEND_URL=http://%s:%s", backendHost, backendPort),
	)
	frontend.Stdout = os.Stdout
	frontend.Stderr = os.Stderr
	frontend.Stdin = os.Stdin

	log.Printf("Starting frontend: %s", strings.Join(frontendCmd, " "))
	if err := frontend.Start(); err != nil {
		backend.Process.Kill()
		log.Fatalf("Failed to start frontend: %v", err)
	}

	// Forward interrupts to the frontend so both processes wind down
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		frontend.Process.Signal(sig)
	}()

	err := frontend.Wait()

	backend.Process.Signal(syscall.SIGTERM)
	backend.Wait()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		log.Fatalf("Frontend exited with error: %v", err)
	}
}

// waitForReady polls url until it answers with a 2xx or the deadline passes.
func waitForReady(url string, deadline time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	stop := time.Now().Add(deadline)

	for {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
		}
		if time.Now().After(stop) {
			if err != nil {
				return fmt.Errorf("health check at %s: %w", url, err)
			}
			return fmt.Errorf("health check at %s: status %d", url, resp.StatusCode)
		}
		time.Sleep(pollInterval)
	}
}

func readyDeadline() time.Duration {
	raw := os.Getenv("READY_TIMEOUT_SECONDS")
	if raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 30 * time.Second
}

func commandFromEnv(key, fallback string) []string {
	if fields := strings.Fields(os.Getenv(key)); len(fields) > 0 {
		return fields
	}
	return strings.Fields(fallback)
}
