package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"intentsettle/services/settled/server"
)

var httpClient = &http.Client{Timeout: 15 * time.Second}

var nowFn = time.Now

func defaultEndpoint() string {
	if value := strings.TrimSpace(os.Getenv("SETTLED_URL")); value != "" {
		return value
	}
	return "http://localhost:8480"
}

// runCall sends a wallet-signed POST to a caller endpoint such as /v1/claim
// or /v1/governance/pause.
func runCall(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	fs.SetOutput(stderr)
	endpoint := fs.String("url", defaultEndpoint(), "settled base URL")
	keystore := fs.String("keystore", "", "caller keystore")
	path := fs.String("path", "", "request path, e.g. /v1/claim")
	body := fs.String("body", "{}", "JSON body, or @file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(*path) == "" {
		fmt.Fprintln(stderr, "Error: --path is required")
		return 1
	}
	payload := []byte(*body)
	if strings.HasPrefix(*body, "@") {
		data, err := os.ReadFile(strings.TrimPrefix(*body, "@"))
		if err != nil {
			fmt.Fprintf(stderr, "Error: read body: %v\n", err)
			return 1
		}
		payload = data
	}
	key, err := loadKey(*keystore)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	target, err := url.Parse(strings.TrimRight(*endpoint, "/") + *path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid url: %v\n", err)
		return 1
	}
	req, err := http.NewRequest(http.MethodPost, target.String(), bytes.NewReader(payload))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	timestamp := strconv.FormatInt(nowFn().Unix(), 10)
	sig, err := server.SignRequest(key.PrivateKey, http.MethodPost, server.CanonicalRequestPath(req), timestamp, payload)
	if err != nil {
		fmt.Fprintf(stderr, "Error: sign request: %v\n", err)
		return 1
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(server.HeaderCaller, key.Address().Hex())
	req.Header.Set(server.HeaderTimestamp, timestamp)
	req.Header.Set(server.HeaderSignature, sig)

	resp, err := httpClient.Do(req)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(stderr, "Error: read response: %v\n", err)
		return 1
	}
	if resp.StatusCode >= 300 {
		fmt.Fprintf(stderr, "Error: %s: %s\n", resp.Status, strings.TrimSpace(string(respBody)))
		return 1
	}
	fmt.Fprintln(stdout, strings.TrimSpace(string(respBody)))
	return 0
}

func runHostToken(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("host-token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	secretEnv := fs.String("secret-env", "SETTLED_HOST_TOKEN", "environment variable holding the host secret")
	ttl := fs.Duration("ttl", 10*time.Minute, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	token, err := server.MintHostToken(os.Getenv(*secretEnv), nowFn(), *ttl)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, token)
	return 0
}
