// Command fairval-mcp bridges a stdio MCP client onto the HTTP MCP endpoint
// of a running fairval server. Stdout carries only protocol traffic;
// diagnostics go to stderr.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cmansell/fairval/internal/common"
)

// StdioProxy forwards newline-delimited JSON-RPC messages from stdin to an
// HTTP MCP server and writes responses to stdout.
type StdioProxy struct {
	serverURL  string
	httpClient *http.Client
	logger     *common.Logger
}

func newStdioProxy(baseURL string, timeout time.Duration, logger *common.Logger) *StdioProxy {
	return &StdioProxy{
		serverURL:  baseURL + "/mcp",
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func main() {
	var (
		configPath = flag.String("config", "", "path to fairval.toml (default: FAIRVAL_CONFIG, then the binary directory)")
		serverFlag = flag.String("server", "", "base URL of the fairval server (default: FAIRVAL_SERVER_URL, then the configured port)")
		timeout    = flag.Duration("timeout", 120*time.Second, "per-request timeout; tool calls can run long")
	)
	flag.Parse()

	logger := common.NewLogger("warn")

	proxy := newStdioProxy(resolveServerURL(*serverFlag, *configPath), *timeout, logger)

	if err := proxy.RunWithIO(os.Stdin, os.Stdout); err != nil {
		logger.Error().Err(err).Msg("Proxy terminated")
		os.Exit(1)
	}
}

// resolveServerURL picks the server base URL: the -server flag wins, then
// FAIRVAL_SERVER_URL, then the port from the same config file the server
// itself loads, then the stock default.
func resolveServerURL(flagURL, configPath string) string {
	if flagURL != "" {
		return flagURL
	}
	if env := os.Getenv("FAIRVAL_SERVER_URL"); env != "" {
		return env
	}
	if configPath == "" {
		configPath = os.Getenv("FAIRVAL_CONFIG")
	}
	if configPath != "" {
		if cfg, err := common.LoadConfig(configPath); err == nil {
			return fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
		}
	}
	return fmt.Sprintf("http://localhost:%d", common.NewDefaultConfig().Server.Port)
}

// RunWithIO reads newline-delimited JSON-RPC from r, forwards each message,
// and writes one response line per message to w. Forwarding failures become
// JSON-RPC error responses so the client session survives a server restart.
func (p *StdioProxy) RunWithIO(r io.Reader, w io.Writer) error {
	const maxMessageSize = 10 * 1024 * 1024

	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	if p.logger == nil {
		p.logger = common.NewSilentLogger()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		p.writeLine(w, p.handleMessage(line))
	}

	return scanner.Err()
}

// handleMessage forwards one JSON-RPC message, converting any transport
// failure into an error response stamped with the request's id.
func (p *StdioProxy) handleMessage(msg []byte) []byte {
	resp, err := p.forward(msg)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Forward failed")
		return jsonRPCError(extractID(msg), -32000, err.Error())
	}
	return resp
}

func (p *StdioProxy) writeLine(w io.Writer, line []byte) {
	w.Write(line)
	w.Write([]byte("\n"))
}

// forward posts a JSON-RPC message to the server and returns the response body.
func (p *StdioProxy) forward(body []byte) ([]byte, error) {
	resp, err := p.httpClient.Post(p.serverURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("server request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	return bytes.TrimSpace(respBody), nil
}

// extractID pulls the "id" field from a JSON-RPC request for error responses.
func extractID(msg []byte) json.RawMessage {
	var req struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(msg, &req); err != nil || req.ID == nil {
		return json.RawMessage("null")
	}
	return req.ID
}

// jsonRPCError creates a JSON-RPC error response.
func jsonRPCError(id json.RawMessage, code int, message string) []byte {
	resp := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}
	data, _ := json.Marshal(resp)
	return data
}
