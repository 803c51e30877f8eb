package capability

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"boruna/internal/value"
)

// HostLlmCall forwards a prompt to a configured LLM gateway endpoint over
// HTTP, returning its response body as a String. The prompt registry and
// request/response schema belong to the LLM gateway, which is explicitly
// out of scope (spec §1); this handler only closes the capability-gateway
// contract for LlmCall, it does not implement that gateway.
type HostLlmCall struct {
	Endpoint string
	Client   *http.Client
}

func NewHostLlmCall(endpoint string) *HostLlmCall {
	return &HostLlmCall{Endpoint: endpoint, Client: &http.Client{Timeout: 60 * time.Second}}
}

func (h *HostLlmCall) Call(args []value.Value) (value.Value, error) {
	if h.Endpoint == "" {
		return value.Value{}, fmt.Errorf("llm.call: no endpoint configured")
	}
	if len(args) != 1 {
		return value.Value{}, fmt.Errorf("llm.call: want [prompt], got %d args", len(args))
	}
	resp, err := h.Client.Post(h.Endpoint, "text/plain", strings.NewReader(args[0].String))
	if err != nil {
		return value.Value{}, fmt.Errorf("llm.call: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return value.Value{}, fmt.Errorf("llm.call: reading response: %w", err)
	}
	return value.Str(string(data)), nil
}
