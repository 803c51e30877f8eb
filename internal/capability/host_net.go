package capability

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"boruna/internal/value"
)

// HostNetFetch issues a real HTTP request. Args: [method string, url
// string, body string]. Grounded on internal/foreign/slug_io_http.go's
// fnIoHttpRequest, trimmed to the arguments a capability call carries.
func HostNetFetch(args []value.Value) (value.Value, error) {
	if len(args) < 2 {
		return value.Value{}, fmt.Errorf("net.fetch: want [method, url, body?], got %d args", len(args))
	}
	method := args[0].String
	url := args[1].String
	body := ""
	if len(args) >= 3 {
		body = args[2].String
	}
	if method == "" {
		method = http.MethodGet
	}

	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		return value.Value{}, fmt.Errorf("net.fetch: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return value.Value{}, fmt.Errorf("net.fetch: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return value.Value{}, fmt.Errorf("net.fetch: reading response: %w", err)
	}

	return value.Record(value.AnonListRecordTypeID, []value.Value{
		value.Int(int64(resp.StatusCode)),
		value.Str(string(data)),
	}), nil
}
