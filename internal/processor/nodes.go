package processor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/woozymasta/meshgeo/internal/node"
)

// userAgent identifies the loader to tile and node servers.
const userAgent = "meshgeo-loader/1.0"

// FetchNodes downloads or reads a JSON node dump. The dump is either an
// array of nodes or an object keyed by node id, as radio tools print it.
func FetchNodes(client *http.Client, source string) ([]node.Node, error) {
	data, err := readSource(client, source)
	if err != nil {
		return nil, err
	}

	return decodeNodes(data)
}

func decodeNodes(data []byte) ([]node.Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty node dump")
	}

	if trimmed[0] == '[' {
		var nodes []node.Node
		if err := json.Unmarshal(trimmed, &nodes); err != nil {
			return nil, fmt.Errorf("decode node list: %w", err)
		}
		return nodes, nil
	}

	var byID map[string]node.Node
	if err := json.Unmarshal(trimmed, &byID); err != nil {
		return nil, fmt.Errorf("decode node map: %w", err)
	}

	nodes := make([]node.Node, 0, len(byID))
	for id, n := range byID {
		if n.Num == 0 {
			num, err := node.NumFromID(id)
			if err != nil {
				return nil, fmt.Errorf("node %q: %w", id, err)
			}
			n.Num = num
		}
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Num < nodes[j].Num })

	return nodes, nil
}

// readSource loads an http(s) URL or a local file.
func readSource(client *http.Client, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return os.ReadFile(source)
	}

	req, err := http.NewRequest(http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	// Explicitly ignore close error as it's a read-only operation
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", source, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
