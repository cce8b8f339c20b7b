// Package provision writes the relay's invocation into a host application's
// JSON configuration file so a stdio-only host launches the relay as its
// server command. The host document is an object whose "mcpServers" member
// maps server names to launch entries; everything else in the document is
// preserved.
package provision

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const serversKey = "mcpServers"

// Entry describes how the host application should launch the relay.
type Entry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

// Install registers (or replaces) the named server entry in the host config
// at path. A missing file or missing mcpServers member is created; unrelated
// members and entries are carried over untouched.
func Install(path, name string, e Entry) error {
	if name == "" {
		return errors.New("provision: server name must not be empty")
	}
	doc, servers, err := readConfig(path)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal server entry: %w", err)
	}
	servers[name] = raw
	return writeConfig(path, doc, servers)
}

// Uninstall removes the named server entry. A missing file or entry is not
// an error; removing the last entry leaves an empty mcpServers object.
func Uninstall(path, name string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	doc, servers, err := readConfig(path)
	if err != nil {
		return err
	}
	if _, ok := servers[name]; !ok {
		return nil
	}
	delete(servers, name)
	return writeConfig(path, doc, servers)
}

// readConfig loads the host document and its server map. Unknown members stay
// as raw JSON so a rewrite cannot lose them.
func readConfig(path string) (map[string]json.RawMessage, map[string]json.RawMessage, error) {
	doc := map[string]json.RawMessage{}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, nil, fmt.Errorf("parse host config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// First install: start from an empty document.
	default:
		return nil, nil, fmt.Errorf("read host config: %w", err)
	}

	servers := map[string]json.RawMessage{}
	if raw, ok := doc[serversKey]; ok {
		if err := json.Unmarshal(raw, &servers); err != nil {
			return nil, nil, fmt.Errorf("parse %s member: %w", serversKey, err)
		}
	}
	return doc, servers, nil
}

// writeConfig rewrites the document atomically: temp file in the target
// directory, then rename. Mode 0600 because the entry may embed a secret.
func writeConfig(path string, doc, servers map[string]json.RawMessage) error {
	raw, err := json.Marshal(servers)
	if err != nil {
		return fmt.Errorf("marshal %s member: %w", serversKey, err)
	}
	doc[serversKey] = raw

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal host config: %w", err)
	}
	out = append(out, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".mcp-http-bridge-*")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp config: %w", err)
	}
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace host config: %w", err)
	}
	return nil
}
