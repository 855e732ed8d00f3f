package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/cameronsjo/chartroom/internal/values"
)

// SOPSOps provides SOPS decryption operations.
type SOPSOps struct{}

// NewSOPSOps creates a new SOPSOps instance.
func NewSOPSOps() *SOPSOps {
	return &SOPSOps{}
}

// Decrypt decrypts a SOPS-encrypted file and returns the plaintext bytes.
func (s *SOPSOps) Decrypt(ctx context.Context, file string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "sops", "--input-type", "yaml", "--output-type", "json", "-d", file)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("sops decrypt failed for %s: %w: %s", file, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// DecryptToMap decrypts a SOPS-encrypted file and returns the data as a map.
func (s *SOPSOps) DecryptToMap(ctx context.Context, file string) (map[string]any, error) {
	data, err := s.Decrypt(ctx, file)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse decrypted JSON from %s: %w", file, err)
	}
	return result, nil
}

// DecryptMultiple decrypts multiple SOPS files and merges them into a
// single values layer. Later files override earlier ones.
func (s *SOPSOps) DecryptMultiple(ctx context.Context, files []string) (map[string]any, error) {
	layers := make([]map[string]any, 0, len(files))
	for _, file := range files {
		data, err := s.DecryptToMap(ctx, file)
		if err != nil {
			return nil, err
		}
		layers = append(layers, data)
	}

	merged, err := values.Merge(layers...)
	if err != nil {
		return nil, fmt.Errorf("merge decrypted secrets: %w", err)
	}
	return merged, nil
}
