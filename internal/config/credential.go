package config

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Credential turns stored host configuration into an API token.
type Credential interface {
	Resolve(ctx context.Context) (string, error)
}

// TokenCredential is a personal access token stored verbatim.
type TokenCredential string

// Resolve returns the token itself.
func (t TokenCredential) Resolve(ctx context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("empty token")
	}
	return string(t), nil
}

// CommandCredential is a shell command that prints the token, which lets
// the token live in an external secret store.
type CommandCredential string

// Resolve runs the command through sh and returns its trimmed output.
func (c CommandCredential) Resolve(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", string(c))
	cmd.Stderr = os.Stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("token command %q failed: %w", string(c), err)
	}
	token := strings.TrimSpace(string(out))
	if token == "" {
		return "", fmt.Errorf("token command %q printed nothing", string(c))
	}
	return token, nil
}
