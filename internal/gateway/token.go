package gateway

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/MrSnakeDoc/storysync/internal/domain"
)

// TokenSource yields the bearer token for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a token fixed at startup.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(t)) == "" {
		return "", domain.ErrAuthRequired
	}
	return strings.TrimSpace(string(t)), nil
}

// FileToken re-reads the token file on every call so a login elsewhere
// takes effect without a restart.
type FileToken struct {
	Path string
}

func (f FileToken) Token(context.Context) (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.ErrAuthRequired
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", domain.ErrAuthRequired
	}
	return tok, nil
}

// SaveTokenFile writes a token where FileToken will find it.
func SaveTokenFile(path, token string) error {
	return os.WriteFile(path, []byte(token+"\n"), 0o600)
}

// NewTokenSource picks the file source when a path is set, the static token otherwise.
func NewTokenSource(token, path string) TokenSource {
	if path != "" {
		return FileToken{Path: path}
	}
	return StaticToken(token)
}
