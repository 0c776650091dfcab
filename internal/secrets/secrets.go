// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves evaluator credentials. A key comes from the
// provider's environment variable, then from a dotenv file, then from a
// directory of plain-text files where the filename is the key name and the
// trimmed file contents are the value.
//
// Supported key files: anthropic-api-key, openai-api-key.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-scout/pkg/types"
)

// DefaultDir is the secrets directory relative to the working directory.
const DefaultDir = ".secrets"

// DotEnvFile is the dotenv file consulted after the environment. It is read,
// never loaded into the process environment.
var DotEnvFile = ".env"

type source struct {
	env  string
	file string
}

var sources = map[types.EvaluatorProvider]source{
	types.ProviderAnthropic: {env: "ANTHROPIC_API_KEY", file: "anthropic-api-key"},
	types.ProviderOpenAI:    {env: "OPENAI_API_KEY", file: "openai-api-key"},
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings but do not abort.
func Load(dir string, log *zap.Logger) (map[string]string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// APIKey returns the key for provider: the environment variable first, then
// the same variable in DotEnvFile, then the matching file in dir. An empty
// result with a nil error means no key is configured anywhere. An empty
// provider means Anthropic.
func APIKey(provider types.EvaluatorProvider, dir string, log *zap.Logger) (string, error) {
	if provider == "" {
		provider = types.ProviderAnthropic
	}
	src, ok := sources[provider]
	if !ok {
		return "", fmt.Errorf("no credential source for provider %q", provider)
	}
	if v := strings.TrimSpace(os.Getenv(src.env)); v != "" {
		return v, nil
	}
	if v := dotEnv(src.env, log); v != "" {
		return v, nil
	}
	all, err := Load(dir, log)
	if err != nil {
		return "", err
	}
	return all[src.file], nil
}

// dotEnv looks key up in DotEnvFile. A missing file yields "". A malformed
// one is logged and skipped.
func dotEnv(key string, log *zap.Logger) string {
	if DotEnvFile == "" {
		return ""
	}
	vars, err := godotenv.Read(DotEnvFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) && log != nil {
			log.Warn("could not read dotenv file", zap.String("path", DotEnvFile), zap.Error(err))
		}
		return ""
	}
	return strings.TrimSpace(vars[key])
}
