package executor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cuemby/orbit/pkg/types"
)

// DefaultWorkDir is the base directory components' config files and
// binaries are materialized under.
const DefaultWorkDir = "/var/lib/orbit/components"

// componentDir returns (and creates) the per-component work directory.
func componentDir(baseDir, componentID string) (string, error) {
	if baseDir == "" {
		baseDir = DefaultWorkDir
	}
	dir := filepath.Join(baseDir, componentID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create component directory: %w", err)
	}
	return dir, nil
}

// writeConfigFiles materializes comp.Config.ConfigFiles (path -> content)
// under the component's work directory, returning the directory so
// callers can bind-mount or pass it to the process as a working dir.
func writeConfigFiles(baseDir string, comp *types.Component) (string, error) {
	dir, err := componentDir(baseDir, comp.ID)
	if err != nil {
		return "", err
	}

	for name, content := range comp.Config.ConfigFiles {
		dest := filepath.Join(dir, filepath.Clean("/"+name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return "", fmt.Errorf("create config directory for %s: %w", name, err)
		}
		if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
			return "", fmt.Errorf("write config file %s: %w", name, err)
		}
	}

	return dir, nil
}

// downloadFile fetches url and writes it to dest with executable
// permissions, for binary-type components that ship via binary_url.
func downloadFile(ctx context.Context, client *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return fmt.Errorf("open %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}

// removeComponentDir deletes the component's on-disk work directory.
// Missing directories are not an error.
func removeComponentDir(baseDir, componentID string) error {
	if baseDir == "" {
		baseDir = DefaultWorkDir
	}
	if err := os.RemoveAll(filepath.Join(baseDir, componentID)); err != nil {
		return fmt.Errorf("remove component directory: %w", err)
	}
	return nil
}
