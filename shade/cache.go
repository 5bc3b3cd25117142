package shade

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// DefaultCacheDir returns the directory downloaded textures land in.
func DefaultCacheDir() string {
	return filepath.Join(os.TempDir(), "dolly")
}

// IsURL reports whether an asset path is a downloadable URL.
func IsURL(asset string) bool {
	u, err := url.Parse(asset)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// download fetches a texture URL into the cache and returns the cached file
// path. Cache entries are keyed by the md5 of the URL so repeated runs reuse
// earlier downloads; a fresh download is validated by decoding it before the
// entry becomes visible.
func (r *Resolver) download(rawURL string) (string, error) {
	dest, err := r.cachePath(rawURL)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("creating texture cache: %w", err)
	}

	resp, err := r.client.Get(rawURL)
	if err != nil {
		return "", fmt.Errorf("downloading texture: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading texture %s: status %s", rawURL, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("downloading texture %s: %w", rawURL, err)
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("downloaded texture %s is not a decodable image: %w", rawURL, err)
	}

	tmp, err := os.CreateTemp(r.cacheDir, "download-*")
	if err != nil {
		return "", fmt.Errorf("staging texture download: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("staging texture download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("staging texture download: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("committing texture download: %w", err)
	}
	return dest, nil
}

// cachePath derives the stable cache location for a URL. The original file
// extension is kept so format sniffing by name still works.
func (r *Resolver) cachePath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing texture url: %w", err)
	}
	sum := md5.Sum([]byte(rawURL))
	name := fmt.Sprintf("%x%s", sum, filepath.Ext(u.Path))
	return filepath.Join(r.cacheDir, name), nil
}
