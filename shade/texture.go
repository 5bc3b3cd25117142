package shade

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	// Decoders for the texture formats scene assets ship in.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/anthonynsimon/bild/transform"
)

// LoadTexture resolves an asset path and decodes it into an RGBA image in
// image orientation (scene textures are stored bottom-up, so the decode is
// flipped vertically). Relative paths resolve against the stage's root
// directory; http(s) URLs download through the on-disk cache. Decoded images
// are memoized per resolver, keyed by the resolved location.
func (r *Resolver) LoadTexture(asset string) (image.Image, string, error) {
	resolved, err := r.resolveAsset(asset)
	if err != nil {
		return nil, "", err
	}

	r.mu.Lock()
	if img, ok := r.textures[resolved]; ok {
		r.mu.Unlock()
		return img, resolved, nil
	}
	r.mu.Unlock()

	img, err := decodeTexture(resolved)
	if err != nil {
		return nil, "", err
	}

	r.mu.Lock()
	r.textures[resolved] = img
	r.mu.Unlock()
	return img, resolved, nil
}

// resolveAsset turns an authored asset path into a readable local path.
func (r *Resolver) resolveAsset(asset string) (string, error) {
	if asset == "" {
		return "", fmt.Errorf("empty texture asset path")
	}
	if IsURL(asset) {
		return r.download(asset)
	}
	if filepath.IsAbs(asset) {
		return asset, nil
	}
	root := r.st.RootDir()
	if root == "" {
		return "", fmt.Errorf("relative texture asset %q with no stage root directory", asset)
	}
	return filepath.Join(root, filepath.FromSlash(asset)), nil
}

// decodeTexture reads, decodes, flips, and normalizes one texture file.
func decodeTexture(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening texture: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding texture %s: %w", filepath.Base(path), err)
	}

	// FlipV also normalizes whatever the decoder produced to RGBA.
	return transform.FlipV(img), nil
}
