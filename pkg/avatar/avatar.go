// Package avatar downloads profile pictures and computes perceptual hashes for them.
package avatar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF support
	_ "image/jpeg" // JPEG support
	_ "image/png"  // PNG support
	"math/bits"
	"net/http"
	"strings"

	"github.com/corona10/goimagehash"

	"github.com/codeGROOVE-dev/credcheck/pkg/httpcache"
)

// SimilarDistance is the largest hamming distance (out of 64 bits) still considered the same picture.
const SimilarDistance = 10

// ErrEmptyURL is returned when there is no picture to download.
var ErrEmptyURL = errors.New("empty image URL")

// Download fetches and decodes an image through the HTTP client.
func Download(ctx context.Context, client *httpcache.Client, imageURL string) (image.Image, error) {
	if imageURL == "" {
		return nil, ErrEmptyURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", httpcache.UserAgent)
	req.Header.Set("Accept", "image/png,image/jpeg,image/gif,*/*")

	body, err := client.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Hash computes the difference hash of img. Returns 0 if hashing fails.
func Hash(img image.Image) uint64 {
	h, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return 0
	}
	return h.GetHash()
}

// Distance returns the hamming distance between two hashes.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar returns true if two hashes are perceptually similar.
// A zero hash means "unknown" and is never similar to anything.
func Similar(a, b uint64) bool {
	if a == 0 || b == 0 {
		return false
	}
	return Distance(a, b) <= SimilarDistance
}

// MatchAny returns the index of the first hash in known that is similar to h, or -1.
func MatchAny(h uint64, known []uint64) int {
	for i, k := range known {
		if Similar(h, k) {
			return i
		}
	}
	return -1
}

// IsDefault returns true for URLs whose path marks a default or placeholder avatar.
// Query parameters are ignored: Gravatar's d= is only a fallback for missing images.
func IsDefault(url string) bool {
	path := strings.ToLower(url)
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}

	return strings.Contains(path, "identicon") ||
		strings.Contains(path, "default_profile") ||
		strings.Contains(path, "avatar_default") ||
		strings.Contains(path, "/avatars/original/missing") ||
		strings.Contains(path, "placeholder")
}
