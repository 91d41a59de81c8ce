package providers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// resolveImageURL returns u unchanged unless it is a file:// URL, in which
// case the file is inlined as a base64 data URL. Hosted models cannot read
// local files.
func resolveImageURL(u string) (string, error) {
	if !strings.HasPrefix(u, "file://") {
		return u, nil
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return "", fmt.Errorf("invalid image URL %q: %w", u, err)
	}
	data, err := os.ReadFile(filepath.FromSlash(parsed.Path))
	if err != nil {
		return "", fmt.Errorf("failed to read image %s: %w", parsed.Path, err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// resolveImageURLs applies resolveImageURL to every URL.
func resolveImageURLs(urls []string) ([]string, error) {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		r, err := resolveImageURL(u)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
