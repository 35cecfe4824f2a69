package external

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/klauspost/compress/gzip"

	"github.com/origami/repo-data/types"
)

// PackageDownloader fetches a published package into a local directory.
type PackageDownloader interface {
	DownloadAndUnpack(ctx context.Context, destination, name, version, registry string) error
}

type NpmClient struct {
	hc             *http.Client
	tarballTimeout time.Duration
}

type NpmClientOption func(*NpmClient)

func WithNpmHTTPClient(hc *http.Client) NpmClientOption {
	return func(c *NpmClient) {
		c.hc = hc
	}
}

func WithTarballTimeout(timeout time.Duration) NpmClientOption {
	return func(c *NpmClient) {
		c.tarballTimeout = timeout
	}
}

func NewNpmClient(opts ...NpmClientOption) *NpmClient {
	c := &NpmClient{
		hc:             NewHTTPClient(0),
		tarballTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type packument struct {
	Name     string                    `json:"name"`
	Versions map[string]packageVersion `json:"versions"`
}

type packageVersion struct {
	Version string `json:"version"`
	Dist    struct {
		Tarball string `json:"tarball"`
	} `json:"dist"`
}

// DownloadAndUnpack extracts the tarball of name@version into destination,
// dropping the top-level directory every npm tarball wraps its files in.
// A missing package or version is non-recoverable, anything else is not.
func (c *NpmClient) DownloadAndUnpack(ctx context.Context, destination, name, version, registry string) error {
	ctx, cancel := context.WithTimeout(ctx, c.tarballTimeout)
	defer cancel()

	doc, err := c.fetchPackument(ctx, name, registry)
	if err != nil {
		return err
	}
	tarball, ok := resolveTarball(doc, version)
	if !ok {
		return types.NewError(types.DownloadFailure,
			fmt.Sprintf("No matching version found for %s@%s", name, version), false)
	}

	resp, err := c.do(ctx, tarball)
	if err != nil {
		return types.WrapError(types.DownloadFailure, err, true, "downloading %s@%s", name, version)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.NewError(types.DownloadFailure,
			fmt.Sprintf("downloading %s@%s returned status %d", name, version, resp.StatusCode), true)
	}
	if err := unpack(resp.Body, destination); err != nil {
		return types.WrapError(types.DownloadFailure, err, true, "unpacking %s@%s", name, version)
	}
	return nil
}

func (c *NpmClient) fetchPackument(ctx context.Context, name, registry string) (*packument, error) {
	target := strings.TrimRight(registry, "/") + "/" + url.PathEscape(name)
	resp, err := c.do(ctx, target)
	if err != nil {
		return nil, types.WrapError(types.DownloadFailure, err, true, "fetching %s from %s", name, registry)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, types.NewError(types.DownloadFailure, fmt.Sprintf("%s is not in the npm registry", name), false)
	case resp.StatusCode != http.StatusOK:
		return nil, types.NewError(types.DownloadFailure,
			fmt.Sprintf("fetching %s from %s returned status %d", name, registry, resp.StatusCode), true)
	}
	var doc packument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, types.WrapError(types.DownloadFailure, err, true, "decoding %s metadata", name)
	}
	return &doc, nil
}

func (c *NpmClient) do(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", types.BuildServiceSystemCode)
	return c.hc.Do(req)
}

func resolveTarball(doc *packument, version string) (string, bool) {
	if v, ok := doc.Versions[version]; ok && v.Dist.Tarball != "" {
		return v.Dist.Tarball, true
	}
	wanted, err := semver.NewVersion(version)
	if err != nil {
		return "", false
	}
	for key, v := range doc.Versions {
		candidate, err := semver.NewVersion(key)
		if err == nil && candidate.Equal(wanted) && v.Dist.Tarball != "" {
			return v.Dist.Tarball, true
		}
	}
	return "", false
}

func unpack(r io.Reader, destination string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	root, err := filepath.Abs(destination)
	if err != nil {
		return err
	}
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		name := stripFirstComponent(header.Name)
		if name == "" {
			continue
		}
		target := filepath.Join(root, filepath.FromSlash(name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("tarball entry %q escapes destination", header.Name)
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr); err != nil {
				return err
			}
		}
	}
}

func stripFirstComponent(name string) string {
	name = strings.TrimLeft(filepath.ToSlash(name), "/")
	idx := strings.Index(name, "/")
	if idx < 0 {
		return ""
	}
	return strings.Trim(name[idx+1:], "/")
}

func writeFile(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
