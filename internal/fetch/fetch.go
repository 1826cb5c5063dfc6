// Package fetch resolves MAUDE source streams: it names the right FDA
// archive for a table kind and year, downloads and extracts it into the
// data directory, and hands the caller a plain line stream. The core
// pipeline never sees URLs or zip files.
package fetch

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"maudedb/internal/schema"
)

// The FDA serves 403s to default Go user agents.
const userAgent = "Mozilla/5.0 (compatible; maudedb)"

// Client locates, downloads, and caches MAUDE source files.
type Client struct {
	BaseURL  string // e.g. https://www.accessdata.fda.gov/MAUDE/ftparea
	DataDir  string
	ThruYear int  // year suffix of the cumulative "thru" archives
	Download bool // when false, only files already in DataDir are used

	HTTP *http.Client
	Log  zerolog.Logger
}

// NewClient builds a client with a download timeout suited to the
// multi-hundred-megabyte cumulative archives.
func NewClient(baseURL, dataDir string, thruYear int, download bool, log zerolog.Logger) *Client {
	return &Client{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		DataDir:  dataDir,
		ThruYear: thruYear,
		Download: download,
		HTTP:     &http.Client{Timeout: 30 * time.Minute},
		Log:      log,
	}
}

// Open returns the line stream for one table kind and year.
func (c *Client) Open(ctx context.Context, sc *schema.RecordSchema, year int) (io.ReadCloser, error) {
	return c.open(ctx, fmt.Sprintf("%s%d", sc.FilePrefix, year))
}

// OpenCumulative returns the all-years stream for a cumulative kind
// (mdrfoithru2024.zip and friends).
func (c *Client) OpenCumulative(ctx context.Context, sc *schema.RecordSchema) (io.ReadCloser, error) {
	return c.open(ctx, fmt.Sprintf("%sthru%d", sc.FilePrefix, c.ThruYear))
}

// open returns a reader for <name>.txt in the data dir, downloading and
// extracting <name>.zip first if needed.
func (c *Client) open(ctx context.Context, name string) (io.ReadCloser, error) {
	txtPath := filepath.Join(c.DataDir, name+".txt")

	if _, err := os.Stat(txtPath); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat %s: %w", txtPath, err)
		}
		if !c.Download {
			return nil, fmt.Errorf("%s not found in %s (pass --download to fetch it)", name+".txt", c.DataDir)
		}
		if err := c.download(ctx, name); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(txtPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", txtPath, err)
	}
	return f, nil
}

// download fetches <name>.zip and extracts its .txt entries into the data
// dir. The zip is removed after extraction; only the text files are cached.
func (c *Client) download(ctx context.Context, name string) error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	url := fmt.Sprintf("%s/%s.zip", c.BaseURL, name)
	zipPath := filepath.Join(c.DataDir, name+".zip")

	c.Log.Info().Str("url", url).Msg("downloading")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %s", url, resp.Status)
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", zipPath, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(zipPath)
		return fmt.Errorf("save %s: %w", zipPath, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", zipPath, err)
	}
	defer os.Remove(zipPath)

	if err := c.extract(zipPath); err != nil {
		return err
	}

	c.Log.Info().Str("archive", name+".zip").Msg("downloaded and extracted")
	return nil
}

func (c *Client) extract(zipPath string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open zip %s: %w", zipPath, err)
	}
	defer zr.Close()

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() || !strings.EqualFold(filepath.Ext(entry.Name), ".txt") {
			continue
		}
		// Archive entry casing drifts (MDRFOI.TXT vs mdrfoi.txt).
		dst := filepath.Join(c.DataDir, strings.ToLower(filepath.Base(entry.Name)))

		if err := extractEntry(entry, dst); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(entry *zip.File, dst string) error {
	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", entry.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	return out.Close()
}
