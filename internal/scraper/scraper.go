package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"gpx_viewer/internal/gpx"
)

const (
	DefaultBaseURL = "https://www.routes.cc"
	DefaultDelay   = time.Second
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent mimics a desktop browser; the listing site rejects bare clients.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Safari/537.36"

	routePrefix = "/routes/"

	maxPageBytes = 8 << 20
	maxGPXBytes  = 32 << 20
)

// ErrNotGPX is returned when a downloaded file does not decode as GPX.
var ErrNotGPX = errors.New("download is not a GPX document")

// Options configures a Scraper.
type Options struct {
	BaseURL   string
	OutDir    string
	UserAgent string
	Delay     time.Duration // pause after each download
	Timeout   time.Duration
}

// Summary counts the outcome of a Run.
type Summary struct {
	Found      int
	Downloaded int
	NoGPX      int
	Failed     int
	Files      []string
}

// Scraper harvests GPX files from a route listing site.
type Scraper struct {
	client    *http.Client
	base      *url.URL
	outDir    string
	userAgent string
	delay     time.Duration
	log       logrus.FieldLogger
}

// New validates opts and creates the output directory.
func New(opts Options, log logrus.FieldLogger) (*Scraper, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.OutDir == "" {
		return nil, errors.New("output directory is required")
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Delay < 0 {
		return nil, fmt.Errorf("delay must not be negative, got %s", opts.Delay)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	return &Scraper{
		client:    &http.Client{Timeout: opts.Timeout},
		base:      base,
		outDir:    opts.OutDir,
		userAgent: opts.UserAgent,
		delay:     opts.Delay,
		log:       log,
	}, nil
}

// Run collects route pages from startURL and downloads the GPX file of
// each. Only a failure to load the start page is fatal; per-route failures
// are logged and counted.
func (s *Scraper) Run(ctx context.Context, startURL string) (*Summary, error) {
	links, err := s.RouteLinks(ctx, startURL)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Found: len(links), Files: []string{}}
	s.log.WithField("count", len(links)).Info("Found routes")

	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		entry := s.log.WithField("route", link)

		gpxURL, err := s.GPXLink(ctx, link)
		if err != nil {
			entry.WithError(err).Warn("Run: failed to load route page")
			summary.Failed++
			continue
		}
		if gpxURL == "" {
			entry.Info("No GPX link found")
			summary.NoGPX++
			continue
		}

		file, err := s.Download(ctx, gpxURL, routeName(link))
		if err != nil {
			entry.WithError(err).Warn("Run: download failed")
			summary.Failed++
			continue
		}
		entry.WithField("file", file).Info("Downloaded")
		summary.Downloaded++
		summary.Files = append(summary.Files, file)

		if err := s.pause(ctx); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// RouteLinks returns the absolute, de-duplicated route page links found on
// pageURL, in document order.
func (s *Scraper) RouteLinks(ctx context.Context, pageURL string) ([]string, error) {
	doc, err := s.page(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var links []string
	for _, href := range anchors(doc) {
		if !strings.HasPrefix(href, routePrefix) {
			continue
		}
		abs, err := s.resolve(href)
		if err != nil {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	}
	return links, nil
}

// GPXLink returns the first link on routeURL that points at a .gpx file,
// or "" when there is none.
func (s *Scraper) GPXLink(ctx context.Context, routeURL string) (string, error) {
	doc, err := s.page(ctx, routeURL)
	if err != nil {
		return "", err
	}
	for _, href := range anchors(doc) {
		if strings.HasSuffix(href, ".gpx") {
			return s.resolve(href)
		}
	}
	return "", nil
}

// Download fetches gpxURL, checks that it decodes as GPX and stores it as
// <name>.gpx in the output directory.
func (s *Scraper) Download(ctx context.Context, gpxURL, name string) (string, error) {
	body, err := s.fetch(ctx, gpxURL, maxGPXBytes)
	if err != nil {
		return "", err
	}
	if _, err := gpx.Decode(bytes.NewReader(body)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotGPX, err)
	}

	dest := filepath.Join(s.outDir, name+".gpx")
	if err := os.WriteFile(dest, body, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	return dest, nil
}

func (s *Scraper) page(ctx context.Context, pageURL string) (*html.Node, error) {
	body, err := s.fetch(ctx, pageURL, maxPageBytes)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

func (s *Scraper) fetch(ctx context.Context, target string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status code %d", target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return body, nil
}

func (s *Scraper) resolve(href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return s.base.ResolveReference(ref).String(), nil
}

func (s *Scraper) pause(ctx context.Context) error {
	if s.delay == 0 {
		return nil
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// anchors returns the href of every <a> element in document order.
func anchors(doc *html.Node) []string {
	var hrefs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" && attr.Val != "" {
					hrefs = append(hrefs, attr.Val)
					break
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return hrefs
}

// routeName derives a file stem from the last path segment of a route URL.
func routeName(link string) string {
	name := ""
	if u, err := url.Parse(link); err == nil {
		name = path.Base(strings.TrimRight(u.Path, "/"))
	}
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.TrimLeft(name, ".")
	if name == "" || name == "/" {
		return "route"
	}
	return name
}
