package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/Riter/uni-informational-search/internal/crawler"
)

// seedRecord is one line of a urls_jsonl file.
type seedRecord struct {
	URL string `json:"url"`
}

// seedIfEmpty populates the frontier on first run. A non-empty frontier is
// left untouched so restarts never clobber in-flight schedules.
func (c *Controller) seedIfEmpty(ctx context.Context, logger *zap.Logger) error {
	count, err := c.frontier.Count(ctx)
	if err != nil {
		return fmt.Errorf("frontier count: %w", err)
	}
	if count > 0 {
		logger.Info("frontier already populated, skipping seed", zap.Int64("items", count))
		return nil
	}

	urls, err := c.seedURLs(logger)
	if err != nil {
		return err
	}

	allowed := allowSet(c.cfg.AllowedDomains)
	now := c.clock.Now()
	seeded := 0
	for _, raw := range urls {
		url := crawler.Canonicalize(raw)
		domain := crawler.DomainOf(url)
		if domain == "" {
			logger.Warn("skipping seed URL without host", zap.String("url", raw))
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[domain]; !ok {
				continue
			}
		}
		if err := c.frontier.Seed(ctx, url, domain, now); err != nil {
			return fmt.Errorf("seed %s: %w", url, err)
		}
		seeded++
	}
	logger.Info("frontier seeded", zap.Int("urls", seeded))
	return nil
}

// seedURLs returns the raw seed list: the JSONL file when configured,
// otherwise the explicit start URLs.
func (c *Controller) seedURLs(logger *zap.Logger) ([]string, error) {
	if c.cfg.URLsJSONL == "" {
		return c.cfg.StartURLs, nil
	}

	f, err := os.Open(c.cfg.URLsJSONL)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec seedRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			logger.Warn("skipping malformed seed line",
				zap.String("file", c.cfg.URLsJSONL),
				zap.Int("line", line),
				zap.Error(err),
			)
			continue
		}
		if rec.URL == "" {
			continue
		}
		urls = append(urls, rec.URL)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return urls, nil
}

func allowSet(domains []string) map[string]struct{} {
	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(d, "www.")
		if d != "" {
			set[d] = struct{}{}
		}
	}
	return set
}
