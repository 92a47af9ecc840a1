// Package collyfetcher implements ingest.Getter using gocolly.
package collyfetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
	"github.com/JakeFAU/pokeapi-ingest/internal/metrics"
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	// Timeout bounds a single request; zero keeps the transport default.
	Timeout time.Duration
	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Getter issues JSON GETs through a Colly collector. One request per call, no retries.
type Getter struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Getter.
func New(cfg Config) *Getter {
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
	)
	transport := cfg.Transport
	if transport == nil {
		transport = newHTTPTransport()
	}
	c.WithTransport(transport)

	return &Getter{
		cfg:           cfg,
		baseCollector: c,
	}
}

// GetJSON fetches url and decodes the body into out.
func (g *Getter) GetJSON(ctx context.Context, url string, out any) error {
	body, err := g.fetch(ctx, url)
	if err != nil {
		metrics.ObserveUpstreamRequest(url, "error")
		return ingest.TransportError("get "+url, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		metrics.ObserveUpstreamRequest(url, "invalid_body")
		return ingest.TransportError("decode "+url, err)
	}
	metrics.ObserveUpstreamRequest(url, "ok")
	return nil
}

func (g *Getter) fetch(ctx context.Context, url string) ([]byte, error) {
	var (
		body     []byte
		fetchErr error
	)
	collector := g.buildCollector()
	g.configureCollectorHooks(collector, &body, &fetchErr)
	if err := g.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return nil, err
	}
	return body, nil
}

func (g *Getter) buildCollector() *colly.Collector {
	collector := g.baseCollector.Clone()
	if g.cfg.UserAgent != "" {
		collector.UserAgent = g.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !g.cfg.RespectRobots
	if g.cfg.Timeout > 0 {
		collector.SetRequestTimeout(g.cfg.Timeout)
	}
	return collector
}

func (g *Getter) configureCollectorHooks(hooks collectorHooks, body *[]byte, fetchErr *error) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "application/json")
	})

	hooks.OnResponse(func(r *colly.Response) {
		*body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			*fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		*fetchErr = err
	})
}

func (g *Getter) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
