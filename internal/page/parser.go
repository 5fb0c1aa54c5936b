package page

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go-verifier/pkg/models"

	"golang.org/x/net/html"
)

// Fetcher reads the served document without running any script, so the
// browser's view can be compared with what the server actually sent.
type Fetcher struct {
	UserAgent string
	Client    *http.Client
}

func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		UserAgent: userAgent,
		Client:    &http.Client{Timeout: timeout},
	}
}

func (f *Fetcher) Parse(ctx context.Context, targetURL string) (models.PageData, error) {
	start := time.Now()
	body, statusCode, err := f.Fetch(ctx, targetURL)
	loadTime := time.Since(start)

	if err != nil {
		return models.PageData{URL: targetURL}, err
	}
	defer body.Close()

	data, err := Extract(body, targetURL)
	if err != nil {
		return models.PageData{URL: targetURL, StatusCode: statusCode}, err
	}

	data.LoadTime = loadTime
	data.StatusCode = statusCode
	return data, nil
}

func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.UserAgent)

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", targetURL, err)
	}
	return resp.Body, resp.StatusCode, nil
}

// Extract collects the title and the text a reader would see, skipping
// script and style bodies.
func Extract(r io.Reader, baseURL string) (models.PageData, error) {
	data := models.PageData{URL: baseURL}

	doc, err := html.Parse(r)
	if err != nil {
		return data, fmt.Errorf("parse html: %w", err)
	}

	var textBuilder strings.Builder

	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil && data.Title == "" {
			data.Title = strings.TrimSpace(n.FirstChild.Data)
		}

		if n.Type == html.TextNode {
			parent := n.Parent
			if parent != nil && parent.Data != "script" && parent.Data != "style" && parent.Data != "title" {
				text := strings.TrimSpace(n.Data)
				if len(text) > 0 {
					textBuilder.WriteString(text + " ")
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}

	visit(doc)

	data.TextContent = strings.TrimSpace(textBuilder.String())
	return data, nil
}

// ContainsText reports whether s appears in the static text of the page.
func ContainsText(data models.PageData, s string) bool {
	return s != "" && strings.Contains(data.TextContent, s)
}
