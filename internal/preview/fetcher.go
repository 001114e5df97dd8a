// Package preview fetches page previews and extracts instant-view articles.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"tglink/internal/shared/logger"
	"tglink/internal/shared/types"
)

// Fetcher loads a page and builds a WebPage from its Open Graph tags and,
// when present, its article body.
type Fetcher struct {
	timeout   time.Duration
	userAgent string
}

func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{timeout: timeout, userAgent: userAgent}
}

// FetchPagePreview returns nil without error when the page does not exist.
func (f *Fetcher) FetchPagePreview(ctx context.Context, url string) (*types.WebPage, error) {
	l := logger.WithComponent("Preview")
	target := normalizeURL(url)

	// a fresh collector per call: colly callbacks accumulate on a shared one
	c := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(f.timeout)

	var (
		page       *types.WebPage
		parseErr   error
		statusCode int
	)

	c.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			parseErr = fmt.Errorf("failed to parse HTML document: %w", err)
			return
		}
		page = buildWebPage(r.Request.URL.String(), doc)
	})

	c.OnError(func(r *colly.Response, err error) {
		statusCode = r.StatusCode
		l.Debug().Err(err).Int("status_code", r.StatusCode).Str("url", target).Msg("Preview request failed.")
	})

	l.Debug().Str("url", target).Msg("Fetching page preview...")
	if err := c.Visit(target); err != nil {
		if statusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch preview for %s: %w", target, err)
	}
	c.Wait()

	if parseErr != nil {
		return nil, parseErr
	}
	if page != nil {
		l.Debug().Str("url", target).Bool("instant_view", page.InstantPage != nil).Msg("Page preview loaded.")
	}
	return page, nil
}

// normalizeURL adds a scheme to bare "telegra.ph/..." inputs and drops the
// fragment, which is never sent to the server.
func normalizeURL(raw string) string {
	raw, _, _ = strings.Cut(raw, "#")
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "https://" + raw
	}
	return raw
}

func buildWebPage(url string, doc *goquery.Document) *types.WebPage {
	page := &types.WebPage{
		URL:         url,
		State:       types.WebPageLoaded,
		Title:       metaContent(doc, "og:title"),
		Description: metaContent(doc, "og:description"),
		SiteName:    metaContent(doc, "og:site_name"),
	}
	if page.Title == "" {
		page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	page.InstantPage = extractInstantPage(doc, metaContent(doc, "og:image"))
	return page
}

func metaContent(doc *goquery.Document, property string) string {
	sel := doc.Find(fmt.Sprintf(`meta[property="%s"]`, property)).First()
	if sel.Length() == 0 {
		sel = doc.Find(fmt.Sprintf(`meta[name="%s"]`, property)).First()
	}
	content, _ := sel.Attr("content")
	return strings.TrimSpace(content)
}

// extractInstantPage reads the telegra.ph article layout:
//
//	<article id="_tl_editor"><h1>title</h1><address>author</address><p>...</p></article>
//
// It returns nil when the page has no article or the article is empty.
func extractInstantPage(doc *goquery.Document, imageURL string) *types.InstantPage {
	article := doc.Find("article#_tl_editor").First()
	if article.Length() == 0 {
		article = doc.Find("article").First()
	}
	if article.Length() == 0 {
		return nil
	}

	ip := &types.InstantPage{
		Title:    strings.TrimSpace(article.Find("h1").First().Text()),
		Author:   strings.TrimSpace(article.Find("address a").First().Text()),
		ImageURL: imageURL,
		Blocks:   []string{},
	}
	if ip.Author == "" {
		ip.Author = strings.TrimSpace(article.Find("address").First().Text())
	}

	article.Find("p, h3, h4, blockquote, pre, li").Each(func(_ int, sel *goquery.Selection) {
		// list items and quotes contain their own paragraphs; keep the innermost text once
		if sel.Is("p") && sel.ParentsFiltered("blockquote, li").Length() > 0 {
			return
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			ip.Blocks = append(ip.Blocks, text)
		}
	})

	if ip.Title == "" && len(ip.Blocks) == 0 {
		return nil
	}
	return ip
}
