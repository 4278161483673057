package crawler

import (
	"bytes"
	"context"
	"fmt"
	stdhtml "html"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/sokmotor/sokmotor/pipeline"
	"github.com/sokmotor/sokmotor/textnorm"
)

// Static and compile-time check to ensure extractor implements the
// pipeline.Processor interface.
var _ pipeline.Processor = (*extractor)(nil)

var repeatedSpaceRegex = regexp.MustCompile(`\s+`)

// swedishRatioThreshold is the stopword hit-ratio above which a page is
// tagged as Swedish.
const swedishRatioThreshold = 0.08

// extractor parses the fetched HTML: title (with og:title and first <h1>
// fallbacks), meta description, visible text, language, outbound links and
// the content hash used for change detection.
type extractor struct {
	indexer    MiniIndexer
	policyPool sync.Pool
}

func newExtractor(indexer MiniIndexer) *extractor {
	return &extractor{
		indexer: indexer,
		policyPool: sync.Pool{
			New: func() interface{} {
				return bluemonday.StrictPolicy()
			},
		},
	}
}

// Process extracts document fields from the raw page content. When the
// content hash matches the previous crawl of the same URL, the entry
// short-circuits as unchanged and the update stages skip it.
func (e *extractor) Process(_ context.Context, payload pipeline.Payload) (pipeline.Payload, error) {
	cp, ok := payload.(*crawlPayload)
	if !ok {
		return nil, nil
	}
	if cp.Outcome.terminal() {
		return cp, nil
	}

	base, err := url.Parse(cp.URL)
	if err != nil {
		cp.Outcome = OutcomeFailedPermanent
		cp.Reason = fmt.Sprintf("unparseable url: %v", err)

		return cp, nil
	}

	doc, err := html.Parse(bytes.NewReader(cp.RawContent.Bytes()))
	if err != nil {
		cp.Outcome = OutcomeFailedPermanent
		cp.Reason = fmt.Sprintf("unparseable html: %v", err)

		return cp, nil
	}

	var walk docWalk
	walk.visit(doc)

	// A <base href> tag overrides the page URL for relative resolution.
	if walk.baseHref != "" {
		if resolved := resolveLink(base, walk.baseHref); resolved != nil {
			base = resolved
		}
	}

	cp.Title = firstNonEmpty(walk.title, walk.ogTitle, walk.firstH1)
	cp.Description = strings.TrimSpace(walk.metaDescription)

	policy := e.policyPool.Get().(*bluemonday.Policy)
	cleaned := repeatedSpaceRegex.ReplaceAllString(
		policy.Sanitize(cp.RawContent.String()), " ",
	)
	e.policyPool.Put(policy)

	cp.TextContent = strings.TrimSpace(stdhtml.UnescapeString(cleaned))

	cp.Language = "und"
	if textnorm.StopwordRatio(cp.TextContent) >= swedishRatioThreshold {
		cp.Language = "sv"
	}

	cp.ContentHash = xxhash.Sum64String(cp.TextContent)
	if prev, exists := e.indexer.ContentHash(cp.URL); exists && prev == cp.ContentHash {
		cp.Outcome = OutcomeUnchanged
		cp.Reason = "content hash matches previous crawl"

		return cp, nil
	}

	e.collectLinks(cp, base, walk.links)

	return cp, nil
}

// collectLinks resolves the raw href values against the page URL and splits
// them into follow/nofollow and internal/external sets.
func (e *extractor) collectLinks(cp *crawlPayload, base *url.URL, links []rawLink) {
	srcDomain := registrableDomain(base.Hostname())

	seen := make(map[string]struct{}, len(links))
	for _, link := range links {
		resolved := resolveLink(base, link.href)
		if resolved == nil {
			continue
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			continue
		}

		resolved.Fragment = ""
		target := resolved.String()

		if assetURLRegex.MatchString(target) {
			continue
		}
		if _, exists := seen[target]; exists {
			continue
		}
		seen[target] = struct{}{}

		if link.noFollow {
			cp.NoFollowLinks = append(cp.NoFollowLinks, target)
		} else {
			cp.FollowLinks = append(cp.FollowLinks, target)
		}

		if registrableDomain(resolved.Hostname()) == srcDomain {
			cp.InternalLinks = append(cp.InternalLinks, target)
		} else {
			cp.ExternalLinks = append(cp.ExternalLinks, target)
		}
	}
}

// rawLink is an <a href> occurrence before resolution.
type rawLink struct {
	href     string
	noFollow bool
}

// docWalk accumulates the interesting nodes of a single DOM traversal.
type docWalk struct {
	title           string
	ogTitle         string
	firstH1         string
	metaDescription string
	baseHref        string
	links           []rawLink
}

func (w *docWalk) visit(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			if w.title == "" {
				w.title = strings.TrimSpace(textOf(n))
			}
		case "h1":
			if w.firstH1 == "" {
				w.firstH1 = strings.TrimSpace(textOf(n))
			}
		case "meta":
			w.visitMeta(n)
		case "base":
			if w.baseHref == "" {
				w.baseHref = attrValue(n, "href")
			}
		case "a":
			if href := strings.TrimSpace(attrValue(n, "href")); href != "" {
				w.links = append(w.links, rawLink{
					href:     href,
					noFollow: strings.Contains(attrValue(n, "rel"), "nofollow"),
				})
			}
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		w.visit(child)
	}
}

func (w *docWalk) visitMeta(n *html.Node) {
	name := strings.ToLower(attrValue(n, "name"))
	property := strings.ToLower(attrValue(n, "property"))
	content := attrValue(n, "content")

	switch {
	case name == "description" && w.metaDescription == "":
		w.metaDescription = content
	case property == "og:title" && w.ogTitle == "":
		w.ogTitle = strings.TrimSpace(content)
	}
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}

	return ""
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			sb.WriteString(child.Data)
		}
	}

	return sb.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

// resolveLink expands an href into an absolute URL. Network-path references
// ("//host/path") inherit the scheme of the page they appear on.
func resolveLink(base *url.URL, href string) *url.URL {
	if strings.HasPrefix(href, "//") {
		href = base.Scheme + ":" + href
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return nil
	}

	return base.ResolveReference(parsed)
}

// registrableDomain approximates the registrable part of a host name as its
// last two labels, so blog.example.se and www.example.se compare equal.
func registrableDomain(host string) string {
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}

	return strings.Join(labels[len(labels)-2:], ".")
}
