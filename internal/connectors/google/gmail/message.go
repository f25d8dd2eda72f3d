package gmail

import (
	"encoding/base64"
	"net/mail"
	"slices"
	"strings"
	"time"

	"golang.org/x/net/html"
	"google.golang.org/api/gmail/v1"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

// ToMailboxMessage converts a full-format Gmail message. Plain-text parts
// are preferred; HTML-only bodies are rendered to text.
func ToMailboxMessage(msg *gmail.Message) *domain.MailboxMessage {
	out := &domain.MailboxMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Labels:   msg.LabelIds,
		Unread:   slices.Contains(msg.LabelIds, LabelUnread),
	}
	if msg.Payload == nil {
		out.Body = msg.Snippet
		out.ReceivedAt = internalDate(msg.InternalDate)
		return out
	}

	var dateHeader string
	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "subject":
			out.Subject = h.Value
		case "from":
			out.From = h.Value
		case "to":
			out.To = h.Value
		case "date":
			dateHeader = h.Value
		case "list-unsubscribe":
			out.ListUnsubscribe = h.Value
		case "list-unsubscribe-post":
			out.ListUnsubscribePost = h.Value
		}
	}

	var parts bodyParts
	parts.walk(msg.Payload)
	out.HasAttachment = parts.attachment

	switch {
	case strings.TrimSpace(parts.plain) != "":
		out.Body = strings.TrimSpace(parts.plain)
	case parts.html != "":
		out.Body = HTMLToText(parts.html)
	default:
		out.Body = msg.Snippet
	}
	if parts.html != "" {
		out.UnsubscribeLinks = UnsubscribeLinks(parts.html)
	}

	out.ReceivedAt = internalDate(msg.InternalDate)
	if out.ReceivedAt.IsZero() && dateHeader != "" {
		if t, err := mail.ParseDate(dateHeader); err == nil {
			out.ReceivedAt = t.UTC()
		}
	}
	return out
}

func internalDate(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// bodyParts collects the first text/plain and text/html bodies of a MIME tree.
type bodyParts struct {
	plain      string
	html       string
	attachment bool
}

func (b *bodyParts) walk(p *gmail.MessagePart) {
	if p == nil {
		return
	}
	if p.Filename != "" {
		b.attachment = true
		return
	}
	mime := strings.ToLower(p.MimeType)
	if p.Body != nil && p.Body.Data != "" {
		switch {
		case strings.HasPrefix(mime, "text/plain") && b.plain == "":
			b.plain = decodeBody(p.Body.Data)
		case strings.HasPrefix(mime, "text/html") && b.html == "":
			b.html = decodeBody(p.Body.Data)
		}
	}
	for _, child := range p.Parts {
		b.walk(child)
	}
}

// decodeBody decodes base64url data, padded or not.
func decodeBody(data string) string {
	if raw, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(raw)
	}
	if raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "=")); err == nil {
		return string(raw)
	}
	return ""
}

// HTMLToText renders markup as text, one line per block element.
func HTMLToText(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "head", "noscript", "title":
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "br", "tr", "li", "table", "h1", "h2", "h3", "h4", "h5", "h6":
				sb.WriteByte('\n')
			}
		}
	}
	walk(doc)

	var lines []string
	for _, line := range strings.Split(sb.String(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// UnsubscribeLinks returns anchor hrefs whose target or text mentions
// unsubscribing, in document order and without duplicates.
func UnsubscribeLinks(markup string) []string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := attr(n, "href")
			if href != "" && mentionsUnsubscribe(href+" "+nodeText(n)) && !slices.Contains(links, href) {
				links = append(links, href)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

func mentionsUnsubscribe(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "unsubscribe") ||
		strings.Contains(s, "opt-out") ||
		strings.Contains(s, "opt out") ||
		strings.Contains(s, "გამოწერის გაუქმება")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
