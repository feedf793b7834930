package smtp

import (
	"io"
	"regexp"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/validator"
)

// ParsedEmail is the part of an inbound message the scoring pipeline reads
type ParsedEmail struct {
	SenderEmail string
	SenderName  string
	Subject     string
	// Body is the plain text, or the HTML with tags stripped
	Body        string
	Attachments []string
}

// FirstAttachment returns the first attachment name, or ""
func (p *ParsedEmail) FirstAttachment() string {
	if len(p.Attachments) == 0 {
		return ""
	}
	return p.Attachments[0]
}

var (
	fromHeaderRegex  = regexp.MustCompile(`^(?:"?([^"<]*)"?\s*)?<?([^<>]+@[^<>]+)>?$`)
	scriptStyleRegex = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRegex         = regexp.MustCompile(`<[^>]*>`)
)

// ParseEmail parses an email from an io.Reader
func ParseEmail(r io.Reader) (*ParsedEmail, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, err
	}

	parsed := &ParsedEmail{
		Subject: validator.SanitizeString(env.GetHeader("Subject"), validator.MaxSubjectLength),
		Body:    validator.SanitizeText(plainBody(env.Text, env.HTML), validator.MaxBodyLength),
	}
	name, email := parseFromHeader(env.GetHeader("From"))
	parsed.SenderName = name
	parsed.SenderEmail = validator.NormalizeEmail(email)

	for _, att := range env.Attachments {
		if filename := validator.SanitizeFilename(att.FileName); filename != "" {
			parsed.Attachments = append(parsed.Attachments, filename)
		}
	}
	// Named inline parts count as attachments too
	for _, att := range env.Inlines {
		if filename := validator.SanitizeFilename(att.FileName); filename != "" {
			parsed.Attachments = append(parsed.Attachments, filename)
		}
	}

	return parsed, nil
}

// parseFromHeader extracts name and email from a From header
func parseFromHeader(from string) (name, email string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return "", ""
	}

	// "Name" <email@example.com> or Name <email@example.com>
	matches := fromHeaderRegex.FindStringSubmatch(from)
	if len(matches) >= 3 {
		name = strings.Trim(strings.TrimSpace(matches[1]), `"`)
		email = strings.TrimSpace(matches[2])
	} else {
		email = from
	}

	return name, email
}

// plainBody prefers the text part and falls back to stripped HTML
func plainBody(bodyText, bodyHTML string) string {
	if strings.TrimSpace(bodyText) != "" {
		return bodyText
	}
	if bodyHTML == "" {
		return ""
	}
	text := stripHTMLTags(bodyHTML)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// stripHTMLTags removes HTML tags from a string
func stripHTMLTags(html string) string {
	html = scriptStyleRegex.ReplaceAllString(html, "")
	html = tagRegex.ReplaceAllString(html, " ")

	// Decode common HTML entities
	html = strings.ReplaceAll(html, "&nbsp;", " ")
	html = strings.ReplaceAll(html, "&lt;", "<")
	html = strings.ReplaceAll(html, "&gt;", ">")
	html = strings.ReplaceAll(html, "&quot;", `"`)
	html = strings.ReplaceAll(html, "&#39;", "'")
	html = strings.ReplaceAll(html, "&amp;", "&")

	return html
}
