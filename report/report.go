// Package report renders the day's recorded articles into a Markdown and
// HTML archive entry and keeps the archive index up to date.
package report

import (
	"bytes"
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/scipunch/rssmonitor/notify"
	"github.com/scipunch/rssmonitor/store"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var (
	markdownTmpl = template.Must(template.New("daily.md.tmpl").Funcs(template.FuncMap{"mdText": mdText, "mdLink": mdLink}).ParseFS(templatesFS, "templates/daily.md.tmpl"))
	htmlTmpl     = htmltemplate.Must(htmltemplate.ParseFS(templatesFS, "templates/daily.html.tmpl"))
	indexTmpl    = htmltemplate.Must(htmltemplate.ParseFS(templatesFS, "templates/index.html.tmpl"))
)

const (
	metaFile        = "meta.json"
	maxPreviewLines = 30
)

// Report describes one generated archive entry
type Report struct {
	Date         string
	Count        int
	MarkdownPath string
	HTMLPath     string
	PDFPath      string
	Markdown     string
	Digest       string
}

// Meta is written next to each archive entry so the index never re-parses
// rendered documents.
type Meta struct {
	Date        string `json:"date"`
	Count       int    `json:"count"`
	Markdown    string `json:"markdown"`
	HTML        string `json:"html"`
	LastUpdated string `json:"last_updated"`
}

// Digester condenses the article list; agent.Pipeline implements it.
type Digester interface {
	Names() []string
	Process(ctx context.Context, content string) (string, error)
}

// Exporter renders an HTML file to PDF
type Exporter interface {
	Export(ctx context.Context, htmlPath, pdfPath string) error
}

type Notifier interface {
	Notify(ctx context.Context, msg notify.Message) int
}

type Aggregator struct {
	store      store.Store
	archiveDir string
	indexPath  string
	baseURL    string
	loc        *time.Location
	notifier   Notifier
	digest     Digester
	pdf        Exporter
	logger     *slog.Logger
}

type Option func(*Aggregator)

// WithNotifier pushes a summary of every generated report
func WithNotifier(n Notifier) Option {
	return func(a *Aggregator) { a.notifier = n }
}

// WithBaseURL sets the public URL the index directory is served under
func WithBaseURL(u string) Option {
	return func(a *Aggregator) { a.baseURL = strings.TrimSuffix(u, "/") }
}

func WithDigest(d Digester) Option {
	return func(a *Aggregator) { a.digest = d }
}

func WithPDF(e Exporter) Option {
	return func(a *Aggregator) { a.pdf = e }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = logger }
}

// New creates an aggregator writing entries under archiveDir and the index at indexPath.
func New(st store.Store, archiveDir, indexPath string, loc *time.Location, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:      st,
		archiveDir: archiveDir,
		indexPath:  indexPath,
		loc:        loc,
		logger:     slog.Default(),
	}
	if a.loc == nil {
		a.loc = time.Local
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type articleView struct {
	Title      string
	Link       string
	ObservedAt string
}

type dailyView struct {
	Date        string
	Count       int
	LastUpdated string
	Digest      string
	Articles    []articleView
}

// Generate renders the archive entry for the calendar day of now and rebuilds the index.
// Running it again without new records produces identical files.
func (a *Aggregator) Generate(ctx context.Context, now time.Time) (Report, error) {
	day := now.In(a.loc)
	date := day.Format(time.DateOnly)
	rep := Report{Date: date}

	articles, err := a.store.Day(ctx, day)
	if err != nil {
		return rep, fmt.Errorf("failed to query articles for %s with %w", date, err)
	}

	view := dailyView{
		Date:        date,
		Count:       len(articles),
		LastUpdated: date + " 00:00:00",
		Articles:    make([]articleView, 0, len(articles)),
	}
	if len(articles) > 0 {
		view.LastUpdated = articles[0].ObservedAt.In(a.loc).Format(time.DateTime)
	}
	for _, art := range articles {
		view.Articles = append(view.Articles, articleView{
			Title:      art.Title,
			Link:       art.Link,
			ObservedAt: art.ObservedAt.In(a.loc).Format(time.DateTime),
		})
	}
	view.Digest = a.digestFor(ctx, date, articles)

	var md bytes.Buffer
	if err := markdownTmpl.Execute(&md, view); err != nil {
		return rep, fmt.Errorf("failed to render markdown with %w", err)
	}
	var html bytes.Buffer
	if err := htmlTmpl.Execute(&html, view); err != nil {
		return rep, fmt.Errorf("failed to render html with %w", err)
	}

	dir := filepath.Join(a.archiveDir, date)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return rep, fmt.Errorf("failed to create archive directory '%s' with %w", dir, err)
	}

	rep.Count = view.Count
	rep.Markdown = md.String()
	rep.Digest = view.Digest
	rep.MarkdownPath = filepath.Join(dir, "Daily_"+date+".md")
	rep.HTMLPath = filepath.Join(dir, "Daily_"+date+".html")

	_, statErr := os.Stat(rep.MarkdownPath)
	updated := statErr == nil

	if err := os.WriteFile(rep.MarkdownPath, md.Bytes(), 0644); err != nil {
		return rep, fmt.Errorf("failed to write markdown report with %w", err)
	}
	if err := os.WriteFile(rep.HTMLPath, html.Bytes(), 0644); err != nil {
		return rep, fmt.Errorf("failed to write html report with %w", err)
	}
	meta := Meta{
		Date:        date,
		Count:       view.Count,
		Markdown:    filepath.Base(rep.MarkdownPath),
		HTML:        filepath.Base(rep.HTMLPath),
		LastUpdated: view.LastUpdated,
	}
	if err := writeMeta(filepath.Join(dir, metaFile), meta); err != nil {
		return rep, err
	}
	a.logger.Info("daily report written", "date", date, "articles", view.Count, "path", rep.HTMLPath, "updated", updated)

	if a.pdf != nil {
		pdfPath := filepath.Join(dir, "Daily_"+date+".pdf")
		if err := a.pdf.Export(ctx, rep.HTMLPath, pdfPath); err != nil {
			a.logger.Error("failed to generate PDF", "error", err)
		} else {
			rep.PDFPath = pdfPath
		}
	}

	if err := WriteIndex(a.archiveDir, a.indexPath); err != nil {
		return rep, err
	}

	if a.notifier != nil {
		a.notifier.Notify(ctx, a.message(rep))
	}
	return rep, nil
}

// digestFor returns the agent digest for the day's articles, computing it
// once per distinct article set. Failures leave the report without a digest.
func (a *Aggregator) digestFor(ctx context.Context, date string, articles []store.Article) string {
	if a.digest == nil || len(articles) == 0 {
		return ""
	}

	var list strings.Builder
	h := sha256.New()
	for _, art := range articles {
		fmt.Fprintf(&list, "- [%s](%s)\n", art.Title, art.Link)
		h.Write([]byte(art.Link))
		h.Write([]byte{0})
	}
	key := date + ":" + hex.EncodeToString(h.Sum(nil))[:16]
	names := a.digest.Names()

	if cached, hit, _ := a.store.AgentOutput(ctx, key, names); hit {
		a.logger.Debug("digest cache hit", "date", date)
		return cached
	}

	out, err := a.digest.Process(ctx, list.String())
	if err != nil {
		a.logger.Error("failed to build digest, continuing without it", "date", date, "error", err)
		return ""
	}
	out = strings.TrimSpace(out)
	if err := a.store.SetAgentOutput(ctx, key, names, out); err != nil {
		a.logger.Warn("failed to cache digest", "error", err)
	}
	return out
}

// message builds the push for a report: a link to the HTML entry and a preview of its articles
func (a *Aggregator) message(rep Report) notify.Message {
	var body strings.Builder
	fmt.Fprintf(&body, "%d articles collected\n", rep.Count)
	fmt.Fprintf(&body, "Daily_%s: %s\n", rep.Date, a.reportURL(rep.HTMLPath))

	if preview := Preview(rep.Markdown, maxPreviewLines); preview != "" {
		body.WriteString("\nPreview:\n")
		body.WriteString(preview)
		body.WriteString("\n")
	}
	return notify.Message{
		Kind:  notify.KindReport,
		Title: "RSS Daily " + rep.Date,
		Body:  body.String(),
	}
}

func (a *Aggregator) reportURL(htmlPath string) string {
	rel := relativeTo(a.indexPath, htmlPath)
	if a.baseURL == "" {
		return rel
	}
	return a.baseURL + "/" + rel
}

// Preview returns the article lines of a rendered Markdown report, skipping
// the header, blank lines and the footer.
func Preview(markdown string, maxLines int) string {
	var (
		lines   []string
		started bool
	)
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			started = true
		}
		if !started || trimmed == "" || trimmed == "---" || strings.HasPrefix(trimmed, "Generated by") {
			continue
		}
		if len(lines) == maxLines {
			lines = append(lines, "...")
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func writeMeta(path string, meta Meta) error {
	blob, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report metadata with %w", err)
	}
	if err := os.WriteFile(path, append(blob, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write report metadata with %w", err)
	}
	return nil
}

var mdEscaper = strings.NewReplacer("[", `\[`, "]", `\]`, "\n", " ")

// mdText keeps a title from breaking Markdown link syntax
func mdText(s string) string {
	return mdEscaper.Replace(s)
}

var linkEscaper = strings.NewReplacer(" ", "%20", "\t", "%09", "\n", "%0A", "(", "%28", ")", "%29", "<", "%3C", ">", "%3E")

// mdLink percent-encodes the characters that end a Markdown link destination
func mdLink(s string) string {
	return linkEscaper.Replace(strings.TrimSpace(s))
}
