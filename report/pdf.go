package report

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightExporter prints HTML reports to PDF with headless Chromium
type PlaywrightExporter struct{}

func (PlaywrightExporter) Export(ctx context.Context, htmlPath, pdfPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
		return fmt.Errorf("could not install playwright with %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("could not start playwright with %w", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch()
	if err != nil {
		return fmt.Errorf("could not launch browser with %w", err)
	}
	defer browser.Close()

	page, err := browser.NewPage()
	if err != nil {
		return fmt.Errorf("could not create page with %w", err)
	}
	defer page.Close()

	absPath, err := filepath.Abs(htmlPath)
	if err != nil {
		return fmt.Errorf("could not get absolute path with %w", err)
	}
	if _, err = page.Goto("file://" + filepath.ToSlash(absPath)); err != nil {
		return fmt.Errorf("could not open report with %w", err)
	}

	// A4 with room for the header card
	_, err = page.PDF(playwright.PagePdfOptions{
		Path:            playwright.String(pdfPath),
		Format:          playwright.String("A4"),
		PrintBackground: playwright.Bool(true),
		Margin: &playwright.Margin{
			Top:    playwright.String("12mm"),
			Right:  playwright.String("12mm"),
			Bottom: playwright.String("12mm"),
			Left:   playwright.String("12mm"),
		},
	})
	if err != nil {
		return fmt.Errorf("could not generate PDF with %w", err)
	}
	return nil
}
