package surface

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/seventech-gov/browser-use/pkg/schema"
)

// PlaywrightFactory launches one dedicated Chromium browser per acquired
// surface, so no two concurrent flows ever share a live browser instance.
type PlaywrightFactory struct {
	mu       sync.Mutex
	pw       *playwright.Playwright
	headless bool
}

// NewPlaywrightFactory creates a factory. The Playwright driver is installed
// and started lazily on first Acquire.
func NewPlaywrightFactory(headless bool) *PlaywrightFactory {
	return &PlaywrightFactory{headless: headless}
}

// Acquire starts a fresh browser context and returns it as a Surface.
func (f *PlaywrightFactory) Acquire(ctx context.Context) (Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	if f.pw == nil {
		opts := &playwright.RunOptions{Verbose: false, Stdout: io.Discard, Stderr: io.Discard}
		if err := playwright.Install(opts); err != nil {
			f.mu.Unlock()
			return nil, schema.NewErrorf(schema.ErrCodeSurface, "install playwright: %s", err.Error()).WithCause(err)
		}
		pw, err := playwright.Run(opts)
		if err != nil {
			f.mu.Unlock()
			return nil, schema.NewErrorf(schema.ErrCodeSurface, "start playwright: %s", err.Error()).WithCause(err)
		}
		f.pw = pw
	}
	pw := f.pw
	f.mu.Unlock()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(f.headless),
	})
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeSurface, "launch browser: %s", err.Error()).WithCause(err)
	}

	bctx, err := browser.NewContext()
	if err != nil {
		_ = browser.Close()
		return nil, schema.NewErrorf(schema.ErrCodeSurface, "new browser context: %s", err.Error()).WithCause(err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		return nil, schema.NewErrorf(schema.ErrCodeSurface, "new page: %s", err.Error()).WithCause(err)
	}

	return &playwrightSurface{browser: browser, bctx: bctx, page: page}, nil
}

// playwrightSurface drives one exclusive browser context.
type playwrightSurface struct {
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
}

// callTimeout converts the context deadline into a per-call playwright
// timeout in milliseconds, so a hung driver call gives up when the step
// deadline elapses instead of waiting out playwright's 30s default. Nil when
// the context carries no deadline. Clamped to 1ms: playwright reads a zero
// timeout as "wait forever".
func callTimeout(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ms := time.Until(deadline).Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(float64(ms))
}

func (s *playwrightSurface) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	waitUntil := playwright.WaitUntilStateDomcontentloaded
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: waitUntil,
		Timeout:   callTimeout(ctx),
	}); err != nil {
		return schema.NewErrorf(schema.ErrCodeSurface, "navigate %s: %s", url, err.Error()).WithCause(err)
	}
	return nil
}

func (s *playwrightSurface) Click(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.page.Locator(locator).Click(playwright.LocatorClickOptions{Timeout: callTimeout(ctx)}); err != nil {
		return schema.NewErrorf(schema.ErrCodeSurface, "click %s: %s", locator, err.Error()).WithCause(err)
	}
	return nil
}

func (s *playwrightSurface) Type(ctx context.Context, locator, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.page.Locator(locator).Fill(text, playwright.LocatorFillOptions{Timeout: callTimeout(ctx)}); err != nil {
		return schema.NewErrorf(schema.ErrCodeSurface, "type into %s: %s", locator, err.Error()).WithCause(err)
	}
	return nil
}

func (s *playwrightSurface) SelectOption(ctx context.Context, locator, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Locator(locator).SelectOption(playwright.SelectOptionValues{
		Values: playwright.StringSlice(value),
	}, playwright.LocatorSelectOptionOptions{Timeout: callTimeout(ctx)})
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeSurface, "select %s: %s", locator, err.Error()).WithCause(err)
	}
	return nil
}

func (s *playwrightSurface) Scroll(ctx context.Context, direction string, amount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dy := float64(amount)
	if direction == "up" {
		dy = -dy
	}
	if err := s.page.Mouse().Wheel(0, dy); err != nil {
		return schema.NewErrorf(schema.ErrCodeSurface, "scroll %s: %s", direction, err.Error()).WithCause(err)
	}
	return nil
}

func (s *playwrightSurface) Extract(ctx context.Context, locator string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target := locator
	if target == "" {
		target = "body"
	}
	text, err := s.page.Locator(target).TextContent(playwright.LocatorTextContentOptions{Timeout: callTimeout(ctx)})
	if err != nil {
		return "", schema.NewErrorf(schema.ErrCodeSurface, "extract %s: %s", target, err.Error()).WithCause(err)
	}
	return text, nil
}

func (s *playwrightSurface) Download(ctx context.Context, locator string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	download, err := s.page.ExpectDownload(func() error {
		return s.page.Locator(locator).Click(playwright.LocatorClickOptions{Timeout: callTimeout(ctx)})
	}, playwright.PageExpectDownloadOptions{Timeout: callTimeout(ctx)})
	if err != nil {
		return nil, "", schema.NewErrorf(schema.ErrCodeSurface, "download via %s: %s", locator, err.Error()).WithCause(err)
	}
	path, err := download.Path()
	if err != nil {
		return nil, "", schema.NewErrorf(schema.ErrCodeSurface, "download path: %s", err.Error()).WithCause(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", schema.NewErrorf(schema.ErrCodeSurface, "read download: %s", err.Error()).WithCause(err)
	}
	return data, download.SuggestedFilename(), nil
}

func (s *playwrightSurface) Upload(ctx context.Context, locator, filePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.page.Locator(locator).SetInputFiles(filePath, playwright.LocatorSetInputFilesOptions{Timeout: callTimeout(ctx)}); err != nil {
		return schema.NewErrorf(schema.ErrCodeSurface, "upload to %s: %s", locator, err.Error()).WithCause(err)
	}
	return nil
}

func (s *playwrightSurface) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.page.Screenshot(playwright.PageScreenshotOptions{Timeout: callTimeout(ctx)})
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeSurface, "screenshot: %s", err.Error()).WithCause(err)
	}
	return data, nil
}

func (s *playwrightSurface) State(ctx context.Context) (PageState, error) {
	if err := ctx.Err(); err != nil {
		return PageState{}, err
	}
	content, err := s.page.Content()
	if err != nil {
		return PageState{}, schema.NewErrorf(schema.ErrCodeSurface, "page content: %s", err.Error()).WithCause(err)
	}
	title, _ := s.page.Title()
	sum := sha256.Sum256([]byte(content))
	return PageState{
		URL:     s.page.URL(),
		Title:   title,
		DOMHash: hex.EncodeToString(sum[:]),
		DOM:     content,
	}, nil
}

func (s *playwrightSurface) Close(ctx context.Context) error {
	var firstErr error
	if err := s.bctx.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.browser.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		return fmt.Errorf("close surface: %w", firstErr)
	}
	return nil
}
