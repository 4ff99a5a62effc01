// Package surface defines the browser capability boundary consumed by the
// mapping session (via the action proposer) and the execution engine. A
// Surface instance is exclusively owned by one session or one execution at a
// time; callers acquire it from a Factory at flow start and must Close it on
// every exit path.
package surface

import "context"

// PageState is a snapshot of browser-observable context. It feeds the action
// proposer during mapping and is not part of any compiled plan.
type PageState struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	DOMHash string `json:"dom_hash,omitempty"`
	DOM     string `json:"dom,omitempty"`
}

// Surface is the browser/HTTP capability set.
type Surface interface {
	// Navigate loads the given URL.
	Navigate(ctx context.Context, url string) error

	// Click clicks the element matching the locator.
	Click(ctx context.Context, locator string) error

	// Type fills the element matching the locator with text, clearing it first.
	Type(ctx context.Context, locator, text string) error

	// SelectOption selects the option with the given value.
	SelectOption(ctx context.Context, locator, value string) error

	// Scroll scrolls the page by amount pixels; direction is "up" or "down".
	Scroll(ctx context.Context, direction string, amount int) error

	// Extract returns the text content of the element matching the locator,
	// or the full page text when locator is empty.
	Extract(ctx context.Context, locator string) (string, error)

	// Download clicks the locator and returns the downloaded bytes and the
	// suggested file name.
	Download(ctx context.Context, locator string) ([]byte, string, error)

	// Upload sets the file input matching the locator to the given path.
	Upload(ctx context.Context, locator, filePath string) error

	// Screenshot captures the current viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)

	// State captures the current page state for the proposer.
	State(ctx context.Context) (PageState, error)

	// Close releases the surface and its underlying browser resources.
	Close(ctx context.Context) error
}

// Factory produces exclusively-owned Surface instances, one per flow.
type Factory interface {
	Acquire(ctx context.Context) (Surface, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context) (Surface, error)

func (f FactoryFunc) Acquire(ctx context.Context) (Surface, error) { return f(ctx) }
