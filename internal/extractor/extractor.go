// Package extractor reads the product-listing view into records, paging
// through a table or exhausting a card grid.
package extractor

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	lru "github.com/hashicorp/golang-lru/v2"

	"inventory-extractor/internal/config"
	"inventory-extractor/internal/metrics"
)

// controlProbe bounds lookups for pagination controls. Short on purpose: an
// absent Next button is the normal last-page case.
const controlProbe = 2 * time.Second

// seenPages caps the page-fingerprint dedup cache. Far larger than any
// listing this portal serves.
const seenPages = 1024

// Options configures extraction behavior.
type Options struct {
	RefreshTimeout   time.Duration
	OnStall          string // config.OnStallTruncate or config.OnStallFail
	LoadMoreAttempts int
	Selectors        config.Selectors
}

// Extractor reads records from the current page of a single browser session.
type Extractor struct {
	page    *rod.Page
	opts    Options
	seen    *lru.Cache[string, struct{}]
	metrics *metrics.Metrics
}

// New builds an extractor over the given page.
func New(page *rod.Page, opts Options, m *metrics.Metrics) (*Extractor, error) {
	seen, err := lru.New[string, struct{}](seenPages)
	if err != nil {
		return nil, fmt.Errorf("create dedup cache: %w", err)
	}
	return &Extractor{
		page:    page,
		opts:    opts,
		seen:    seen,
		metrics: m,
	}, nil
}

// Run detects the listing layout and applies the matching strategy. An empty
// listing yields an empty slice, not an error.
func (e *Extractor) Run() ([]Record, error) {
	hasTable, _, err := e.page.Has(e.opts.Selectors.Table.Root)
	if err != nil {
		return nil, fmt.Errorf("detect layout: %w", err)
	}
	if hasTable {
		slog.Info("table layout detected")
		return e.extractTable()
	}

	hasCards, _, err := e.page.Has(e.opts.Selectors.Cards.Card)
	if err != nil {
		return nil, fmt.Errorf("detect layout: %w", err)
	}
	if hasCards {
		slog.Info("card layout detected")
		return e.extractCards()
	}

	slog.Warn("no table or card layout found, nothing to extract")
	return []Record{}, nil
}

// extractCards triggers load-more (or scrolls) until the card count stops
// growing for a bounded number of attempts, then reads every card once.
func (e *Extractor) extractCards() ([]Record, error) {
	count, err := e.cardCount()
	if err != nil {
		return nil, fmt.Errorf("count cards: %w", err)
	}

	stale := 0
	for stale < e.opts.LoadMoreAttempts {
		e.triggerLoadMore()

		grown, err := e.waitCardGrowth(count)
		if err != nil {
			return nil, err
		}
		if !grown {
			stale++
			continue
		}
		count, err = e.cardCount()
		if err != nil {
			return nil, fmt.Errorf("count cards: %w", err)
		}
		stale = 0
	}

	records, err := e.readCards()
	if err != nil {
		return nil, fmt.Errorf("read cards: %w", err)
	}
	e.metrics.IncPage()
	e.metrics.AddRecords(len(records))
	slog.Info("card extraction complete", "records", len(records))
	return records, nil
}

func (e *Extractor) cardCount() (int, error) {
	obj, err := e.page.Eval(`(sel) => document.querySelectorAll(sel).length`, e.opts.Selectors.Cards.Card)
	if err != nil {
		return 0, err
	}
	return obj.Value.Int(), nil
}

// triggerLoadMore clicks an explicit load-more control when one exists,
// otherwise scrolls to the bottom for infinite-scroll layouts.
func (e *Extractor) triggerLoadMore() {
	sel := e.opts.Selectors.Cards
	if sel.LoadMore != "" && sel.LoadMoreMatch != "" {
		el, err := e.page.Timeout(controlProbe).ElementR(sel.LoadMore, sel.LoadMoreMatch)
		if err == nil {
			if visible, verr := el.Visible(); verr == nil && visible {
				if cerr := el.Click(proto.InputMouseButtonLeft, 1); cerr == nil {
					return
				}
			}
		}
	}
	_, _ = e.page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
}

func (e *Extractor) waitCardGrowth(prev int) (bool, error) {
	deadline := time.Now().Add(e.opts.RefreshTimeout)
	for time.Now().Before(deadline) {
		count, err := e.cardCount()
		if err != nil {
			return false, fmt.Errorf("count cards: %w", err)
		}
		if count > prev {
			return true, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return false, nil
}

func (e *Extractor) readCards() ([]Record, error) {
	sel := e.opts.Selectors.Cards
	obj, err := e.page.Eval(`(cardSel, nameSel, priceSel) =>
		Array.from(document.querySelectorAll(cardSel)).map(card => {
			const record = {};
			const name = card.querySelector(nameSel);
			if (name) record["Name"] = name.textContent.trim();
			const price = card.querySelector(priceSel);
			if (price) record["Price"] = price.textContent.trim();
			if (Object.keys(record).length === 0) record["Content"] = card.textContent.trim();
			return record;
		})
	`, sel.Card, sel.Name, sel.Price)
	if err != nil {
		return nil, err
	}

	records := []Record{}
	for _, v := range obj.Value.Arr() {
		record := Record{}
		for key, value := range v.Map() {
			record[key] = value.Str()
		}
		records = append(records, record)
	}
	return records, nil
}
