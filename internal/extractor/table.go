package extractor

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"inventory-extractor/internal/config"
)

var errRefreshTimeout = errors.New("listing did not refresh")

// StallError reports a pagination refresh that never completed. Only surfaced
// under the "fail" stall policy; the default policy truncates instead.
type StallError struct {
	Page    int
	Timeout time.Duration
}

func (e *StallError) Error() string {
	return fmt.Sprintf("pagination refresh on page %d did not complete within %s", e.Page, e.Timeout)
}

// tablePager abstracts the per-page table operations so the pagination loop
// can be driven without a live page.
type tablePager interface {
	Headers() ([]string, error)
	Rows() ([][]string, error)
	// NextPage finds an enabled Next control and clicks it. ok is false on
	// the last page: control absent, hidden, or disabled.
	NextPage() (ok bool, err error)
	// WaitRefresh blocks until the rendered rows differ from prev.
	WaitRefresh(prev string) error
}

// extractTable reads every page of the table, clicking Next until the control
// disappears, disables itself, or the refresh stalls.
func (e *Extractor) extractTable() ([]Record, error) {
	t := &rodTable{
		page:           e.page,
		sel:            e.opts.Selectors.Table,
		refreshTimeout: e.opts.RefreshTimeout,
	}
	// First page may still be rendering; an empty listing is fine.
	t.waitRowsVisible()
	return e.paginate(t)
}

func (e *Extractor) paginate(t tablePager) ([]Record, error) {
	headers, err := t.Headers()
	if err != nil {
		return nil, fmt.Errorf("read table headers: %w", err)
	}

	var records []Record
	pageNum := 1
	for {
		rows, err := t.Rows()
		if err != nil {
			return records, fmt.Errorf("read rows on page %d: %w", pageNum, err)
		}

		fp := Fingerprint(rows)
		if _, dup := e.seen.Get(fp); dup {
			slog.Debug("page content already captured, skipping", "page", pageNum)
		} else if len(rows) > 0 {
			e.seen.Add(fp, struct{}{})
			records = append(records, BuildRecords(headers, rows)...)
			e.metrics.IncPage()
			e.metrics.AddRecords(len(rows))
			slog.Debug("page captured", "page", pageNum, "rows", len(rows))
		}

		ok, err := t.NextPage()
		if err != nil {
			slog.Warn("next control did not accept the click, treating as end of data", "page", pageNum, "error", err)
			break
		}
		if !ok {
			break
		}
		if err := t.WaitRefresh(fp); err != nil {
			if e.opts.OnStall == config.OnStallFail {
				e.metrics.IncError("extraction_stall")
				return records, &StallError{Page: pageNum, Timeout: e.opts.RefreshTimeout}
			}
			slog.Warn("pagination refresh timed out, treating as end of data; set --on-stall=fail to make this fatal",
				"page", pageNum, "timeout", e.opts.RefreshTimeout)
			e.metrics.IncError("extraction_stall")
			break
		}
		pageNum++
	}

	slog.Info("table extraction complete", "pages", pageNum, "records", len(records))
	return records, nil
}

// rodTable is the live-page pager.
type rodTable struct {
	page           *rod.Page
	sel            config.TableSelectors
	refreshTimeout time.Duration
}

func (t *rodTable) Headers() ([]string, error) {
	obj, err := t.page.Eval(`(sel) =>
		Array.from(document.querySelectorAll(sel)).map(el => el.textContent.trim())
	`, t.sel.Headers)
	if err != nil {
		return nil, err
	}

	var headers []string
	for _, v := range obj.Value.Arr() {
		headers = append(headers, v.Str())
	}
	return headers, nil
}

func (t *rodTable) Rows() ([][]string, error) {
	obj, err := t.page.Eval(`(sel) =>
		Array.from(document.querySelectorAll(sel)).map(row =>
			Array.from(row.querySelectorAll('td')).map(td => td.textContent.trim()))
	`, t.sel.Rows)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for _, r := range obj.Value.Arr() {
		var cells []string
		for _, c := range r.Arr() {
			cells = append(cells, c.Str())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func (t *rodTable) NextPage() (bool, error) {
	el, ok := t.nextControl()
	if !ok {
		return false, nil
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, err
	}
	return true, nil
}

// WaitRefresh polls until the rendered rows differ from the previous page.
func (t *rodTable) WaitRefresh(prev string) error {
	deadline := time.Now().Add(t.refreshTimeout)
	for time.Now().Before(deadline) {
		rows, err := t.Rows()
		if err == nil && len(rows) > 0 && Fingerprint(rows) != prev {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return errRefreshTimeout
}

// nextControl finds a visible, enabled Next control. Absence means last page.
func (t *rodTable) nextControl() (*rod.Element, bool) {
	page := t.page.Timeout(controlProbe)

	var el *rod.Element
	var err error
	if t.sel.NextMatch != "" {
		el, err = page.ElementR(t.sel.Next, t.sel.NextMatch)
	} else {
		el, err = page.Element(t.sel.Next)
	}
	if err != nil {
		return nil, false
	}

	if visible, err := el.Visible(); err != nil || !visible {
		return nil, false
	}
	if disabled, _ := el.Attribute("disabled"); disabled != nil {
		return nil, false
	}
	return el, true
}

func (t *rodTable) waitRowsVisible() {
	el, err := t.page.Timeout(t.refreshTimeout).Element(t.sel.Rows)
	if err != nil {
		return
	}
	_ = el.WaitVisible()
}
