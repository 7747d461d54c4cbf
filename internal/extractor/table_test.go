package extractor

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-extractor/internal/config"
)

// fakeTable scripts the per-page operations behind the pagination loop.
// Zero-valued knobs mean a well-behaved listing that ends after the last page.
type fakeTable struct {
	headers    []string
	pages      [][][]string
	idx        int
	stallOn    int   // 1-based page whose Next click never refreshes the listing
	disabledOn int   // 1-based page where the Next control reports disabled
	clickErr   error // returned by NextPage when set
}

func (f *fakeTable) Headers() ([]string, error) { return f.headers, nil }

func (f *fakeTable) Rows() ([][]string, error) { return f.pages[f.idx], nil }

func (f *fakeTable) NextPage() (bool, error) {
	if f.clickErr != nil {
		return false, f.clickErr
	}
	page := f.idx + 1
	if f.disabledOn != 0 && page == f.disabledOn {
		return false, nil
	}
	if f.idx == len(f.pages)-1 {
		return false, nil
	}
	return true, nil
}

func (f *fakeTable) WaitRefresh(prev string) error {
	if f.stallOn != 0 && f.idx+1 == f.stallOn {
		return errRefreshTimeout
	}
	f.idx++
	return nil
}

func newTestExtractor(t *testing.T, onStall string) *Extractor {
	t.Helper()
	e, err := New(nil, Options{
		RefreshTimeout:   5 * time.Second,
		OnStall:          onStall,
		LoadMoreAttempts: 3,
		Selectors:        config.DefaultSelectors(),
	}, nil)
	require.NoError(t, err)
	return e
}

func listingPage(page, rows int) [][]string {
	out := make([][]string, rows)
	for i := range out {
		out[i] = []string{fmt.Sprintf("SKU-%d-%d", page, i), fmt.Sprintf("Product %d-%d", page, i)}
	}
	return out
}

func TestPaginateCollectsPagesInOrder(t *testing.T) {
	e := newTestExtractor(t, config.OnStallTruncate)
	fake := &fakeTable{
		headers: []string{"ID", "Name"},
		pages:   [][][]string{listingPage(1, 10), listingPage(2, 10), listingPage(3, 10)},
	}

	records, err := e.paginate(fake)

	require.NoError(t, err)
	require.Len(t, records, 30)
	assert.Equal(t, "SKU-1-0", records[0]["ID"])
	assert.Equal(t, "SKU-2-0", records[10]["ID"])
	assert.Equal(t, "SKU-3-9", records[29]["ID"])
}

func TestPaginateTruncatesOnStall(t *testing.T) {
	e := newTestExtractor(t, config.OnStallTruncate)
	fake := &fakeTable{
		headers: []string{"ID", "Name"},
		pages:   [][][]string{listingPage(1, 10), listingPage(2, 10), listingPage(3, 10)},
		stallOn: 2,
	}

	records, err := e.paginate(fake)

	require.NoError(t, err)
	require.Len(t, records, 20)
	assert.Equal(t, "SKU-2-9", records[19]["ID"])
}

func TestPaginateFailsOnStall(t *testing.T) {
	e := newTestExtractor(t, config.OnStallFail)
	fake := &fakeTable{
		headers: []string{"ID", "Name"},
		pages:   [][][]string{listingPage(1, 10), listingPage(2, 10), listingPage(3, 10)},
		stallOn: 2,
	}

	records, err := e.paginate(fake)

	var stall *StallError
	require.ErrorAs(t, err, &stall)
	assert.Equal(t, 2, stall.Page)
	assert.Equal(t, 5*time.Second, stall.Timeout)
	// Records collected before the stall come back with the error.
	assert.Len(t, records, 20)
}

func TestPaginateSkipsRepeatedPage(t *testing.T) {
	e := newTestExtractor(t, config.OnStallTruncate)
	first := listingPage(1, 5)
	fake := &fakeTable{
		headers: []string{"ID", "Name"},
		pages:   [][][]string{first, listingPage(2, 5), first, listingPage(4, 5)},
	}

	records, err := e.paginate(fake)

	require.NoError(t, err)
	require.Len(t, records, 15)
	seen := 0
	for _, r := range records {
		if r["ID"] == "SKU-1-0" {
			seen++
		}
	}
	assert.Equal(t, 1, seen)
}

func TestPaginateStopsAtDisabledNext(t *testing.T) {
	e := newTestExtractor(t, config.OnStallTruncate)
	fake := &fakeTable{
		headers:    []string{"ID", "Name"},
		pages:      [][][]string{listingPage(1, 10), listingPage(2, 10), listingPage(3, 10)},
		disabledOn: 2,
	}

	records, err := e.paginate(fake)

	require.NoError(t, err)
	assert.Len(t, records, 20)
}

func TestPaginateTreatsClickFailureAsEndOfData(t *testing.T) {
	e := newTestExtractor(t, config.OnStallTruncate)
	fake := &fakeTable{
		headers:  []string{"ID", "Name"},
		pages:    [][][]string{listingPage(1, 10), listingPage(2, 10)},
		clickErr: errors.New("element detached"),
	}

	records, err := e.paginate(fake)

	require.NoError(t, err)
	assert.Len(t, records, 10)
}

func TestPaginateEmptyListing(t *testing.T) {
	e := newTestExtractor(t, config.OnStallTruncate)
	fake := &fakeTable{
		headers: []string{"ID", "Name"},
		pages:   [][][]string{{}},
	}

	records, err := e.paginate(fake)

	require.NoError(t, err)
	assert.Empty(t, records)
}
