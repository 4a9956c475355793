package vizier

import (
	"context"

	"google.golang.org/api/iterator"

	"github.com/tansa-ml/vizier-go/vizierpb"
)

// ListOptions tunes paginated listing calls. The zero value (and a nil
// pointer) lets the service choose the page size.
type ListOptions struct {
	// PageSize caps the number of items fetched per remote call, not
	// the total number of items the iterator yields.
	PageSize int32
}

// ListTrials lists the study's trials, fetching pages lazily as the
// iterator is consumed.
func (c *Client) ListTrials(ctx context.Context, study StudyName, opts *ListOptions) *TrialIterator {
	it := &TrialIterator{ctx: ctx, c: c, study: study}
	if opts != nil {
		it.pageSize = opts.PageSize
	}
	return it
}

// TrialIterator walks a study's trials page by page. At most one page
// is buffered at a time; a new page is fetched only when the buffered
// one is exhausted. Not safe for concurrent use.
type TrialIterator struct {
	ctx      context.Context
	c        *Client
	study    StudyName
	pageSize int32

	items     []*Trial
	pageToken string
	started   bool
	err       error
}

// Next returns the next trial. It returns iterator.Done once all
// trials have been yielded. Any other error is sticky: every
// subsequent call returns it again.
func (it *TrialIterator) Next() (*Trial, error) {
	if it.err != nil {
		return nil, it.err
	}
	for len(it.items) == 0 {
		if it.started && it.pageToken == "" {
			it.err = iterator.Done
			return nil, it.err
		}
		if err := it.fetch(); err != nil {
			it.err = err
			return nil, it.err
		}
	}
	t := it.items[0]
	it.items = it.items[1:]
	return t, nil
}

func (it *TrialIterator) fetch() error {
	resp, err := invoke(it.ctx, it.c, "ListTrials", true, func(ctx context.Context) (*vizierpb.ListTrialsResponse, error) {
		return it.c.service.ListTrials(ctx, &vizierpb.ListTrialsRequest{
			Parent:    it.study.String(),
			PageSize:  it.pageSize,
			PageToken: it.pageToken,
		})
	})
	if err != nil {
		return err
	}
	it.started = true
	it.pageToken = resp.NextPageToken
	it.items = it.items[:0]
	for _, p := range resp.Trials {
		t, err := trialFromProto(it.c, p)
		if err != nil {
			return err
		}
		it.items = append(it.items, t)
	}
	return nil
}

// StudyIterator walks an owner's studies page by page, buffering at
// most one page at a time. Not safe for concurrent use.
type StudyIterator struct {
	ctx      context.Context
	c        *Client
	pageSize int32

	items     []*Study
	pageToken string
	started   bool
	err       error
}

// Next returns the next study. It returns iterator.Done once all
// studies have been yielded. Any other error is sticky.
func (it *StudyIterator) Next() (*Study, error) {
	if it.err != nil {
		return nil, it.err
	}
	for len(it.items) == 0 {
		if it.started && it.pageToken == "" {
			it.err = iterator.Done
			return nil, it.err
		}
		if err := it.fetch(); err != nil {
			it.err = err
			return nil, it.err
		}
	}
	s := it.items[0]
	it.items = it.items[1:]
	return s, nil
}

func (it *StudyIterator) fetch() error {
	resp, err := invoke(it.ctx, it.c, "ListStudies", true, func(ctx context.Context) (*vizierpb.ListStudiesResponse, error) {
		return it.c.service.ListStudies(ctx, &vizierpb.ListStudiesRequest{
			Parent:    it.c.ownerParent(),
			PageSize:  it.pageSize,
			PageToken: it.pageToken,
		})
	})
	if err != nil {
		return err
	}
	it.started = true
	it.pageToken = resp.NextPageToken
	it.items = it.items[:0]
	for _, p := range resp.Studies {
		s, err := studyFromProto(it.c, p)
		if err != nil {
			return err
		}
		it.items = append(it.items, s)
	}
	return nil
}
