package vizier

import (
	"context"

	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/tansa-ml/vizier-go/vizierpb"
)

// CreateStudy registers a new study under the client's owner and
// returns the service's view of it. What happens on a duplicate
// display name is service-defined and passed through; the OSS service
// answers with the already existing study, which is also what makes
// the call safe to retry.
func (c *Client) CreateStudy(ctx context.Context, displayName string, spec *vizierpb.StudySpec) (*Study, error) {
	p, err := invoke(ctx, c, "CreateStudy", true, func(ctx context.Context) (*vizierpb.Study, error) {
		return c.service.CreateStudy(ctx, &vizierpb.CreateStudyRequest{
			Parent: c.ownerParent(),
			Study: &vizierpb.Study{
				DisplayName: displayName,
				StudySpec:   spec,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return studyFromProto(c, p)
}

// GetStudy reads one study. A missing name surfaces the service's
// not-found unchanged; IsNotFound recognizes it.
func (c *Client) GetStudy(ctx context.Context, name StudyName) (*Study, error) {
	p, err := invoke(ctx, c, "GetStudy", true, func(ctx context.Context) (*vizierpb.Study, error) {
		return c.service.GetStudy(ctx, &vizierpb.GetStudyRequest{Name: name.String()})
	})
	if err != nil {
		return nil, err
	}
	return studyFromProto(c, p)
}

// DeleteStudy removes a study and all of its trials.
func (c *Client) DeleteStudy(ctx context.Context, name StudyName) error {
	_, err := invoke(ctx, c, "DeleteStudy", true, func(ctx context.Context) (*emptypb.Empty, error) {
		return c.service.DeleteStudy(ctx, &vizierpb.DeleteStudyRequest{Name: name.String()})
	})
	return err
}

// StopStudy asks the service to stop a study and returns the study
// carrying the authoritative terminal state, COMPLETED or ABORTED as
// the service decides.
func (c *Client) StopStudy(ctx context.Context, name StudyName) (*Study, error) {
	p, err := invoke(ctx, c, "StopStudy", true, func(ctx context.Context) (*vizierpb.Study, error) {
		return c.service.StopStudy(ctx, &vizierpb.StopStudyRequest{Name: name.String()})
	})
	if err != nil {
		return nil, err
	}
	return studyFromProto(c, p)
}

// ListStudies lists the owner's studies, fetching pages lazily as the
// iterator is consumed.
func (c *Client) ListStudies(ctx context.Context, opts *ListOptions) *StudyIterator {
	it := &StudyIterator{ctx: ctx, c: c}
	if opts != nil {
		it.pageSize = opts.PageSize
	}
	return it
}

// Trials lists the study's trials, fetching pages lazily as the
// iterator is consumed. Re-invoking Trials restarts from the first
// page.
func (s *Study) Trials(ctx context.Context, opts *ListOptions) *TrialIterator {
	return s.c.ListTrials(ctx, s.Name, opts)
}

// Suggest asks for up to count new trial suggestions for this study.
func (s *Study) Suggest(ctx context.Context, count int, opts *SuggestOptions) ([]*Trial, error) {
	return s.c.SuggestTrials(ctx, s.Name, count, opts)
}

// CreateTrial registers a caller-constructed trial under this study.
func (s *Study) CreateTrial(ctx context.Context, params []Parameter) (*Trial, error) {
	return s.c.CreateTrial(ctx, s.Name, params)
}

// OptimalTrials returns the study's pareto-optimal trials.
func (s *Study) OptimalTrials(ctx context.Context) ([]*Trial, error) {
	return s.c.ListOptimalTrials(ctx, s.Name)
}

// Stop asks the service to stop the study and refreshes the handle
// with the authoritative state.
func (s *Study) Stop(ctx context.Context) error {
	fresh, err := s.c.StopStudy(ctx, s.Name)
	if err != nil {
		return err
	}
	*s = *fresh
	return nil
}

// Delete removes the study from the service. The handle keeps its last
// snapshot.
func (s *Study) Delete(ctx context.Context) error {
	return s.c.DeleteStudy(ctx, s.Name)
}

// Refresh re-reads the study from the service, picking up state
// transitions decided on the server side.
func (s *Study) Refresh(ctx context.Context) error {
	fresh, err := s.c.GetStudy(ctx, s.Name)
	if err != nil {
		return err
	}
	*s = *fresh
	return nil
}
