package vizier

import (
	"fmt"
	"regexp"
	"strings"
)

// Resource names follow the service's hierarchical grammar:
//
//	owners/{owner}/studies/{study}
//	owners/{owner}/studies/{study}/trials/{trial}
//
// Identifiers are restricted to ASCII letters, digits, dash, and
// underscore. Formatting a successfully parsed name reproduces the
// input string exactly.

var idRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const (
	collOwners  = "owners"
	collStudies = "studies"
	collTrials  = "trials"
)

// ResourceName is implemented by StudyName and TrialName.
type ResourceName interface {
	fmt.Stringer
	resourceName()
}

// StudyName identifies a study as owners/{owner}/studies/{study}.
// It is a value type, comparable with == and usable as a map key.
type StudyName struct {
	Owner string
	Study string
}

func (StudyName) resourceName() {}

// NewStudyName composes a StudyName from its parts.
func NewStudyName(owner, study string) StudyName {
	return StudyName{Owner: owner, Study: study}
}

// String formats the name in its wire form. For every string accepted
// by ParseStudyName, String returns the input unchanged.
func (n StudyName) String() string {
	return collOwners + "/" + n.Owner + "/" + collStudies + "/" + n.Study
}

// TrialName returns the name of the trial with the given id under this
// study.
func (n StudyName) TrialName(trial string) TrialName {
	return TrialName{Owner: n.Owner, Study: n.Study, Trial: trial}
}

// TrialName identifies a trial as
// owners/{owner}/studies/{study}/trials/{trial}.
// It is a value type, comparable with == and usable as a map key.
type TrialName struct {
	Owner string
	Study string
	Trial string
}

func (TrialName) resourceName() {}

// NewTrialName composes a TrialName from its parts.
func NewTrialName(owner, study, trial string) TrialName {
	return TrialName{Owner: owner, Study: study, Trial: trial}
}

// String formats the name in its wire form. For every string accepted
// by ParseTrialName, String returns the input unchanged.
func (n TrialName) String() string {
	return collOwners + "/" + n.Owner + "/" + collStudies + "/" + n.Study + "/" + collTrials + "/" + n.Trial
}

// StudyName returns the name of the trial's parent study.
func (n TrialName) StudyName() StudyName {
	return StudyName{Owner: n.Owner, Study: n.Study}
}

// ParseStudyName parses raw as a study name. The error is always a
// *ParseError; no remote call is involved.
func ParseStudyName(raw string) (StudyName, error) {
	ids, err := parseSegments(raw, collOwners, collStudies)
	if err != nil {
		return StudyName{}, err
	}
	return StudyName{Owner: ids[0], Study: ids[1]}, nil
}

// ParseTrialName parses raw as a trial name. The error is always a
// *ParseError; no remote call is involved.
func ParseTrialName(raw string) (TrialName, error) {
	ids, err := parseSegments(raw, collOwners, collStudies, collTrials)
	if err != nil {
		return TrialName{}, err
	}
	return TrialName{Owner: ids[0], Study: ids[1], Trial: ids[2]}, nil
}

// ParseResourceName parses raw as whichever of the two name forms its
// segment count implies.
func ParseResourceName(raw string) (ResourceName, error) {
	if strings.Count(raw, "/") == 5 {
		n, err := ParseTrialName(raw)
		if err != nil {
			return nil, err
		}
		return n, nil
	}
	n, err := ParseStudyName(raw)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// parseSegments splits raw on "/" and validates the alternating
// collection/identifier shape in one pass. want lists the expected
// collection literals in order; the returned slice holds the
// identifiers in the same order.
func parseSegments(raw string, want ...string) ([]string, error) {
	segs := strings.Split(raw, "/")
	if len(segs) != 2*len(want) {
		return nil, &ParseError{
			Name:   raw,
			Reason: fmt.Sprintf("expected %d segments, got %d", 2*len(want), len(segs)),
		}
	}
	ids := make([]string, 0, len(want))
	for i, coll := range want {
		if segs[2*i] != coll {
			return nil, &ParseError{
				Name:    raw,
				Segment: segs[2*i],
				Reason:  fmt.Sprintf("expected collection %q", coll),
			}
		}
		id := segs[2*i+1]
		if id == "" {
			return nil, &ParseError{
				Name:    raw,
				Segment: coll,
				Reason:  "empty identifier",
			}
		}
		if !idRe.MatchString(id) {
			return nil, &ParseError{
				Name:    raw,
				Segment: id,
				Reason:  "identifier must match [A-Za-z0-9_-]+",
			}
		}
		ids = append(ids, id)
	}
	return ids, nil
}
