package guide

import (
	"errors"
	"fmt"
)

// ErrMsgGuidanceFailed is shown whenever the guidance request fails. The real
// cause is kept in State.LastFailure for diagnostics.
const ErrMsgGuidanceFailed = "Failed to get recycling guidance. Please try again."

// Step is one page of the form wizard, numbered from 1.
type Step int

const (
	StepItem Step = iota + 1
	StepMaterials
	StepDetails
	StepLocation
)

// NumSteps is the number of wizard steps. Submission happens from the last one.
const NumSteps = int(StepLocation)

// String returns a human-readable name for the Step.
func (s Step) String() string {
	switch s {
	case StepItem:
		return "Item"
	case StepMaterials:
		return "Materials"
	case StepDetails:
		return "Details"
	case StepLocation:
		return "Location"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// State is the whole workflow: the form plus request/result bookkeeping.
//
// Loading and a non-nil Guidance never hold at the same time. Generation
// changes on every submit and every reset; asynchronous results carry the
// generation they were requested under and are dropped when it no longer
// matches.
type State struct {
	Item        ItemDescription
	CurrentStep Step
	Guidance    *Guidance
	Loading     bool
	Error       string
	Generation  uint64
	LastFailure error
}

// NewState returns the initial workflow state: step 1 with an empty form.
func NewState() State {
	return State{CurrentStep: StepItem}
}

// HasResult reports whether the result view replaces the form.
func (s State) HasResult() bool {
	return s.Guidance != nil
}

// formLocked reports whether form edits and navigation are currently ignored.
func (s State) formLocked() bool {
	return s.Loading || s.HasResult()
}

// Action is a user or system event applied to State by Reduce.
type Action interface {
	isAction()
}

type (
	// UpdateField sets one single-valued form field.
	UpdateField struct {
		Field Field
		Value string
	}
	// ToggleMaterial adds or removes a material.
	ToggleMaterial struct {
		Material Material
	}
	// Advance moves to the next step.
	Advance struct{}
	// Back moves to the previous step.
	Back struct{}
	// Submit requests guidance for the current form.
	Submit struct{}
	// GuidanceReceived delivers a provider result for a request generation.
	GuidanceReceived struct {
		Generation uint64
		Guidance   *Guidance
	}
	// GuidanceFailed delivers a provider failure for a request generation.
	GuidanceFailed struct {
		Generation uint64
		Err        error
	}
	// Reset discards everything and starts over at step 1.
	Reset struct{}
)

func (UpdateField) isAction()      {}
func (ToggleMaterial) isAction()   {}
func (Advance) isAction()          {}
func (Back) isAction()             {}
func (Submit) isAction()           {}
func (GuidanceReceived) isAction() {}
func (GuidanceFailed) isAction()   {}
func (Reset) isAction()            {}

// Effect is work Reduce asks the caller to perform outside the reducer.
type Effect interface {
	isEffect()
}

// RequestGuidance asks the caller to fetch guidance for Description and feed
// the outcome back as GuidanceReceived or GuidanceFailed with Generation.
type RequestGuidance struct {
	Generation  uint64
	Description string
}

func (RequestGuidance) isEffect() {}

// IsStale reports whether a is a provider outcome that no longer belongs to s.
func IsStale(s State, a Action) bool {
	switch a := a.(type) {
	case GuidanceReceived:
		return !s.Loading || a.Generation != s.Generation
	case GuidanceFailed:
		return !s.Loading || a.Generation != s.Generation
	}
	return false
}

// Reduce applies a to s and returns the next state together with an optional
// effect. It never mutates s.
func Reduce(s State, a Action) (State, Effect) {
	switch a := a.(type) {
	case UpdateField:
		if s.formLocked() {
			return s, nil
		}
		if !s.Item.Set(a.Field, a.Value) {
			// Rejected values are not edits; a pending error stays visible.
			return s, nil
		}
		s.Error = ""
		return s, nil

	case ToggleMaterial:
		if s.formLocked() {
			return s, nil
		}
		if !s.Item.ToggleMaterial(a.Material) {
			return s, nil
		}
		s.Error = ""
		return s, nil

	case Advance:
		if s.formLocked() || int(s.CurrentStep) >= NumSteps {
			return s, nil
		}
		s.CurrentStep++
		return s, nil

	case Back:
		if s.formLocked() || s.CurrentStep <= StepItem {
			return s, nil
		}
		s.CurrentStep--
		return s, nil

	case Submit:
		if s.formLocked() || int(s.CurrentStep) != NumSteps {
			return s, nil
		}
		if err := CanSubmit(s.Item); err != nil {
			s.Error = err.Error()
			return s, nil
		}
		s.Loading = true
		s.Error = ""
		s.Guidance = nil
		s.LastFailure = nil
		s.Generation++
		return s, RequestGuidance{
			Generation:  s.Generation,
			Description: BuildDescription(s.Item),
		}

	case GuidanceReceived:
		if IsStale(s, a) {
			return s, nil
		}
		if err := a.Guidance.Validate(); err != nil {
			return failed(s, fmt.Errorf("unusable guidance: %w", err)), nil
		}
		s.Loading = false
		s.Error = ""
		s.LastFailure = nil
		s.Guidance = a.Guidance
		return s, nil

	case GuidanceFailed:
		if IsStale(s, a) {
			return s, nil
		}
		err := a.Err
		if err == nil {
			err = errors.New("guidance request failed")
		}
		return failed(s, err), nil

	case Reset:
		next := NewState()
		next.Generation = s.Generation + 1
		return next, nil
	}
	return s, nil
}

func failed(s State, cause error) State {
	s.Loading = false
	s.Guidance = nil
	s.Error = ErrMsgGuidanceFailed
	s.LastFailure = cause
	s.CurrentStep = Step(NumSteps)
	return s
}

// View is everything a rendering layer needs for one frame.
type View struct {
	Step     Step
	NumSteps int
	Item     ItemDescription
	Error    string
	Loading  bool
	Guidance *Guidance
	Map      *MapDirective

	CanBack    bool
	CanAdvance bool
	CanSubmit  bool
	CanReset   bool
}

// View projects the state for rendering.
func (s State) View() View {
	v := View{
		Step:     s.CurrentStep,
		NumSteps: NumSteps,
		Item:     s.Item,
		Error:    s.Error,
		Loading:  s.Loading,
		Guidance: s.Guidance,
	}
	if m, ok := MapQuery(s.Item.UserLocation); ok {
		v.Map = &m
	}
	locked := s.formLocked()
	v.CanBack = !locked && s.CurrentStep > StepItem
	v.CanAdvance = !locked && int(s.CurrentStep) < NumSteps
	v.CanSubmit = !locked && int(s.CurrentStep) == NumSteps
	v.CanReset = s.CurrentStep > StepItem || s.HasResult() || s.Loading
	return v
}
