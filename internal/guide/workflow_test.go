package guide

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGuidance() *Guidance {
	return &Guidance{
		Analysis: Analysis{
			ItemType:      "Beverage bottle",
			Recyclability: RecyclabilityRecyclable,
			Summary:       "PET bottles are widely recycled.",
		},
		Instructions: []string{"Empty and rinse", "Put in plastic recycling"},
	}
}

// apply runs actions in order and returns the final state and last effect.
func apply(s State, actions ...Action) (State, Effect) {
	var eff Effect
	for _, a := range actions {
		s, eff = Reduce(s, a)
	}
	return s, eff
}

// filledAtLastStep returns a valid form positioned at the final step.
func filledAtLastStep() State {
	s, _ := apply(NewState(),
		UpdateField{Field: FieldItemName, Value: "Bottle"},
		Advance{},
		ToggleMaterial{Material: MaterialPlastic},
		Advance{},
		Advance{},
	)
	return s
}

func TestNewState(t *testing.T) {
	s := NewState()
	assert.Equal(t, StepItem, s.CurrentStep)
	assert.True(t, s.Item.IsZero())
	assert.Nil(t, s.Guidance)
	assert.False(t, s.Loading)
	assert.Empty(t, s.Error)
}

func TestReduce_Navigation(t *testing.T) {
	s := NewState()

	s, _ = Reduce(s, Back{})
	assert.Equal(t, StepItem, s.CurrentStep, "cannot go before step 1")

	for i := 0; i < NumSteps+2; i++ {
		s, _ = Reduce(s, Advance{})
	}
	assert.Equal(t, Step(NumSteps), s.CurrentStep, "cannot go past the last step")

	s, _ = Reduce(s, Back{})
	assert.Equal(t, StepDetails, s.CurrentStep)
}

func TestReduce_NavigationDoesNotValidate(t *testing.T) {
	s, _ := apply(NewState(), Advance{}, Advance{}, Advance{})
	assert.Equal(t, StepLocation, s.CurrentStep)
	assert.Empty(t, s.Error)
}

func TestReduce_SubmitValidationFailure(t *testing.T) {
	s, _ := apply(NewState(), Advance{}, Advance{}, Advance{})

	s, eff := Reduce(s, Submit{})
	assert.Nil(t, eff, "no request is sent")
	assert.Equal(t, MsgItemNameRequired, s.Error)
	assert.False(t, s.Loading)
	assert.Equal(t, StepLocation, s.CurrentStep)

	s, _ = Reduce(s, UpdateField{Field: FieldItemName, Value: "Lamp"})
	assert.Empty(t, s.Error, "field edit clears the error")

	s, eff = Reduce(s, Submit{})
	assert.Nil(t, eff)
	assert.Equal(t, MsgMaterialsRequired, s.Error)

	s, _ = Reduce(s, ToggleMaterial{Material: MaterialElectronics})
	assert.Empty(t, s.Error, "toggling a material clears the error")
}

func TestReduce_RejectedValueKeepsError(t *testing.T) {
	s, _ := apply(NewState(), Advance{}, Advance{}, Advance{}, Submit{})
	require.Equal(t, MsgItemNameRequired, s.Error)

	s, _ = Reduce(s, UpdateField{Field: FieldSize, Value: "Gigantic"})
	assert.Equal(t, MsgItemNameRequired, s.Error, "unknown size changes nothing")
	assert.Empty(t, s.Item.Size)

	s, _ = Reduce(s, UpdateField{Field: FieldCondition, Value: "Pristine"})
	assert.Equal(t, MsgItemNameRequired, s.Error, "unknown condition changes nothing")

	s, _ = Reduce(s, UpdateField{Field: FieldSize, Value: string(SizeSmall)})
	assert.Empty(t, s.Error, "accepted size is an edit")
}

func TestReduce_SubmitOnlyFromLastStep(t *testing.T) {
	s, _ := apply(NewState(),
		UpdateField{Field: FieldItemName, Value: "Bottle"},
		ToggleMaterial{Material: MaterialPlastic},
	)
	s, eff := Reduce(s, Submit{})
	assert.Nil(t, eff)
	assert.False(t, s.Loading)
}

func TestReduce_SubmitEmitsRequest(t *testing.T) {
	s := filledAtLastStep()
	gen := s.Generation

	s, eff := Reduce(s, Submit{})
	require.IsType(t, RequestGuidance{}, eff)
	req := eff.(RequestGuidance)

	assert.True(t, s.Loading)
	assert.Empty(t, s.Error)
	assert.Nil(t, s.Guidance)
	assert.Equal(t, gen+1, s.Generation)
	assert.Equal(t, s.Generation, req.Generation)
	assert.Equal(t, "Item: Bottle\nMaterials: Plastic", req.Description)
}

func TestReduce_SecondSubmitWhileLoadingIgnored(t *testing.T) {
	s, _ := Reduce(filledAtLastStep(), Submit{})
	before := s

	s, eff := Reduce(s, Submit{})
	assert.Nil(t, eff)
	assert.Equal(t, before, s)
}

func TestReduce_EditsIgnoredWhileLoading(t *testing.T) {
	s, _ := Reduce(filledAtLastStep(), Submit{})

	s, _ = apply(s,
		UpdateField{Field: FieldItemName, Value: "Other"},
		ToggleMaterial{Material: MaterialGlass},
		Back{},
	)
	assert.Equal(t, "Bottle", s.Item.ItemName)
	assert.Equal(t, []Material{MaterialPlastic}, s.Item.Materials)
	assert.Equal(t, StepLocation, s.CurrentStep)
}

func TestReduce_Success(t *testing.T) {
	s, eff := Reduce(filledAtLastStep(), Submit{})
	req := eff.(RequestGuidance)
	g := sampleGuidance()

	s, eff = Reduce(s, GuidanceReceived{Generation: req.Generation, Guidance: g})
	assert.Nil(t, eff)
	assert.False(t, s.Loading)
	assert.Empty(t, s.Error)
	assert.Same(t, g, s.Guidance)
	assert.True(t, s.HasResult())

	// A duplicate delivery is no longer loading and is dropped.
	other := sampleGuidance()
	s2, _ := Reduce(s, GuidanceReceived{Generation: req.Generation, Guidance: other})
	assert.Same(t, g, s2.Guidance)
}

func TestReduce_Failure(t *testing.T) {
	s, eff := Reduce(filledAtLastStep(), Submit{})
	req := eff.(RequestGuidance)
	cause := errors.New("503 from provider")

	s, _ = Reduce(s, GuidanceFailed{Generation: req.Generation, Err: cause})
	assert.False(t, s.Loading)
	assert.Nil(t, s.Guidance)
	assert.Equal(t, ErrMsgGuidanceFailed, s.Error)
	assert.NotContains(t, s.Error, "503")
	assert.ErrorIs(t, s.LastFailure, cause)
	assert.Equal(t, StepLocation, s.CurrentStep)

	// Retry is possible from the error state.
	s, eff = Reduce(s, Submit{})
	assert.IsType(t, RequestGuidance{}, eff)
	assert.True(t, s.Loading)
	assert.Empty(t, s.Error)
}

func TestReduce_MalformedGuidanceIsFailure(t *testing.T) {
	s, eff := Reduce(filledAtLastStep(), Submit{})
	req := eff.(RequestGuidance)

	s, _ = Reduce(s, GuidanceReceived{Generation: req.Generation, Guidance: &Guidance{}})
	assert.Nil(t, s.Guidance)
	assert.False(t, s.Loading)
	assert.Equal(t, ErrMsgGuidanceFailed, s.Error)
	assert.Error(t, s.LastFailure)

	s, eff = Reduce(s, Submit{})
	req = eff.(RequestGuidance)
	s, _ = Reduce(s, GuidanceReceived{Generation: req.Generation, Guidance: nil})
	assert.Equal(t, ErrMsgGuidanceFailed, s.Error)
}

func TestReduce_ResetFromAnyState(t *testing.T) {
	loading, _ := Reduce(filledAtLastStep(), Submit{})
	withResult, _ := Reduce(loading, GuidanceReceived{Generation: loading.Generation, Guidance: sampleGuidance()})
	withError, _ := Reduce(loading, GuidanceFailed{Generation: loading.Generation, Err: errors.New("x")})

	states := map[string]State{
		"initial": NewState(),
		"filled":  filledAtLastStep(),
		"loading": loading,
		"result":  withResult,
		"error":   withError,
	}
	for name, s := range states {
		t.Run(name, func(t *testing.T) {
			next, eff := Reduce(s, Reset{})
			assert.Nil(t, eff)
			assert.Equal(t, ItemDescription{}, next.Item)
			assert.Equal(t, StepItem, next.CurrentStep)
			assert.Nil(t, next.Guidance)
			assert.False(t, next.Loading)
			assert.Empty(t, next.Error)
			assert.Nil(t, next.LastFailure)
			assert.Greater(t, next.Generation, s.Generation)
		})
	}
}

func TestReduce_StaleResultAfterReset(t *testing.T) {
	s, eff := Reduce(filledAtLastStep(), Submit{})
	req := eff.(RequestGuidance)

	s, _ = Reduce(s, Reset{})
	received := GuidanceReceived{Generation: req.Generation, Guidance: sampleGuidance()}
	assert.True(t, IsStale(s, received))

	after, _ := Reduce(s, received)
	assert.Nil(t, after.Guidance)
	assert.Empty(t, after.Error)
	assert.Equal(t, s, after)

	after, _ = Reduce(s, GuidanceFailed{Generation: req.Generation, Err: errors.New("late")})
	assert.Empty(t, after.Error)
	assert.Equal(t, s, after)
}

func TestReduce_StaleResultAfterResetAndResubmit(t *testing.T) {
	s, eff := Reduce(filledAtLastStep(), Submit{})
	first := eff.(RequestGuidance)

	s, _ = Reduce(s, Reset{})
	s, _ = apply(s,
		UpdateField{Field: FieldItemName, Value: "Can"},
		ToggleMaterial{Material: MaterialAluminum},
		Advance{}, Advance{}, Advance{},
	)
	s, eff = Reduce(s, Submit{})
	second := eff.(RequestGuidance)
	require.NotEqual(t, first.Generation, second.Generation)

	s, _ = Reduce(s, GuidanceReceived{Generation: first.Generation, Guidance: sampleGuidance()})
	assert.True(t, s.Loading, "old result must not complete the new request")
	assert.Nil(t, s.Guidance)
}

func TestReduce_ResultIgnoresEdits(t *testing.T) {
	s, _ := Reduce(filledAtLastStep(), Submit{})
	s, _ = Reduce(s, GuidanceReceived{Generation: s.Generation, Guidance: sampleGuidance()})

	next, eff := apply(s, UpdateField{Field: FieldQuantity, Value: "5"}, Back{}, Submit{})
	assert.Nil(t, eff)
	assert.Equal(t, s, next)
}

func TestView(t *testing.T) {
	v := NewState().View()
	assert.Equal(t, StepItem, v.Step)
	assert.Equal(t, NumSteps, v.NumSteps)
	assert.False(t, v.CanBack)
	assert.True(t, v.CanAdvance)
	assert.False(t, v.CanSubmit)
	assert.False(t, v.CanReset)
	assert.Nil(t, v.Map)

	s := filledAtLastStep()
	s, _ = Reduce(s, UpdateField{Field: FieldUserLocation, Value: "10001"})
	v = s.View()
	assert.True(t, v.CanBack)
	assert.False(t, v.CanAdvance)
	assert.True(t, v.CanSubmit)
	assert.True(t, v.CanReset)
	require.NotNil(t, v.Map)
	assert.Contains(t, v.Map.Query, "10001")

	s, _ = Reduce(s, Submit{})
	v = s.View()
	assert.True(t, v.Loading)
	assert.False(t, v.CanSubmit, "submit is disabled while loading")
	assert.False(t, v.CanBack)
	assert.True(t, v.CanReset)

	s, _ = Reduce(s, GuidanceReceived{Generation: s.Generation, Guidance: sampleGuidance()})
	v = s.View()
	assert.False(t, v.Loading)
	assert.NotNil(t, v.Guidance)
	assert.False(t, v.CanSubmit)
	assert.True(t, v.CanReset)
}
