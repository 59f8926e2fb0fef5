package bandit

import (
	"context"
	"testing"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/database/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStates struct {
	byUserSlot map[string][]*types.BanditState
	updates    []string
}

func key(userID string, slot enum.AttributeSlot) string {
	return userID + "/" + string(slot)
}

func (s *stubStates) GetSlot(_ context.Context, userID string, slot enum.AttributeSlot) ([]*types.BanditState, error) {
	return s.byUserSlot[key(userID, slot)], nil
}

func (s *stubStates) SeedUniform(_ context.Context, userID string, slot enum.AttributeSlot, value string) error {
	if s.byUserSlot == nil {
		s.byUserSlot = map[string][]*types.BanditState{}
	}

	k := key(userID, slot)
	for _, st := range s.byUserSlot[k] {
		if st.Value == value {
			return nil
		}
	}

	s.byUserSlot[k] = append(s.byUserSlot[k], &types.BanditState{UserID: userID, Slot: slot, Value: value, Alpha: 1, Beta: 1})

	return nil
}

func (s *stubStates) Update(_ context.Context, userID string, slot enum.AttributeSlot, value string, success bool) error {
	s.updates = append(s.updates, key(userID, slot)+"/"+value)

	for _, st := range s.byUserSlot[key(userID, slot)] {
		if st.Value != value {
			continue
		}

		if success {
			st.Alpha++
		} else {
			st.Beta++
		}
	}

	return nil
}

func TestSeedFromProfile_InsertsUniformPriorPerValue(t *testing.T) {
	states := &stubStates{}
	store := New(states, zap.NewNop())

	err := store.SeedFromProfile(context.Background(), "u1", enum.SlotGarment, []string{"blazer", "dress", ""})
	require.NoError(t, err)

	assert.Len(t, states.byUserSlot[key("u1", enum.SlotGarment)], 2)
}

func TestSample_AlwaysReturnsAKnownValue(t *testing.T) {
	states := &stubStates{byUserSlot: map[string][]*types.BanditState{
		key("u1", enum.SlotGarment): {
			{UserID: "u1", Slot: enum.SlotGarment, Value: "blazer", Alpha: 10, Beta: 1},
			{UserID: "u1", Slot: enum.SlotGarment, Value: "dress", Alpha: 1, Beta: 10},
		},
	}}
	store := New(states, zap.NewNop())

	picks, err := store.Sample(context.Background(), "u1", []enum.AttributeSlot{enum.SlotGarment}, false)
	require.NoError(t, err)

	assert.Contains(t, []string{"blazer", "dress"}, picks[enum.SlotGarment])
}

func TestSample_MissingSlotIsOmitted(t *testing.T) {
	store := New(&stubStates{}, zap.NewNop())

	picks, err := store.Sample(context.Background(), "u1", []enum.AttributeSlot{enum.SlotGarment}, false)
	require.NoError(t, err)
	assert.NotContains(t, picks, enum.SlotGarment)
}

func TestUpdate_PositiveRewardIncrementsAlpha(t *testing.T) {
	states := &stubStates{byUserSlot: map[string][]*types.BanditState{
		key("u1", enum.SlotGarment): {{UserID: "u1", Slot: enum.SlotGarment, Value: "blazer", Alpha: 1, Beta: 1}},
	}}
	store := New(states, zap.NewNop())

	require.NoError(t, store.Update(context.Background(), "u1", enum.SlotGarment, "blazer", 1.0))

	assert.InDelta(t, 2.0, states.byUserSlot[key("u1", enum.SlotGarment)][0].Alpha, 0.001)
}

func TestSampleBeta_IsBoundedInUnitInterval(t *testing.T) {
	for range 1000 {
		v := sampleBeta(0.5, 3.2)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}
