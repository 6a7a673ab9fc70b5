package led

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/flashlight/internal/gpio"
	"github.com/sweeney/flashlight/internal/logic"
)

// newClaimedTorch returns a torch on lines 12 (low) and 13 (high) of a fake chip.
func newClaimedTorch(t *testing.T) (*Torch, *gpio.FakeChip, *gpio.Manager) {
	t.Helper()
	chip := gpio.NewFakeChip(32)
	m := gpio.NewManager(chip, nil)
	require.NoError(t, m.Assign(12, 13))
	require.NoError(t, m.Acquire(gpio.DefaultConsumerLow, gpio.DefaultConsumerHigh))
	return NewTorch(m.Low(), m.High()), chip, m
}

func levels(chip *gpio.FakeChip) logic.Pattern {
	return logic.Pattern{Low: chip.Level(12), High: chip.Level(13)}
}

func TestTorchBoundaries(t *testing.T) {
	torch, chip, _ := newClaimedTorch(t)

	tests := []struct {
		v    logic.Brightness
		want logic.Pattern
	}{
		{0, logic.Pattern{Low: 0, High: 0}},
		{1, logic.Pattern{Low: 1, High: 0}},
		{49, logic.Pattern{Low: 1, High: 0}},
		{50, logic.Pattern{Low: 0, High: 1}},
		{255, logic.Pattern{Low: 0, High: 1}},
		{0, logic.Pattern{Low: 0, High: 0}},
	}

	for _, tt := range tests {
		require.NoError(t, torch.SetBrightness(tt.v))
		assert.Equal(t, tt.want, levels(chip), "brightness %d", tt.v)
		assert.Equal(t, tt.want, torch.Lines(), "brightness %d", tt.v)
		assert.Equal(t, tt.v, torch.State().Brightness)
	}
}

func TestTorchWholeRangeIsRepeatable(t *testing.T) {
	torch, chip, _ := newClaimedTorch(t)

	for i := 0; i <= 255; i++ {
		v := logic.Brightness(i)
		require.NoError(t, torch.SetBrightness(v))
		first := levels(chip)
		require.NoError(t, torch.SetBrightness(v))
		assert.Equal(t, first, levels(chip), "brightness %d", v)
		assert.Contains(t, []logic.Pattern{{Low: 0, High: 0}, {Low: 1, High: 0}, {Low: 0, High: 1}}, first)
	}
}

func TestTorchCustomTable(t *testing.T) {
	torch, chip, _ := newClaimedTorch(t)
	table, err := logic.NewTable(
		logic.Step{Min: 0, Tier: logic.TierOff},
		logic.Step{Min: 200, Tier: logic.TierHigh, Pattern: logic.Pattern{Low: 1, High: 1}},
	)
	require.NoError(t, err)
	_, err = torch.WithTable(table)
	require.NoError(t, err)

	require.NoError(t, torch.SetBrightness(199))
	assert.Equal(t, logic.Pattern{}, levels(chip))
	require.NoError(t, torch.SetBrightness(200))
	assert.Equal(t, logic.Pattern{Low: 1, High: 1}, levels(chip))
}

func TestTorchRejectsBadTable(t *testing.T) {
	tests := []struct {
		name  string
		table logic.Table
	}{
		{"empty", nil},
		{"starts above zero", logic.Table{{Min: 10, Tier: logic.TierHigh, Pattern: logic.Pattern{Low: 1, High: 1}}}},
		{"not ascending", logic.Table{{Min: 0, Tier: logic.TierOff}, {Min: 0, Tier: logic.TierLow, Pattern: logic.Pattern{Low: 1}}}},
		{"bad level", logic.Table{{Min: 0, Tier: logic.TierOff, Pattern: logic.Pattern{Low: 2}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			torch, chip, _ := newClaimedTorch(t)
			_, err := torch.WithTable(tt.table)
			require.ErrorIs(t, err, logic.ErrBadTable)

			// The default table is still in effect and nothing panics.
			require.NoError(t, torch.SetBrightness(0))
			assert.Equal(t, logic.Pattern{}, levels(chip))
			require.NoError(t, torch.SetBrightness(49))
			assert.Equal(t, logic.Pattern{Low: 1}, levels(chip))
			require.NoError(t, torch.SetBrightness(50))
			assert.Equal(t, logic.Pattern{High: 1}, levels(chip))
			assert.Equal(t, logic.TierHigh, torch.State().Step.Tier)
		})
	}
}

func TestTorchSetUnclaimedFails(t *testing.T) {
	torch := NewTorch(gpio.NewLine("low"), gpio.NewLine("high"))

	err := torch.SetBrightness(10)
	assert.ErrorIs(t, err, gpio.ErrNotClaimed)
}

func TestTorchRegisterRequiresClaimedLines(t *testing.T) {
	r := NewRegistry(nil)
	torch := NewTorch(gpio.NewLine("low"), gpio.NewLine("high"))

	assert.ErrorIs(t, torch.Register(r), ErrNotReady)
	assert.False(t, torch.Registered())
	assert.Empty(t, r.Names())
}

func TestTorchRegisterConflict(t *testing.T) {
	r := NewRegistry(nil)
	first, _, _ := newClaimedTorch(t)
	second, _, _ := newClaimedTorch(t)

	require.NoError(t, first.Register(r))
	err := second.Register(r)
	assert.ErrorIs(t, err, ErrRegistrationConflict)
	assert.False(t, second.Registered())

	assert.ErrorIs(t, first.Register(r), ErrRegistrationConflict)
}

func TestTorchRegisterAndSetThroughRegistry(t *testing.T) {
	r := NewRegistry(nil)
	torch, chip, _ := newClaimedTorch(t)
	require.NoError(t, torch.Register(r))

	assert.Equal(t, []string{TorchName}, r.Names())

	require.NoError(t, r.Set(TorchName, 75))
	assert.Equal(t, logic.Pattern{Low: 0, High: 1}, levels(chip))

	st, ok := r.Lookup(TorchName)
	require.True(t, ok)
	assert.Equal(t, logic.Brightness(75), st.Brightness)
	assert.Equal(t, logic.TierHigh, st.Step.Tier)
}

func TestTorchDeregisterTurnsOffAndIsIdempotent(t *testing.T) {
	r := NewRegistry(nil)
	torch, chip, _ := newClaimedTorch(t)
	require.NoError(t, torch.Register(r))
	require.NoError(t, r.Set(TorchName, 10))

	torch.Deregister()
	assert.False(t, torch.Registered())
	assert.Equal(t, logic.Pattern{}, levels(chip))
	assert.ErrorIs(t, r.Set(TorchName, 10), ErrNoSuchDevice)

	torch.Deregister()
	assert.Empty(t, r.Names())
	assert.Equal(t, logic.Pattern{}, levels(chip))
}

func TestRegistryDeregisterUnknown(t *testing.T) {
	r := NewRegistry(nil)
	assert.False(t, r.Deregister("led:nothing"))
}

func TestRegistrySetError(t *testing.T) {
	r := NewRegistry(nil)
	torch, chip, _ := newClaimedTorch(t)
	require.NoError(t, torch.Register(r))

	var events []Event
	r.Observe(func(e Event) { events = append(events, e) })

	chip.SetError = errors.New("io")
	assert.Error(t, r.Set(TorchName, 60))
	assert.Empty(t, events, "failed set must not notify")
}

func TestRegistryObserve(t *testing.T) {
	r := NewRegistry(nil)
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return at }

	var events []Event
	r.Observe(func(e Event) { events = append(events, e) })

	torch, _, _ := newClaimedTorch(t)
	require.NoError(t, torch.Register(r))
	require.NoError(t, r.Set(TorchName, 20))
	torch.Deregister()

	require.Len(t, events, 3)
	assert.Equal(t, EventRegistered, events[0].Kind)
	assert.True(t, events[0].Registered())
	assert.Equal(t, EventBrightness, events[1].Kind)
	assert.Equal(t, logic.Brightness(20), events[1].State.Brightness)
	assert.Equal(t, logic.TierLow, events[1].State.Step.Tier)
	assert.Equal(t, at, events[1].Time)
	assert.Equal(t, EventDeregistered, events[2].Kind)
	assert.False(t, events[2].Registered())
	assert.Equal(t, logic.TierOff, events[2].State.Step.Tier)
}
