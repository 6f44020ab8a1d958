package player

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"playkeeper/internal/config"
)

func testPlaybackConfig() config.PlaybackConfig {
	return config.PlaybackConfig{
		MaxStreamErrors:    3,
		MaxBufferingEvents: 5,
		UpgradeRatio:       1.3,
		DowngradeRatio:     0.7,
		QualityTiers: []config.QualityTier{
			{MinBitrate: 5_000_000, Height: 1080},
			{MinBitrate: 2_500_000, Height: 720},
			{MinBitrate: 1_200_000, Height: 480},
			{MinBitrate: 700_000, Height: 360},
			{MinBitrate: 400_000, Height: 240},
		},
		InitialTiers: []config.QualityTier{
			{MinBitrate: 3_000_000, Height: 720},
			{MinBitrate: 1_000_000, Height: 480},
		},
		FloorHeight: 144,
	}
}

func TestEvaluateHysteresis(t *testing.T) {
	p := NewAdaptationPolicy(testPlaybackConfig())
	sustained := int64(2_500_000) // 720p reference

	tests := []struct {
		name   string
		sample int64
		want   Decision
	}{
		{"well above upgrade threshold", 4_000_000, DecisionRaise},
		{"exactly at upgrade threshold holds", 3_250_000, DecisionHold}, // 1.3x exactly, strict inequality
		{"just above upgrade threshold", 3_250_001, DecisionRaise},
		{"inside hysteresis band", 2_000_000, DecisionHold},
		{"exactly at downgrade threshold", 1_750_000, DecisionLower}, // 0.7x, inclusive
		{"below downgrade threshold", 1_000_000, DecisionLower},
		{"no sample", 0, DecisionHold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Evaluate(tt.sample, sustained))
		})
	}
}

func TestEvaluateWithoutSustainedReference(t *testing.T) {
	p := NewAdaptationPolicy(testPlaybackConfig())
	assert.Equal(t, DecisionHold, p.Evaluate(5_000_000, 0))
}

func TestTierFor(t *testing.T) {
	p := NewAdaptationPolicy(testPlaybackConfig())

	assert.Equal(t, 1080, p.TierFor(6_000_000))
	assert.Equal(t, 1080, p.TierFor(5_000_000)) // threshold inclusive
	assert.Equal(t, 720, p.TierFor(4_999_999))
	assert.Equal(t, 480, p.TierFor(1_500_000))
	assert.Equal(t, 240, p.TierFor(400_000))
	assert.Equal(t, 144, p.TierFor(100_000)) // floor when nothing matches
}

func TestInitialTierForIsCoarser(t *testing.T) {
	p := NewAdaptationPolicy(testPlaybackConfig())

	// The initial table never starts above 720 regardless of the sample.
	assert.Equal(t, 720, p.InitialTierFor(10_000_000))
	assert.Equal(t, 480, p.InitialTierFor(1_500_000))
	assert.Equal(t, 144, p.InitialTierFor(500_000))
}

func TestReferenceBitrate(t *testing.T) {
	p := NewAdaptationPolicy(testPlaybackConfig())

	assert.Equal(t, int64(2_500_000), p.ReferenceBitrate(720))
	assert.Equal(t, int64(400_000), p.ReferenceBitrate(240))

	// Off-table heights use the nearest tier at or below.
	assert.Equal(t, int64(2_500_000), p.ReferenceBitrate(999))
	assert.Equal(t, int64(5_000_000), p.ReferenceBitrate(1440))

	// The floor sits below every tier and borrows the lowest threshold.
	assert.Equal(t, int64(400_000), p.ReferenceBitrate(144))
}

func TestFloorHeightKeepsHysteresisAlive(t *testing.T) {
	p := NewAdaptationPolicy(testPlaybackConfig())
	ref := p.ReferenceBitrate(144)

	assert.Equal(t, DecisionRaise, p.Evaluate(5_000_000, ref),
		"a floor-height stream must be able to recover upward")
	assert.Equal(t, DecisionHold, p.Evaluate(450_000, ref))
}

func TestNextLower(t *testing.T) {
	p := NewAdaptationPolicy(testPlaybackConfig())

	h, ok := p.NextLower(1080)
	assert.True(t, ok)
	assert.Equal(t, 720, h)

	h, ok = p.NextLower(480)
	assert.True(t, ok)
	assert.Equal(t, 360, h)

	// Below the lowest tier the floor is the last stop.
	h, ok = p.NextLower(240)
	assert.True(t, ok)
	assert.Equal(t, 144, h)

	_, ok = p.NextLower(144)
	assert.False(t, ok)
}

func TestPolicyDefaultsForBadRatios(t *testing.T) {
	cfg := testPlaybackConfig()
	cfg.UpgradeRatio = 0.9   // must be > 1
	cfg.DowngradeRatio = 1.5 // must be < 1
	p := NewAdaptationPolicy(cfg)

	// Falls back to sane asymmetric defaults rather than oscillating.
	assert.Equal(t, DecisionHold, p.Evaluate(2_600_000, 2_500_000))
	assert.Equal(t, DecisionRaise, p.Evaluate(4_000_000, 2_500_000))
}
