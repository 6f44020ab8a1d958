package player

import (
	"sort"

	"playkeeper/internal/config"
)

// Decision is the outcome of one bandwidth evaluation.
type Decision int

const (
	DecisionHold Decision = iota
	DecisionRaise
	DecisionLower
)

func (d Decision) String() string {
	switch d {
	case DecisionRaise:
		return "raise"
	case DecisionLower:
		return "lower"
	default:
		return "hold"
	}
}

// AdaptationPolicy converts bandwidth samples into quality decisions with
// asymmetric hysteresis: upgrades need real headroom above the sustained
// bitrate, downgrades trigger when the sample falls to a fraction of it.
// The band between the two thresholds holds, which keeps noisy estimates
// from oscillating between adjacent tiers.
type AdaptationPolicy struct {
	upgradeRatio   float64
	downgradeRatio float64
	tiers          []config.QualityTier
	initialTiers   []config.QualityTier
	floorHeight    int
}

func NewAdaptationPolicy(cfg config.PlaybackConfig) *AdaptationPolicy {
	p := &AdaptationPolicy{
		upgradeRatio:   cfg.UpgradeRatio,
		downgradeRatio: cfg.DowngradeRatio,
		tiers:          append([]config.QualityTier(nil), cfg.QualityTiers...),
		initialTiers:   append([]config.QualityTier(nil), cfg.InitialTiers...),
		floorHeight:    cfg.FloorHeight,
	}
	if p.upgradeRatio <= 1.0 {
		p.upgradeRatio = 1.3
	}
	if p.downgradeRatio <= 0 || p.downgradeRatio >= 1.0 {
		p.downgradeRatio = 0.7
	}
	sortTiers(p.tiers)
	sortTiers(p.initialTiers)
	return p
}

func sortTiers(tiers []config.QualityTier) {
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].MinBitrate > tiers[j].MinBitrate
	})
}

// Evaluate compares a bandwidth sample against the sustained bitrate of the
// current tier. Raising requires the sample to strictly exceed
// sustained*upgradeRatio; lowering triggers at or below
// sustained*downgradeRatio.
func (p *AdaptationPolicy) Evaluate(sampleBps, sustainedBps int64) Decision {
	if sampleBps <= 0 || sustainedBps <= 0 {
		return DecisionHold
	}
	if float64(sampleBps) > float64(sustainedBps)*p.upgradeRatio {
		return DecisionRaise
	}
	if float64(sampleBps) <= float64(sustainedBps)*p.downgradeRatio {
		return DecisionLower
	}
	return DecisionHold
}

// TierFor maps a bandwidth estimate to a target height using the
// steady-state threshold table. The floor height is returned when no
// threshold is met.
func (p *AdaptationPolicy) TierFor(bps int64) int {
	return tierFor(bps, p.tiers, p.floorHeight)
}

// InitialTierFor maps the first bandwidth estimate, before any playback,
// to a starting height. The table is coarser than the steady-state one.
func (p *AdaptationPolicy) InitialTierFor(bps int64) int {
	return tierFor(bps, p.initialTiers, p.floorHeight)
}

func tierFor(bps int64, tiers []config.QualityTier, floor int) int {
	for _, t := range tiers {
		if bps >= t.MinBitrate {
			return t.Height
		}
	}
	return floor
}

// ReferenceBitrate returns the sustained reference bitrate for a stream of
// the given height: the threshold of the nearest tier at or below it. A
// height below every tier (the floor) uses the lowest tier's threshold, so
// hysteresis keeps working for streams outside the table.
func (p *AdaptationPolicy) ReferenceBitrate(height int) int64 {
	var lowest int64
	for _, t := range p.tiers {
		if t.Height <= height {
			return t.MinBitrate
		}
		lowest = t.MinBitrate
	}
	return lowest
}

// NextLower returns the tier height immediately below height, or false when
// already at or below the lowest configured tier.
func (p *AdaptationPolicy) NextLower(height int) (int, bool) {
	for _, t := range p.tiers {
		if t.Height < height {
			return t.Height, true
		}
	}
	if p.floorHeight > 0 && p.floorHeight < height {
		return p.floorHeight, true
	}
	return 0, false
}
