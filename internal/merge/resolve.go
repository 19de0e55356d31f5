package merge

import "github.com/caravel-design/docengine/internal/merge/mergeorder"

// resolve computes the value (or, for S-ORDER, the sibling order) a
// conflict settles to under strategy. manualTarget breaks every Manual
// resolution (and PreferLocal/PreferRemote are themselves degenerate
// single-branch choices already named by strategy).
func resolve(c Conflict, strategy Strategy, manualTarget Strategy) Resolution {
	switch strategy {
	case PreferLocal:
		if c.Code == CodeSOrder {
			return Resolution{Conflict: c, Strategy: strategy, ResolvedOrder: c.LocalOrder, Confidence: c.Confidence}
		}
		return Resolution{Conflict: c, Strategy: strategy, ResolvedValue: c.LocalValue, Confidence: c.Confidence}
	case PreferRemote:
		if c.Code == CodeSOrder {
			return Resolution{Conflict: c, Strategy: strategy, ResolvedOrder: c.RemoteOrder, Confidence: c.Confidence}
		}
		return Resolution{Conflict: c, Strategy: strategy, ResolvedValue: c.RemoteValue, Confidence: c.Confidence}
	case PreferBase:
		if c.Code == CodeSOrder {
			return Resolution{Conflict: c, Strategy: strategy, ResolvedOrder: c.BaseOrder, Confidence: c.Confidence}
		}
		return Resolution{Conflict: c, Strategy: strategy, ResolvedValue: c.BaseValue, Confidence: c.Confidence}
	case MergeValues:
		if c.Code == CodeSOrder {
			order := mergeorder.Reconcile(c.BaseOrder, c.LocalOrder, c.RemoteOrder)
			return Resolution{Conflict: c, Strategy: strategy, ResolvedOrder: order, Confidence: c.Confidence}
		}
		return Resolution{Conflict: c, Strategy: strategy, ResolvedValue: c.LocalValue, Confidence: c.Confidence}
	default: // Manual
		if c.Code == CodeSOrder {
			order := c.LocalOrder
			if manualTarget == PreferRemote {
				order = c.RemoteOrder
			}
			return Resolution{Conflict: c, Strategy: Manual, ResolvedOrder: order, Confidence: 0}
		}
		value := c.LocalValue
		if manualTarget == PreferRemote {
			value = c.RemoteValue
		}
		return Resolution{Conflict: c, Strategy: Manual, ResolvedValue: value, Confidence: 0}
	}
}
