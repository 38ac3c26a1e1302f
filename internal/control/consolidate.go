package control

import "log/slog"

// Report lists the outcome of Consolidate.
type Report struct {
	Removed  []Key
	NotFound []Key
}

// Consolidate removes the per-codec controls named by channels x kinds so
// the linked master volume is the only volume control left. Missing
// controls are logged and skipped; Consolidate never fails.
//
// It must not run concurrently with other mutations of reg.
func Consolidate(reg *Registry, channels []Channel, kinds []Kind) Report {
	var rep Report
	for _, ch := range channels {
		for _, k := range kinds {
			key := Key{Channel: ch, Kind: k}
			c, ok := reg.Find(key.Name())
			if !ok {
				slog.Info("control: not found", "card", reg.Card(), "control", key.Name())
				rep.NotFound = append(rep.NotFound, key)
				continue
			}
			reg.SetAccess(c, ReadWrite)
			reg.Remove(c)
			slog.Debug("control: removed", "card", reg.Card(), "control", key.Name())
			rep.Removed = append(rep.Removed, key)
		}
	}
	return rep
}
