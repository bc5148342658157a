package fetch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/clycites/geofetch/slot"
)

// Sub-slot suffixes used by Refresh.
const (
	CurrentSlotSuffix  = "/current"
	ForecastSlotSuffix = "/forecast"
)

// Refresh fetches current conditions and a forecast for one location
// concurrently. The requests run in the sub-slots "<slot>/current" and
// "<slot>/forecast". The first failure cancels the other request and is
// returned.
func (c *Coordinator) Refresh(ctx context.Context, slotName string, req RefreshRequest) (RefreshResult, error) {
	var out RefreshResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := c.CurrentConditions(gctx, subSlot(slotName, CurrentSlotSuffix), CurrentRequest{
			Location:  req.Location,
			Variables: req.Variables,
			Options:   req.Options,
		})
		out.Current = res
		return err
	})
	g.Go(func() error {
		res, err := c.Forecast(gctx, subSlot(slotName, ForecastSlotSuffix), ForecastRequest{
			Location: req.Location,
			Days:     req.Days,
			Hourly:   req.Hourly,
			Daily:    req.Daily,
			Options:  req.Options,
		})
		out.Forecast = res
		return err
	})

	err := g.Wait()
	return out, err
}

func subSlot(name, suffix string) string {
	if name == slot.Anonymous {
		return slot.Anonymous
	}
	return name + suffix
}
