// Package fetch coordinates requests to a rate-sensitive geocoding and
// weather upstream.
//
// A Coordinator exposes three operations, SearchLocations,
// CurrentConditions and Forecast. Each request is classified by resource
// kind and parameter fingerprint and then flows through the same pipeline:
//
//	validate -> supersede slot -> (debounce) -> cache -> in-flight join
//	  -> pacing -> throttle -> dispatch with timeout -> cache put
//	  -> deliver if the slot still holds the request
//
// # Slots
//
// Every call names a slot, a logical caller context such as "the search box"
// or "the displayed location". A newer request in a slot cancels the older
// one; the older call returns a Result with Superseded set and a nil error.
// The empty slot name is anonymous and never supersedes anything.
//
// # Failures
//
// Failed dispatches are broadcast to every caller sharing the fingerprint,
// never cached and never retried here. Errors match ErrValidation,
// ErrDispatch or ErrTimeout with errors.Is; a caller whose own context ends
// gets the context error.
//
// # Lifecycle
//
//	c, err := fetch.New(client, fetch.DefaultConfig(), fetch.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	c.Start(ctx)       // periodic cache sweeps
//	defer c.Stop()
//
//	res, err := c.CurrentConditions(ctx, "home", fetch.CurrentRequest{
//	    Location:  &fingerprint.Coordinates{Latitude: 0.3476, Longitude: 32.5825},
//	    Variables: []string{"temperature_2m"},
//	})
package fetch
