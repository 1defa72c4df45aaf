// Package registry is the service layer between the HTTP API and a store.
//
// Includes mutations run inside the store's unit of work: the committed graph
// is handed to the dependencies engine, which validates the mutation, and the
// store commits it only when it is accepted. Closures are computed on the
// loaded graph and cached until the next includes mutation.
//
//	reg := registry.New(store,
//		registry.WithCache(cache.NewMemoryCache(1024, time.Hour)),
//		registry.WithMetrics(metrics),
//	)
//	err := reg.AddInclude(ctx, trade.ID, bsp.ID)
//	var verr *dependencies.ValidationError
//	if errors.As(err, &verr) {
//		// rejected: verr.Kind is conflict or cycle
//	}
package registry
