// Package postfilter is the client side of the postfilter service: it
// collects filter control state into criteria, submits it and keeps every
// result container's pagination in step with the responses.
//
// # Building blocks
//
// Collect turns typed control models into criteria. Client talks to the
// server endpoints. Controller tracks the registered result containers and
// runs their transports. Loop debounces control changes into submissions.
//
//	client := postfilter.New("https://shop.example",
//	    postfilter.WithLogger(slog.Default()),
//	)
//	ctrl := postfilter.NewController(client, view)
//	id := ctrl.Register(postfilter.Container{
//	    Widget:  "shop",
//	    Mode:    pagination.LoadMoreInfinite,
//	    Page:    1,
//	    MaxPage: 4,
//	    PageURL: "https://shop.example/catalog/",
//	})
//	loop := postfilter.NewLoop(ctrl, form)
//	defer loop.Stop()
//
//	// wire UI events
//	loop.Changed()         // a checkbox was toggled
//	loop.SortChanged()     // the order select changed
//	ctrl.GoTo(ctx, id, href)
package postfilter
