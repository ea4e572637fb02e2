// Package flexi is a file-routing web framework with server-side
// rendering, streaming, and partial hydration.
//
// Routes are discovered from directory conventions: a dedicated routes
// tree, an app tree, and a legacy pages tree, in that priority order.
// Page and API files register their Go implementations against the app's
// ModuleRegistry; the scanner binds URL templates like /blog/:slug to
// those modules and the dispatcher serves them through middleware, data
// hooks, and the HTML renderer.
//
// A minimal application:
//
//	app := flexi.New(flexi.Config{
//		Routes: flexi.RoutesConfig{RoutesDir: "app/routes"},
//		Static: flexi.StaticConfig{Dir: "public"},
//	})
//	app.Registry().Page(router.ConventionRoutes, "index.go", &flexi.PageModule{
//		Component: func(ctx *flexi.Context, props flexi.Props) *markup.Node {
//			return markup.H1(markup.Text("hello"))
//		},
//	})
//	log.Fatal(app.ListenAndServe(context.Background()))
package flexi
