// Package appctx holds the state that every subsystem of an application
// shares: named caches, the atom table, telemetry and health checks.
//
// There is no hidden global cache. A Context is built once at startup and
// handed to the code that needs it:
//
//	app, err := appctx.New(ctx, appctx.Config{Subsystem: "render"})
//	if err != nil {
//	    return err
//	}
//	defer app.Close(ctx)
//
//	glyphs, err := appctx.Register[GlyphKey, Glyph](app, "glyphs", cache.Config[Glyph]{
//	    ShardBudget: 4 << 20,
//	})
//
// Registering a cache attaches a metrics recorder, publishes its usage as
// gauges and adds a budget health check. Default offers a lazily built
// Context for programs that do not want to thread one through.
package appctx
