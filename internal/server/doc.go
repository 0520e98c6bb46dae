// Package server runs the public HTTP listener of rdfproxy.
//
// The listener serves whatever handler was installed last; SetHandler
// swaps it atomically so a configuration reload never drops in-flight
// requests. NewRouter builds the gin engine that dispatches each mount
// path to its proxy or documents handler.
//
// # Usage
//
//	router, err := server.NewRouter(routes, logger)
//	if err != nil {
//	    return err
//	}
//	srv := server.New(server.Config{Address: ":8080"}, router, logger)
//	go srv.Start()
//	defer srv.Stop(shutdownCtx)
package server
