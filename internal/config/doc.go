// Package config provides the configuration model of rdfproxy and its
// YAML loading.
//
// # Features
//
//   - YAML loading with ${VAR} and ${VAR:-default} substitution
//   - Defaults for every optional setting
//   - Validation that reports all problems at once
//   - File watching for hot-reload
//
// # Configuration Loading
//
//	cfg, err := config.Load("rdfproxy.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File Watching
//
//	watcher, err := config.NewWatcher(path, func(cfg *config.Config) {
//	    // swap the router
//	}, config.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := watcher.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer watcher.Stop()
package config
