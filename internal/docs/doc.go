// Package docs serves RDF documents from a directory.
//
// A request path below the mount path names a file relative to the
// directory. Paths with a known extension (".ttl", ".nt", ".jsonld") are
// read as they are; extensionless paths are tried with every known
// extension in registry order, and a path ending in "/" looks for an
// "index" document. The file is parsed in the media type of its extension
// and answered in the media type negotiated from the Accept header.
//
// Handlers are usually wrapped in proxy.Forward so that documents written
// against a private base IRI are published under the public one:
//
//	h := proxy.Forward("http://vocab.internal/", "https://example.org/vocab/")(
//		docs.New("./vocab", docs.WithName("vocab")),
//	)
package docs
