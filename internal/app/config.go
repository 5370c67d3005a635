package app

import "net/http"

// Config carries everything NewWire needs to build the dependency graph.
// RelayURL may be empty, in which case no relay client is constructed and
// network commands fail with a hint to pass --relay.
type Config struct {
	Home     string       // key and state directory, e.g. $HOME/.skep
	RelayURL string       // relay base URL, e.g. http://127.0.0.1:8080
	HTTP     *http.Client // nil means http.DefaultClient
}
