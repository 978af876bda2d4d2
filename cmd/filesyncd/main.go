// Command filesyncd is the authoritative sync server (C6–C8): it accepts
// client POST/GET /logs, serves and accepts file transfers, and pushes
// websocket wake-up notifications to connected clients (spec.md §4.6–§4.8).
package main

func main() {
	if err := newRootCmd().Execute(); err != nil {
		exitOnError(err)
	}
}
