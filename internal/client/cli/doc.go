// Package cli provides the interactive larder command-line client.
//
// It wires configuration, the local store, the remote authority client and
// the synchronization machinery into an interactive REPL that keeps working
// without connectivity. Offline mutations land in the pending queue and are
// replayed by a background scheduler once the server is reachable again.
//
// Key commands:
//   - list / add / show / move / rm — catalog items
//   - classify / declassify        — status records
//   - pending / sync               — inspect and drain the change queue
//   - mode                         — force offline operation
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
