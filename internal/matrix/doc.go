// Package matrix controls the video crosspoint switcher.
//
// A crosspoint matrix connects any of N source inputs to any of M display
// outputs; "routing" means setting one output's active input. The package
// has three pieces:
//
//   - Client: the text-command-over-TCP protocol driver
//     ("SWITCH <input> <output>" -> "OK"/"ERR")
//   - Router: validation, the authoritative in-memory route table, and
//     per-output serialisation of hardware commands
//   - SQLiteRouteStore: route persistence so state survives restarts
//
// The route table matters beyond video: a CEC command travels whatever
// HDMI path is currently routed to the target output, so the control
// engine consults Router.CurrentRoute before CEC addressing is meaningful.
//
// Failure semantics: a rejected or timed-out switch leaves the previous
// route intact. There is no partial state.
package matrix
