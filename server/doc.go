/*
Package `server` exposes the command processor over TCP. Clients connect to the configured address (:9034 by
default), are greeted with a prompt, and send one command per line. Every line gets exactly one reply line followed
by a new prompt.

Two concurrency models are available and they behave identically from the client's point of view:

  - `reactor`: a single goroutine multiplexes the listening socket and every client socket with poll(2). Commands
    run on that goroutine, one at a time, so a slow command delays everybody.
  - `proactor`: every connection is served by its own goroutine, commands from different clients race for the
    graph store lock.

In both models the graph store lock is held for the whole evaluation of a command, including hull computations.

Colors are stripped from replies unless enabled in Config.

hey-hull doesn't try to protect itself from malicious users.
*/
package server
