package api

/*
Package `api` evaluates the hey-hull line protocol against the shared graph store.

There isn't an intermediate representation between reading and evaluating: a command line goes in, and a printable
response (or an error whose message is the response) comes out. Evaluation never writes to connections, that is
left to whichever dispatch model delivered the line, see the `reactor` and `proactor` packages.

Processor.Eval assumes the store lock is held by the caller for the whole command, Processor.Process takes it.
While a builder session is active only its owner is served, and only with bare coordinates; any other input from
the owner is rejected without mutation and everybody else is told that another client is creating a graph.
*/
