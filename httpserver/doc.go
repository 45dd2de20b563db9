/*
Package httpserver serves the evidence sealing service over HTTP.

The Handler exposes the seal engine, the sealed pack store and the vote
audit recorder. The Server wraps it with access logging, health and drain
endpoints, optional pprof, and a separate Prometheus metrics listener.

# Error Mapping

Malformed input (bad hashes, missing artifact hashes, empty vote fields,
undecodable JSON) is answered with 400. Unknown sessions, receipts and
packs give 404. A second ballot by the same voter, or a cast that kept
losing the race for the chain tail, gives 409. Unreachable storage gives
503.

A failed verification is not an error: /api/verify answers 200 with the
full diagnostic and valid=false.
*/
package httpserver
