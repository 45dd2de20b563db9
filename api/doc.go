// Package api defines the wire types and provider interfaces of the
// evidence sealing HTTP service, shared by the server and its clients.
//
// Endpoints:
//
//	POST /api/seal[?store=true]                                 seal a pack index
//	POST /api/verify                                            verify a sealed pack
//	GET  /api/packs/{content_id}                                fetch and re-verify a stored pack
//	POST /api/elections/{session_id}/votes                      cast a ballot
//	GET  /api/elections/{session_id}/audit                      re-walk the audit chain
//	POST /api/elections/{session_id}/receipts/{receipt_id}/confirm
//	POST /api/elections/{session_id}/snapshot                   seal and store the chain
package api
