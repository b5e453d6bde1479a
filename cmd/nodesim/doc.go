// Package main (cmd/nodesim) runs a local nildb cluster: N simulated storage
// nodes and a registration service that hands their URLs and DIDs to any
// organization.
//
//	vault keygen > org.json
//	nodesim --nodes 3 --org-did <did> --org-pubkey <public_key> --store sqlite:///tmp/nodesim/node-{node}.db
//	NILLION_REGISTRATION_URL=http://127.0.0.1:8080/api/config vault nodes
package main
