// Package main (cmd/vault) is a command-line client for a nildb cluster.
//
// Credentials come from a YAML file (--config), the NILLION_ORG_ID and
// NILLION_SECRET_KEY environment variables, or flags. Schema creation and
// lookup also need OPENAI_API_KEY.
//
//	vault keygen
//	vault nodes
//	vault create-schema --description "users with secret passwords"
//	vault lookup-schema --description "password manager"
//	vault upload --schema <uuid> --data '{"username":"alice","password":{"$share":"secret123"}}'
//	vault download --schema <uuid>
//
// Results are printed as JSON on stdout; logs go to stderr.
package main
