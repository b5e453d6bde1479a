package actions

const schemaExample = `
    "1f105829-2698-47e5-8f35-c1665895f501", {
      "name": "My services",
      "keys": ["_id"],
      "schema": {
        "$schema": "http://json-schema.org/draft-07/schema#",
        "type": "array",
        "items": {
          "type": "object",
          "properties": {
            "_id": {"type": "string", "format": "uuid", "coerce": true},
            "username": {"type": "string"},
            "password": {"type": "string"}
          },
          "required": ["_id", "username", "password"],
          "additionalProperties": false
        }
      }
    }
`

const lookupSchemaDescription = `
This tool will return both a schema UUID and the corresponding JSON schema based on input
description.

A successful response will return the schema_uuid and the corresponding schema definition:
` + schemaExample + `
A failure response will return null for both values.
`

const createSchemaDescription = `
Create a schema in your privacy preserving database, called the Nillion SecretVault
(or nildb), based on a natural language description.

This tool will return both a schema UUID and the corresponding JSON schema based on input
description.

A successful response will return the schema_uuid and the corresponding schema definition:
` + schemaExample + `
A failure response will return null for both values.
`

const dataUploadDescription = `
Upload specified data into your privacy preserving database, called the Nillion SecretVault
(or nildb), using the specified schema UUID. The data must exactly fit the requirements of
the desired schema itself. Secret fields are given as {"$share": value}.

Success will return a list of created record UUIDs, failure is an error message.
`

const dataDownloadDescription = `
Download all the data from your privacy preserving database, called the Nillion SecretVault
(or nildb), using the specified schema UUID. You must know the schema UUID for the remote schema
that you require. If you do not have the schema UUID you must use the lookup_schema action.

Success will return the list of records with secret fields decrypted, failure is an error message.
`

const schemaDescriptionInput = `{
  "type": "object",
  "properties": {
    "schema_description": {
      "type": "string",
      "minLength": 1,
      "description": "a complete description of the desired nildb schema"
    }
  },
  "required": ["schema_description"]
}`

const dataUploadInput = `{
  "type": "object",
  "properties": {
    "schema_uuid": {
      "type": "string",
      "format": "uuid",
      "description": "the UUID obtained from the lookup_schema tool"
    },
    "data_to_store": {
      "type": "array",
      "items": {"type": "object"},
      "description": "data to store in the database that validates against desired schema"
    }
  },
  "required": ["schema_uuid", "data_to_store"]
}`

const dataDownloadInput = `{
  "type": "object",
  "properties": {
    "schema_uuid": {
      "type": "string",
      "format": "uuid",
      "description": "the UUID obtained from the lookup_schema tool"
    }
  },
  "required": ["schema_uuid"]
}`
