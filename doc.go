/*
SagaNet is the backend of a multiplayer arena game. Clients, game servers and operators talk to it through named
controllers, each taking one JSON request envelope and answering with one JSON response envelope carrying a Status.

# Transports

Controllers are served as POST /api/{controller} and over a persistent websocket at /ws, where every frame carries
the Controller name and a RequestId echoed in the response. Prometheus metrics are served at /metrics.

# Authorization

Every controller is Public, Player or Server. Player controllers require a PlayerId and the SessionToken issued by
AuthPlayer; a token stays valid for 24 hours and a new AuthPlayer replaces it. Server controllers require the
ServerAuthKey of the deployment, which also passes every Player check.

# Storage

Entities live in table storage (Azure Tables, MongoDB, SQLite or memory) and are written with optimistic concurrency:
a write carries the ETag of the read it was based on, and a handler losing a race is re-run from scratch, up to a
fixed number of times, before the request fails with OccFail. Development, Test and Production tiers share the same
backends and are isolated by table name prefixes and id filtering.

# Processes

components/apiserver serves the controllers. cmd/saganet administers a deployment: access keys, the global
configuration, json blobs and the apiserver processes running on the host.
*/
package saganet
