// Command pgfederation serves the relations of a database catalog as an
// Apollo Federation subgraph.
//
// Every relation becomes an object type. Relations with a primary key become
// federated entities that a gateway can resolve through _entities, either by
// their primary key columns or by their globally unique node id. The SDL the
// subgraph advertises through _service can be printed with:
//
//	pgfederation sdl --catalog catalog.yaml
//
// and the endpoint started with:
//
//	pgfederation serve --catalog catalog.yaml --dsn postgres://localhost/app
package main
