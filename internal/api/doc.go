// Package api is the HTTP surface for document ingestion, asset retrieval,
// and migration. It translates between gin requests and the ingest,
// migration, and asset packages.
//
// Every JSON response uses the envelope {success, message, data|error}.
// Status codes follow services.HTTPStatus: validation and archive structure
// problems are 400, unknown ids are 404, upstream fetch failures are 502, and
// anything else is 500. Per-image failures are not request failures; they
// appear inside data.
//
// # Authentication
//
// When an API token is configured, every write and every migration route
// requires "Authorization: Bearer <token>". Image reads and health stay open
// so rewritten documents render for anonymous readers. The acting author is
// taken from the X-Author-ID header.
//
// # Locations
//
// Rewritten image locations are absolute. The origin comes from the
// configured public base URL when set, otherwise from the request
// (X-Forwarded-Proto and X-Forwarded-Host are honored).
package api
