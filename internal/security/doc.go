// Package security decides which download URLs the catalog may point
// at. The remote catalog is untrusted input; without this gate it could
// redirect downloads at internal services or arbitrary endpoints.
package security
