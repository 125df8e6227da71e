// Package migrations registers the schema of the shop. Importing it for
// side effects makes every migration visible to migration.Registered.
package migrations
