// Package docs Forest Density Service API.
//
// Stores forest canopy density cells in PostGIS and answers canopy statistics
// for arbitrary polygons: mean canopy, area above a threshold and area per
// canopy class, all in square metres.
//
//	Schemes: http, https
//	BasePath: /
//	Version: 1.0.0
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
//
// swagger:meta
package docs
