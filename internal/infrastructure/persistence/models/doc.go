// Package models contains the GORM persistence models for products, sales,
// sale number sequences and stock reconciliations. Domain types stay free of
// ORM tags; each model converts to and from its domain type with ToDomain
// and FromDomain.
package models
