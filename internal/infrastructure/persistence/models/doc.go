// Package models holds the GORM row types. Every aggregate is stored as an
// item of the single entity_items table, keyed by partition and sort key;
// the JSON payload in data is owned by the entity store.
package models
