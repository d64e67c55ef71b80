// Package services contains the core application services: document
// ingestion and retrieval-augmented question answering. Services
// depend only on the driven ports and are wired up by the CLI layer.
package services
