// Package domain contains the core types of the retrieval engine:
// documents, chunks, retrieval results and the error taxonomy shared
// by services and adapters.
package domain
