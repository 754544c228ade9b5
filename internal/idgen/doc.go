// Package idgen centralises identifier generation so that request and run ids
// share a single, stubbable source.
package idgen
