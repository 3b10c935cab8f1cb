// Package datalaketest provides an in-memory data lake API for tests and
// local development.
//
// The API verifies Auth headers the way the real service does, keeps
// packages, datasets and cart items in memory, and hands out one-time upload
// URLs on its own host. Faults can be injected into each upload step.
//
//	srv := datalaketest.NewServer(t, datalaketest.Config{})
//	srv.API.SetFaults(datalaketest.Faults{FailUpload: true})
package datalaketest
