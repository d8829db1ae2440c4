// Package seo defines the domain types and collaborator interfaces shared by
// the audit pipeline: keyword queries, provider tasks and their poll outcomes,
// keyword metrics, SERP items and the per-keyword report shapes.
package seo
